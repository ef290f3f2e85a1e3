package services

import "time"

// Kind classifies the outcome of an external service call.
type Kind int

const (
	// KindSuccess carries a usable payload.
	KindSuccess Kind = iota
	// KindNoData means the provider answered but had nothing for us
	// (a geocoder finding no address is not an error).
	KindNoData
	// KindThrottled means the provider asked us to back off; requeue after
	// the delay, never surface as a failure.
	KindThrottled
	// KindPermanent means the provider rejected the request in a way more
	// attempts won't fix soon; requeued with a long delay so the daily
	// digest can surface repeat offenders without a retry storm.
	KindPermanent
	// KindTransient means connectivity kept failing through every
	// immediate retry; requeue and try again later.
	KindTransient
)

// Timing constants of the shared retry contract. Every integration uses the
// same numbers so operational behavior is predictable across providers.
const (
	RetryLimit            = 3
	RetryDelay            = 15 * time.Second
	TransientRequeueDelay = 60 * time.Minute
	PermanentRequeueDelay = 24 * time.Hour
	ThrottleDefaultDelay  = 10 * time.Minute
)

// Status is the normalized outcome adapters hand back to task handlers.
type Status struct {
	Kind         Kind
	RequeueAfter time.Duration
	Detail       string
}

// Success returns a payload-bearing outcome.
func Success() Status {
	return Status{Kind: KindSuccess}
}

// NoData returns a successful outcome with nothing to record.
func NoData() Status {
	return Status{Kind: KindNoData}
}

// Throttled returns a backoff outcome. Zero delay falls back to the default.
func Throttled(after time.Duration) Status {
	if after <= 0 {
		after = ThrottleDefaultDelay
	}
	return Status{Kind: KindThrottled, RequeueAfter: after}
}

// Permanent returns a long-requeue outcome for provider-side rejections.
func Permanent(detail string) Status {
	return Status{Kind: KindPermanent, RequeueAfter: PermanentRequeueDelay, Detail: detail}
}

// Transient returns the exhausted-retries outcome.
func Transient(detail string) Status {
	return Status{Kind: KindTransient, RequeueAfter: TransientRequeueDelay, Detail: detail}
}

// OK reports whether the call produced a terminal, non-retried result.
func (s Status) OK() bool {
	return s.Kind == KindSuccess || s.Kind == KindNoData
}
