package tasks

import (
	"errors"
	"time"

	"curator/internal/services"
)

// Outcome is a handler's verdict on one task attempt. The executor translates
// it into queue operations; handlers never touch task rows themselves.
type Outcome struct {
	// Success means the task finished and its row should be deleted after
	// releasing dependents.
	Success bool
	// RearmAfter, on success, reschedules the same row instead of deleting
	// it. Periodic tasks use this to re-arm themselves.
	RearmAfter time.Duration
	// Permanent means the task can never succeed; its whole dependency
	// chain is removed.
	Permanent bool
	// RequeueDelay, on a non-permanent failure, pushes the retry this far
	// into the future. Zero leaves the lease to lapse on its own.
	RequeueDelay time.Duration
	// Err describes the failure for logging.
	Err error
}

// Succeeded marks the task complete.
func Succeeded() Outcome {
	return Outcome{Success: true}
}

// SucceededRearm marks a periodic task complete and schedules its next run.
func SucceededRearm(after time.Duration) Outcome {
	return Outcome{Success: true, RearmAfter: after}
}

// FailedPermanent marks the task unrecoverable.
func FailedPermanent(err error) Outcome {
	return Outcome{Permanent: true, Err: err}
}

// FailedTransient marks the task retryable. A zero delay defers to lease
// expiry; a positive delay reschedules explicitly.
func FailedTransient(err error, requeueAfter time.Duration) Outcome {
	return Outcome{RequeueDelay: requeueAfter, Err: err}
}

// outcomeFromStatus maps a service call status onto a task outcome. Throttled,
// permanent, and transient statuses all requeue: enrichment work is never
// destroyed over a provider problem, it just waits out the prescribed delay.
func outcomeFromStatus(status services.Status) Outcome {
	if status.OK() {
		return Succeeded()
	}
	err := errors.New(status.Detail)
	if status.Detail == "" {
		err = errors.New("service call failed")
	}
	return FailedTransient(err, status.RequeueAfter)
}
