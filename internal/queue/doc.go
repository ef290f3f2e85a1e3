// Package queue persists curator's durable work items in SQLite and exposes
// the atomic claim primitive every worker coordinates through.
//
// Tasks carry a type, priority, timing gate (not_before), and an optional
// single-parent dependency. Claiming selects the oldest highest-priority
// eligible row and leases it by pushing not_before forward in the same
// statement; a crashed worker's lease simply expires. There is no in-process
// queue or lock anywhere else: the database is the only shared state, which
// is what lets multiple worker processes cooperate safely.
//
// The package also owns the provider shadow records and sync-run summaries
// used by change detection, since they live in the same database and share
// its transactional semantics.
package queue
