// Package services defines the uniform retry/backoff contract shared by every
// external integration adapter.
//
// Each adapter differs only in its endpoint shapes and its status-code table;
// the timing numbers (3 immediate retries 15s apart, 60-minute transient
// requeue, 24-hour permanent-ish requeue) are identical everywhere so one
// misbehaving provider behaves like any other operationally.
package services
