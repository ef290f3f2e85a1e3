// Package tasks executes claimed queue tasks.
//
// The Executor owns the contract between a handler's verdict and the queue:
// successful tasks release their dependents and disappear, permanent failures
// take their whole dependency chain with them, and transient failures wait
// out either an explicit delay or their lease. Handlers hold the pipeline
// logic: downloading originals, inspecting and transcoding media, enrichment
// lookups, and cleanup.
package tasks
