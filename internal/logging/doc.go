// Package logging builds the slog loggers used throughout curator and defines
// the shared attribute vocabulary (task_id, worker_id, event_type, ...) so
// log lines stay greppable across components.
package logging
