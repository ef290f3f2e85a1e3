// Package daemon assembles and supervises the curator pipeline.
//
// A flock-based lock file enforces one daemon per log directory. Start wires
// the worker pool and seeds the periodic change-detection task; Stop drains
// in-flight work before releasing the lock.
package daemon
