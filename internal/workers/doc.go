// Package workers runs the fixed pool that drains the task queue.
//
// Workers coordinate only through the queue's atomic claim. Two pool-wide
// switches change claiming behavior: stopping mode filters out import-chain
// tasks so the pipeline drains, and shutdown stops claiming entirely while
// letting in-flight tasks run to completion.
package workers
