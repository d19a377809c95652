// Package service implements the application's mutation and read paths.
// Every mutation follows the same shape: write through the store, then
// synchronously invalidate the affected cache keys, then enqueue the jobs
// describing the side effects. Invalidation happens before the call
// returns so no caller can observe a stale read after a mutation; job
// execution is asynchronous and never awaited.
package service
