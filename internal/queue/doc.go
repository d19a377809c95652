// Package queue implements the asynchronous job subsystem: the job record
// and its state machine, the static queue declarations with per-queue
// concurrency and retry policy, a typed job registry, the dispatcher that
// claims and executes jobs, and a read-only monitor over queue counts.
//
// Jobs are delivered at least once. A worker crash between claim and
// acknowledgment leads to redelivery through stalled-job reclaim, so every
// registered handler must tolerate re-execution of the same payload.
package queue
