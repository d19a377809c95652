// Package handlers implements the application's job handlers, one per
// side-effect category. Every handler tolerates re-execution of the same
// payload: redelivery after a stalled-job reclaim or a crash between
// execution and acknowledgment is part of the delivery contract.
package handlers
