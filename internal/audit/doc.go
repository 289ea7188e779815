// Package audit queues activity records and writes them to a sink off the
// caller's goroutine.
//
// Deciding which activities to record belongs to internal/flows. This
// package must not import authflow or sibling internal packages, and does no
// I/O beyond what a caller-supplied Sink or writer does.
package audit
