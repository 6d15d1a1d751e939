// Package queue provides the named FIFO buffers that hold deferred
// pipeline continuations for one scope.
//
// A Queue is safe under concurrent Enqueue and a single in-progress Drain:
// Drain atomically takes everything queued so far, so items added while the
// caller processes the drained batch wait for the next drain.
package queue
