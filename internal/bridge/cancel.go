package bridge

import "sync/atomic"

// CancelToken is the shared flag allowing an in-flight job to be stopped
// cooperatively. It is reset at job start, set by an asynchronous cancel
// request, and polled by the session's read loop between output lines.
//
// The token is passed explicitly rather than held as package state so that
// the cancel-request issuer and the session reader agree on exactly one
// handle per job, and concurrent sessions would not collide.
type CancelToken struct {
	canceled atomic.Bool
}

func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Reset clears the flag. Called at job start; a stale cancel request from a
// previous job is silently discarded.
func (t *CancelToken) Reset() {
	t.canceled.Store(false)
}

// Cancel requests cooperative termination. Idempotent.
func (t *CancelToken) Cancel() {
	t.canceled.Store(true)
}

// Canceled reports whether cancellation has been requested.
func (t *CancelToken) Canceled() bool {
	return t.canceled.Load()
}
