package verification

import "errors"

// Sentinel errors for the verification service layer.
var (
	// ErrListPending aborts a tick: without the batch page nothing can be
	// selected safely.
	ErrListPending = errors.New("list pending verification batches")
)
