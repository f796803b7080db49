package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteUnavailable means the remote block list could not be read in
	// full. It is fatal for a sync and nothing is written.
	ErrRemoteUnavailable = errors.New("remote block source unavailable")
	// ErrDuplicateKey is returned by a Catalog when (owner, target) already exists.
	ErrDuplicateKey = errors.New("block record already exists")
	// ErrCatalogUnavailable wraps catalog read/write failures that abort a sync.
	ErrCatalogUnavailable = errors.New("block catalog unavailable")
	ErrSelfBlock          = errors.New("an account cannot block itself")
	ErrRecordNotFound     = errors.New("block record not found")
	ErrSummaryInvariant   = errors.New("sync summary does not balance")
)

// PushError records one outbound block that failed. It never aborts a batch.
type PushError struct {
	TargetID string
	Err      error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push block %s: %v", e.TargetID, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}
