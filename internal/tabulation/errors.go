package tabulation

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt matches every CorruptCacheError.
	ErrCorrupt = errors.New("tabulation: corrupt cache entry")
	// ErrConflict is returned by Store in CreateOnly mode when an entry exists.
	ErrConflict = errors.New("tabulation: entry already exists")
	// ErrFingerprintMismatch is returned by Store for an entry whose
	// fingerprint does not describe its spec.
	ErrFingerprintMismatch = errors.New("tabulation: fingerprint does not match spec")
)

// CorruptCacheError reports a stored entry that could not be decoded or
// verified. Callers must regenerate the tables.
type CorruptCacheError struct {
	Fingerprint string
	Reason      string
	Err         error
}

func (e *CorruptCacheError) Error() string {
	msg := fmt.Sprintf("tabulation: corrupt entry %s: %s", e.Fingerprint, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptCacheError) Unwrap() error { return e.Err }

func (e *CorruptCacheError) Is(target error) bool { return target == ErrCorrupt }

func corrupt(reason string, err error) *CorruptCacheError {
	return &CorruptCacheError{Reason: reason, Err: err}
}
