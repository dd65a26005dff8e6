package store

import "errors"

// ErrStorage matches every StorageError via errors.Is.
var ErrStorage = errors.New("storage error")

// ErrNotInitialized means the lock_state row has not been bootstrapped.
var ErrNotInitialized = errors.New("lock state not initialized")

// StorageError wraps a failure of a backing store (database, worker,
// timeout, log file).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return e.Op + ": storage error"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Wrap returns nil for a nil err, err itself if it already is a
// StorageError, and a new StorageError otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
