package store

import "fmt"

// ErrNotFound reports that a lookup (block or balance) found nothing at
// the requested key.
type ErrNotFound struct {
	What string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("store: %s not found", e.What)
}

// ErrAlreadyExists reports that a put would overwrite an existing record
// the caller did not intend to replace.
type ErrAlreadyExists struct {
	What string
}

func (e *ErrAlreadyExists) Error() string {
	return fmt.Sprintf("store: %s already exists", e.What)
}

// ErrNotSupported reports an operation that is structurally disallowed,
// such as adding a block out of sequence.
type ErrNotSupported struct {
	Reason string
}

func (e *ErrNotSupported) Error() string {
	return fmt.Sprintf("store: not supported: %s", e.Reason)
}

// ErrInvalidData reports that a block or transaction failed a consensus
// check and was rejected before being persisted.
type ErrInvalidData struct {
	Reason string
}

func (e *ErrInvalidData) Error() string {
	return fmt.Sprintf("store: invalid data: %s", e.Reason)
}

// ErrCorruption reports that data read back from the database could not be
// decoded. RebuildChainstate aborts outright on this error rather than
// trying to proceed with a partial chainstate.
type ErrCorruption struct {
	Reason string
}

func (e *ErrCorruption) Error() string {
	return fmt.Sprintf("store: corruption: %s", e.Reason)
}

// ErrInternal wraps an underlying bbolt or encoding failure that isn't
// attributable to bad input.
type ErrInternal struct {
	Err error
}

func (e *ErrInternal) Error() string {
	return fmt.Sprintf("store: internal error: %v", e.Err)
}

func (e *ErrInternal) Unwrap() error {
	return e.Err
}
