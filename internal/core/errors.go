package core

import "fmt"

// ValidationError rejects a file before extraction: unsupported type or a
// size/page ceiling exceeded. User-correctable; never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ExtractionError is a parse or oracle failure inside an extractor.
// Recoverable errors are retryable by re-running the document; non-recoverable
// ones (missing parser capability) require operator intervention.
type ExtractionError struct {
	Message     string
	Extractor   string
	Recoverable bool
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Extractor, e.Message)
}

// NewExtractionError builds a recoverable extraction error wrapping cause.
func NewExtractionError(extractor string, cause error) *ExtractionError {
	return &ExtractionError{Message: cause.Error(), Extractor: extractor, Recoverable: true}
}

// PersistenceError is a storage/DB failure during finalize. It propagates and
// leaves the document in "processing" for an external reaper to reclaim.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
