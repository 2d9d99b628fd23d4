package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrNotAGitRepository  = errors.New("not a git repository")
	ErrBoundaryNotFound   = errors.New("resumption commit not found in history")
	ErrEncode             = errors.New("encoding failed")
	ErrIndexNotFound      = errors.New("index not found")
	ErrCorruptIndex       = errors.New("index is corrupt")
	ErrInvalidFilterValue = errors.New("invalid filter value")
	ErrModelMismatch      = errors.New("embedding model mismatch")

	// ErrDateRangeInverted is the cause of an InvalidFilterValueError whose
	// before date falls earlier than its after date.
	ErrDateRangeInverted = errors.New("before date is earlier than after date")
)

// NotAGitRepositoryError is returned when a path has no usable git control directory.
type NotAGitRepositoryError struct {
	Path string
}

func (e *NotAGitRepositoryError) Error() string {
	return fmt.Sprintf("not a git repository: %s", e.Path)
}

func (e *NotAGitRepositoryError) Is(target error) bool { return target == ErrNotAGitRepository }

// BoundaryNotFoundError is returned when the resumption cursor never appears in history.
type BoundaryNotFoundError struct {
	Hash string
}

func (e *BoundaryNotFoundError) Error() string {
	return fmt.Sprintf("could not find commit %s in history", e.Hash)
}

func (e *BoundaryNotFoundError) Is(target error) bool { return target == ErrBoundaryNotFound }

// EncodeError is returned when the encoder fails for a commit or a query.
// Hash is empty for query encoding failures.
type EncodeError struct {
	Hash string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Hash == "" {
		return fmt.Sprintf("failed to encode query: %v", e.Err)
	}
	return fmt.Sprintf("failed to encode commit %s: %v", e.Hash, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool { return target == ErrEncode }

// IndexNotFoundError is returned when no index file exists.
type IndexNotFoundError struct {
	Path string
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("index not found at %s", e.Path)
}

func (e *IndexNotFoundError) Is(target error) bool { return target == ErrIndexNotFound }

// CorruptIndexError is returned when an index file cannot be decoded.
type CorruptIndexError struct {
	Path string
	Err  error
}

func (e *CorruptIndexError) Error() string {
	return fmt.Sprintf("index at %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptIndexError) Unwrap() error { return e.Err }

func (e *CorruptIndexError) Is(target error) bool { return target == ErrCorruptIndex }

// InvalidFilterValueError is returned for a malformed search filter.
type InvalidFilterValueError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidFilterValueError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid value %q for filter %s", e.Value, e.Field)
	}
	return fmt.Sprintf("invalid value %q for filter %s: %v", e.Value, e.Field, e.Err)
}

func (e *InvalidFilterValueError) Unwrap() error { return e.Err }

func (e *InvalidFilterValueError) Is(target error) bool { return target == ErrInvalidFilterValue }

// ModelMismatchError is returned when an index was built by a different model
// than the active encoder.
type ModelMismatchError struct {
	IndexModel  string
	ActiveModel string
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("index was built with model %q but the active model is %q", e.IndexModel, e.ActiveModel)
}

func (e *ModelMismatchError) Is(target error) bool { return target == ErrModelMismatch }

// Hint returns user guidance for the errors in this package, or "" if none applies.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrIndexNotFound):
		return "No index found. Run 'git-semantic index' first."
	case errors.Is(err, ErrCorruptIndex):
		return "The index is damaged. Rebuild it with 'git-semantic index'."
	case errors.Is(err, ErrBoundaryNotFound):
		return "The last indexed commit is no longer in history (was it rewritten?). Rebuild with 'git-semantic index'."
	case errors.Is(err, ErrModelMismatch):
		return "The index was built with another model. Rebuild it with 'git-semantic index'."
	case errors.Is(err, ErrNotAGitRepository):
		return "Run the command inside a git repository or pass --path."
	case errors.Is(err, ErrDateRangeInverted):
		return "The --before date must not be earlier than the --after date."
	case errors.Is(err, ErrInvalidFilterValue):
		return "Dates must use the YYYY-MM-DD format."
	default:
		return ""
	}
}
