package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Identifier Errors.

	// ErrInvalidPrefix indicates an identifier does not carry the expected prefix.
	ErrInvalidPrefix = errors.New("invalid identifier prefix")

	// ErrInvalidUUID indicates the UUID part of an identifier is malformed.
	ErrInvalidUUID = errors.New("invalid identifier uuid")

	// Path Errors.

	// ErrPathNotAbsolute indicates a relative path was supplied.
	ErrPathNotAbsolute = errors.New("path is not absolute")

	// ErrPathNotFound indicates the path does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrPathNotFile indicates the path exists but is not a regular file.
	ErrPathNotFile = errors.New("path is not a regular file")

	// ErrPathNotReadable indicates the file cannot be opened for reading.
	ErrPathNotReadable = errors.New("path is not readable")

	// ErrPathTraversal indicates the path contains a ".." segment.
	ErrPathTraversal = errors.New("path traversal attempt")

	// ErrPathNullByte indicates the path contains an embedded null byte.
	ErrPathNullByte = errors.New("path contains null byte")

	// ErrPathOutsideWorkspace indicates the path escapes the workspace root.
	ErrPathOutsideWorkspace = errors.New("path is outside workspace")

	// Classification Errors.

	// ErrUnsupportedDocumentType indicates the file extension maps to no document type.
	ErrUnsupportedDocumentType = errors.New("unsupported document type")

	// ErrFileTooLarge indicates the file exceeds its type's size ceiling.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrMethodNotApplicable indicates an extraction method cannot process a document type.
	ErrMethodNotApplicable = errors.New("extraction method not applicable to document type")

	// Aggregate Errors.

	// ErrExtractionInProgress indicates a non-terminal extraction already exists for the document.
	ErrExtractionInProgress = errors.New("extraction already in progress")

	// ErrExtractionNotFound indicates the referenced extraction does not exist.
	ErrExtractionNotFound = errors.New("extraction not found")

	// ErrInvalidTransition indicates an illegal extraction status change.
	ErrInvalidTransition = errors.New("invalid extraction state transition")

	// ErrExtractionFailed marks a permanent extraction failure (corrupt file,
	// unsupported structure). Extractors wrap it; anything else is transient.
	ErrExtractionFailed = errors.New("extraction failed permanently")

	// Repository Errors.

	// ErrStorage indicates the storage backend failed.
	ErrStorage = errors.New("storage error")

	// ErrValidation indicates the repository rejected an entity as invalid.
	ErrValidation = errors.New("validation error")

	// ErrAccessDenied indicates a permission failure in the storage backend.
	ErrAccessDenied = errors.New("access denied")

	// ErrSerialization indicates an entity could not be encoded or decoded.
	ErrSerialization = errors.New("serialization error")

	// ErrFileSystem indicates a filesystem failure while persisting.
	ErrFileSystem = errors.New("filesystem error")

	// ErrConstraintViolation indicates a storage-level uniqueness or integrity constraint failed.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrInternal indicates an unexpected failure inside a repository.
	ErrInternal = errors.New("internal error")
)

// RepositoryErrorKind is the closed taxonomy every storage backend maps into.
type RepositoryErrorKind string

// Repository error kinds.
const (
	RepoNotFound      RepositoryErrorKind = "not_found"
	RepoStorage       RepositoryErrorKind = "storage"
	RepoValidation    RepositoryErrorKind = "validation"
	RepoAccess        RepositoryErrorKind = "access"
	RepoSerialization RepositoryErrorKind = "serialization"
	RepoFileSystem    RepositoryErrorKind = "filesystem"
	RepoConstraint    RepositoryErrorKind = "constraint"
	RepoInternal      RepositoryErrorKind = "internal"
)

// sentinel returns the package-level error matching the kind.
func (k RepositoryErrorKind) sentinel() error {
	switch k {
	case RepoNotFound:
		return ErrNotFound
	case RepoStorage:
		return ErrStorage
	case RepoValidation:
		return ErrValidation
	case RepoAccess:
		return ErrAccessDenied
	case RepoSerialization:
		return ErrSerialization
	case RepoFileSystem:
		return ErrFileSystem
	case RepoConstraint:
		return ErrConstraintViolation
	default:
		return ErrInternal
	}
}

// RepositoryError is returned by repository implementations.
// errors.Is matches both the kind's sentinel and the wrapped cause.
type RepositoryError struct {
	// Kind classifies the failure.
	Kind RepositoryErrorKind

	// Op names the repository operation, e.g. "documents.save".
	Op string

	// Err is the underlying cause, if any.
	Err error
}

// NewRepositoryError creates a RepositoryError.
func NewRepositoryError(kind RepositoryErrorKind, op string, err error) *RepositoryError {
	return &RepositoryError{Kind: kind, Op: op, Err: err}
}

// Error implements error.
func (e *RepositoryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind.sentinel(), e.Err)
}

// Unwrap returns the underlying cause.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *RepositoryError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// IsNotFound reports whether err means "no such entity".
// Callers treat this differently from every other repository failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
