package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes. They are part of the external contract.
const (
	ProjectIDPrefix           = "proj_"
	DocumentIDPrefix          = "doc_"
	ExtractionIDPrefix        = "ext_"
	ExtractedDocumentIDPrefix = "det_"
)

// uuidLen is the length of a canonical hyphenated UUID.
const uuidLen = 36

// newPrefixed returns prefix followed by a fresh random UUID.
func newPrefixed(prefix string) string {
	return prefix + uuid.NewString()
}

// parsePrefixed validates s as prefix + lower-case canonical UUIDv4.
func parsePrefixed(prefix, s string) (string, error) {
	if !strings.HasPrefix(s, prefix) {
		return "", fmt.Errorf("%w: %q does not start with %q", ErrInvalidPrefix, s, prefix)
	}
	rest := strings.TrimPrefix(s, prefix)
	if len(rest) != uuidLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidUUID, rest)
	}
	u, err := uuid.Parse(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidUUID, rest, err)
	}
	if u.Version() != 4 || u.Variant() != uuid.RFC4122 {
		return "", fmt.Errorf("%w: %q is not a version 4 UUID", ErrInvalidUUID, rest)
	}
	if u.String() != rest {
		return "", fmt.Errorf("%w: %q must be lower case", ErrInvalidUUID, rest)
	}
	return s, nil
}

// ProjectID identifies a project. The zero value is not a valid ID.
type ProjectID struct{ value string }

// NewProjectID generates a fresh project ID.
func NewProjectID() ProjectID { return ProjectID{value: newPrefixed(ProjectIDPrefix)} }

// ParseProjectID validates a "proj_<uuid>" string.
func ParseProjectID(s string) (ProjectID, error) {
	v, err := parsePrefixed(ProjectIDPrefix, s)
	if err != nil {
		return ProjectID{}, err
	}
	return ProjectID{value: v}, nil
}

// String returns the full identifier.
func (id ProjectID) String() string { return id.value }

// UUIDPart returns the identifier without its prefix.
func (id ProjectID) UUIDPart() string { return strings.TrimPrefix(id.value, ProjectIDPrefix) }

// IsZero reports whether the ID was never assigned.
func (id ProjectID) IsZero() bool { return id.value == "" }

// MarshalText implements encoding.TextMarshaler.
func (id ProjectID) MarshalText() ([]byte, error) { return []byte(id.value), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ProjectID) UnmarshalText(b []byte) error {
	parsed, err := ParseProjectID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// DocumentID identifies an OriginalDocument.
type DocumentID struct{ value string }

// NewDocumentID generates a fresh document ID.
func NewDocumentID() DocumentID { return DocumentID{value: newPrefixed(DocumentIDPrefix)} }

// ParseDocumentID validates a "doc_<uuid>" string.
func ParseDocumentID(s string) (DocumentID, error) {
	v, err := parsePrefixed(DocumentIDPrefix, s)
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID{value: v}, nil
}

// String returns the full identifier.
func (id DocumentID) String() string { return id.value }

// UUIDPart returns the identifier without its prefix.
func (id DocumentID) UUIDPart() string { return strings.TrimPrefix(id.value, DocumentIDPrefix) }

// IsZero reports whether the ID was never assigned.
func (id DocumentID) IsZero() bool { return id.value == "" }

// MarshalText implements encoding.TextMarshaler.
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.value), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ExtractionID identifies a FileExtraction attempt.
type ExtractionID struct{ value string }

// NewExtractionID generates a fresh extraction ID.
func NewExtractionID() ExtractionID { return ExtractionID{value: newPrefixed(ExtractionIDPrefix)} }

// ParseExtractionID validates an "ext_<uuid>" string.
func ParseExtractionID(s string) (ExtractionID, error) {
	v, err := parsePrefixed(ExtractionIDPrefix, s)
	if err != nil {
		return ExtractionID{}, err
	}
	return ExtractionID{value: v}, nil
}

// String returns the full identifier.
func (id ExtractionID) String() string { return id.value }

// UUIDPart returns the identifier without its prefix.
func (id ExtractionID) UUIDPart() string { return strings.TrimPrefix(id.value, ExtractionIDPrefix) }

// IsZero reports whether the ID was never assigned.
func (id ExtractionID) IsZero() bool { return id.value == "" }

// MarshalText implements encoding.TextMarshaler.
func (id ExtractionID) MarshalText() ([]byte, error) { return []byte(id.value), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ExtractionID) UnmarshalText(b []byte) error {
	parsed, err := ParseExtractionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ExtractedDocumentID identifies an ExtractedDocument.
type ExtractedDocumentID struct{ value string }

// NewExtractedDocumentID generates a fresh extracted document ID.
func NewExtractedDocumentID() ExtractedDocumentID {
	return ExtractedDocumentID{value: newPrefixed(ExtractedDocumentIDPrefix)}
}

// ParseExtractedDocumentID validates a "det_<uuid>" string.
func ParseExtractedDocumentID(s string) (ExtractedDocumentID, error) {
	v, err := parsePrefixed(ExtractedDocumentIDPrefix, s)
	if err != nil {
		return ExtractedDocumentID{}, err
	}
	return ExtractedDocumentID{value: v}, nil
}

// String returns the full identifier.
func (id ExtractedDocumentID) String() string { return id.value }

// UUIDPart returns the identifier without its prefix.
func (id ExtractedDocumentID) UUIDPart() string {
	return strings.TrimPrefix(id.value, ExtractedDocumentIDPrefix)
}

// IsZero reports whether the ID was never assigned.
func (id ExtractedDocumentID) IsZero() bool { return id.value == "" }

// MarshalText implements encoding.TextMarshaler.
func (id ExtractedDocumentID) MarshalText() ([]byte, error) { return []byte(id.value), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ExtractedDocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseExtractedDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
