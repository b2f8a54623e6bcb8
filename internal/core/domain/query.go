package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxPageLimit caps the number of items a single page may request.
const MaxPageLimit = 1000

// SortDirection orders query results.
type SortDirection string

// Sort directions.
const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// IsValid returns true if the direction is recognised.
func (d SortDirection) IsValid() bool {
	return d == Ascending || d == Descending
}

// Page is one slice of a paginated query.
type Page[T any] struct {
	Items      []T
	TotalCount int
	Offset     int
	Limit      int
	HasMore    bool
}

// NewPage builds a page and derives HasMore from the totals.
func NewPage[T any](items []T, totalCount, offset, limit int) Page[T] {
	return Page[T]{
		Items:      items,
		TotalCount: totalCount,
		Offset:     offset,
		Limit:      limit,
		HasMore:    offset+len(items) < totalCount,
	}
}

// ValidatePagination rejects negative offsets and out-of-range limits.
func ValidatePagination(offset, limit int) error {
	if offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0, got %d", ErrInvalidInput, offset)
	}
	if limit < 1 || limit > MaxPageLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidInput, MaxPageLimit, limit)
	}
	return nil
}

// Paginate slices items for offset/limit. Callers validate first.
func Paginate[T any](items []T, offset, limit int) Page[T] {
	total := len(items)
	if offset >= total {
		return NewPage([]T{}, total, offset, limit)
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return NewPage(items[offset:end], total, offset, limit)
}

// TimeRange is a half-open interval [From, To). Zero bounds are open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// IsZero reports whether both bounds are open.
func (r TimeRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// SizeRange is an inclusive byte-size range. A nil bound is open.
type SizeRange struct {
	Min *int64
	Max *int64
}

// Contains reports whether size lies inside the range.
func (r SizeRange) Contains(size int64) bool {
	if r.Min != nil && size < *r.Min {
		return false
	}
	if r.Max != nil && size > *r.Max {
		return false
	}
	return true
}

// DocumentSortField orders document queries.
type DocumentSortField string

// Document sort fields.
const (
	SortByFileName   DocumentSortField = "file_name"
	SortByFileSize   DocumentSortField = "file_size"
	SortByFileType   DocumentSortField = "file_type"
	SortByCreatedAt  DocumentSortField = "created_at"
	SortByModifiedAt DocumentSortField = "modified_at"
)

// IsValid returns true if the sort field is recognised.
func (f DocumentSortField) IsValid() bool {
	switch f {
	case SortByFileName, SortByFileSize, SortByFileType, SortByCreatedAt, SortByModifiedAt:
		return true
	default:
		return false
	}
}

// DocumentSearchCriteria filters and orders document searches.
// It is an immutable value: every WithXxx call returns a modified copy.
type DocumentSearchCriteria struct {
	projectID       ProjectID
	fileTypes       []DocumentType
	namePattern     string
	sizeRange       SizeRange
	createdRange    TimeRange
	modifiedRange   TimeRange
	extractableOnly bool
	sortBy          DocumentSortField
	direction       SortDirection
	offset          int
	limit           int
}

// NewDocumentSearchCriteria scopes a search to one project. Results are
// sorted by file name ascending, 50 per page, unless overridden.
func NewDocumentSearchCriteria(projectID ProjectID) DocumentSearchCriteria {
	return DocumentSearchCriteria{
		projectID: projectID,
		sortBy:    SortByFileName,
		direction: Ascending,
		limit:     50,
	}
}

// WithFileTypes restricts results to the given types.
func (c DocumentSearchCriteria) WithFileTypes(types ...DocumentType) DocumentSearchCriteria {
	c.fileTypes = append([]DocumentType(nil), types...)
	return c
}

// WithNamePattern keeps documents whose file name contains pattern, ignoring case.
func (c DocumentSearchCriteria) WithNamePattern(pattern string) DocumentSearchCriteria {
	c.namePattern = pattern
	return c
}

// WithSizeRange keeps documents whose size lies in [minSize, maxSize].
func (c DocumentSearchCriteria) WithSizeRange(minSize, maxSize int64) DocumentSearchCriteria {
	c.sizeRange = SizeRange{Min: &minSize, Max: &maxSize}
	return c
}

// WithMinSize keeps documents of at least minSize bytes.
func (c DocumentSearchCriteria) WithMinSize(minSize int64) DocumentSearchCriteria {
	c.sizeRange.Min = &minSize
	return c
}

// WithMaxSize keeps documents of at most maxSize bytes.
func (c DocumentSearchCriteria) WithMaxSize(maxSize int64) DocumentSearchCriteria {
	c.sizeRange.Max = &maxSize
	return c
}

// WithCreatedRange keeps documents created inside r.
func (c DocumentSearchCriteria) WithCreatedRange(r TimeRange) DocumentSearchCriteria {
	c.createdRange = r
	return c
}

// WithModifiedRange keeps documents modified inside r.
func (c DocumentSearchCriteria) WithModifiedRange(r TimeRange) DocumentSearchCriteria {
	c.modifiedRange = r
	return c
}

// ExtractableOnly keeps only documents that may enter the pipeline.
func (c DocumentSearchCriteria) ExtractableOnly() DocumentSearchCriteria {
	c.extractableOnly = true
	return c
}

// SortBy sets the ordering.
func (c DocumentSearchCriteria) SortBy(field DocumentSortField, direction SortDirection) DocumentSearchCriteria {
	c.sortBy = field
	c.direction = direction
	return c
}

// WithPage sets offset and limit.
func (c DocumentSearchCriteria) WithPage(offset, limit int) DocumentSearchCriteria {
	c.offset = offset
	c.limit = limit
	return c
}

// ProjectID returns the required project scope.
func (c DocumentSearchCriteria) ProjectID() ProjectID { return c.projectID }

// FileTypes returns the type filter, empty for all types.
func (c DocumentSearchCriteria) FileTypes() []DocumentType {
	return append([]DocumentType(nil), c.fileTypes...)
}

// NamePattern returns the case-insensitive name substring filter.
func (c DocumentSearchCriteria) NamePattern() string { return c.namePattern }

// SizeRange returns the size filter.
func (c DocumentSearchCriteria) SizeRange() SizeRange { return c.sizeRange }

// CreatedRange returns the creation-date filter.
func (c DocumentSearchCriteria) CreatedRange() TimeRange { return c.createdRange }

// ModifiedRange returns the modification-date filter.
func (c DocumentSearchCriteria) ModifiedRange() TimeRange { return c.modifiedRange }

// IsExtractableOnly reports whether non-extractable documents are excluded.
func (c DocumentSearchCriteria) IsExtractableOnly() bool { return c.extractableOnly }

// Sort returns the sort field and direction.
func (c DocumentSearchCriteria) Sort() (DocumentSortField, SortDirection) { return c.sortBy, c.direction }

// Offset returns the page offset.
func (c DocumentSearchCriteria) Offset() int { return c.offset }

// Limit returns the page size.
func (c DocumentSearchCriteria) Limit() int { return c.limit }

// Validate checks that the criteria can be executed.
func (c DocumentSearchCriteria) Validate() error {
	if c.projectID.IsZero() {
		return fmt.Errorf("%w: search requires a project", ErrInvalidInput)
	}
	for _, t := range c.fileTypes {
		if !t.IsValid() {
			return fmt.Errorf("%w: unknown file type %q", ErrInvalidInput, t)
		}
	}
	if !c.sortBy.IsValid() {
		return fmt.Errorf("%w: unknown sort field %q", ErrInvalidInput, c.sortBy)
	}
	if !c.direction.IsValid() {
		return fmt.Errorf("%w: unknown sort direction %q", ErrInvalidInput, c.direction)
	}
	return ValidatePagination(c.offset, c.limit)
}

// Matches reports whether doc passes every filter. Backends that cannot push
// filters down to storage use this so all backends agree.
func (c DocumentSearchCriteria) Matches(doc *OriginalDocument) bool {
	if doc.ProjectID() != c.projectID {
		return false
	}
	if len(c.fileTypes) > 0 && !containsType(c.fileTypes, doc.Type()) {
		return false
	}
	if c.namePattern != "" &&
		!strings.Contains(strings.ToLower(doc.FileName()), strings.ToLower(c.namePattern)) {
		return false
	}
	if !c.sizeRange.Contains(doc.Size()) {
		return false
	}
	if !c.createdRange.Contains(doc.CreatedAt()) || !c.modifiedRange.Contains(doc.ModifiedAt()) {
		return false
	}
	if c.extractableOnly && !doc.IsExtractable() {
		return false
	}
	return true
}

// SortDocuments orders docs in place by field and direction. Ties break on
// document ID so every backend returns the same order.
func SortDocuments(docs []*OriginalDocument, field DocumentSortField, direction SortDirection) {
	sort.SliceStable(docs, func(i, j int) bool {
		cmp := compareDocuments(docs[i], docs[j], field)
		if cmp == 0 {
			cmp = strings.Compare(docs[i].ID().String(), docs[j].ID().String())
			return cmp < 0
		}
		if direction == Descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareDocuments(a, b *OriginalDocument, field DocumentSortField) int {
	switch field {
	case SortByFileSize:
		return compareInt64(a.Size(), b.Size())
	case SortByFileType:
		return strings.Compare(string(a.Type()), string(b.Type()))
	case SortByCreatedAt:
		return a.CreatedAt().Compare(b.CreatedAt())
	case SortByModifiedAt:
		return a.ModifiedAt().Compare(b.ModifiedAt())
	default:
		return strings.Compare(strings.ToLower(a.FileName()), strings.ToLower(b.FileName()))
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func containsType(types []DocumentType, t DocumentType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// DuplicateGroup is a set of documents in one project sharing a checksum.
// Groups always have at least two members.
type DuplicateGroup struct {
	Checksum  string
	Documents []*OriginalDocument
}

// GroupDuplicates groups docs by checksum, dropping singletons. Groups are
// ordered by checksum and members by path.
func GroupDuplicates(docs []*OriginalDocument) []DuplicateGroup {
	byChecksum := make(map[string][]*OriginalDocument)
	for _, doc := range docs {
		byChecksum[doc.Checksum()] = append(byChecksum[doc.Checksum()], doc)
	}
	groups := make([]DuplicateGroup, 0, len(byChecksum))
	for checksum, members := range byChecksum {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			return members[i].Path().String() < members[j].Path().String()
		})
		groups = append(groups, DuplicateGroup{Checksum: checksum, Documents: members})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Checksum < groups[j].Checksum })
	return groups
}

// BatchFailure records one entry a batch save could not persist.
type BatchFailure struct {
	ID  string
	Err error
}

// BatchResult reports a batch save. Partial success is always explicit.
type BatchResult struct {
	Saved  []string
	Failed []BatchFailure
}

// Succeeded reports whether every entry was saved.
func (r BatchResult) Succeeded() bool {
	return len(r.Failed) == 0
}
