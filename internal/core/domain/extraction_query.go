package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ExtractionSortField orders extraction queries.
type ExtractionSortField string

// Extraction sort fields.
const (
	SortExtractionsByCreatedAt   ExtractionSortField = "created_at"
	SortExtractionsByStartedAt   ExtractionSortField = "started_at"
	SortExtractionsByCompletedAt ExtractionSortField = "completed_at"
	SortExtractionsByDuration    ExtractionSortField = "duration"
	SortExtractionsByStatus      ExtractionSortField = "status"
	SortExtractionsByMethod      ExtractionSortField = "method"
)

// IsValid returns true if the sort field is recognised.
func (f ExtractionSortField) IsValid() bool {
	switch f {
	case SortExtractionsByCreatedAt, SortExtractionsByStartedAt, SortExtractionsByCompletedAt,
		SortExtractionsByDuration, SortExtractionsByStatus, SortExtractionsByMethod:
		return true
	default:
		return false
	}
}

// ExtractionSearchCriteria filters and orders extraction searches.
// Like DocumentSearchCriteria it is immutable.
type ExtractionSearchCriteria struct {
	documentID DocumentID
	statuses   []ExtractionStatus
	methods    []ExtractionMethod
	createdIn  TimeRange
	sortBy     ExtractionSortField
	direction  SortDirection
	offset     int
	limit      int
}

// NewExtractionSearchCriteria returns criteria matching every extraction,
// newest first, 50 per page.
func NewExtractionSearchCriteria() ExtractionSearchCriteria {
	return ExtractionSearchCriteria{
		sortBy:    SortExtractionsByCreatedAt,
		direction: Descending,
		limit:     50,
	}
}

// ForDocument restricts results to one document's attempts.
func (c ExtractionSearchCriteria) ForDocument(id DocumentID) ExtractionSearchCriteria {
	c.documentID = id
	return c
}

// WithStatuses restricts results to the given statuses.
func (c ExtractionSearchCriteria) WithStatuses(statuses ...ExtractionStatus) ExtractionSearchCriteria {
	c.statuses = append([]ExtractionStatus(nil), statuses...)
	return c
}

// WithMethods restricts results to the given methods.
func (c ExtractionSearchCriteria) WithMethods(methods ...ExtractionMethod) ExtractionSearchCriteria {
	c.methods = append([]ExtractionMethod(nil), methods...)
	return c
}

// CreatedWithin restricts results to attempts created inside r.
func (c ExtractionSearchCriteria) CreatedWithin(r TimeRange) ExtractionSearchCriteria {
	c.createdIn = r
	return c
}

// SortBy sets the ordering.
func (c ExtractionSearchCriteria) SortBy(field ExtractionSortField, direction SortDirection) ExtractionSearchCriteria {
	c.sortBy = field
	c.direction = direction
	return c
}

// WithPage sets offset and limit.
func (c ExtractionSearchCriteria) WithPage(offset, limit int) ExtractionSearchCriteria {
	c.offset = offset
	c.limit = limit
	return c
}

// DocumentID returns the document filter; zero means any document.
func (c ExtractionSearchCriteria) DocumentID() DocumentID { return c.documentID }

// Statuses returns the status filter.
func (c ExtractionSearchCriteria) Statuses() []ExtractionStatus {
	return append([]ExtractionStatus(nil), c.statuses...)
}

// Methods returns the method filter.
func (c ExtractionSearchCriteria) Methods() []ExtractionMethod {
	return append([]ExtractionMethod(nil), c.methods...)
}

// CreatedRange returns the creation-time filter.
func (c ExtractionSearchCriteria) CreatedRange() TimeRange { return c.createdIn }

// Sort returns the sort field and direction.
func (c ExtractionSearchCriteria) Sort() (ExtractionSortField, SortDirection) {
	return c.sortBy, c.direction
}

// Offset returns the page offset.
func (c ExtractionSearchCriteria) Offset() int { return c.offset }

// Limit returns the page size.
func (c ExtractionSearchCriteria) Limit() int { return c.limit }

// Validate checks that the criteria can be executed.
func (c ExtractionSearchCriteria) Validate() error {
	for _, s := range c.statuses {
		if !s.IsValid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
		}
	}
	for _, m := range c.methods {
		if !m.IsValid() {
			return fmt.Errorf("%w: unknown method %q", ErrInvalidInput, m)
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

// Matches reports whether e passes every filter.
func (c ExtractionSearchCriteria) Matches(e *FileExtraction) bool {
	if !c.documentID.IsZero() && e.DocumentID() != c.documentID {
		return false
	}
	if len(c.statuses) > 0 && !containsStatus(c.statuses, e.Status()) {
		return false
	}
	if len(c.methods) > 0 && !containsMethod(c.methods, e.Method()) {
		return false
	}
	return c.createdIn.Contains(e.CreatedAt())
}

// SortExtractions orders extractions in place. Missing timestamps and
// durations sort before present ones; ties break on ID.
func SortExtractions(items []*FileExtraction, field ExtractionSortField, direction SortDirection) {
	sort.SliceStable(items, func(i, j int) bool {
		cmp := compareExtractions(items[i], items[j], field)
		if cmp == 0 {
			return items[i].ID().String() < items[j].ID().String()
		}
		if direction == Descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareExtractions(a, b *FileExtraction, field ExtractionSortField) int {
	switch field {
	case SortExtractionsByStartedAt:
		return compareOptionalTime(a.StartedAt(), b.StartedAt())
	case SortExtractionsByCompletedAt:
		return compareOptionalTime(a.CompletedAt(), b.CompletedAt())
	case SortExtractionsByDuration:
		da, okA := a.Duration()
		db, okB := b.Duration()
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return -1
		case !okB:
			return 1
		}
		return compareInt64(int64(da), int64(db))
	case SortExtractionsByStatus:
		return strings.Compare(string(a.Status()), string(b.Status()))
	case SortExtractionsByMethod:
		return strings.Compare(string(a.Method()), string(b.Method()))
	default:
		return a.CreatedAt().Compare(b.CreatedAt())
	}
}

func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func containsStatus(statuses []ExtractionStatus, s ExtractionStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsMethod(methods []ExtractionMethod, m ExtractionMethod) bool {
	for _, candidate := range methods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ExtractionStatistics summarises extraction attempts.
type ExtractionStatistics struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int

	// Superseded counts failed attempts replaced by forced re-extraction.
	Superseded int

	// AverageDuration covers completed attempts only.
	AverageDuration time.Duration
}

// MethodPerformance aggregates attempts for one extraction method.
type MethodPerformance struct {
	Method    ExtractionMethod
	Attempts  int
	Completed int
	Failed    int

	// SuccessRate is Completed / (Completed + Failed), 0 when none finished.
	SuccessRate float64

	// Duration figures cover completed attempts only.
	AverageDuration time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration
}

// ComputeExtractionStatistics aggregates items.
func ComputeExtractionStatistics(items []*FileExtraction) ExtractionStatistics {
	var stats ExtractionStatistics
	var total time.Duration
	var timed int
	for _, e := range items {
		stats.Total++
		switch e.Status() {
		case ExtractionPending:
			stats.Pending++
		case ExtractionProcessing:
			stats.Processing++
		case ExtractionCompleted:
			stats.Completed++
			if d, ok := e.Duration(); ok {
				total += d
				timed++
			}
		case ExtractionError:
			stats.Failed++
			if e.IsSuperseded() {
				stats.Superseded++
			}
		}
	}
	if timed > 0 {
		stats.AverageDuration = total / time.Duration(timed)
	}
	return stats
}

// ComputeMethodPerformance aggregates items per method, ordered by method name.
func ComputeMethodPerformance(items []*FileExtraction) []MethodPerformance {
	byMethod := make(map[ExtractionMethod]*MethodPerformance)
	totals := make(map[ExtractionMethod]time.Duration)
	timed := make(map[ExtractionMethod]int)
	for _, e := range items {
		perf, ok := byMethod[e.Method()]
		if !ok {
			perf = &MethodPerformance{Method: e.Method()}
			byMethod[e.Method()] = perf
		}
		perf.Attempts++
		switch e.Status() {
		case ExtractionCompleted:
			perf.Completed++
			if d, ok := e.Duration(); ok {
				if timed[e.Method()] == 0 || d < perf.MinDuration {
					perf.MinDuration = d
				}
				if d > perf.MaxDuration {
					perf.MaxDuration = d
				}
				totals[e.Method()] += d
				timed[e.Method()]++
			}
		case ExtractionError:
			perf.Failed++
		}
	}
	result := make([]MethodPerformance, 0, len(byMethod))
	for method, perf := range byMethod {
		if n := timed[method]; n > 0 {
			perf.AverageDuration = totals[method] / time.Duration(n)
		}
		if finished := perf.Completed + perf.Failed; finished > 0 {
			perf.SuccessRate = float64(perf.Completed) / float64(finished)
		}
		result = append(result, *perf)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Method < result[j].Method })
	return result
}
