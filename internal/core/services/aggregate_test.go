package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docreview/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docreview/internal/core/domain"
)

var epoch = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := epoch
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	documents   *memory.DocumentRepository
	extractions *memory.ExtractionRepository
	outputs     *memory.ExtractedDocumentRepository
	aggregate   *DocumentExtractionAggregate
	project     domain.ProjectID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		documents:   memory.NewDocumentRepository(),
		extractions: memory.NewExtractionRepository(),
		outputs:     memory.NewExtractedDocumentRepository(),
		project:     domain.NewProjectID(),
	}
	f.aggregate = NewDocumentExtractionAggregate(f.documents, f.extractions, f.outputs).WithClock(stepClock())
	return f
}

func (f *fixture) addDocument(t *testing.T, path string, size int64) *domain.OriginalDocument {
	t.Helper()
	p, err := domain.RestoreFilePath(path)
	require.NoError(t, err)
	doc, err := domain.NewOriginalDocument(f.project, p, size, "sum-"+path, epoch)
	require.NoError(t, err)
	require.NoError(t, f.documents.Save(context.Background(), doc))
	return doc
}

func content(words string) *domain.RichTextDocument {
	return domain.NewRichTextDocument("", domain.Paragraph(domain.TextNode(words)))
}

func TestAggregate_StartExtraction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/report.pdf", 100)

	e, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionPending, e.Status())
	assert.Equal(t, domain.ExtractionMethodPDFText, e.Method())
	assert.Equal(t, doc.ID(), e.DocumentID())

	stored, err := f.extractions.FindByID(ctx, e.ID())
	require.NoError(t, err)
	assert.Equal(t, e.State(), stored.State())
}

func TestAggregate_StartExtraction_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pdf := f.addDocument(t, "/w/a.pdf", 100)
	big := f.addDocument(t, "/w/big.pdf", domain.MaxDocumentSize+1)

	_, err := f.aggregate.StartExtraction(ctx, domain.NewDocumentID(), false)
	assert.True(t, domain.IsNotFound(err))

	_, err = f.aggregate.StartExtraction(ctx, big.ID(), false)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	_, err = f.aggregate.StartExtractionWithMethod(ctx, pdf.ID(), domain.ExtractionMethodDocxStructure, false)
	assert.ErrorIs(t, err, domain.ErrMethodNotApplicable)

	_, err = f.aggregate.StartExtractionWithMethod(ctx, pdf.ID(), domain.ExtractionMethodPDFOCR, false)
	assert.NoError(t, err, "fallback methods are applicable")
}

func TestAggregate_SecondStartRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/a.md", 10)

	first, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.NoError(t, err)

	_, err = f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.ErrorIs(t, err, domain.ErrExtractionInProgress)

	_, err = f.aggregate.BeginProcessing(ctx, first.ID())
	require.NoError(t, err)
	_, err = f.aggregate.StartExtraction(ctx, doc.ID(), false)
	assert.ErrorIs(t, err, domain.ErrExtractionInProgress, "processing also blocks")
}

func TestAggregate_ConcurrentStartsAdmitOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/a.md", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	started, rejected := 0, 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				started++
			} else {
				assert.ErrorIs(t, err, domain.ErrExtractionInProgress)
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
	assert.Equal(t, 24, rejected)
}

func TestAggregate_ForceReextractSupersedes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/a.docx", 10)

	old, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.NoError(t, err)
	_, err = f.aggregate.BeginProcessing(ctx, old.ID())
	require.NoError(t, err)

	replacement, err := f.aggregate.StartExtraction(ctx, doc.ID(), true)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID(), replacement.ID())

	superseded, err := f.extractions.FindByID(ctx, old.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionError, superseded.Status())
	assert.True(t, superseded.IsSuperseded())

	active, err := f.extractions.FindActiveByDocument(ctx, doc.ID())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, replacement.ID(), active[0].ID())

	_, err = f.aggregate.CompleteExtraction(ctx, old.ID(), content("late"))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "a superseded worker cannot complete")
}

func TestAggregate_FullLifecycleAndVersions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/notes.md", 10)

	for version, words := range []string{"one two", "one two three"} {
		e, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
		require.NoError(t, err)
		claimed, err := f.aggregate.BeginProcessing(ctx, e.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.ExtractionProcessing, claimed.Status())

		out, err := f.aggregate.CompleteExtraction(ctx, e.ID(), content(words))
		require.NoError(t, err)
		assert.Equal(t, version+1, out.ContentVersion())
		assert.Equal(t, e.ID(), out.ExtractionID())
	}

	summary, err := f.aggregate.Summary(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Attempts)
	assert.Zero(t, summary.Failed)
	assert.False(t, summary.HasActiveExtraction())
	assert.Equal(t, 2, summary.LatestVersion)
	require.NotNil(t, summary.Latest)
	assert.Equal(t, 3, summary.Latest.Statistics().WordCount)
	require.NotNil(t, summary.LastAttemptAt)
}

func TestAggregate_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/a.md", 10)

	e, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.NoError(t, err)

	_, err = f.aggregate.CompleteExtraction(ctx, e.ID(), content("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "pending cannot complete")

	count, err := f.outputs.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "no output is stored for a rejected completion")

	_, err = f.aggregate.BeginProcessing(ctx, e.ID())
	require.NoError(t, err)
	_, err = f.aggregate.BeginProcessing(ctx, e.ID())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.aggregate.CompleteExtraction(ctx, e.ID(), &domain.RichTextDocument{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.aggregate.BeginProcessing(ctx, domain.NewExtractionID())
	assert.ErrorIs(t, err, domain.ErrExtractionNotFound)
}

func TestAggregate_FailExtraction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/a.md", 10)

	e, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.NoError(t, err)

	failed, err := f.aggregate.FailExtraction(ctx, e.ID(), "parser crashed", true)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionError, failed.Status())
	assert.True(t, failed.Failure().Retryable)

	_, err = f.aggregate.FailExtraction(ctx, e.ID(), "again", true)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	summary, err := f.aggregate.Summary(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.LatestVersion)
	assert.Nil(t, summary.Latest)

	_, err = f.aggregate.StartExtraction(ctx, doc.ID(), false)
	assert.NoError(t, err, "a failed attempt does not block a new one")
}

func TestAggregate_CompleteAfterDocumentRemoved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/a.md", 10)

	e, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.NoError(t, err)
	_, err = f.aggregate.BeginProcessing(ctx, e.ID())
	require.NoError(t, err)

	require.NoError(t, f.documents.Delete(ctx, doc.ID()))

	_, err = f.aggregate.CompleteExtraction(ctx, e.ID(), content("orphan"))
	assert.True(t, domain.IsNotFound(err))
}

func TestAggregate_RemoveDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/a.md", 10)
	keep := f.addDocument(t, "/w/b.md", 10)

	e, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.NoError(t, err)
	_, err = f.aggregate.BeginProcessing(ctx, e.ID())
	require.NoError(t, err)
	_, err = f.aggregate.CompleteExtraction(ctx, e.ID(), content("x"))
	require.NoError(t, err)
	_, err = f.aggregate.StartExtraction(ctx, keep.ID(), false)
	require.NoError(t, err)

	require.NoError(t, f.aggregate.RemoveDocument(ctx, doc.ID()))

	exists, err := f.documents.Exists(ctx, doc.ID())
	require.NoError(t, err)
	assert.False(t, exists)
	attempts, err := f.extractions.FindByDocument(ctx, doc.ID())
	require.NoError(t, err)
	assert.Empty(t, attempts)
	version, err := f.outputs.LatestVersion(ctx, doc.ID())
	require.NoError(t, err)
	assert.Zero(t, version)

	others, err := f.extractions.FindByDocument(ctx, keep.ID())
	require.NoError(t, err)
	assert.Len(t, others, 1)

	assert.True(t, domain.IsNotFound(f.aggregate.RemoveDocument(ctx, doc.ID())))
}

func TestAggregate_EndToEndForceReextractKeepsCompletedAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/contract.pdf", 2<<20)

	run := func(force bool) (*domain.FileExtraction, *domain.ExtractedDocument) {
		e, err := f.aggregate.StartExtraction(ctx, doc.ID(), force)
		require.NoError(t, err)
		require.Equal(t, domain.ExtractionPending, e.Status())
		require.Equal(t, domain.ExtractionMethodPDFText, e.Method())
		_, err = f.aggregate.BeginProcessing(ctx, e.ID())
		require.NoError(t, err)
		out, err := f.aggregate.CompleteExtraction(ctx, e.ID(), content("signed by both parties"))
		require.NoError(t, err)
		return e, out
	}

	first, v1 := run(false)
	second, v2 := run(true)
	assert.Equal(t, 1, v1.ContentVersion())
	assert.Equal(t, 2, v2.ContentVersion())

	for _, id := range []domain.ExtractionID{first.ID(), second.ID()} {
		got, err := f.extractions.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ExtractionCompleted, got.Status())
		assert.False(t, got.IsSuperseded())
	}
}

func TestAggregate_SummaryReportsLatestStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "/w/a.md", 10)

	summary, err := f.aggregate.Summary(ctx, doc.ID())
	require.NoError(t, err)
	assert.Empty(t, summary.LatestStatus, "never extracted")
	assert.Nil(t, summary.LastSuccessAt)

	ok, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.NoError(t, err)
	_, err = f.aggregate.BeginProcessing(ctx, ok.ID())
	require.NoError(t, err)
	_, err = f.aggregate.CompleteExtraction(ctx, ok.ID(), content("x"))
	require.NoError(t, err)

	bad, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.NoError(t, err)
	_, err = f.aggregate.FailExtraction(ctx, bad.ID(), "parser crashed", false)
	require.NoError(t, err)

	summary, err = f.aggregate.Summary(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionError, summary.LatestStatus)
	assert.Equal(t, 1, summary.LatestVersion, "earlier content is still available")
	completed, err := f.extractions.FindByID(ctx, ok.ID())
	require.NoError(t, err)
	require.NotNil(t, summary.LastSuccessAt)
	assert.Equal(t, *completed.CompletedAt(), *summary.LastSuccessAt)

	running, err := f.aggregate.StartExtraction(ctx, doc.ID(), false)
	require.NoError(t, err)
	_, err = f.aggregate.StartExtraction(ctx, doc.ID(), true)
	require.NoError(t, err)

	summary, err = f.aggregate.Summary(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionPending, summary.LatestStatus, "the replacement is newest")
	require.NotNil(t, summary.Active)
	assert.NotEqual(t, running.ID(), summary.Active.ID())
}
