package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docreview/internal/core/domain"
)

var baseTime = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

func newDocument(t *testing.T, project domain.ProjectID, path string, size int64, checksum string) *domain.OriginalDocument {
	t.Helper()
	p, err := domain.RestoreFilePath(path)
	require.NoError(t, err)
	doc, err := domain.NewOriginalDocument(project, p, size, checksum, baseTime)
	require.NoError(t, err)
	return doc
}

func fileNames(docs []*domain.OriginalDocument) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.FileName())
	}
	return out
}

func TestDocumentRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	project := domain.NewProjectID()
	doc := newDocument(t, project, "/w/report.pdf", 100, "abc")

	require.NoError(t, repo.Save(ctx, doc))

	got, err := repo.FindByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, doc.State(), got.State())

	byPath, err := repo.FindByPath(ctx, project, doc.Path())
	require.NoError(t, err)
	assert.Equal(t, doc.ID(), byPath.ID())

	exists, err := repo.ExistsAtPath(ctx, project, doc.Path())
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsAtPath(ctx, domain.NewProjectID(), doc.Path())
	require.NoError(t, err)
	assert.False(t, exists, "paths are scoped to a project")
}

func TestDocumentRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	doc := newDocument(t, domain.NewProjectID(), "/w/a.md", 1, "a")
	require.NoError(t, repo.Save(ctx, doc))

	require.NoError(t, doc.UpdateChecksum("mutated", 2, baseTime))
	got, err := repo.FindByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, "a", got.Checksum())

	require.NoError(t, got.UpdateChecksum("again", 3, baseTime))
	again, err := repo.FindByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, "a", again.Checksum())
}

func TestDocumentRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	project := domain.NewProjectID()

	_, err := repo.FindByID(ctx, domain.NewDocumentID())
	assert.True(t, domain.IsNotFound(err))

	p, err := domain.RestoreFilePath("/w/none.pdf")
	require.NoError(t, err)
	_, err = repo.FindByPath(ctx, project, p)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, domain.NewDocumentID()), domain.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateChecksum(ctx, domain.NewDocumentID(), "x", 1, baseTime), domain.ErrNotFound)
}

func TestDocumentRepository_DuplicatePathRejected(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	project := domain.NewProjectID()
	first := newDocument(t, project, "/w/a.pdf", 1, "a")
	second := newDocument(t, project, "/w/a.pdf", 1, "b")

	require.NoError(t, repo.Save(ctx, first))
	err := repo.Save(ctx, second)
	require.ErrorIs(t, err, domain.ErrConstraintViolation)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	require.NoError(t, repo.Save(ctx, first), "saving the same document again updates it")
	assert.ErrorIs(t, repo.Save(ctx, nil), domain.ErrValidation)
}

func TestDocumentRepository_SaveBatch(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	project := domain.NewProjectID()
	a := newDocument(t, project, "/w/a.pdf", 1, "a")
	clash := newDocument(t, project, "/w/a.pdf", 1, "b")
	b := newDocument(t, project, "/w/b.pdf", 1, "c")

	result, err := repo.SaveBatch(ctx, []*domain.OriginalDocument{a, clash, nil, b})
	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Equal(t, []string{a.ID().String(), b.ID().String()}, result.Saved)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, clash.ID().String(), result.Failed[0].ID)
	assert.ErrorIs(t, result.Failed[0].Err, domain.ErrAlreadyExists)
	assert.Empty(t, result.Failed[1].ID)

	count, err := repo.CountByProject(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDocumentRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	project := domain.NewProjectID()
	docs := []*domain.OriginalDocument{
		newDocument(t, project, "/w/zeta.pdf", 300, "1"),
		newDocument(t, project, "/w/Alpha.md", 100, "2"),
		newDocument(t, project, "/w/big.docx", domain.MaxDocumentSize+1, "3"),
		newDocument(t, domain.NewProjectID(), "/w/other.pdf", 7, "4"),
	}
	for _, d := range docs {
		require.NoError(t, repo.Save(ctx, d))
	}

	all, err := repo.FindByProject(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha.md", "big.docx", "zeta.pdf"}, fileNames(all))

	pdfs, err := repo.FindByType(ctx, project, domain.DocumentTypePDF)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta.pdf"}, fileNames(pdfs))

	named, err := repo.FindByNamePattern(ctx, project, "ALPH")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha.md"}, fileNames(named))

	extractable, err := repo.FindExtractable(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha.md", "zeta.pdf"}, fileNames(extractable))

	byType, err := repo.CountByType(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, map[domain.DocumentType]int{
		domain.DocumentTypePDF:      1,
		domain.DocumentTypeMarkdown: 1,
		domain.DocumentTypeDocx:     1,
	}, byType)

	total, err := repo.TotalSizeByProject(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 400+domain.MaxDocumentSize+1, total)
}

func TestDocumentRepository_FindModifiedSince(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	project := domain.NewProjectID()
	old := newDocument(t, project, "/w/old.md", 1, "a")
	fresh := newDocument(t, project, "/w/fresh.md", 1, "b")
	require.NoError(t, fresh.UpdateChecksum("b2", 2, baseTime.Add(time.Hour)))
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, fresh))

	got, err := repo.FindModifiedSince(ctx, project, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh.md"}, fileNames(got))
}

func TestDocumentRepository_FindDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	project := domain.NewProjectID()
	for _, d := range []*domain.OriginalDocument{
		newDocument(t, project, "/w/b.pdf", 1, "same"),
		newDocument(t, project, "/w/a.pdf", 1, "same"),
		newDocument(t, project, "/w/c.pdf", 1, "unique"),
		newDocument(t, domain.NewProjectID(), "/w/d.pdf", 1, "same"),
	} {
		require.NoError(t, repo.Save(ctx, d))
	}

	groups, err := repo.FindDuplicates(ctx, project)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "same", groups[0].Checksum)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, fileNames(groups[0].Documents))
}

func TestDocumentRepository_SearchAndPaginate(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	project := domain.NewProjectID()
	for _, name := range []string{"e.pdf", "d.pdf", "c.md", "b.pdf", "a.pdf"} {
		require.NoError(t, repo.Save(ctx, newDocument(t, project, "/w/"+name, 10, name)))
	}

	page, err := repo.ListPaginated(ctx, project, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, fileNames(page.Items))
	assert.Equal(t, 5, page.TotalCount)
	assert.True(t, page.HasMore)

	page, err = repo.ListPaginated(ctx, project, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e.pdf"}, fileNames(page.Items))
	assert.False(t, page.HasMore)

	criteria := domain.NewDocumentSearchCriteria(project).
		WithFileTypes(domain.DocumentTypePDF).
		SortBy(domain.SortByFileName, domain.Descending).
		WithPage(1, 2)
	page, err = repo.Search(ctx, criteria)
	require.NoError(t, err)
	assert.Equal(t, []string{"d.pdf", "b.pdf"}, fileNames(page.Items))
	assert.Equal(t, 4, page.TotalCount)

	_, err = repo.Search(ctx, domain.NewDocumentSearchCriteria(project).WithPage(0, 0))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDocumentRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	project := domain.NewProjectID()
	a := newDocument(t, project, "/w/a.pdf", 1, "a")
	b := newDocument(t, project, "/w/b.pdf", 1, "b")
	other := newDocument(t, domain.NewProjectID(), "/w/c.pdf", 1, "c")
	for _, d := range []*domain.OriginalDocument{a, b, other} {
		require.NoError(t, repo.Save(ctx, d))
	}

	require.NoError(t, repo.Delete(ctx, a.ID()))
	exists, err := repo.Exists(ctx, a.ID())
	require.NoError(t, err)
	assert.False(t, exists)

	removed, err := repo.DeleteByProject(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	exists, err = repo.Exists(ctx, other.ID())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDocumentRepository_UpdateChecksum(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	doc := newDocument(t, domain.NewProjectID(), "/w/a.pdf", 1, "a")
	require.NoError(t, repo.Save(ctx, doc))

	later := baseTime.Add(time.Minute)
	require.NoError(t, repo.UpdateChecksum(ctx, doc.ID(), "b", 2, later))

	got, err := repo.FindByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, "b", got.Checksum())
	assert.Equal(t, int64(2), got.Size())
	assert.Equal(t, later, got.ModifiedAt())

	err = repo.UpdateChecksum(ctx, doc.ID(), "", 2, later)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
