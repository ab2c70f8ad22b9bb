package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/epub"
	"github.com/mrlokans/bookshelf/internal/epub/epubtest"
)

func writeInbox(t *testing.T, dir string) {
	t.Helper()
	epubtest.Book("One", "Jane Doe", "", 0).Write(t, filepath.Join(dir, "one.epub"))
	epubtest.Book("Two", "Jane Doe", "", 0).Write(t, filepath.Join(dir, "nested", "two.epub"))
	epubtest.Archive{NoOPF: true}.Write(t, filepath.Join(dir, "nested", "broken.epub"))
	epubtest.Book("Three", "John Roe", "", 0).Write(t, filepath.Join(dir, "three.EPUB"))
}

func TestFindArchives(t *testing.T) {
	dir := t.TempDir()
	writeInbox(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one_backup.epub"), []byte("x"), 0644))

	paths, err := FindArchives(dir)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.ElementsMatch(t, []string{"one.epub", "two.epub", "broken.epub", "three.EPUB"}, names)
}

func TestImportDirectory_ContinuesPastFailures(t *testing.T) {
	lib := setupLibrary(t)
	dir := t.TempDir()
	writeInbox(t, dir)

	var snapshots []Progress
	result, err := lib.ImportDirectory(context.Background(), dir, NewProgressFunc(func(p Progress) {
		snapshots = append(snapshots, p)
	}))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Cancelled)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], epub.ErrFormat)

	count, err := lib.repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.Len(t, snapshots, 6, "start, one per item, completion")
	assert.Equal(t, entities.JobStatusRunning, snapshots[0].Status)
	assert.Zero(t, snapshots[0].Fraction())
	assert.Equal(t, 0.25, snapshots[1].Fraction())
	last := snapshots[len(snapshots)-1]
	assert.Equal(t, entities.JobStatusCompleted, last.Status)
	assert.Equal(t, 1.0, last.Fraction())
	assert.Equal(t, 1, last.Failed)
}

func TestImportFiles_CancelledBeforeStart(t *testing.T) {
	lib := setupLibrary(t)
	dir := t.TempDir()
	writeInbox(t, dir)
	paths, err := FindArchives(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := lib.ImportFiles(ctx, paths, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, result.Cancelled)
	assert.Zero(t, result.Succeeded+result.Failed)
}

func TestImportFiles_CancelStopsAtItemBoundary(t *testing.T) {
	lib := setupLibrary(t)
	dir := t.TempDir()
	writeInbox(t, dir)
	paths, err := FindArchives(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var final Progress
	reporter := NewProgressFunc(func(p Progress) {
		final = p
		if p.Processed == 1 {
			cancel()
		}
	})

	result, err := lib.ImportFiles(ctx, paths, reporter)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.Succeeded+result.Failed, "the in-flight item completes")
	assert.Equal(t, entities.JobStatusCancelled, final.Status)
}

func TestImportFiles_CatalogFailureStopsBatch(t *testing.T) {
	lib := setupLibrary(t)
	lib.catalog = &failingCatalog{Catalog: lib.repo, insertErr: errors.New("read-only database")}
	dir := t.TempDir()
	writeInbox(t, dir)
	paths, err := FindArchives(dir)
	require.NoError(t, err)

	result, err := lib.ImportFiles(context.Background(), paths, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCatalog)
	assert.Less(t, result.Succeeded+result.Failed, result.Total)
}

func TestSyncAll(t *testing.T) {
	lib := setupLibrary(t)
	a := lib.mustImport(t, epubtest.Book("A", "Jane Doe", "", 0))
	b := lib.mustImport(t, epubtest.Book("B", "Jane Doe", "", 0))

	edited := b.Clone()
	edited.Year = entities.IntPtr(2010)
	_, err := lib.Update(edited)
	require.NoError(t, err)
	require.NoError(t, os.Remove(a.EpubPath))

	result, err := lib.SyncAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrConsistency)

	m, err := epub.ReadMetadata(b.EpubPath)
	require.NoError(t, err)
	assert.Equal(t, entities.IntPtr(2010), m.Year)
}

func TestDeleteBooks(t *testing.T) {
	lib := setupLibrary(t)
	a := lib.mustImport(t, epubtest.Book("A", "Jane Doe", "", 0))
	b := lib.mustImport(t, epubtest.Book("B", "John Roe", "", 0))

	result, err := lib.DeleteBooks(context.Background(), []uint{a.ID, 999, b.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrNotFound)
	assert.Equal(t, "book 999", result.Errors[0].Item)

	assertNoBookDirs(t, lib.Root())
}

func TestProgressFraction(t *testing.T) {
	assert.Equal(t, 1.0, Progress{}.Fraction())
	assert.Equal(t, 0.5, Progress{Total: 4, Processed: 2}.Fraction())
}
