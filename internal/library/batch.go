package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/layout"
)

// Progress is a snapshot of a running bulk operation.
type Progress struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	Item      string
	Status    entities.JobStatus
}

// Fraction returns the share of processed items in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Processed) / float64(p.Total)
}

type progressFunc struct {
	fn       func(Progress)
	progress Progress
}

// NewProgressFunc adapts fn to a ProgressReporter. fn is called once when
// the job starts, after every item and once on completion.
func NewProgressFunc(fn func(Progress)) ProgressReporter {
	return &progressFunc{fn: fn}
}

func (p *progressFunc) StartJob(totalItems int) error {
	p.progress = Progress{Total: totalItems, Status: entities.JobStatusRunning}
	p.fn(p.progress)
	return nil
}

func (p *progressFunc) UpdateProgress(processed, succeeded, failed int, currentItem string) error {
	p.progress.Processed = processed
	p.progress.Succeeded = succeeded
	p.progress.Failed = failed
	p.progress.Item = currentItem
	p.fn(p.progress)
	return nil
}

func (p *progressFunc) CompleteJob(status entities.JobStatus, _ string) error {
	p.progress.Status = status
	p.fn(p.progress)
	return nil
}

type nopReporter struct{}

func (nopReporter) StartJob(int) error                           { return nil }
func (nopReporter) UpdateProgress(int, int, int, string) error   { return nil }
func (nopReporter) CompleteJob(entities.JobStatus, string) error { return nil }

// ItemError is the failure of one item of a bulk operation.
type ItemError struct {
	Item string
	Err  error
}

func (e ItemError) Error() string {
	return e.Item + ": " + e.Err.Error()
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// BatchResult summarizes a bulk operation.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled bool
	Errors    []ItemError
}

// FindArchives returns every .epub file below dir in lexical order. Save
// backups left behind by an interrupted repack are skipped.
func FindArchives(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), layout.ArchiveExt) {
			return nil
		}
		if strings.HasSuffix(strings.TrimSuffix(d.Name(), filepath.Ext(path)), "_backup") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, ioError("scan", dir, err)
	}
	return paths, nil
}

// ImportDirectory imports every archive found below dir.
func (c *Coordinator) ImportDirectory(ctx context.Context, dir string, reporter ProgressReporter) (BatchResult, error) {
	paths, err := FindArchives(dir)
	if err != nil {
		return BatchResult{}, err
	}
	return c.ImportFiles(ctx, paths, reporter)
}

// ImportFiles imports the given archives one after another.
func (c *Coordinator) ImportFiles(ctx context.Context, paths []string, reporter ProgressReporter) (BatchResult, error) {
	return runBatch(ctx, "import", reporter, paths, func(i int) error {
		_, err := c.Import(paths[i])
		return err
	})
}

// SyncAll writes every catalogued record back into its archive.
func (c *Coordinator) SyncAll(ctx context.Context, reporter ProgressReporter) (BatchResult, error) {
	books, err := c.catalog.ListBooks()
	if err != nil {
		return BatchResult{}, catalogError("list books", err)
	}
	labels := make([]string, len(books))
	for i, b := range books {
		labels[i] = bookLabel(b)
	}
	return runBatch(ctx, "sync", reporter, labels, func(i int) error {
		return c.SyncMetadataToContainer(books[i])
	})
}

// DeleteBooks deletes the books with the given ids.
func (c *Coordinator) DeleteBooks(ctx context.Context, ids []uint, reporter ProgressReporter) (BatchResult, error) {
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = fmt.Sprintf("book %d", id)
	}
	return runBatch(ctx, "delete", reporter, labels, func(i int) error {
		return c.Delete(entities.Book{ID: ids[i]})
	})
}

// runBatch processes items sequentially. Cancellation is checked between
// items only, so an item that has started always finishes. Item failures
// are recorded and the batch continues, except for catalog failures, which
// stop it.
func runBatch(ctx context.Context, op string, reporter ProgressReporter, labels []string, process func(int) error) (BatchResult, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}
	result := BatchResult{Total: len(labels)}

	if err := reporter.StartJob(len(labels)); err != nil {
		log.Printf("[BATCH] %s: failed to record start: %v", op, err)
	}

	for i, label := range labels {
		select {
		case <-ctx.Done():
			result.Cancelled = true
			log.Printf("[BATCH] %s cancelled after %d of %d items", op, i, len(labels))
			complete(reporter, op, entities.JobStatusCancelled, ctx.Err().Error())
			return result, ctx.Err()
		default:
		}

		err := process(i)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Item: label, Err: err})
			log.Printf("[BATCH] %s %s failed: %v", op, label, err)
		} else {
			result.Succeeded++
		}
		if perr := reporter.UpdateProgress(i+1, result.Succeeded, result.Failed, label); perr != nil {
			log.Printf("[BATCH] %s: failed to record progress: %v", op, perr)
		}

		if errors.Is(err, ErrCatalog) {
			complete(reporter, op, entities.JobStatusFailed, err.Error())
			return result, err
		}
	}

	log.Printf("[BATCH] %s complete: %d total, %d succeeded, %d failed",
		op, result.Total, result.Succeeded, result.Failed)
	complete(reporter, op, entities.JobStatusCompleted, "")
	return result, nil
}

func complete(reporter ProgressReporter, op string, status entities.JobStatus, msg string) {
	if err := reporter.CompleteJob(status, msg); err != nil {
		log.Printf("[BATCH] %s: failed to record completion: %v", op, err)
	}
}

func bookLabel(b entities.Book) string {
	return fmt.Sprintf("%q by %s", b.Title, b.Author)
}
