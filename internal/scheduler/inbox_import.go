// Package scheduler runs periodic library maintenance on a cron schedule.
//
// The inbox importer watches a drop directory: on every tick it imports each
// archive found there into the selected library and removes the files that
// made it into the catalog. Files that failed stay in the inbox so the next
// tick retries them.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/jobs"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Libraries resolves the library inbox files are imported into.
// Implemented by registry.Registry.
type Libraries interface {
	SelectedCoordinator() (entities.Library, *library.Coordinator, error)
	Database(id string) (*database.Database, error)
}

// InboxConfig configures the inbox importer.
type InboxConfig struct {
	Enabled  bool
	Dir      string
	Schedule string
}

// InboxImportScheduler imports archives dropped into the inbox directory.
type InboxImportScheduler struct {
	libs   Libraries
	config InboxConfig

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc

	importMu    sync.Mutex
	isImporting bool
}

// NewInboxImportScheduler creates a new scheduler instance
func NewInboxImportScheduler(libs Libraries, config InboxConfig) *InboxImportScheduler {
	return &InboxImportScheduler{
		libs:   libs,
		config: config,
		cron:   cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler if the inbox is enabled
func (s *InboxImportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("[INBOX] Scheduler disabled")
		return nil
	}
	if s.config.Dir == "" {
		log.Printf("[INBOX] Inbox directory not configured, skipping")
		return nil
	}
	if err := ValidateCronSchedule(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.config.Schedule, err)
	}
	if err := os.MkdirAll(s.config.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	var runCtx context.Context
	runCtx, s.cancelFunc = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.RunOnce(runCtx); err != nil {
			log.Printf("[INBOX] Import failed: %v", err)
		}
	})
	if err != nil {
		s.cancelFunc()
		s.cancelFunc = nil
		return fmt.Errorf("failed to schedule inbox import: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunTime(s.config.Schedule, time.Now())
	log.Printf("[INBOX] Scheduler started for %s with schedule '%s' (%s). Next run: %v",
		s.config.Dir, s.config.Schedule, CronDescription(s.config.Schedule), nextRun)

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running import to finish.
func (s *InboxImportScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false

	log.Printf("[INBOX] Scheduler stopped")
}

// IsRunning returns whether the scheduler is active
func (s *InboxImportScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next import will occur
func (s *InboxImportScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// RunNow triggers an immediate import in the background.
func (s *InboxImportScheduler) RunNow() {
	go func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			log.Printf("[INBOX] Import failed: %v", err)
		}
	}()
}

// RunOnce imports the current contents of the inbox into the selected
// library. Only one import runs at a time; an overlapping call returns
// immediately with an empty result.
func (s *InboxImportScheduler) RunOnce(ctx context.Context) (library.BatchResult, error) {
	s.importMu.Lock()
	if s.isImporting {
		s.importMu.Unlock()
		log.Printf("[INBOX] Import skipped (already running)")
		return library.BatchResult{}, nil
	}
	s.isImporting = true
	s.importMu.Unlock()

	defer func() {
		s.importMu.Lock()
		s.isImporting = false
		s.importMu.Unlock()
	}()

	return s.importInbox(ctx)
}

func (s *InboxImportScheduler) importInbox(ctx context.Context) (library.BatchResult, error) {
	if s.config.Dir == "" {
		return library.BatchResult{}, fmt.Errorf("inbox directory not configured")
	}

	paths, err := library.FindArchives(s.config.Dir)
	if err != nil {
		return library.BatchResult{}, err
	}
	if len(paths) == 0 {
		return library.BatchResult{}, nil
	}

	lib, coord, err := s.libs.SelectedCoordinator()
	if err != nil {
		return library.BatchResult{}, err
	}
	db, err := s.libs.Database(lib.ID)
	if err != nil {
		return library.BatchResult{}, err
	}

	progress := jobs.NewRepository(db.DB, entities.JobTypeInboxImport)
	running, err := progress.IsRunning()
	if err != nil {
		return library.BatchResult{}, fmt.Errorf("check inbox import status: %w", err)
	}
	if running {
		return library.BatchResult{}, fmt.Errorf("inbox import is already in progress")
	}

	log.Printf("[INBOX] Importing %d archives from %s into %s", len(paths), s.config.Dir, lib.Name)
	result, runErr := coord.ImportFiles(ctx, paths, progress)

	removed := removeImported(paths, result)
	log.Printf("[INBOX] Imported %d, failed %d, removed %d from inbox",
		result.Succeeded, result.Failed, removed)

	return result, runErr
}

// removeImported deletes the inbox files that were imported. Items past the
// point where the batch stopped and items that failed are left in place.
func removeImported(paths []string, result library.BatchResult) int {
	failed := make(map[string]bool, len(result.Errors))
	for _, e := range result.Errors {
		failed[e.Item] = true
	}

	processed := result.Succeeded + result.Failed
	if processed > len(paths) {
		processed = len(paths)
	}

	removed := 0
	for _, path := range paths[:processed] {
		if failed[path] {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("[INBOX] Failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed
}
