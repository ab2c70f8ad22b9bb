// Package registry keeps the list of known libraries and the selected one
// in a small JSON state file, and owns the open catalog and coordinator of
// every library.
//
// The state file is rewritten after every change. Writes hold an exclusive
// file lock on <state>.lock and replace the file through a rename, so a
// crash never leaves a half-written state behind.
//
// # Usage
//
//	reg, err := registry.Load("./libraryState.json")
//	defer reg.Close()
//
//	lib, err := reg.Add("Fiction", "/srv/books/fiction")
//	coord, err := reg.Coordinator(lib.ID)
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

var (
	ErrUnknownLibrary    = errors.New("unknown library")
	ErrNoLibrarySelected = errors.New("no library selected")
	ErrDuplicateLibrary  = errors.New("library already registered")
)

// State is the persisted form of the registry.
type State struct {
	Libraries         []entities.Library `json:"libraries"`
	SelectedLibraryID string             `json:"selectedLibraryId,omitempty"`
}

type openLibrary struct {
	db    *database.Database
	coord *library.Coordinator
}

// Registry is safe for concurrent use.
type Registry struct {
	path     string
	lock     *flock.Flock
	validate *validator.Validate
	dbOpts   []database.Options
	pipeline *covers.Pipeline

	mu    sync.Mutex
	state State
	open  map[string]*openLibrary
}

// Load reads the state file at path. A missing file yields an empty
// registry; the file is created on the first change. Entries that fail
// validation are dropped with a log line.
func Load(path string, dbOpts ...database.Options) (*Registry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	pipeline, err := covers.NewPipeline(filepath.Join(os.TempDir(), "bookshelf-covers"))
	if err != nil {
		return nil, err
	}

	r := &Registry{
		path:     abs,
		lock:     flock.New(abs + ".lock"),
		validate: validator.New(),
		dbOpts:   dbOpts,
		pipeline: pipeline,
		open:     make(map[string]*openLibrary),
	}

	state, err := r.read()
	if err != nil {
		return nil, err
	}

	valid := state.Libraries[:0]
	for _, lib := range state.Libraries {
		if err := r.validate.Struct(lib); err != nil {
			log.Printf("[REGISTRY] Skipping invalid library entry %q: %v", lib.Name, err)
			continue
		}
		valid = append(valid, lib)
	}
	state.Libraries = valid
	if _, ok := find(state.Libraries, state.SelectedLibraryID); !ok {
		state.SelectedLibraryID = ""
	}
	r.state = state
	return r, nil
}

// Path is the state file location.
func (r *Registry) Path() string {
	return r.path
}

func (r *Registry) read() (State, error) {
	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err := r.lock.RLock(); err != nil {
		return State{}, fmt.Errorf("lock %s: %w", r.path, err)
	}
	defer r.lock.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read %s: %w", r.path, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parse %s: %w", r.path, err)
	}
	return state, nil
}

// save writes r.state. The caller holds r.mu.
func (r *Registry) save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(r.path), err)
	}
	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", r.path, err)
	}
	defer r.lock.Unlock()

	data, err := json.MarshalIndent(r.state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".libraryState-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

// Add registers the directory at path as a new library, creates its root
// and catalog, selects it and saves the state.
func (r *Registry) Add(name, path string) (entities.Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return entities.Library{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.state.Libraries {
		if filepath.Clean(existing.Path) == abs {
			return existing, fmt.Errorf("%w: %s", ErrDuplicateLibrary, abs)
		}
	}

	lib := entities.Library{ID: uuid.NewString(), Name: name, Path: abs}
	if err := r.validate.Struct(lib); err != nil {
		return entities.Library{}, fmt.Errorf("invalid library: %w", err)
	}
	if _, err := r.openLocked(lib); err != nil {
		return entities.Library{}, err
	}

	previous := r.state
	r.state.Libraries = append(append([]entities.Library(nil), r.state.Libraries...), lib)
	r.state.SelectedLibraryID = lib.ID
	if err := r.save(); err != nil {
		r.state = previous
		r.closeLocked(lib.ID)
		return entities.Library{}, err
	}

	log.Printf("[REGISTRY] Added library %q at %s", lib.Name, lib.Path)
	return lib, nil
}

// Select makes the library with id the selected one and saves the state.
func (r *Registry) Select(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := find(r.state.Libraries, id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLibrary, id)
	}
	if r.state.SelectedLibraryID == id {
		return nil
	}

	previous := r.state.SelectedLibraryID
	r.state.SelectedLibraryID = id
	if err := r.save(); err != nil {
		r.state.SelectedLibraryID = previous
		return err
	}
	return nil
}

// Libraries returns a copy of the registered libraries.
func (r *Registry) Libraries() []entities.Library {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.Library(nil), r.state.Libraries...)
}

// Get returns the library with id.
func (r *Registry) Get(id string) (entities.Library, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := find(r.state.Libraries, id)
	if !ok {
		return entities.Library{}, fmt.Errorf("%w: %s", ErrUnknownLibrary, id)
	}
	return lib, nil
}

// Selected returns the selected library.
func (r *Registry) Selected() (entities.Library, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := find(r.state.Libraries, r.state.SelectedLibraryID)
	if !ok {
		return entities.Library{}, ErrNoLibrarySelected
	}
	return lib, nil
}

// Coordinator returns the coordinator of the library with id, opening its
// catalog on first use. Every call for the same library returns the same
// coordinator.
func (r *Registry) Coordinator(id string) (*library.Coordinator, error) {
	open, err := r.library(id)
	if err != nil {
		return nil, err
	}
	return open.coord, nil
}

// Database returns the open catalog database of the library with id.
func (r *Registry) Database(id string) (*database.Database, error) {
	open, err := r.library(id)
	if err != nil {
		return nil, err
	}
	return open.db, nil
}

// SelectedCoordinator returns the selected library and its coordinator.
func (r *Registry) SelectedCoordinator() (entities.Library, *library.Coordinator, error) {
	lib, err := r.Selected()
	if err != nil {
		return entities.Library{}, nil, err
	}
	coord, err := r.Coordinator(lib.ID)
	if err != nil {
		return entities.Library{}, nil, err
	}
	return lib, coord, nil
}

func (r *Registry) library(id string) (*openLibrary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := find(r.state.Libraries, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLibrary, id)
	}
	return r.openLocked(lib)
}

func (r *Registry) openLocked(lib entities.Library) (*openLibrary, error) {
	if open, ok := r.open[lib.ID]; ok {
		return open, nil
	}

	if err := os.MkdirAll(lib.Path, 0755); err != nil {
		return nil, fmt.Errorf("create library root %s: %w", lib.Path, err)
	}
	db, err := database.OpenCatalog(lib.Path, r.dbOpts...)
	if err != nil {
		return nil, fmt.Errorf("open catalog of %q: %w", lib.Name, err)
	}
	coord, err := library.NewCoordinator(lib.Path, books.NewRepository(db.DB), r.pipeline)
	if err != nil {
		db.Close()
		return nil, err
	}

	open := &openLibrary{db: db, coord: coord}
	r.open[lib.ID] = open
	return open, nil
}

func (r *Registry) closeLocked(id string) error {
	open, ok := r.open[id]
	if !ok {
		return nil
	}
	delete(r.open, id)
	return open.db.Close()
}

// Close closes every open catalog.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id := range r.open {
		if err := r.closeLocked(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func find(libs []entities.Library, id string) (entities.Library, bool) {
	if id == "" {
		return entities.Library{}, false
	}
	for _, lib := range libs {
		if lib.ID == id {
			return lib, true
		}
	}
	return entities.Library{}, false
}
