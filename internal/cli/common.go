// Package cli implements the bookshelf subcommands. Each command parses its
// own flag set and works directly on the registry state file, so the
// server does not need to be running.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/registry"
)

// registryFlags are shared by every command.
type registryFlags struct {
	StatePath string
	Out       io.Writer
}

// register adds -state, defaulting to the REGISTRY_PATH the server uses.
func (f *registryFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.StatePath, "state", config.NewConfig().Registry.Path, "Path to the library registry state file")
}

func (f *registryFlags) out() io.Writer {
	if f.Out == nil {
		return os.Stdout
	}
	return f.Out
}

func (f *registryFlags) loadRegistry() (*registry.Registry, error) {
	reg, err := registry.Load(f.StatePath, database.Options{LogLevel: logger.Silent})
	if err != nil {
		return nil, fmt.Errorf("failed to load registry %s: %w", f.StatePath, err)
	}
	return reg, nil
}

// openLibrary returns the library with id, or the selected library when id
// is empty.
func openLibrary(reg *registry.Registry, id string) (entities.Library, *library.Coordinator, error) {
	if id == "" {
		return reg.SelectedCoordinator()
	}
	lib, err := reg.Get(id)
	if err != nil {
		return entities.Library{}, nil, err
	}
	coord, err := reg.Coordinator(id)
	if err != nil {
		return entities.Library{}, nil, err
	}
	return lib, coord, nil
}

// printProgress returns a reporter that redraws a single status line.
func printProgress(w io.Writer, verb string) library.ProgressReporter {
	return library.NewProgressFunc(func(p library.Progress) {
		switch p.Status {
		case entities.JobStatusRunning:
			fmt.Fprintf(w, "\r%s %d/%d (%.0f%%)", verb, p.Processed, p.Total, p.Fraction()*100)
		default:
			fmt.Fprintf(w, "\r%s %d/%d (%.0f%%) %s\n", verb, p.Processed, p.Total, p.Fraction()*100, p.Status)
		}
	})
}

func printBatchResult(w io.Writer, result library.BatchResult) {
	fmt.Fprintf(w, "Total: %d, succeeded: %d, failed: %d\n", result.Total, result.Succeeded, result.Failed)
	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", e.Error())
		}
	}
}
