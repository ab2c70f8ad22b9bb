package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/bookshelf/internal/library"
)

// ImportCommand imports archives into a library.
type ImportCommand struct {
	registryFlags
	LibraryID string
	Dir       string
	Files     []string
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.LibraryID, "library", "", "Library ID (defaults to the selected library)")
	fs.StringVar(&cmd.Dir, "dir", "", "Import every .epub below this directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options] [file.epub ...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import EPUB archives into a library. Files are copied; the\n")
		fmt.Fprintf(os.Stderr, "originals are left in place.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import ~/Downloads/dune.epub\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -dir ~/Books/unsorted\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd.Files = fs.Args()
	if cmd.Dir == "" && len(cmd.Files) == 0 {
		return fmt.Errorf("provide -dir or at least one file")
	}
	return nil
}

func (cmd *ImportCommand) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd.RunContext(ctx)
}

// RunContext imports with ctx checked between archives.
func (cmd *ImportCommand) RunContext(ctx context.Context) error {
	reg, err := cmd.loadRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	lib, coord, err := openLibrary(reg, cmd.LibraryID)
	if err != nil {
		return err
	}

	paths := append([]string(nil), cmd.Files...)
	if cmd.Dir != "" {
		found, err := library.FindArchives(cmd.Dir)
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}

	out := cmd.out()
	fmt.Fprintf(out, "Importing %d archives into %q\n", len(paths), lib.Name)

	result, err := coord.ImportFiles(ctx, paths, printProgress(out, "Imported"))
	printBatchResult(out, result)
	if err != nil {
		return fmt.Errorf("import stopped: %w", err)
	}
	return nil
}
