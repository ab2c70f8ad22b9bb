package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// SyncMetadataCommand writes every catalog record back into its archive.
type SyncMetadataCommand struct {
	registryFlags
	LibraryID string
}

func NewSyncMetadataCommand() *SyncMetadataCommand {
	return &SyncMetadataCommand{}
}

func (cmd *SyncMetadataCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync-metadata", flag.ContinueOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.LibraryID, "library", "", "Library ID (defaults to the selected library)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync-metadata [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Rewrite the metadata of every archive from the catalog.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *SyncMetadataCommand) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd.RunContext(ctx)
}

func (cmd *SyncMetadataCommand) RunContext(ctx context.Context) error {
	reg, err := cmd.loadRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	lib, coord, err := openLibrary(reg, cmd.LibraryID)
	if err != nil {
		return err
	}

	out := cmd.out()
	fmt.Fprintf(out, "Writing metadata into the archives of %q\n", lib.Name)

	result, err := coord.SyncAll(ctx, printProgress(out, "Synced"))
	printBatchResult(out, result)
	if err != nil {
		return fmt.Errorf("sync stopped: %w", err)
	}
	return nil
}
