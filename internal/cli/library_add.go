package cli

import (
	"flag"
	"fmt"
	"os"
)

// LibraryAddCommand registers a library root and selects it.
type LibraryAddCommand struct {
	registryFlags
	Name string
	Path string
}

func NewLibraryAddCommand() *LibraryAddCommand {
	return &LibraryAddCommand{}
}

func (cmd *LibraryAddCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("library-add", flag.ContinueOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.Name, "name", "", "Display name of the library (required)")
	fs.StringVar(&cmd.Path, "path", "", "Root directory of the library, created if missing (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s library-add -name <name> -path <dir> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Register a library and make it the selected one.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Name == "" {
		return fmt.Errorf("required flag -name not provided")
	}
	if cmd.Path == "" {
		return fmt.Errorf("required flag -path not provided")
	}
	return nil
}

func (cmd *LibraryAddCommand) Run() error {
	reg, err := cmd.loadRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	lib, err := reg.Add(cmd.Name, cmd.Path)
	if err != nil {
		return fmt.Errorf("failed to add library: %w", err)
	}

	fmt.Fprintf(cmd.out(), "Added library %q at %s\n", lib.Name, lib.Path)
	fmt.Fprintf(cmd.out(), "ID: %s (selected)\n", lib.ID)
	return nil
}
