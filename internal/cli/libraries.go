package cli

import (
	"flag"
	"fmt"
	"os"
)

// LibrariesCommand lists the registered libraries and can change the
// selection.
type LibrariesCommand struct {
	registryFlags
	Select string
}

func NewLibrariesCommand() *LibrariesCommand {
	return &LibrariesCommand{}
}

func (cmd *LibrariesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("libraries", flag.ContinueOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.Select, "select", "", "ID of the library to select")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s libraries [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List registered libraries. The selected one is marked with *.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *LibrariesCommand) Run() error {
	reg, err := cmd.loadRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	if cmd.Select != "" {
		if err := reg.Select(cmd.Select); err != nil {
			return fmt.Errorf("failed to select library: %w", err)
		}
	}

	libs := reg.Libraries()
	if len(libs) == 0 {
		fmt.Fprintln(cmd.out(), "No libraries registered. Use 'library-add' to create one.")
		return nil
	}

	var selectedID string
	if lib, err := reg.Selected(); err == nil {
		selectedID = lib.ID
	}

	rows := make([][]string, 0, len(libs))
	for _, lib := range libs {
		marker := ""
		if lib.ID == selectedID {
			marker = "*"
		}
		rows = append(rows, []string{marker, lib.Name, lib.Path, lib.ID})
	}
	fmt.Fprintln(cmd.out(), renderTable(
		[]string{"", "Name", "Path", "ID"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}
