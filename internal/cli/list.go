package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// ListCommand prints the books of a library.
type ListCommand struct {
	registryFlags
	LibraryID string
	Query     string
}

func NewListCommand() *ListCommand {
	return &ListCommand{}
}

func (cmd *ListCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.LibraryID, "library", "", "Library ID (defaults to the selected library)")
	fs.StringVar(&cmd.Query, "q", "", "Only list books whose title, author or series contain this text")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s list [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *ListCommand) Run() error {
	reg, err := cmd.loadRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	lib, _, err := openLibrary(reg, cmd.LibraryID)
	if err != nil {
		return err
	}
	db, err := reg.Database(lib.ID)
	if err != nil {
		return err
	}

	result, err := books.NewRepository(db.DB).SearchBooks(cmd.Query)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}

	if len(result) == 0 {
		fmt.Fprintf(cmd.out(), "No books in %q\n", lib.Name)
		return nil
	}

	rows := make([][]string, 0, len(result))
	for _, b := range result {
		rows = append(rows, bookRow(b))
	}
	fmt.Fprintln(cmd.out(), renderTable(
		[]string{"ID", "Author", "Title", "Series", "Year", "Cover"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintf(cmd.out(), "%d books\n", len(result))
	return nil
}

func bookRow(b entities.Book) []string {
	series := entities.StringValue(b.Series)
	if series != "" && b.SeriesNumber != nil {
		series = fmt.Sprintf("%s #%d", series, *b.SeriesNumber)
	}
	year := ""
	if b.Year != nil {
		year = strconv.Itoa(*b.Year)
	}
	cover := ""
	if b.HasCover {
		cover = "yes"
	}
	return []string{strconv.FormatUint(uint64(b.ID), 10), b.Author, b.Title, series, year, cover}
}
