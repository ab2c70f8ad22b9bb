// Package epub reads and rewrites the metadata of EPUB containers.
//
// An archive is extracted into a private scratch directory on Open. Metadata
// is parsed once into a typed Metadata value; callers edit that value and call
// Save to write it back into the original archive. Close removes the scratch
// directory and must always be called.
//
// # Usage
//
//	book, err := epub.Open("/books/dune.epub")
//	if err != nil {
//		return err
//	}
//	defer book.Close()
//
//	book.Metadata.Title = "Dune"
//	err = book.Save()
//
// Lookups match elements and attributes by local name, so package documents
// with missing or unusual namespace declarations are accepted.
package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
)

const containerPath = "META-INF/container.xml"

// Book is an opened EPUB archive.
type Book struct {
	Metadata Metadata

	path    string
	scratch string
	opfPath string
	pkg     *etree.Document
}

// Open extracts the archive at path and parses its package document.
// The scratch directory is removed on every failure path.
func Open(path string) (book *Book, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	scratch, err := os.MkdirTemp("", "epub-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(scratch)
		}
	}()

	if err := extract(abs, scratch); err != nil {
		return nil, err
	}

	opfRel, err := rootfilePath(abs, scratch)
	if err != nil {
		return nil, err
	}

	opfPath, ok := within(scratch, filepath.FromSlash(opfRel))
	if !ok {
		return nil, formatError(abs, "package document outside archive", nil)
	}

	pkg := etree.NewDocument()
	if err := pkg.ReadFromFile(opfPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, formatError(abs, "package document not found", err)
		}
		return nil, formatError(abs, "unreadable package document", err)
	}
	if pkg.Root() == nil {
		return nil, formatError(abs, "empty package document", nil)
	}

	metaEl := firstDescendant(pkg.Root(), "metadata")
	if metaEl == nil {
		return nil, formatError(abs, "metadata element not found", nil)
	}
	if firstDescendant(pkg.Root(), "manifest") == nil {
		return nil, formatError(abs, "manifest element not found", nil)
	}

	book = &Book{
		Metadata: parseMetadata(metaEl),
		path:     abs,
		scratch:  scratch,
		opfPath:  opfPath,
		pkg:      pkg,
	}
	book.Metadata.CoverPath = book.detectCover()
	return book, nil
}

// ReadMetadata opens path, copies its metadata and closes it again. The
// returned CoverPath is always empty since the scratch tree is gone.
func ReadMetadata(path string) (Metadata, error) {
	book, err := Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer book.Close()

	m := book.Metadata.Clone()
	m.CoverPath = ""
	return m, nil
}

// Path is the absolute path of the archive on disk.
func (b *Book) Path() string {
	return b.path
}

// Close releases the scratch directory.
func (b *Book) Close() error {
	if b.scratch == "" {
		return nil
	}
	err := os.RemoveAll(b.scratch)
	b.scratch = ""
	return err
}

func (b *Book) opfDir() string {
	return filepath.Dir(b.opfPath)
}

func extract(archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("open %s: %w", archivePath, err)
		}
		return formatError(archivePath, "not a zip archive", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, ok := within(dest, filepath.FromSlash(f.Name))
		if !ok {
			return formatError(archivePath, "entry escapes archive root: "+f.Name, nil)
		}

		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}

	rc, err := f.Open()
	if err != nil {
		return formatError(target, "unreadable entry "+f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return formatError(target, "corrupt entry "+f.Name, err)
	}
	return out.Close()
}

// rootfilePath reads the container manifest and returns the full-path of the
// first rootfile element.
func rootfilePath(archivePath, scratch string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(filepath.Join(scratch, filepath.FromSlash(containerPath))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", formatError(archivePath, "container manifest not found", err)
		}
		return "", formatError(archivePath, "unreadable container manifest", err)
	}
	if doc.Root() == nil {
		return "", formatError(archivePath, "empty container manifest", nil)
	}

	rootfile := firstDescendant(doc.Root(), "rootfile")
	if rootfile == nil {
		return "", formatError(archivePath, "rootfile not declared", nil)
	}
	full := attrValue(rootfile, "full-path")
	if full == "" {
		return "", formatError(archivePath, "rootfile has no full-path", nil)
	}
	return full, nil
}

// within joins rel onto root and reports whether the result stays inside root.
func within(root, rel string) (string, bool) {
	joined := filepath.Join(root, rel)
	if !inside(root, joined) {
		return "", false
	}
	return joined, true
}

func inside(root, p string) bool {
	r, err := filepath.Rel(root, p)
	return err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}
