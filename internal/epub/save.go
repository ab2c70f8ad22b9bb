package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	nsDC  = "http://purl.org/dc/elements/1.1/"
	nsOPF = "http://www.idpf.org/2007/opf"

	mimetypeName = "mimetype"
	epubMimetype = "application/epub+zip"
)

// Save rebuilds the metadata section from b.Metadata and repacks the archive
// in place.
//
// Packages declaring version 3.0 are written as 2.0; some readers refuse to
// load calibre metadata from 3.0 documents. The original archive is moved to
// <stem>_backup.epub while repacking and is only removed once the new archive
// is complete. If repacking fails the backup is restored; if restoring fails
// too, the backup is left on disk and named in the returned error.
func (b *Book) Save() error {
	if b.scratch == "" {
		return errors.New("epub: save on closed book")
	}

	b.rewritePackage()
	if err := b.pkg.WriteToFile(b.opfPath); err != nil {
		return fmt.Errorf("write package document: %w", err)
	}

	backup := BackupPath(b.path)
	if err := os.Rename(b.path, backup); err != nil {
		return fmt.Errorf("move %s to backup: %w", b.path, err)
	}

	if err := repack(b.scratch, b.path); err != nil {
		os.Remove(b.path)
		if rerr := os.Rename(backup, b.path); rerr != nil {
			return fmt.Errorf("repack %s: %w (original kept at %s: %v)", b.path, err, backup, rerr)
		}
		return fmt.Errorf("repack %s: %w", b.path, err)
	}

	if err := os.Remove(backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove backup %s: %w", backup, err)
	}
	return nil
}

// BackupPath is the sibling path an archive is moved to while Save runs.
func BackupPath(archivePath string) string {
	dir := filepath.Dir(archivePath)
	stem := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	return filepath.Join(dir, stem+"_backup.epub")
}

func (b *Book) rewritePackage() {
	root := b.pkg.Root()

	if v := root.SelectAttr("version"); v != nil && v.Value == "3.0" {
		root.CreateAttr("version", "2.0")
	}

	old := descendants(root, "metadata")

	var coverMarker *etree.Element
	for _, el := range old {
		if marker := findMeta(el, metaCover); marker != nil {
			coverMarker = marker.Copy()
			break
		}
	}

	parent, index := root, -1
	if len(old) > 0 && old[0].Parent() != nil {
		parent, index = old[0].Parent(), old[0].Index()
	}
	for _, el := range old {
		if p := el.Parent(); p != nil {
			p.RemoveChild(el)
		}
	}

	fresh := b.buildMetadata()
	if coverMarker != nil {
		fresh.AddChild(coverMarker)
	}

	if index >= 0 && index <= len(parent.Child) {
		parent.InsertChildAt(index, fresh)
	} else {
		root.AddChild(fresh)
	}
}

func (b *Book) buildMetadata() *etree.Element {
	m := b.Metadata
	el := etree.NewElement("metadata")
	el.CreateAttr("xmlns:dc", nsDC)
	el.CreateAttr("xmlns:opf", nsOPF)

	if m.Title != "" {
		el.CreateElement("dc:title").SetText(m.Title)
	}
	if m.Series != "" {
		addMeta(el, metaSeries, m.Series)
	}
	if m.SeriesIndex != nil {
		addMeta(el, metaSeriesIndex, strconv.Itoa(*m.SeriesIndex))
	}
	if m.Type != "" {
		el.CreateElement("dc:type").SetText(m.Type)
	}
	if date := dateForSave(m.Date, m.Year); date != "" {
		el.CreateElement("dc:date").SetText(date)
	}
	if m.Description != "" {
		el.CreateElement("dc:description").SetText(m.Description)
	}
	for _, c := range m.Creators {
		addContributor(el, "dc:creator", c)
	}
	for _, c := range m.Contributors {
		addContributor(el, "dc:contributor", c)
	}
	for _, id := range m.Identifiers {
		idEl := el.CreateElement("dc:identifier")
		if id.ID != "" {
			idEl.CreateAttr("id", id.ID)
		}
		if id.Scheme != "" {
			idEl.CreateAttr("opf:scheme", id.Scheme)
		}
		if id.Type != "" {
			idEl.CreateAttr("opf:type", id.Type)
		}
		idEl.SetText(id.Value)
	}
	el.CreateElement("dc:language").SetText("en")
	return el
}

func addMeta(parent *etree.Element, name, content string) {
	meta := parent.CreateElement("meta")
	meta.CreateAttr("name", name)
	meta.CreateAttr("content", content)
}

func addContributor(parent *etree.Element, tag string, c Contributor) {
	el := parent.CreateElement(tag)
	if c.FileAs != "" {
		el.CreateAttr("opf:file-as", c.FileAs)
	}
	if c.Role != "" {
		el.CreateAttr("opf:role", c.Role)
	}
	el.SetText(c.Name)
}

// dateForSave keeps the original date unless it disagrees with year, in
// which case the bare year is written.
func dateForSave(date string, year *int) string {
	if year == nil {
		return date
	}
	if parsed := yearFromDate(date); parsed != nil && *parsed == *year {
		return date
	}
	return fmt.Sprintf("%04d", *year)
}

// repack zips dir into dst with the mimetype entry first and uncompressed.
func repack(dir, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	if err := writeEntries(zw, dir); err != nil {
		zw.Close()
		out.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeEntries(zw *zip.Writer, dir string) error {
	mt := filepath.Join(dir, mimetypeName)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypeName, Method: zip.Store})
	if err != nil {
		return err
	}
	data, err := os.ReadFile(mt)
	if err != nil {
		data = []byte(epubMimetype)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}

	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == mt {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.ToSlash(rel), Method: zip.Deflate})
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
}
