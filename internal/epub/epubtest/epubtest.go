// Package epubtest builds small EPUB archives and images for tests.
package epubtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

const (
	DefaultOPFPath = "OEBPS/content.opf"

	containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="%s" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

	packageXML = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="%s" unique-identifier="BookId">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
%s
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
%s
  </manifest>
  <spine toc="ncx"/>
</package>`
)

// Archive describes an EPUB to write. Zero values produce a minimal valid
// version 2.0 package at OEBPS/content.opf.
type Archive struct {
	OPFPath  string
	Version  string
	Metadata string // inner XML of <metadata>
	Manifest string // extra <item> elements

	// Files are additional entries keyed by archive path.
	Files map[string][]byte

	// RawOPF replaces the generated package document.
	RawOPF string

	NoContainer bool
	NoOPF       bool
}

// Write creates the archive at path, creating parent directories.
func (a Archive) Write(t testing.TB, path string) string {
	t.Helper()

	opfPath := a.OPFPath
	if opfPath == "" {
		opfPath = DefaultOPFPath
	}
	version := a.Version
	if version == "" {
		version = "2.0"
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	must(t, err)
	_, err = w.Write([]byte("application/epub+zip"))
	must(t, err)

	if !a.NoContainer {
		addEntry(t, zw, "META-INF/container.xml", []byte(fmt.Sprintf(containerXML, opfPath)))
	}
	if !a.NoOPF {
		opf := a.RawOPF
		if opf == "" {
			opf = fmt.Sprintf(packageXML, version, a.Metadata, a.Manifest)
		}
		addEntry(t, zw, opfPath, []byte(opf))
	}
	for name, data := range a.Files {
		addEntry(t, zw, name, data)
	}
	must(t, zw.Close())

	must(t, os.MkdirAll(filepath.Dir(path), 0o755))
	must(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// Book returns an Archive with the common metadata fields set. Empty
// arguments are omitted from the package document.
func Book(title, author, series string, seriesIndex int) Archive {
	var meta string
	if title != "" {
		meta += fmt.Sprintf("    <dc:title>%s</dc:title>\n", title)
	}
	if author != "" {
		meta += fmt.Sprintf("    <dc:creator opf:role=\"aut\">%s</dc:creator>\n", author)
	}
	if series != "" {
		meta += fmt.Sprintf("    <meta name=\"calibre:series\" content=\"%s\"/>\n", series)
	}
	if seriesIndex > 0 {
		meta += fmt.Sprintf("    <meta name=\"calibre:series_index\" content=\"%d\"/>\n", seriesIndex)
	}
	return Archive{Metadata: meta}
}

// WithCover adds a manifest cover item pointing at data under OEBPS/.
func (a Archive) WithCover(href string, data []byte) Archive {
	a.Manifest += fmt.Sprintf("    <item id=\"cover-image\" href=\"%s\" media-type=\"image/jpeg\"/>\n", href)
	a.Metadata += "    <meta name=\"cover\" content=\"cover-image\"/>\n"
	files := make(map[string][]byte, len(a.Files)+1)
	for k, v := range a.Files {
		files[k] = v
	}
	files["OEBPS/"+href] = data
	a.Files = files
	return a
}

// PNG returns an encoded w×h PNG.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	must(t, png.Encode(&buf, fill(w, h)))
	return buf.Bytes()
}

// JPEG returns an encoded w×h JPEG.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	must(t, jpeg.Encode(&buf, fill(w, h), nil))
	return buf.Bytes()
}

// WriteImage writes data to path and returns path.
func WriteImage(t testing.TB, path string, data []byte) string {
	t.Helper()
	must(t, os.MkdirAll(filepath.Dir(path), 0o755))
	must(t, os.WriteFile(path, data, 0o644))
	return path
}

// ImageSize returns the dimensions of the JPEG or PNG at path.
func ImageSize(t testing.TB, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	must(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	must(t, err)
	return cfg.Width, cfg.Height
}

func fill(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func addEntry(t testing.TB, zw *zip.Writer, name string, data []byte) {
	t.Helper()
	w, err := zw.Create(name)
	must(t, err)
	_, err = w.Write(data)
	must(t, err)
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
