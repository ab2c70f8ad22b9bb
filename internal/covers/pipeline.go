// Package covers turns cover images into the library's cover.jpg and
// thumb.jpg files.
package covers

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/mrlokans/bookshelf/internal/layout"
)

const (
	ThumbnailWidth  = 200
	ThumbnailHeight = 300

	jpegQuality = 90
)

// ErrUndecodable is returned for sources that are not a readable image.
var ErrUndecodable = errors.New("undecodable image")

// Pipeline normalizes covers to JPEG and derives thumbnails. Intermediate
// files are written to its temp directory.
type Pipeline struct {
	tempDir string
}

// NewPipeline creates a pipeline using tempDir for intermediate files.
// An empty tempDir means os.TempDir().
func NewPipeline(tempDir string) (*Pipeline, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Pipeline{tempDir: tempDir}, nil
}

// Normalize returns src unchanged when it already is a JPEG. Other formats
// are decoded and re-encoded into a new temporary .jpg whose path is
// returned; the caller owns that file.
func (p *Pipeline) Normalize(src string) (string, error) {
	mt, err := mimetype.DetectFile(src)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", src, err)
	}
	if mt.Is("image/jpeg") {
		return src, nil
	}

	img, err := imaging.Open(src)
	if err != nil {
		return "", fmt.Errorf("%w: %s (%s): %v", ErrUndecodable, src, mt.String(), err)
	}

	tmp, err := os.CreateTemp(p.tempDir, "cover_*.jpg")
	if err != nil {
		return "", err
	}
	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// Thumbnail fills a 200x300 box preserving aspect ratio, crops the overflow
// around the center and writes the result to dst as JPEG.
func (p *Pipeline) Thumbnail(src, dst string) error {
	img, err := decode(src)
	if err != nil {
		return err
	}
	return writeAtomic(dst, func(w io.Writer) error {
		return encodeThumbnail(w, img)
	})
}

// Apply normalizes src and installs cover.jpg and thumb.jpg into bookDir,
// overwriting existing files. Both files are staged next to their targets
// first, so a source that fails to decode leaves bookDir untouched.
func (p *Pipeline) Apply(src, bookDir string) error {
	normalized, err := p.Normalize(src)
	if err != nil {
		return err
	}
	if normalized != src {
		defer os.Remove(normalized)
	}

	img, err := decode(normalized)
	if err != nil {
		return err
	}

	stagedCover, err := stage(bookDir, func(w io.Writer) error {
		in, err := os.Open(normalized)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(w, in)
		return err
	})
	if err != nil {
		return fmt.Errorf("stage cover: %w", err)
	}
	defer os.Remove(stagedCover)

	stagedThumb, err := stage(bookDir, func(w io.Writer) error {
		return encodeThumbnail(w, img)
	})
	if err != nil {
		return fmt.Errorf("stage thumbnail: %w", err)
	}
	defer os.Remove(stagedThumb)

	if err := os.Rename(stagedCover, layout.CoverPath(bookDir)); err != nil {
		return fmt.Errorf("install cover: %w", err)
	}
	if err := os.Rename(stagedThumb, layout.ThumbnailPath(bookDir)); err != nil {
		return fmt.Errorf("install thumbnail: %w", err)
	}
	return nil
}

// decode reads the whole image at path, honouring EXIF orientation.
func decode(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, path, err)
	}
	return img, nil
}

func encodeThumbnail(w io.Writer, img image.Image) error {
	thumb := imaging.Fill(img, ThumbnailWidth, ThumbnailHeight, imaging.Center, imaging.Lanczos)
	return imaging.Encode(w, thumb, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
}

// stage writes to a temp file in dir and returns its path. The file is
// removed when write fails.
func stage(dir string, write func(io.Writer) error) (string, error) {
	tmpFile, err := os.CreateTemp(dir, ".cover_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()

	if err := write(tmpFile); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

// writeAtomic writes to a temp file in dst's directory and renames it over dst.
func writeAtomic(dst string, write func(io.Writer) error) error {
	tmpPath, err := stage(filepath.Dir(dst), write)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
