package library

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// copyFile copies src to dst through a temp file in dst's directory, so a
// failed copy never leaves a truncated dst behind.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".import_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}

// moved records a file moved from -> to so it can be put back.
type moved struct {
	from, to string
}

// moveBookFiles moves the archive to newArchive and every other regular
// file of its directory next to it. Subdirectories are left alone.
func moveBookFiles(oldArchive, newArchive string) ([]moved, error) {
	oldDir := filepath.Dir(oldArchive)
	newDir := filepath.Dir(newArchive)

	if err := os.Rename(oldArchive, newArchive); err != nil {
		return nil, err
	}
	done := []moved{{from: oldArchive, to: newArchive}}

	entries, err := os.ReadDir(oldDir)
	if err != nil {
		return done, err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		from := filepath.Join(oldDir, e.Name())
		to := filepath.Join(newDir, e.Name())
		if err := os.Rename(from, to); err != nil {
			return done, err
		}
		done = append(done, moved{from: from, to: to})
	}
	return done, nil
}

// undoMoves puts moved files back in reverse order and reports the first
// failure.
func undoMoves(done []moved) error {
	var first error
	for i := len(done) - 1; i >= 0; i-- {
		if err := os.MkdirAll(filepath.Dir(done[i].from), 0o755); err != nil && first == nil {
			first = err
			continue
		}
		if err := os.Rename(done[i].to, done[i].from); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// pruneBookDir removes bookDir when it is empty, then its parent author
// directory when that has no entries left. Exactly two levels are
// considered and root itself is never removed.
func pruneBookDir(root, bookDir string) error {
	if err := removeIfEmpty(bookDir); err != nil {
		return err
	}
	authorDir := filepath.Dir(bookDir)
	if filepath.Clean(authorDir) == filepath.Clean(root) {
		return nil
	}
	return removeIfEmpty(authorDir)
}

func removeIfEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return os.Remove(dir)
}
