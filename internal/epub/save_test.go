package epub

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/epub/epubtest"
)

func TestSave_RoundTrip(t *testing.T) {
	path := writeArchive(t, epubtest.Archive{Metadata: fullMetadata})

	book, err := Open(path)
	require.NoError(t, err)
	book.Metadata.Title = "Dune Messiah"
	book.Metadata.Creators = []Contributor{{Name: "Frank Herbert", FileAs: AuthorNameToFileAs("Frank Herbert"), Role: RoleAuthor}}
	book.Metadata.SeriesIndex = intPtr(2)
	book.Metadata.Year = intPtr(1969)
	book.Metadata.Description = "Sequel."
	require.NoError(t, book.Save())
	require.NoError(t, book.Close())

	m, err := ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", m.Title)
	assert.Equal(t, "Frank Herbert", m.Author())
	assert.Equal(t, "Herbert, Frank", m.Creators[0].FileAs)
	assert.Equal(t, RoleAuthor, m.Creators[0].Role)
	assert.Equal(t, "Dune Chronicles", m.Series)
	assert.Equal(t, intPtr(2), m.SeriesIndex)
	assert.Equal(t, intPtr(1969), m.Year)
	assert.Equal(t, "1969", m.Date)
	assert.Equal(t, "Sequel.", m.Description)
	assert.Equal(t, "Fiction", m.Type)
	require.Len(t, m.Identifiers, 1)
	assert.Equal(t, "BookId", m.Identifiers[0].ID)

	assert.NoFileExists(t, BackupPath(path))
	assert.Contains(t, readEntry(t, path, epubtest.DefaultOPFPath), "<dc:language>en</dc:language>")
}

func TestSave_KeepsMatchingDate(t *testing.T) {
	path := writeArchive(t, epubtest.Archive{Metadata: `<dc:date>1965-08-01</dc:date>`})

	book, err := Open(path)
	require.NoError(t, err)
	defer book.Close()
	require.NoError(t, book.Save())

	m, err := ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "1965-08-01", m.Date)
}

func TestSave_DowngradesVersion(t *testing.T) {
	path := writeArchive(t, epubtest.Archive{Version: "3.0", Metadata: `<dc:title>New</dc:title>`})

	book, err := Open(path)
	require.NoError(t, err)
	defer book.Close()
	require.NoError(t, book.Save())

	opf := readEntry(t, path, epubtest.DefaultOPFPath)
	assert.Contains(t, opf, `version="2.0"`)
	assert.NotContains(t, opf, `version="3.0"`)

	require.NoError(t, book.Save())
	assert.Contains(t, readEntry(t, path, epubtest.DefaultOPFPath), `version="2.0"`)
}

func TestSave_RetainsCoverMarker(t *testing.T) {
	a := epubtest.Book("Covered", "Jane Doe", "", 0).WithCover("cover.jpg", epubtest.JPEG(t, 20, 30))
	path := writeArchive(t, a)

	book, err := Open(path)
	require.NoError(t, err)
	book.Metadata.Title = "Still Covered"
	require.NoError(t, book.Save())
	require.NoError(t, book.Close())

	assert.Contains(t, readEntry(t, path, epubtest.DefaultOPFPath), `<meta name="cover" content="cover-image"/>`)

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.NotEmpty(t, reopened.Metadata.CoverPath)
	assert.Equal(t, "Still Covered", reopened.Metadata.Title)
}

func TestSave_MimetypeFirstAndStored(t *testing.T) {
	path := writeArchive(t, epubtest.Book("T", "A", "", 0))

	book, err := Open(path)
	require.NoError(t, err)
	defer book.Close()
	require.NoError(t, book.Save())

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	require.NotEmpty(t, r.File)
	assert.Equal(t, "mimetype", r.File[0].Name)
	assert.Equal(t, zip.Store, r.File[0].Method)
}

func TestSave_FailureRestoresOriginal(t *testing.T) {
	path := writeArchive(t, epubtest.Book("Original", "A", "", 0))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	book, err := Open(path)
	require.NoError(t, err)
	book.Metadata.Title = "Changed"

	// An unreadable file in the scratch tree makes repacking fail.
	unreadable := filepath.Join(book.scratch, "OEBPS", "locked.xhtml")
	require.NoError(t, os.WriteFile(unreadable, []byte("x"), 0o000))
	if f, err := os.Open(unreadable); err == nil {
		f.Close()
		book.Close()
		t.Skip("running with permissions that ignore file modes")
	}

	err = book.Save()
	require.Error(t, err)
	require.NoError(t, book.Close())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, BackupPath(path))
}

func TestSave_ClosedBook(t *testing.T) {
	path := writeArchive(t, epubtest.Book("T", "A", "", 0))
	book, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, book.Close())

	assert.Error(t, book.Save())
}

func TestSetCover_AddsCover(t *testing.T) {
	path := writeArchive(t, epubtest.Book("Plain", "A", "", 0))
	img := epubtest.WriteImage(t, filepath.Join(t.TempDir(), "new.png"), epubtest.PNG(t, 30, 45))

	book, err := Open(path)
	require.NoError(t, err)
	require.Empty(t, book.Metadata.CoverPath)

	require.NoError(t, book.SetCover(img))
	assert.Equal(t, "cover.png", filepath.Base(book.Metadata.CoverPath))
	require.NoError(t, book.Save())
	require.NoError(t, book.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, "cover.png", filepath.Base(reopened.Metadata.CoverPath))

	opf := readEntry(t, path, epubtest.DefaultOPFPath)
	assert.Contains(t, opf, `id="cover-image"`)
	assert.Contains(t, opf, `media-type="image/png"`)
	assert.Contains(t, opf, `<meta name="cover" content="cover-image"/>`)
}

func TestSetCover_ReplacesMatchingExtension(t *testing.T) {
	a := epubtest.Book("T", "A", "", 0).WithCover("cover.jpg", epubtest.JPEG(t, 10, 10))
	path := writeArchive(t, a)
	replacement := epubtest.JPEG(t, 50, 80)
	img := epubtest.WriteImage(t, filepath.Join(t.TempDir(), "other.jpg"), replacement)

	book, err := Open(path)
	require.NoError(t, err)
	defer book.Close()

	require.NoError(t, book.SetCover(img))
	data, err := os.ReadFile(book.Metadata.CoverPath)
	require.NoError(t, err)
	assert.Equal(t, replacement, data)
}

func TestSetCover_RefusesFormatChange(t *testing.T) {
	a := epubtest.Book("T", "A", "", 0).WithCover("cover.jpg", epubtest.JPEG(t, 10, 10))
	path := writeArchive(t, a)
	img := epubtest.WriteImage(t, filepath.Join(t.TempDir(), "other.png"), epubtest.PNG(t, 10, 10))

	book, err := Open(path)
	require.NoError(t, err)
	defer book.Close()

	err = book.SetCover(img)
	assert.ErrorIs(t, err, ErrCoverFormatMismatch)
}
