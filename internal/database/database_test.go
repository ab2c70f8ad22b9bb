package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func TestOpenCatalog(t *testing.T) {
	root := t.TempDir()

	db, err := OpenCatalog(root, Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, filepath.Join(root, "Books.db"), db.Path())
	assert.FileExists(t, db.Path())
	assert.NoError(t, db.Ping())
	assert.True(t, db.DB.Migrator().HasTable("Books"))
	assert.True(t, db.DB.Migrator().HasTable(&entities.JobProgress{}))

	for _, column := range []string{"Id", "Title", "Author", "EpubPath", "HasCover", "AddedOn", "BookType", "Series", "SeriesNumber", "Year", "Description"} {
		assert.True(t, db.DB.Migrator().HasColumn(&entities.Book{}, column), column)
	}
}

func TestOpenCatalog_Idempotent(t *testing.T) {
	root := t.TempDir()

	db, err := OpenCatalog(root, Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, db.DB.Create(&entities.Book{Title: "T", Author: "A", EpubPath: "/x"}).Error)
	require.NoError(t, db.Close())

	db, err = OpenCatalog(root, Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	defer db.Close()

	var count int64
	require.NoError(t, db.DB.Model(&entities.Book{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestNewDatabase_BadPath(t *testing.T) {
	_, err := NewDatabase(filepath.Join(t.TempDir(), "missing", "dir", "Books.db"), Options{LogLevel: logger.Silent})
	assert.Error(t, err)
}
