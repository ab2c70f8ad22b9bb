package database

import (
	"fmt"
	"log"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// CatalogFileName is the catalog database created inside every library root.
const CatalogFileName = "Books.db"

type Database struct {
	DB   *gorm.DB
	path string
}

// Options tunes how the catalog connection is opened.
type Options struct {
	LogLevel logger.LogLevel
}

// NewDatabase opens (or creates) the SQLite catalog at dbPath and migrates
// its schema. Migration is idempotent.
func NewDatabase(dbPath string, opts ...Options) (*Database, error) {
	level := logger.Warn
	if len(opts) > 0 && opts[0].LogLevel != 0 {
		level = opts[0].LogLevel
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.JobProgress{},
	)
	if err != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Catalog opened at %s", dbPath)

	return &Database{DB: db, path: dbPath}, nil
}

// OpenCatalog opens the catalog that lives in a library root.
func OpenCatalog(libraryRoot string, opts ...Options) (*Database, error) {
	return NewDatabase(filepath.Join(libraryRoot, CatalogFileName), opts...)
}

// Path is the catalog file location.
func (d *Database) Path() string {
	return d.path
}

// Ping checks that the connection is usable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
