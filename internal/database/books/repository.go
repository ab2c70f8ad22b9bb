// Package books provides database operations for the Books catalog table.
//
// Records are always written whole: Update replaces every column of the row
// with the given ID. Optional columns are NULL when the corresponding pointer
// field is nil.
//
// # Interface Implementation
//
//	var _ library.Catalog = (*Repository)(nil)
//	var _ http.BookStore = (*Repository)(nil)
//
// # Usage
//
//	repo := books.NewRepository(db)
//	exists, err := repo.Exists("Dune", "Frank Herbert", nil, nil)
package books

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListBooks returns every row ordered for display.
func (r *Repository) ListBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("Author ASC, Series ASC, SeriesNumber ASC, Title ASC").Find(&books).Error
	return books, err
}

// ListAuthors returns the distinct authors, sorted.
func (r *Repository) ListAuthors() ([]string, error) {
	var authors []string
	err := r.db.Model(&entities.Book{}).
		Distinct("Author").
		Order("Author ASC").
		Pluck("Author", &authors).Error
	return authors, err
}

// ListSeries returns the distinct non-empty series names, sorted.
func (r *Repository) ListSeries() ([]string, error) {
	var series []string
	err := r.db.Model(&entities.Book{}).
		Where("Series IS NOT NULL AND Series <> ''").
		Distinct("Series").
		Order("Series ASC").
		Pluck("Series", &series).Error
	return series, err
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// SearchBooks matches query against title, author and series, case-insensitively.
func (r *Repository) SearchBooks(query string) ([]entities.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.ListBooks()
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var books []entities.Book
	err := r.db.
		Where("LOWER(Title) LIKE ? ESCAPE '\\' OR LOWER(Author) LIKE ? ESCAPE '\\' OR LOWER(Series) LIKE ? ESCAPE '\\'",
			pattern, pattern, pattern).
		Order("Author ASC, Series ASC, SeriesNumber ASC, Title ASC").
		Find(&books).Error
	return books, err
}

// Exists reports whether a row with the same title, author, series and
// series number is present. A nil series or series number only matches NULL.
func (r *Repository) Exists(title, author string, series *string, seriesNumber *int) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).
		Where("Title = ? AND Author = ? AND Series IS ? AND SeriesNumber IS ?", title, author, series, seriesNumber).
		Count(&count).Error
	return count > 0, err
}

// Count returns the number of rows.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

// Insert creates a row and assigns book.ID. AddedOn defaults to now (UTC).
func (r *Repository) Insert(book *entities.Book) error {
	if book.ID != 0 {
		return errors.New("insert: book already has an id")
	}
	if book.AddedOn.IsZero() {
		book.AddedOn = time.Now().UTC()
	}
	return r.db.Create(book).Error
}

// Update replaces every column of the row with book.ID.
func (r *Repository) Update(book *entities.Book) error {
	if book.ID == 0 {
		return errors.New("update: book has no id")
	}
	result := r.db.Model(book).Select("*").Omit("Id", "AddedOn").Updates(book)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the row with the given ID.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
