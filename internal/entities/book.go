package entities

import (
	"path/filepath"
	"time"
)

// Book is a single catalog row. Optional columns are pointers so that NULL
// survives a round trip through the catalog.
type Book struct {
	ID           uint      `gorm:"column:Id;primaryKey;autoIncrement" json:"id"`
	Title        string    `gorm:"column:Title;not null" json:"title" validate:"required"`
	Author       string    `gorm:"column:Author;not null" json:"author" validate:"required"`
	EpubPath     string    `gorm:"column:EpubPath;not null" json:"epub_path"`
	HasCover     bool      `gorm:"column:HasCover;not null" json:"has_cover"`
	AddedOn      time.Time `gorm:"column:AddedOn;not null" json:"added_on"`
	BookType     *string   `gorm:"column:BookType" json:"book_type,omitempty"`
	Series       *string   `gorm:"column:Series" json:"series,omitempty"`
	SeriesNumber *int      `gorm:"column:SeriesNumber" json:"series_number,omitempty" validate:"omitempty,gte=0"`
	Year         *int      `gorm:"column:Year" json:"year,omitempty" validate:"omitempty,gte=0,lte=9999"`
	Description  *string   `gorm:"column:Description" json:"description,omitempty"`
}

func (Book) TableName() string {
	return "Books"
}

// Dir is the book's own directory, the parent of the archive.
func (b Book) Dir() string {
	return filepath.Dir(b.EpubPath)
}

// Clone returns a deep copy, so the result shares no pointers with b.
func (b Book) Clone() Book {
	c := b
	c.BookType = cloneString(b.BookType)
	c.Series = cloneString(b.Series)
	c.Description = cloneString(b.Description)
	c.SeriesNumber = cloneInt(b.SeriesNumber)
	c.Year = cloneInt(b.Year)
	return c
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func IntPtr(i int) *int {
	return &i
}

func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
