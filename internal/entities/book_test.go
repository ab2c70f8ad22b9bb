package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBook_Clone(t *testing.T) {
	original := Book{
		ID:           7,
		Title:        "Dune",
		Author:       "Frank Herbert",
		EpubPath:     "/lib/Frank Herbert/Dune/Frank Herbert - Dune.epub",
		Series:       StringPtr("Dune"),
		SeriesNumber: IntPtr(1),
		Year:         IntPtr(1965),
	}

	clone := original.Clone()
	*clone.Series = "Changed"
	*clone.SeriesNumber = 9

	assert.Equal(t, "Dune", *original.Series)
	assert.Equal(t, 1, *original.SeriesNumber)
	assert.Equal(t, original.ID, clone.ID)
	assert.Nil(t, clone.Description)
}

func TestBook_Dir(t *testing.T) {
	b := Book{EpubPath: "/lib/Author/Title/Author - Title.epub"}
	assert.Equal(t, "/lib/Author/Title", b.Dir())
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "x", *StringPtr("x"))
	assert.Equal(t, "", StringValue(nil))
}

func TestJobProgress_Percent(t *testing.T) {
	assert.Equal(t, 0.0, JobProgress{}.Percent())
	assert.Equal(t, 50.0, JobProgress{TotalItems: 4, Processed: 2}.Percent())
}
