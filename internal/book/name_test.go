package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestFormattedNumber verifies the per-kind issue-number formats.
*/
func TestFormattedNumber(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		number   int
		ofNumber int
		want     string
	}{
		{"one-shot omits the number", KindOneShot, 1, 0, ""},
		{"ongoing pads to three digits", KindOngoing, 1, 0, "001"},
		{"ongoing keeps wide numbers", KindOngoing, 123, 0, "123"},
		{"mini-series formats of-number", KindMiniSeries, 2, 4, "02 (of 04)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormattedNumber(tt.kind, tt.number, tt.ofNumber))
		})
	}
}

/*
TestBook_Name verifies display names combine title and formatted number.
*/
func TestBook_Name(t *testing.T) {
	ongoing := &Book{Title: "MyBook", Kind: KindOngoing, Number: 1}
	assert.Equal(t, "MyBook 001", ongoing.Name())

	oneShot := &Book{Title: "MyBook", Kind: KindOneShot}
	assert.Equal(t, "MyBook", oneShot.Name())

	mini := &Book{Title: "MyBook", Kind: KindMiniSeries, Number: 2, OfNumber: 9}
	assert.Equal(t, "MyBook 02 (of 09)", mini.Name())
}

/*
TestScrubFilename verifies forbidden characters are stripped and colons
become hyphen separators.
*/
func TestScrubFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name untouched", "MyBook 001", "MyBook 001"},
		{"colon becomes separator", "Book: Sequel", "Book - Sequel"},
		{"colon with spaces", "Book : Sequel", "Book - Sequel"},
		{"forbidden characters stripped", `My/Book\%*|<>"?`, "MyBook"},
		{"question mark stripped", "Who? Me?", "Who Me"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScrubFilename(tt.input))
		})
	}
}

/*
TestBook_FileName verifies the hyphenated archive-safe form.
*/
func TestBook_FileName(t *testing.T) {
	b := &Book{Title: "MyBook", Kind: KindOngoing, Number: 1}
	assert.Equal(t, "MyBook-001", b.FileName())
	assert.Equal(t, "MyBook-001.cbz", b.ArchiveName())

	sequel := &Book{Title: "Book: Sequel", Kind: KindOneShot}
	assert.Equal(t, "Book-Sequel", sequel.FileName())
}
