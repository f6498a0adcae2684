package book

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// colonRun rewrites a colon (with optional surrounding spaces) before
	// forbidden-character stripping so "Book: Sequel" reads "Book - Sequel".
	colonRun = regexp.MustCompile(`\s*:\s*`)
	// forbiddenChars are characters not allowed in filenames.
	forbiddenChars = strings.NewReplacer(
		"/", "", `\`, "", "%", "", "*", "", "|", "",
		"<", "", ">", "", `"`, "", ":", "", "?", "",
	)
	// whitespaceRun collapses whitespace (and adjacent hyphens) for the
	// hyphenated file form, so "Book - Sequel" yields "Book-Sequel".
	whitespaceRun = regexp.MustCompile(`[\s-]+`)
)

// FormattedNumber renders the issue number for a kind.
//
//	one-shot:    ""          (number omitted)
//	ongoing:     "NNN"       (zero-padded to three digits)
//	mini-series: "NN (of NN)"
func FormattedNumber(kind Kind, number, ofNumber int) string {
	switch kind {
	case KindOngoing:
		return fmt.Sprintf("%03d", number)
	case KindMiniSeries:
		return fmt.Sprintf("%02d (of %02d)", number, ofNumber)
	default:
		return ""
	}
}

// Name returns the display name: title plus the formatted number.
func (b *Book) Name() string {
	formatted := FormattedNumber(b.Kind, b.Number, b.OfNumber)
	if formatted == "" {
		return b.Title
	}
	return b.Title + " " + formatted
}

// ScrubFilename removes characters forbidden in filenames. A colon
// surrounded by optional spaces becomes " - ".
func ScrubFilename(name string) string {
	scrubbed := colonRun.ReplaceAllString(name, " - ")
	scrubbed = forbiddenChars.Replace(scrubbed)
	return strings.TrimSpace(scrubbed)
}

// FileName returns the hyphenated, filesystem-safe form of the book name,
// e.g. "MyBook 001" → "MyBook-001". This names the cbz archive.
func (b *Book) FileName() string {
	scrubbed := ScrubFilename(b.Name())
	return whitespaceRun.ReplaceAllString(scrubbed, "-")
}

// ArchiveName returns the cbz archive filename for the book.
func (b *Book) ArchiveName() string {
	return b.FileName() + ".cbz"
}
