// Package book implements the book entity, its page ledger, and the
// publication metadata document.
package book

import (
	"time"
)

// Kind classifies how a book is numbered and named.
type Kind string

const (
	KindOneShot    Kind = "one-shot"
	KindOngoing    Kind = "ongoing"
	KindMiniSeries Kind = "mini-series"
)

// Kinds lists the valid book kinds.
var Kinds = []Kind{KindOneShot, KindOngoing, KindMiniSeries}

// ValidKind reports whether s names a book kind.
func ValidKind(s string) bool {
	for _, k := range Kinds {
		if Kind(s) == k {
			return true
		}
	}
	return false
}

// Status is the administrative state of a book. Books are disabled instead
// of physically deleted when a creator withdraws them.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// LicenseAllRightsReserved conflicts with public distribution and blocks
// release.
const LicenseAllRightsReserved = "All Rights Reserved"

// Book is a comic issue or graphic novel by one creator, composed of
// ordered pages.
//
// ReleaseDate null means the book is ongoing. The invariant
// release_date null ⇔ archive null ⇔ torrent null is maintained by the
// release driver.
type Book struct {
	ID          int64      `json:"id"`
	CreatorID   int64      `json:"creator_id"`
	Title       string     `json:"title"`
	Kind        Kind       `json:"kind"`
	Number      int        `json:"number"`
	OfNumber    int        `json:"of_number"`
	Year        int        `json:"year"`
	License     string     `json:"license"`
	Status      Status     `json:"status"`
	ReleaseDate *time.Time `json:"release_date"`
	Releasing   bool       `json:"releasing"`
	// ReleasingSetAt time-bounds the releasing flag so a dead worker cannot
	// strand a book mid-release.
	ReleasingSetAt *time.Time `json:"-"`
	Archive        *string    `json:"archive,omitempty"`
	Torrent        *string    `json:"torrent,omitempty"`
	CreatedAt      time.Time  `json:"-"`
	UpdatedAt      time.Time  `json:"-"`

	// Pages is populated on detail reads.
	Pages []*Page `json:"pages,omitempty"`
}

// Released reports whether the book has completed the publishing pipeline.
func (b *Book) Released() bool {
	return b.ReleaseDate != nil
}

// Page is a single image within a book, positioned by page number ≥ 1.
// Page numbers form a dense 1..N sequence per book; page 1 is the cover.
type Page struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id"`
	PageNo    int       `json:"page_no"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Metadata is the publication metadata document for a book. It is edited
// atomically as one unit together with its serial and derivative
// sub-records, and is required before release.
type Metadata struct {
	ID              int64  `json:"id"`
	BookID          int64  `json:"book_id"`
	IsOriginal      bool   `json:"is_original"`
	PublishedName   string `json:"published_name"`
	PublishedFormat string `json:"published_format"`
	Publisher       string `json:"publisher"`
	FromYear        int    `json:"from_year"`
	ToYear          int    `json:"to_year"`

	Serials    []Serial    `json:"serials,omitempty"`
	Derivative *Derivative `json:"derivative,omitempty"`
}

// Serial is one serialized-publication segment of a book's history.
type Serial struct {
	ID              int64  `json:"id"`
	Sequence        int    `json:"sequence"`
	PublishedName   string `json:"published_name"`
	PublishedFormat string `json:"published_format"`
	Publisher       string `json:"publisher"`
	StoryNumber     int    `json:"story_number"`
	SerialNumber    int    `json:"serial_number"`
	FromYear        int    `json:"from_year"`
	ToYear          int    `json:"to_year"`
}

// Derivative records the work this book derives from, if any.
type Derivative struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	CreatorName string `json:"creator_name"`
	CCLicence   string `json:"cc_licence"`
	FromYear    int    `json:"from_year"`
	ToYear      int    `json:"to_year"`
}
