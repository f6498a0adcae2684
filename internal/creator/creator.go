// Package creator implements the creator entity: the cartoonist who owns
// books, a portrait, an indicia image, and a site-wide torrent.
package creator

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Creator is a registered cartoonist.
//
// The slug is derived from the name and is unique case-insensitively after
// accent folding. Portrait and Indicia hold image refs; Torrent holds the
// creator torrent path relative to the archive root.
type Creator struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Email       string  `json:"email,omitempty"`
	PaypalEmail string  `json:"paypal_email,omitempty"`
	Portrait    *string `json:"portrait,omitempty"`
	Indicia     *string `json:"indicia,omitempty"`
	Torrent     *string `json:"torrent,omitempty"`
	// RebuildTorrent marks the creator torrent stale. Releases set it; the
	// purge_torrents job batch-rebuilds and clears it.
	RebuildTorrent bool      `json:"-"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// Letter returns the upper-case shelf letter used in the archive layout,
// or "0" when the slug does not start with a letter.
func (c *Creator) Letter() string {
	if c.Slug == "" {
		return "0"
	}
	first, _ := utf8.DecodeRuneInString(c.Slug)
	if !unicode.IsLetter(first) {
		return "0"
	}
	return strings.ToUpper(string(first))
}

// TorrentName returns the creator torrent filename.
func (c *Creator) TorrentName() string {
	return c.Slug + ".torrent"
}
