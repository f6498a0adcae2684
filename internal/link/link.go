// Package link implements external links attached to books and creators
// through ordered join tables.
package link

import (
	"net/url"
	"strings"
	"time"

	"github.com/zcomx/zcomix/internal/platform/apperr"
)

// Link is an external URL with display text shown on a book or creator
// page.
type Link struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// OwnerKind selects which join table a link hangs off.
type OwnerKind string

const (
	OwnerBook    OwnerKind = "book"
	OwnerCreator OwnerKind = "creator"
)

// Canonicalize normalises a URL for storage: the scheme is lowercased and
// defaults to https, the host is lowercased, and any trailing slash on the
// path is stripped.
func Canonicalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperr.ValidationError("URL is required")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", apperr.ValidationError("Invalid URL")
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", apperr.ValidationError("Only http and https URLs are allowed")
	}
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	return parsed.String(), nil
}
