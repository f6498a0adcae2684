// Package activity implements the activity log: tentative records written
// synchronously on each micro-edit, and the coalescer that folds them into
// the stable entries feeds are rendered from.
package activity

import (
	"time"
)

// Action classifies what a log entry reports.
type Action string

const (
	// ActionPageAdded covers one page appended to a book.
	ActionPageAdded Action = "page added"
	// ActionPagesAdded covers several pages absorbed into one entry.
	ActionPagesAdded Action = "pages added"
	// ActionCompleted marks a book released.
	ActionCompleted Action = "completed"
)

// Log is a reader-visible activity entry. It is written only by the
// coalescer; everything else reads.
type Log struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id"`
	Action    Action    `json:"action"`
	TimeStamp time.Time `json:"time_stamp"`
	CreatedAt time.Time `json:"-"`

	// Pages are the association rows referencing the pages this entry
	// covers, in page-number order. Rows flip to Deleted instead of being
	// removed when their page is deleted, so the entry stays renderable.
	Pages []LogPage `json:"pages"`
}

// LogPage associates one page with a log entry.
type LogPage struct {
	ID            int64 `json:"-"`
	ActivityLogID int64 `json:"-"`
	BookPageID    int64 `json:"book_page_id"`
	// PageNo is captured at coalesce time; the live page may be renumbered
	// or deleted afterwards.
	PageNo  int  `json:"page_no"`
	Deleted bool `json:"deleted,omitempty"`
}

// LivePages returns the association rows whose page still exists.
func (l *Log) LivePages() []LogPage {
	live := make([]LogPage, 0, len(l.Pages))
	for _, p := range l.Pages {
		if !p.Deleted {
			live = append(live, p)
		}
	}
	return live
}

// Tentative is a short-lived record of one micro-edit awaiting coalescing.
type Tentative struct {
	ID         int64
	BookID     int64
	BookPageID int64
	Action     Action
	TimeStamp  time.Time
}
