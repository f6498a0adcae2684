// Package release implements the gate that decides whether a book may be
// published and the re-entrant driver that walks it through the release
// pipeline.
package release

import (
	"fmt"
	"strings"
)

// BarrierCode identifies one release precondition.
type BarrierCode string

// The closed set of barrier kinds. A book is released only when no
// barrier applies.
const (
	BarrierNoName        BarrierCode = "no_name"
	BarrierNoPages       BarrierCode = "no_pages"
	BarrierDupeName      BarrierCode = "dupe_name"
	BarrierDupeNumber    BarrierCode = "dupe_number"
	BarrierNoLicence     BarrierCode = "no_licence"
	BarrierLicenceARR    BarrierCode = "licence_arr"
	BarrierNoMetadata    BarrierCode = "no_metadata"
	BarrierInvalidPageNo BarrierCode = "invalid_page_no"
	BarrierNoCBZImages   BarrierCode = "no_cbz_images"
)

// Barrier is one triggered release precondition with user-correctable
// guidance.
type Barrier struct {
	Code        BarrierCode `json:"code"`
	Reason      string      `json:"reason"`
	Description string      `json:"description"`
	Fixes       []string    `json:"fixes"`
}

// barrierText holds the static reason and description per code. Fixes are
// partly dynamic and assembled by the gate.
var barrierText = map[BarrierCode][2]string{
	BarrierNoName: {
		"The book has no name.",
		"A book requires a title before it can be released.",
	},
	BarrierNoPages: {
		"The book has no pages.",
		"Upload at least one page image before releasing.",
	},
	BarrierDupeName: {
		"Another released book has the same name.",
		"A released book by the same creator already uses this title with a different book type.",
	},
	BarrierDupeNumber: {
		"Another released book has the same name and number.",
		"A released book by the same creator already uses this title, type, and number.",
	},
	BarrierNoLicence: {
		"The book has no licence.",
		"Select a licence before releasing.",
	},
	BarrierLicenceARR: {
		"The licence is All Rights Reserved.",
		"All Rights Reserved conflicts with public distribution. Choose a licence that permits sharing.",
	},
	BarrierNoMetadata: {
		"The book has no publication metadata.",
		"Fill in the publication metadata before releasing.",
	},
	BarrierInvalidPageNo: {
		"The page numbers are invalid.",
		"Page one is missing or a page number is duplicated.",
	},
	BarrierNoCBZImages: {
		"Some images are too small for the archive.",
		"One or more pages lack a cbz-size derivative because the upload was below the minimum dimensions.",
	},
}

// newBarrier builds a barrier for code with the given fixes.
func newBarrier(code BarrierCode, fixes ...string) Barrier {
	text := barrierText[code]
	return Barrier{
		Code:        code,
		Reason:      text[0],
		Description: text[1],
		Fixes:       fixes,
	}
}

// BarrierError reports a refused transition. The release job is disabled
// when it surfaces; the state is user-correctable, never retried.
type BarrierError struct {
	Barriers []Barrier
}

func (e *BarrierError) Error() string {
	codes := make([]string, len(e.Barriers))
	for i, barrier := range e.Barriers {
		codes[i] = string(barrier.Code)
	}
	return fmt.Sprintf("release blocked: %s", strings.Join(codes, ", "))
}
