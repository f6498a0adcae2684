package release

import (
	"context"
	"fmt"

	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/pkg/slug"
)

// ImageChecker is the slice of the image store the gate needs to verify
// cbz derivatives.
type ImageChecker interface {
	HasSize(ref image.Ref, size image.Size) bool
	OriginalDescriptor(ref image.Ref) (image.Descriptor, error)
}

// Gate evaluates the release preconditions for a book.
//
// Evaluation is eager by default: every barrier is checked so the user
// sees the full fix list at once. FailFast stops at the first triggered
// barrier, which the driver uses for cheap re-checks.
type Gate struct {
	books    book.Repository
	pages    book.PageRepository
	metadata book.MetadataRepository
	images   ImageChecker
}

// NewGate constructs a [Gate].
func NewGate(books book.Repository, pages book.PageRepository, metadata book.MetadataRepository, images ImageChecker) *Gate {
	return &Gate{books: books, pages: pages, metadata: metadata, images: images}
}

// Mode selects the gate's evaluation strategy.
type Mode int

const (
	// Eager checks every barrier.
	Eager Mode = iota
	// FailFast stops at the first triggered barrier.
	FailFast
)

// Evaluate returns the triggered barriers for b, in canonical order. An
// empty slice means the book may transition to released.
func (gate *Gate) Evaluate(ctx context.Context, b *book.Book, mode Mode) ([]Barrier, error) {
	barriers := make([]Barrier, 0)

	checks := []func(context.Context, *book.Book) (*Barrier, error){
		gate.checkName,
		gate.checkPages,
		gate.checkDupes,
		gate.checkLicence,
		gate.checkMetadata,
		gate.checkPageNumbers,
		gate.checkCBZImages,
	}

	for _, check := range checks {
		barrier, err := check(ctx, b)
		if err != nil {
			return nil, err
		}
		if barrier != nil {
			barriers = append(barriers, *barrier)
			if mode == FailFast {
				break
			}
		}
	}

	return barriers, nil
}

func (gate *Gate) checkName(_ context.Context, b *book.Book) (*Barrier, error) {
	if b.Title == "" {
		barrier := newBarrier(BarrierNoName, "Set the book title.")
		return &barrier, nil
	}
	return nil, nil
}

func (gate *Gate) checkPages(ctx context.Context, b *book.Book) (*Barrier, error) {
	count, err := gate.pages.CountPages(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		barrier := newBarrier(BarrierNoPages, "Upload page images.")
		return &barrier, nil
	}
	return nil, nil
}

// checkDupes compares against released books by the same creator using the
// accent-folded, case-insensitive form of the title.
func (gate *Gate) checkDupes(ctx context.Context, b *book.Book) (*Barrier, error) {
	dupes, err := gate.books.ReleasedDupes(ctx, b.CreatorID, slug.Fold(b.Title), b.ID)
	if err != nil {
		return nil, err
	}

	for _, dupe := range dupes {
		if dupe.Kind != b.Kind {
			barrier := newBarrier(BarrierDupeName,
				fmt.Sprintf("Rename the book or un-release '%s'.", dupe.Name()))
			return &barrier, nil
		}
		if dupe.Number == b.Number {
			barrier := newBarrier(BarrierDupeNumber,
				fmt.Sprintf("Change the book number or un-release '%s'.", dupe.Name()))
			return &barrier, nil
		}
	}
	return nil, nil
}

func (gate *Gate) checkLicence(_ context.Context, b *book.Book) (*Barrier, error) {
	if b.License == "" {
		barrier := newBarrier(BarrierNoLicence, "Select a licence.")
		return &barrier, nil
	}
	if b.License == book.LicenseAllRightsReserved {
		barrier := newBarrier(BarrierLicenceARR, "Select a licence that permits distribution.")
		return &barrier, nil
	}
	return nil, nil
}

func (gate *Gate) checkMetadata(ctx context.Context, b *book.Book) (*Barrier, error) {
	has, err := gate.metadata.HasMetadata(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if !has {
		barrier := newBarrier(BarrierNoMetadata, "Fill in the publication metadata.")
		return &barrier, nil
	}
	return nil, nil
}

func (gate *Gate) checkPageNumbers(ctx context.Context, b *book.Book) (*Barrier, error) {
	pages, err := gate.pages.ListPages(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil // covered by no_pages
	}

	seen := make(map[int]bool, len(pages))
	hasFirst := false
	valid := true
	for _, page := range pages {
		if page.PageNo == 1 {
			hasFirst = true
		}
		if seen[page.PageNo] {
			valid = false
			break
		}
		seen[page.PageNo] = true
	}

	if !hasFirst || !valid {
		barrier := newBarrier(BarrierInvalidPageNo,
			"Drag the pages into order on the upload screen to renumber them.")
		return &barrier, nil
	}
	return nil, nil
}

func (gate *Gate) checkCBZImages(ctx context.Context, b *book.Book) (*Barrier, error) {
	pages, err := gate.pages.ListPages(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	fixes := make([]string, 0)
	for _, page := range pages {
		ref, err := image.ParseRef(page.Image)
		if err != nil {
			fixes = append(fixes, fmt.Sprintf("Re-upload page %d; its image reference is unreadable.", page.PageNo))
			continue
		}
		if gate.images.HasSize(ref, image.SizeCBZ) {
			continue
		}

		fix := fmt.Sprintf("Upload a larger image for page %d (%s).", page.PageNo, ref.Filename)
		if descriptor, err := gate.images.OriginalDescriptor(ref); err == nil {
			fix = fmt.Sprintf("Upload a larger image for page %d (%s, %d px wide).",
				page.PageNo, ref.Filename, descriptor.Width)
		}
		fixes = append(fixes, fix)
	}

	if len(fixes) > 0 {
		return &Barrier{
			Code:        BarrierNoCBZImages,
			Reason:      barrierText[BarrierNoCBZImages][0],
			Description: barrierText[BarrierNoCBZImages][1],
			Fixes:       fixes,
		}, nil
	}
	return nil, nil
}
