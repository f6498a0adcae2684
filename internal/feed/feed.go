// Package feed renders the RSS 2.0 channels over the activity log:
// site-wide, per-creator, and per-book.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zcomx/zcomix/internal/activity"
	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/creator"
	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/platform/apperr"
	"github.com/zcomx/zcomix/internal/platform/constants"
)

// Kind selects a feed channel.
type Kind string

const (
	KindAll     Kind = "all"
	KindCreator Kind = "creator"
	KindBook    Kind = "book"
)

// ParseKind validates a channel kind from the URL.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAll, KindCreator, KindBook:
		return Kind(s), nil
	default:
		return "", apperr.NotFound("Feed")
	}
}

// ActivityStore reads coalesced activity, newest first.
type ActivityStore interface {
	ListAll(ctx context.Context, since time.Time) ([]*activity.Log, error)
	ListByBook(ctx context.Context, bookID int64, since time.Time) ([]*activity.Log, error)
	ListByCreator(ctx context.Context, creatorID int64, since time.Time) ([]*activity.Log, error)
}

// BookStore resolves the book an activity entry belongs to.
type BookStore interface {
	GetByID(ctx context.Context, id int64) (*book.Book, error)
}

// PageStore resolves the page referenced by an enclosure.
type PageStore interface {
	GetPage(ctx context.Context, id int64) (*book.Page, error)
}

// CreatorStore resolves creators by id or slug.
type CreatorStore interface {
	GetByID(ctx context.Context, id int64) (*creator.Creator, error)
	GetBySlug(ctx context.Context, slug string) (*creator.Creator, error)
}

// ImageResolver maps an image reference to the derivative file backing an
// enclosure.
type ImageResolver interface {
	Resolve(ref image.Ref, size image.Size) (path string, served image.Size, err error)
}

// Renderer produces RSS documents. Feeds are read-only over coalesced
// activity, so consumers see one item per coherent event, not one per
// micro-edit.
type Renderer struct {
	activity ActivityStore
	books    BookStore
	pages    PageStore
	creators CreatorStore
	images   ImageResolver
	siteURL  string
	logger   *slog.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// NewRenderer constructs a [Renderer].
func NewRenderer(
	activityStore ActivityStore,
	books BookStore,
	pages PageStore,
	creators CreatorStore,
	images ImageResolver,
	siteURL string,
	logger *slog.Logger,
) *Renderer {
	return &Renderer{
		activity: activityStore,
		books:    books,
		pages:    pages,
		creators: creators,
		images:   images,
		siteURL:  strings.TrimRight(siteURL, "/"),
		logger:   logger,
		now:      time.Now,
	}
}

// # RSS Document Model

type rssDoc struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	AtomNS  string   `xml:"xmlns:atom,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	AtomLink    atomLink `xml:"atom:link"`
	Items       []item   `xml:"item"`
}

// atomLink is the rel="self" element feed validators require.
type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type item struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	Description string     `xml:"description"`
	GUID        guid       `xml:"guid"`
	PubDate     string     `xml:"pubDate"`
	Enclosure   *enclosure `xml:"enclosure,omitempty"`
}

type guid struct {
	Value       string `xml:",chardata"`
	IsPermaLink string `xml:"isPermaLink,attr"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

/*
Render produces the RSS document for a channel.

Description: The all channel windows activity to the last 7 days; book
and creator channels to the last 30. ref identifies the scope: a book id
for book feeds, a creator id or slug for creator feeds, unused for all.

Returns:
  - []byte: The XML document, including the processing instruction header
  - error: NotFound for unknown kinds, books, or creators
*/
func (renderer *Renderer) Render(ctx context.Context, kind Kind, ref string) ([]byte, error) {
	var (
		logs []*activity.Log
		ch   channel
		err  error
	)

	switch kind {
	case KindAll:
		since := renderer.now().Add(-constants.FeedMaxAgeAll)
		logs, err = renderer.activity.ListAll(ctx, since)
		ch = channel{
			Title:       "zco.mx",
			Link:        renderer.siteURL,
			Description: "Recent activity on zco.mx.",
		}

	case KindCreator:
		var c *creator.Creator
		c, err = renderer.lookupCreator(ctx, ref)
		if err != nil {
			return nil, err
		}
		since := renderer.now().Add(-constants.FeedMaxAgeScoped)
		logs, err = renderer.activity.ListByCreator(ctx, c.ID, since)
		ch = channel{
			Title:       fmt.Sprintf("zco.mx: %s", c.Name),
			Link:        renderer.siteURL + "/" + c.Slug,
			Description: fmt.Sprintf("Recent activity of %s on zco.mx.", c.Name),
		}

	case KindBook:
		bookID, parseErr := strconv.ParseInt(ref, 10, 64)
		if parseErr != nil {
			return nil, apperr.NotFound("Book")
		}
		b, getErr := renderer.books.GetByID(ctx, bookID)
		if getErr != nil {
			return nil, getErr
		}
		c, getErr := renderer.creators.GetByID(ctx, b.CreatorID)
		if getErr != nil {
			return nil, getErr
		}
		since := renderer.now().Add(-constants.FeedMaxAgeScoped)
		logs, err = renderer.activity.ListByBook(ctx, bookID, since)
		ch = channel{
			Title:       fmt.Sprintf("zco.mx: '%s' by %s", b.Name(), c.Name),
			Link:        renderer.bookLink(b, c),
			Description: fmt.Sprintf("Recent activity of '%s' by %s on zco.mx.", b.Name(), c.Name),
		}

	default:
		return nil, apperr.NotFound("Feed")
	}
	if err != nil {
		return nil, err
	}

	ch.AtomLink = atomLink{
		Href: renderer.selfLink(kind, ref),
		Rel:  "self",
		Type: "application/rss+xml",
	}

	for _, log := range logs {
		entry, err := renderer.renderItem(ctx, log)
		if err != nil {
			// A mangled entry must not take the channel down with it.
			renderer.logger.Warn("feed_item_skipped",
				slog.Int64("activity_log_id", log.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		ch.Items = append(ch.Items, entry)
	}

	doc := rssDoc{Version: "2.0", AtomNS: "http://www.w3.org/2005/Atom", Channel: ch}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("feed: marshal: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func (renderer *Renderer) renderItem(ctx context.Context, log *activity.Log) (item, error) {
	b, err := renderer.books.GetByID(ctx, log.BookID)
	if err != nil {
		return item{}, err
	}
	c, err := renderer.creators.GetByID(ctx, b.CreatorID)
	if err != nil {
		return item{}, err
	}

	entry := item{
		Title:       itemTitle(log, b, c),
		Link:        renderer.bookLink(b, c),
		Description: itemDescription(log, b, c),
		GUID: guid{
			Value:       fmt.Sprintf("zcomx-%09d", log.ID),
			IsPermaLink: "false",
		},
		PubDate: log.TimeStamp.Format(time.RFC1123Z),
	}
	entry.Enclosure = renderer.itemEnclosure(ctx, log)
	return entry, nil
}

// itemEnclosure points at the web-sized image of the first affected live
// page. Entries whose pages are all deleted simply have no enclosure.
func (renderer *Renderer) itemEnclosure(ctx context.Context, log *activity.Log) *enclosure {
	live := log.LivePages()
	if len(live) == 0 {
		return nil
	}

	page, err := renderer.pages.GetPage(ctx, live[0].BookPageID)
	if err != nil {
		return nil
	}
	ref, err := image.ParseRef(page.Image)
	if err != nil {
		return nil
	}
	path, served, err := renderer.images.Resolve(ref, image.SizeWeb)
	if err != nil {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}

	return &enclosure{
		URL:    fmt.Sprintf("%s/image/%s?size=%s", renderer.siteURL, ref.String(), served),
		Length: info.Size(),
		Type:   mimeType(path),
	}
}

func (renderer *Renderer) lookupCreator(ctx context.Context, ref string) (*creator.Creator, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return renderer.creators.GetByID(ctx, id)
	}
	return renderer.creators.GetBySlug(ctx, ref)
}

func (renderer *Renderer) bookLink(b *book.Book, c *creator.Creator) string {
	return renderer.siteURL + "/" + c.Slug + "/" + b.FileName()
}

func (renderer *Renderer) selfLink(kind Kind, ref string) string {
	href := renderer.siteURL + "/rss/" + string(kind)
	if kind != KindAll && ref != "" {
		href += "/" + ref
	}
	return href
}

// # Item Text

func itemTitle(log *activity.Log, b *book.Book, c *creator.Creator) string {
	if log.Action == activity.ActionCompleted {
		return fmt.Sprintf("'%s' complete by %s", b.Name(), c.Name)
	}
	return fmt.Sprintf("'%s' %s by %s", b.Name(), runList(log.LivePages()), c.Name)
}

func itemDescription(log *activity.Log, b *book.Book, c *creator.Creator) string {
	switch log.Action {
	case activity.ActionCompleted:
		return fmt.Sprintf("The book '%s' by %s has been completed.", b.Name(), c.Name)
	case activity.ActionPageAdded:
		return fmt.Sprintf("A page was added to the book '%s' by %s.", b.Name(), c.Name)
	default:
		return fmt.Sprintf("Several pages were added to the book '%s' by %s.", b.Name(), c.Name)
	}
}

// runList formats page numbers as an abridged run list, e.g.
// "p03 p04 p05 p07". Long runs keep the first four and last entries with
// an ellipsis between.
func runList(pages []activity.LogPage) string {
	numbers := make([]int, len(pages))
	for i, page := range pages {
		numbers[i] = page.PageNo
	}
	sort.Ints(numbers)

	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		parts = append(parts, fmt.Sprintf("p%02d", n))
	}
	if len(parts) > 6 {
		parts = append(parts[:4], "...", parts[len(parts)-1])
	}
	return strings.Join(parts, " ")
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
