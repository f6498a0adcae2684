package schema

// LinkTable represents the 'link' table
type LinkTable struct {
	Table     string
	ID        string
	URL       string
	Text      string
	Title     string
	CreatedAt string
	UpdatedAt string
}

// Link is the schema definition for link
var Link = LinkTable{
	Table:     "link",
	ID:        "id",
	URL:       "url",
	Text:      "text",
	Title:     "title",
	CreatedAt: "created_at",
	UpdatedAt: "updated_at",
}

func (t LinkTable) Columns() []string {
	return []string{t.ID, t.URL, t.Text, t.Title, t.CreatedAt, t.UpdatedAt}
}

// BookToLinkTable represents the 'book_to_link' ordered join table
type BookToLinkTable struct {
	Table  string
	ID     string
	BookID string
	LinkID string
	Order  string
}

// BookToLink is the schema definition for book_to_link
var BookToLink = BookToLinkTable{
	Table:  "book_to_link",
	ID:     "id",
	BookID: "book_id",
	LinkID: "link_id",
	Order:  "ord",
}

// CreatorToLinkTable represents the 'creator_to_link' ordered join table
type CreatorToLinkTable struct {
	Table     string
	ID        string
	CreatorID string
	LinkID    string
	Order     string
}

// CreatorToLink is the schema definition for creator_to_link
var CreatorToLink = CreatorToLinkTable{
	Table:     "creator_to_link",
	ID:        "id",
	CreatorID: "creator_id",
	LinkID:    "link_id",
	Order:     "ord",
}
