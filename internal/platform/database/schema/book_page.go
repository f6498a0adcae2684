package schema

// BookPageTable represents the 'book_page' table
type BookPageTable struct {
	Table     string
	ID        string
	BookID    string
	PageNo    string
	Image     string
	CreatedAt string
	UpdatedAt string
}

// BookPage is the schema definition for book_page
var BookPage = BookPageTable{
	Table:     "book_page",
	ID:        "id",
	BookID:    "book_id",
	PageNo:    "page_no",
	Image:     "image",
	CreatedAt: "created_at",
	UpdatedAt: "updated_at",
}

func (t BookPageTable) Columns() []string {
	return []string{t.ID, t.BookID, t.PageNo, t.Image, t.CreatedAt, t.UpdatedAt}
}
