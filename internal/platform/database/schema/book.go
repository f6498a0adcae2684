package schema

// BookTable represents the 'book' table
type BookTable struct {
	Table          string
	ID             string
	CreatorID      string
	Title          string
	TitleFold      string
	Kind           string
	Number         string
	OfNumber       string
	Year           string
	License        string
	Status         string
	ReleaseDate    string
	Releasing      string
	ReleasingSetAt string
	Archive        string
	Torrent        string
	CreatedAt      string
	UpdatedAt      string
}

// Book is the schema definition for book
var Book = BookTable{
	Table:          "book",
	ID:             "id",
	CreatorID:      "creator_id",
	Title:          "title",
	TitleFold:      "title_fold",
	Kind:           "kind",
	Number:         "number",
	OfNumber:       "of_number",
	Year:           "year",
	License:        "license",
	Status:         "status",
	ReleaseDate:    "release_date",
	Releasing:      "releasing",
	ReleasingSetAt: "releasing_set_at",
	Archive:        "archive",
	Torrent:        "torrent",
	CreatedAt:      "created_at",
	UpdatedAt:      "updated_at",
}

func (t BookTable) Columns() []string {
	return []string{
		t.ID, t.CreatorID, t.Title, t.TitleFold, t.Kind, t.Number, t.OfNumber, t.Year,
		t.License, t.Status, t.ReleaseDate, t.Releasing, t.ReleasingSetAt,
		t.Archive, t.Torrent, t.CreatedAt, t.UpdatedAt,
	}
}
