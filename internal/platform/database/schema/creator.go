package schema

// CreatorTable represents the 'creator' table
type CreatorTable struct {
	Table          string
	ID             string
	Name           string
	Slug           string
	SlugFold       string
	Email          string
	PaypalEmail    string
	Portrait       string
	Indicia        string
	Torrent        string
	RebuildTorrent string
	CreatedAt      string
	UpdatedAt      string
}

// Creator is the schema definition for creator
var Creator = CreatorTable{
	Table:          "creator",
	ID:             "id",
	Name:           "name",
	Slug:           "slug",
	SlugFold:       "slug_fold",
	Email:          "email",
	PaypalEmail:    "paypal_email",
	Portrait:       "portrait",
	Indicia:        "indicia",
	Torrent:        "torrent",
	RebuildTorrent: "rebuild_torrent",
	CreatedAt:      "created_at",
	UpdatedAt:      "updated_at",
}

func (t CreatorTable) Columns() []string {
	return []string{
		t.ID, t.Name, t.Slug, t.SlugFold, t.Email, t.PaypalEmail, t.Portrait, t.Indicia,
		t.Torrent, t.RebuildTorrent, t.CreatedAt, t.UpdatedAt,
	}
}
