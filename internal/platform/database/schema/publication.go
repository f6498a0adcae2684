package schema

// PublicationMetadataTable represents the 'publication_metadata' table.
// A book has at most one metadata record; it is edited as one atomic document
// together with its serial and derivative sub-records.
type PublicationMetadataTable struct {
	Table            string
	ID               string
	BookID           string
	IsOriginal       string
	PublishedName    string
	PublishedFormat  string
	Publisher        string
	FromYear         string
	ToYear           string
	CreatedAt        string
	UpdatedAt        string
}

// PublicationMetadata is the schema definition for publication_metadata
var PublicationMetadata = PublicationMetadataTable{
	Table:           "publication_metadata",
	ID:              "id",
	BookID:          "book_id",
	IsOriginal:      "is_original",
	PublishedName:   "published_name",
	PublishedFormat: "published_format",
	Publisher:       "publisher",
	FromYear:        "from_year",
	ToYear:          "to_year",
	CreatedAt:       "created_at",
	UpdatedAt:       "updated_at",
}

// PublicationSerialTable represents the 'publication_serial' table
type PublicationSerialTable struct {
	Table           string
	ID              string
	BookID          string
	Sequence        string
	PublishedName   string
	PublishedFormat string
	Publisher       string
	StoryNumber     string
	SerialNumber    string
	FromYear        string
	ToYear          string
}

// PublicationSerial is the schema definition for publication_serial
var PublicationSerial = PublicationSerialTable{
	Table:           "publication_serial",
	ID:              "id",
	BookID:          "book_id",
	Sequence:        "sequence",
	PublishedName:   "published_name",
	PublishedFormat: "published_format",
	Publisher:       "publisher",
	StoryNumber:     "story_number",
	SerialNumber:    "serial_number",
	FromYear:        "from_year",
	ToYear:          "to_year",
}

// PublicationDerivativeTable represents the 'publication_derivative' table
type PublicationDerivativeTable struct {
	Table       string
	ID          string
	BookID      string
	Title       string
	CreatorName string
	CCLicence   string
	FromYear    string
	ToYear      string
}

// PublicationDerivative is the schema definition for publication_derivative
var PublicationDerivative = PublicationDerivativeTable{
	Table:       "publication_derivative",
	ID:          "id",
	BookID:      "book_id",
	Title:       "title",
	CreatorName: "creator_name",
	CCLicence:   "cc_licence",
	FromYear:    "from_year",
	ToYear:      "to_year",
}
