package schema

// ActivityLogTable represents the 'activity_log' table
type ActivityLogTable struct {
	Table     string
	ID        string
	BookID    string
	Action    string
	TimeStamp string
	CreatedAt string
}

// ActivityLog is the schema definition for activity_log
var ActivityLog = ActivityLogTable{
	Table:     "activity_log",
	ID:        "id",
	BookID:    "book_id",
	Action:    "action",
	TimeStamp: "time_stamp",
	CreatedAt: "created_at",
}

func (t ActivityLogTable) Columns() []string {
	return []string{t.ID, t.BookID, t.Action, t.TimeStamp, t.CreatedAt}
}

// ActivityLogPageTable represents the 'activity_log_page' association table.
// One row per page referenced by an activity log. Deleted pages stay in the
// table with deleted=true so feeds remain renderable after content churn.
type ActivityLogPageTable struct {
	Table         string
	ID            string
	ActivityLogID string
	BookPageID    string
	PageNo        string
	Deleted       string
}

// ActivityLogPage is the schema definition for activity_log_page
var ActivityLogPage = ActivityLogPageTable{
	Table:         "activity_log_page",
	ID:            "id",
	ActivityLogID: "activity_log_id",
	BookPageID:    "book_page_id",
	PageNo:        "page_no",
	Deleted:       "deleted",
}

// TentativeActivityLogTable represents the 'tentative_activity_log' table
type TentativeActivityLogTable struct {
	Table      string
	ID         string
	BookID     string
	BookPageID string
	Action     string
	TimeStamp  string
}

// TentativeActivityLog is the schema definition for tentative_activity_log
var TentativeActivityLog = TentativeActivityLogTable{
	Table:      "tentative_activity_log",
	ID:         "id",
	BookID:     "book_id",
	BookPageID: "book_page_id",
	Action:     "action",
	TimeStamp:  "time_stamp",
}

func (t TentativeActivityLogTable) Columns() []string {
	return []string{t.ID, t.BookID, t.BookPageID, t.Action, t.TimeStamp}
}
