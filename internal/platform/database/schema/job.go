package schema

// JobTable represents the 'job' table
type JobTable struct {
	Table      string
	ID         string
	Command    string
	Args       string
	Priority   string
	Status     string
	StartAfter string
	Attempts   string
	CreatedAt  string
	UpdatedAt  string
}

// Job is the schema definition for job
var Job = JobTable{
	Table:      "job",
	ID:         "id",
	Command:    "command",
	Args:       "args",
	Priority:   "priority",
	Status:     "status",
	StartAfter: "start_after",
	Attempts:   "attempts",
	CreatedAt:  "created_at",
	UpdatedAt:  "updated_at",
}

func (t JobTable) Columns() []string {
	return []string{
		t.ID, t.Command, t.Args, t.Priority, t.Status, t.StartAfter,
		t.Attempts, t.CreatedAt, t.UpdatedAt,
	}
}
