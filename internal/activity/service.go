package activity

import (
	"context"
	"log/slog"
	"time"
)

// Recorder writes tentative activity logs. It satisfies the recorder
// interfaces the book and release services declare.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

// NewRecorder constructs a [Recorder].
func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// PageAdded records a page append.
func (recorder *Recorder) PageAdded(ctx context.Context, bookID, pageID int64) error {
	return recorder.record(ctx, bookID, pageID, ActionPageAdded)
}

// Completed records a release.
func (recorder *Recorder) Completed(ctx context.Context, bookID, pageID int64) error {
	return recorder.record(ctx, bookID, pageID, ActionCompleted)
}

func (recorder *Recorder) record(ctx context.Context, bookID, pageID int64, action Action) error {
	tentative := &Tentative{
		BookID:     bookID,
		BookPageID: pageID,
		Action:     action,
		TimeStamp:  time.Now().UTC(),
	}
	if err := recorder.repo.InsertTentative(ctx, tentative); err != nil {
		return err
	}

	recorder.logger.Debug("tentative_activity_recorded",
		slog.Int64("book_id", bookID),
		slog.Int64("page_id", pageID),
		slog.String("action", string(action)),
	)
	return nil
}
