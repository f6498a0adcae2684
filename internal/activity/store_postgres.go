package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zcomx/zcomix/internal/platform/database/schema"
	"github.com/zcomx/zcomix/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) InsertTentative(ctx context.Context, tentative *Tentative) error {
	t := schema.TentativeActivityLog
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, t.Table, t.BookID, t.BookPageID, t.Action, t.TimeStamp, t.ID)

	err := repository.db.QueryRow(ctx, query,
		tentative.BookID, tentative.BookPageID, tentative.Action, tentative.TimeStamp,
	).Scan(&tentative.ID)
	if err != nil {
		return dberr.Wrap(err, "insert_tentative")
	}
	return nil
}

func (repository *PostgresRepository) BooksWithTentativeOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error) {
	t := schema.TentativeActivityLog
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM %s WHERE %s < $1 ORDER BY %s ASC
	`, t.BookID, t.Table, t.TimeStamp, t.BookID)

	rows, err := repository.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, dberr.Wrap(err, "books_with_tentative")
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dberr.Wrap(err, "scan_book_id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (repository *PostgresRepository) ListTentativeByBook(ctx context.Context, bookID int64) ([]*Tentative, error) {
	t := schema.TentativeActivityLog
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s FROM %s WHERE %s = $1 ORDER BY %s ASC
	`, t.ID, t.BookID, t.BookPageID, t.Action, t.TimeStamp, t.Table, t.BookID, t.TimeStamp)

	rows, err := repository.db.Query(ctx, query, bookID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_tentative")
	}
	defer rows.Close()

	tentatives := make([]*Tentative, 0)
	for rows.Next() {
		tentative := &Tentative{}
		err := rows.Scan(&tentative.ID, &tentative.BookID, &tentative.BookPageID,
			&tentative.Action, &tentative.TimeStamp)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_tentative")
		}
		tentatives = append(tentatives, tentative)
	}
	return tentatives, nil
}

func (repository *PostgresRepository) Coalesce(ctx context.Context, log *Log, absorbedIDs []int64) error {
	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "coalesce_begin")
	}
	defer tx.Rollback(ctx)

	t := schema.ActivityLog
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, $3)
		RETURNING %s, %s
	`, t.Table, t.BookID, t.Action, t.TimeStamp, t.ID, t.CreatedAt)

	err = tx.QueryRow(ctx, insert, log.BookID, log.Action, log.TimeStamp).
		Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return dberr.Wrap(err, "coalesce_insert_log")
	}

	p := schema.ActivityLogPage
	pageInsert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, p.Table, p.ActivityLogID, p.BookPageID, p.PageNo, p.Deleted, p.ID)

	for i := range log.Pages {
		page := &log.Pages[i]
		page.ActivityLogID = log.ID
		err := tx.QueryRow(ctx, pageInsert,
			log.ID, page.BookPageID, page.PageNo, page.Deleted,
		).Scan(&page.ID)
		if err != nil {
			return dberr.Wrap(err, "coalesce_insert_page")
		}
	}

	tt := schema.TentativeActivityLog
	deleteTentative := fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`, tt.Table, tt.ID)
	if _, err := tx.Exec(ctx, deleteTentative, absorbedIDs); err != nil {
		return dberr.Wrap(err, "coalesce_delete_tentative")
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Wrap(err, "coalesce_commit")
	}
	return nil
}

func (repository *PostgresRepository) ListByBook(ctx context.Context, bookID int64, since time.Time) ([]*Log, error) {
	t := schema.ActivityLog
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s FROM %s
		WHERE %s = $1 AND %s >= $2
		ORDER BY %s DESC
	`, t.ID, t.BookID, t.Action, t.TimeStamp, t.CreatedAt, t.Table,
		t.BookID, t.TimeStamp, t.TimeStamp)

	return repository.queryLogs(ctx, query, bookID, since)
}

func (repository *PostgresRepository) ListByCreator(ctx context.Context, creatorID int64, since time.Time) ([]*Log, error) {
	t := schema.ActivityLog
	b := schema.Book
	query := fmt.Sprintf(`
		SELECT a.%s, a.%s, a.%s, a.%s, a.%s FROM %s a
		JOIN %s b ON b.%s = a.%s
		WHERE b.%s = $1 AND a.%s >= $2
		ORDER BY a.%s DESC
	`, t.ID, t.BookID, t.Action, t.TimeStamp, t.CreatedAt, t.Table,
		b.Table, b.ID, t.BookID, b.CreatorID, t.TimeStamp, t.TimeStamp)

	return repository.queryLogs(ctx, query, creatorID, since)
}

func (repository *PostgresRepository) ListAll(ctx context.Context, since time.Time) ([]*Log, error) {
	t := schema.ActivityLog
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s FROM %s
		WHERE %s >= $1
		ORDER BY %s DESC
	`, t.ID, t.BookID, t.Action, t.TimeStamp, t.CreatedAt, t.Table,
		t.TimeStamp, t.TimeStamp)

	return repository.queryLogs(ctx, query, since)
}

func (repository *PostgresRepository) PageNumbers(ctx context.Context, pageIDs []int64) (map[int64]int, error) {
	t := schema.BookPage
	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s = ANY($1)`,
		t.ID, t.PageNo, t.Table, t.ID)

	rows, err := repository.db.Query(ctx, query, pageIDs)
	if err != nil {
		return nil, dberr.Wrap(err, "page_numbers")
	}
	defer rows.Close()

	numbers := make(map[int64]int, len(pageIDs))
	for rows.Next() {
		var id int64
		var pageNo int
		if err := rows.Scan(&id, &pageNo); err != nil {
			return nil, dberr.Wrap(err, "scan_page_number")
		}
		numbers[id] = pageNo
	}
	return numbers, nil
}

func (repository *PostgresRepository) MarkDeletedPages(ctx context.Context) (int64, error) {
	p := schema.ActivityLogPage
	bp := schema.BookPage
	query := fmt.Sprintf(`
		UPDATE %s SET %s = true
		WHERE %s = false
		AND NOT EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.%s)
	`, p.Table, p.Deleted, p.Deleted, bp.Table, bp.Table, bp.ID, p.Table, p.BookPageID)

	tag, err := repository.db.Exec(ctx, query)
	if err != nil {
		return 0, dberr.Wrap(err, "mark_deleted_pages")
	}
	return tag.RowsAffected(), nil
}

func (repository *PostgresRepository) PruneEmpty(ctx context.Context) (int64, error) {
	t := schema.ActivityLog
	p := schema.ActivityLogPage
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE NOT EXISTS (
			SELECT 1 FROM %s WHERE %s.%s = %s.%s AND %s.%s = false
		)
	`, t.Table, p.Table, p.Table, p.ActivityLogID, t.Table, t.ID, p.Table, p.Deleted)

	tag, err := repository.db.Exec(ctx, query)
	if err != nil {
		return 0, dberr.Wrap(err, "prune_empty_logs")
	}
	return tag.RowsAffected(), nil
}

func (repository *PostgresRepository) DeleteByBook(ctx context.Context, bookID int64) error {
	for _, query := range []string{
		fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
			schema.TentativeActivityLog.Table, schema.TentativeActivityLog.BookID),
		fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
			schema.ActivityLog.Table, schema.ActivityLog.BookID),
	} {
		if _, err := repository.db.Exec(ctx, query, bookID); err != nil {
			return dberr.Wrap(err, "delete_logs_by_book")
		}
	}
	return nil
}

// queryLogs runs a log query and hydrates page associations.
func (repository *PostgresRepository) queryLogs(ctx context.Context, query string, args ...any) ([]*Log, error) {
	rows, err := repository.db.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "query_logs")
	}
	defer rows.Close()

	logs := make([]*Log, 0)
	for rows.Next() {
		log := &Log{}
		err := rows.Scan(&log.ID, &log.BookID, &log.Action, &log.TimeStamp, &log.CreatedAt)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_log")
		}
		logs = append(logs, log)
	}
	rows.Close()

	for _, log := range logs {
		if log.Pages, err = repository.listLogPages(ctx, log.ID); err != nil {
			return nil, err
		}
	}
	return logs, nil
}

func (repository *PostgresRepository) listLogPages(ctx context.Context, logID int64) ([]LogPage, error) {
	p := schema.ActivityLogPage
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s FROM %s WHERE %s = $1 ORDER BY %s ASC
	`, p.ID, p.ActivityLogID, p.BookPageID, p.PageNo, p.Deleted, p.Table,
		p.ActivityLogID, p.PageNo)

	rows, err := repository.db.Query(ctx, query, logID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_log_pages")
	}
	defer rows.Close()

	pages := make([]LogPage, 0)
	for rows.Next() {
		var page LogPage
		err := rows.Scan(&page.ID, &page.ActivityLogID, &page.BookPageID,
			&page.PageNo, &page.Deleted)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_log_page")
		}
		pages = append(pages, page)
	}
	return pages, nil
}
