package book

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zcomx/zcomix/internal/platform/database/schema"
	"github.com/zcomx/zcomix/internal/platform/dberr"
)

func pageColumns() string {
	t := schema.BookPage
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s",
		t.ID, t.BookID, t.PageNo, t.Image, t.CreatedAt, t.UpdatedAt)
}

func scanPage(row pgx.Row) (*Page, error) {
	p := &Page{}
	err := row.Scan(&p.ID, &p.BookID, &p.PageNo, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (repository *PostgresRepository) InsertPage(ctx context.Context, p *Page) error {
	t := schema.BookPage
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, $3)
		RETURNING %s, %s, %s
	`, t.Table, t.BookID, t.PageNo, t.Image, t.ID, t.CreatedAt, t.UpdatedAt)

	err := repository.db.QueryRow(ctx, query, p.BookID, p.PageNo, p.Image).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "insert_page")
	}
	return nil
}

func (repository *PostgresRepository) GetPage(ctx context.Context, id int64) (*Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		pageColumns(), schema.BookPage.Table, schema.BookPage.ID)

	p, err := scanPage(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "get_page")
	}
	return p, nil
}

func (repository *PostgresRepository) DeletePage(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.BookPage.Table, schema.BookPage.ID)

	tag, err := repository.db.Exec(ctx, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_page")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) ListPages(ctx context.Context, bookID int64) ([]*Page, error) {
	t := schema.BookPage
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE %s = $1 ORDER BY %s ASC
	`, pageColumns(), t.Table, t.BookID, t.PageNo)

	rows, err := repository.db.Query(ctx, query, bookID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_pages")
	}
	defer rows.Close()

	pages := make([]*Page, 0)
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_page")
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func (repository *PostgresRepository) CountPages(ctx context.Context, bookID int64) (int, error) {
	t := schema.BookPage
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s = $1`, t.Table, t.BookID)

	var count int
	if err := repository.db.QueryRow(ctx, query, bookID).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "count_pages")
	}
	return count, nil
}

func (repository *PostgresRepository) MaxPageNo(ctx context.Context, bookID int64) (int, error) {
	t := schema.BookPage
	query := fmt.Sprintf(`SELECT coalesce(max(%s), 0) FROM %s WHERE %s = $1`,
		t.PageNo, t.Table, t.BookID)

	var max int
	if err := repository.db.QueryRow(ctx, query, bookID).Scan(&max); err != nil {
		return 0, dberr.Wrap(err, "max_page_no")
	}
	return max, nil
}

func (repository *PostgresRepository) FirstPage(ctx context.Context, bookID int64) (*Page, error) {
	return repository.pageByExtremum(ctx, bookID, "ASC")
}

func (repository *PostgresRepository) LastPage(ctx context.Context, bookID int64) (*Page, error) {
	return repository.pageByExtremum(ctx, bookID, "DESC")
}

func (repository *PostgresRepository) pageByExtremum(ctx context.Context, bookID int64, direction string) (*Page, error) {
	t := schema.BookPage
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE %s = $1 ORDER BY %s %s LIMIT 1
	`, pageColumns(), t.Table, t.BookID, t.PageNo, direction)

	p, err := scanPage(repository.db.QueryRow(ctx, query, bookID))
	if err != nil {
		return nil, dberr.Wrap(err, "page_by_extremum")
	}
	return p, nil
}

func (repository *PostgresRepository) Renumber(ctx context.Context, bookID int64, orderedIDs []int64) ([]*Page, error) {
	t := schema.BookPage

	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return nil, dberr.Wrap(err, "renumber_begin")
	}
	defer tx.Rollback(ctx)

	// Collect pages to delete: belong to the book but absent from the list.
	deleteQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND NOT (%s = ANY($2))
		ORDER BY %s ASC
	`, pageColumns(), t.Table, t.BookID, t.ID, t.PageNo)

	rows, err := tx.Query(ctx, deleteQuery, bookID, orderedIDs)
	if err != nil {
		return nil, dberr.Wrap(err, "renumber_select_orphans")
	}

	deleted := make([]*Page, 0)
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			rows.Close()
			return nil, dberr.Wrap(err, "scan_page")
		}
		deleted = append(deleted, p)
	}
	rows.Close()

	for _, p := range deleted {
		query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.Table, t.ID)
		if _, err := tx.Exec(ctx, query, p.ID); err != nil {
			return nil, dberr.Wrap(err, "renumber_delete")
		}
	}

	// Two-phase renumber avoids transient unique-constraint collisions on
	// (book_id, page_no).
	shift := fmt.Sprintf(`UPDATE %s SET %s = -%s WHERE %s = $1`,
		t.Table, t.PageNo, t.PageNo, t.BookID)
	if _, err := tx.Exec(ctx, shift, bookID); err != nil {
		return nil, dberr.Wrap(err, "renumber_shift")
	}

	assign := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = now() WHERE %s = $2 AND %s = $3`,
		t.Table, t.PageNo, t.UpdatedAt, t.ID, t.BookID)
	for position, id := range orderedIDs {
		tag, err := tx.Exec(ctx, assign, position+1, id, bookID)
		if err != nil {
			return nil, dberr.Wrap(err, "renumber_assign")
		}
		// A miss means the id is not one of this book's pages; committing
		// would leave a gap in the 1..N numbering.
		if tag.RowsAffected() == 0 {
			return nil, dberr.ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, dberr.Wrap(err, "renumber_commit")
	}
	return deleted, nil
}
