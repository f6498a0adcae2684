package link

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
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

// joinTable maps an owner kind onto its join table and owner column.
func joinTable(owner OwnerKind) (table, ownerColumn, linkColumn, orderColumn string) {
	if owner == OwnerCreator {
		t := schema.CreatorToLink
		return t.Table, t.CreatorID, t.LinkID, t.Order
	}
	t := schema.BookToLink
	return t.Table, t.BookID, t.LinkID, t.Order
}

func (repository *PostgresRepository) Attach(ctx context.Context, owner OwnerKind, ownerID int64, l *Link) error {
	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "attach_link_begin")
	}
	defer tx.Rollback(ctx)

	t := schema.Link
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, $3)
		RETURNING %s, %s, %s
	`, t.Table, t.URL, t.Text, t.Title, t.ID, t.CreatedAt, t.UpdatedAt)

	err = tx.QueryRow(ctx, insert, l.URL, l.Text, l.Title).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "attach_link_insert")
	}

	join, ownerColumn, linkColumn, orderColumn := joinTable(owner)
	appendQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, (SELECT coalesce(max(%s), 0) + 1 FROM %s WHERE %s = $1))
		RETURNING %s
	`, join, ownerColumn, linkColumn, orderColumn, orderColumn, join, ownerColumn, orderColumn)

	if err := tx.QueryRow(ctx, appendQuery, ownerID, l.ID).Scan(&l.Order); err != nil {
		return dberr.Wrap(err, "attach_link_join")
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Wrap(err, "attach_link_commit")
	}
	return nil
}

func (repository *PostgresRepository) Detach(ctx context.Context, owner OwnerKind, ownerID, linkID int64) error {
	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "detach_link_begin")
	}
	defer tx.Rollback(ctx)

	join, ownerColumn, linkColumn, orderColumn := joinTable(owner)

	var removedOrder int
	deleteJoin := fmt.Sprintf(`
		DELETE FROM %s WHERE %s = $1 AND %s = $2 RETURNING %s
	`, join, ownerColumn, linkColumn, orderColumn)
	if err := tx.QueryRow(ctx, deleteJoin, ownerID, linkID).Scan(&removedOrder); err != nil {
		return dberr.Wrap(err, "detach_link_join")
	}

	closeGap := fmt.Sprintf(`
		UPDATE %s SET %s = %s - 1 WHERE %s = $1 AND %s > $2
	`, join, orderColumn, orderColumn, ownerColumn, orderColumn)
	if _, err := tx.Exec(ctx, closeGap, ownerID, removedOrder); err != nil {
		return dberr.Wrap(err, "detach_link_gap")
	}

	deleteLink := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.Link.Table, schema.Link.ID)
	if _, err := tx.Exec(ctx, deleteLink, linkID); err != nil {
		return dberr.Wrap(err, "detach_link_row")
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Wrap(err, "detach_link_commit")
	}
	return nil
}

func (repository *PostgresRepository) ListByOwner(ctx context.Context, owner OwnerKind, ownerID int64) ([]*Link, error) {
	t := schema.Link
	join, ownerColumn, linkColumn, orderColumn := joinTable(owner)

	query := fmt.Sprintf(`
		SELECT l.%s, l.%s, l.%s, l.%s, j.%s, l.%s, l.%s
		FROM %s l
		JOIN %s j ON j.%s = l.%s
		WHERE j.%s = $1
		ORDER BY j.%s ASC
	`, t.ID, t.URL, t.Text, t.Title, orderColumn, t.CreatedAt, t.UpdatedAt,
		t.Table, join, linkColumn, t.ID, ownerColumn, orderColumn)

	rows, err := repository.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_links")
	}
	defer rows.Close()

	links := make([]*Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_link")
		}
		links = append(links, l)
	}
	return links, nil
}

func (repository *PostgresRepository) Reorder(ctx context.Context, owner OwnerKind, ownerID int64, orderedIDs []int64) error {
	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "reorder_links_begin")
	}
	defer tx.Rollback(ctx)

	join, ownerColumn, linkColumn, orderColumn := joinTable(owner)

	// Two-phase assignment sidesteps the unique (owner, ord) constraint.
	shift := fmt.Sprintf(`UPDATE %s SET %s = -%s WHERE %s = $1`,
		join, orderColumn, orderColumn, ownerColumn)
	if _, err := tx.Exec(ctx, shift, ownerID); err != nil {
		return dberr.Wrap(err, "reorder_links_shift")
	}

	assign := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2 AND %s = $3`,
		join, orderColumn, ownerColumn, linkColumn)
	for position, id := range orderedIDs {
		if _, err := tx.Exec(ctx, assign, position+1, ownerID, id); err != nil {
			return dberr.Wrap(err, "reorder_links_assign")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Wrap(err, "reorder_links_commit")
	}
	return nil
}

func (repository *PostgresRepository) Update(ctx context.Context, l *Link) error {
	t := schema.Link
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = now() WHERE %s = $4
	`, t.Table, t.URL, t.Text, t.Title, t.UpdatedAt, t.ID)

	tag, err := repository.db.Exec(ctx, query, l.URL, l.Text, l.Title, l.ID)
	if err != nil {
		return dberr.Wrap(err, "update_link")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func scanLink(row pgx.Row) (*Link, error) {
	l := &Link{}
	err := row.Scan(&l.ID, &l.URL, &l.Text, &l.Title, &l.Order, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}
