package book

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zcomx/zcomix/internal/platform/database/schema"
	"github.com/zcomx/zcomix/internal/platform/dberr"
	"github.com/zcomx/zcomix/pkg/pagination"
	"github.com/zcomx/zcomix/pkg/slug"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// bookColumns is the SELECT column list matching scanBook.
func bookColumns() string {
	t := schema.Book
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		t.ID, t.CreatorID, t.Title, t.Kind, t.Number, t.OfNumber, t.Year,
		t.License, t.Status, t.ReleaseDate, t.Releasing, t.ReleasingSetAt,
		t.Archive, t.Torrent, t.CreatedAt, t.UpdatedAt)
}

func scanBook(row pgx.Row) (*Book, error) {
	b := &Book{}
	err := row.Scan(
		&b.ID, &b.CreatorID, &b.Title, &b.Kind, &b.Number, &b.OfNumber,
		&b.Year, &b.License, &b.Status, &b.ReleaseDate, &b.Releasing,
		&b.ReleasingSetAt, &b.Archive, &b.Torrent, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (repository *PostgresRepository) Create(ctx context.Context, b *Book) error {
	t := schema.Book
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s, %s, %s
	`,
		t.Table, t.CreatorID, t.Title, t.TitleFold, t.Kind, t.Number,
		t.OfNumber, t.Year, t.License,
		t.ID, t.CreatedAt, t.UpdatedAt,
	)

	err := repository.db.QueryRow(ctx, query,
		b.CreatorID, b.Title, slug.Fold(b.Title), b.Kind, b.Number,
		b.OfNumber, b.Year, b.License,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "create_book")
	}

	b.Status = StatusActive
	return nil
}

func (repository *PostgresRepository) GetByID(ctx context.Context, id int64) (*Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		bookColumns(), schema.Book.Table, schema.Book.ID)

	b, err := scanBook(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "get_book_by_id")
	}
	return b, nil
}

func (repository *PostgresRepository) Update(ctx context.Context, b *Book) error {
	t := schema.Book
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7,
		    %s = now()
		WHERE %s = $8
	`,
		t.Table, t.Title, t.TitleFold, t.Kind, t.Number, t.OfNumber, t.Year,
		t.License, t.UpdatedAt, t.ID,
	)

	tag, err := repository.db.Exec(ctx, query,
		b.Title, slug.Fold(b.Title), b.Kind, b.Number, b.OfNumber, b.Year,
		b.License, b.ID,
	)
	if err != nil {
		return dberr.Wrap(err, "update_book")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Book.Table, schema.Book.ID)

	if _, err := repository.db.Exec(ctx, query, id); err != nil {
		return dberr.Wrap(err, "delete_book")
	}
	return nil
}

func (repository *PostgresRepository) Search(ctx context.Context, query string, params pagination.Params) ([]*Book, int, error) {
	t := schema.Book
	pattern := "%" + query + "%"

	countQuery := fmt.Sprintf(`
		SELECT count(*) FROM %s WHERE %s = $1 AND %s ILIKE $2
	`, t.Table, t.Status, t.Title)

	var total int
	if err := repository.db.QueryRow(ctx, countQuery, StatusActive, pattern).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_books")
	}

	listQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s ILIKE $2
		ORDER BY %s ASC, %s ASC
		LIMIT $3 OFFSET $4
	`, bookColumns(), t.Table, t.Status, t.Title, t.Title, t.Number)

	rows, err := repository.db.Query(ctx, listQuery, StatusActive, pattern, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err, "search_books")
	}
	defer rows.Close()

	books := make([]*Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_book")
		}
		books = append(books, b)
	}

	return books, total, nil
}

func (repository *PostgresRepository) ListByCreator(ctx context.Context, creatorID int64, onlyReleased bool) ([]*Book, error) {
	t := schema.Book
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = $2
	`, bookColumns(), t.Table, t.CreatorID, t.Status)
	if onlyReleased {
		query += fmt.Sprintf(` AND %s IS NOT NULL`, t.ReleaseDate)
	}
	query += fmt.Sprintf(` ORDER BY %s ASC, %s ASC`, t.Title, t.Number)

	return repository.queryBooks(ctx, query, creatorID, StatusActive)
}

func (repository *PostgresRepository) ListReleased(ctx context.Context) ([]*Book, error) {
	t := schema.Book
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s IS NOT NULL
		ORDER BY %s ASC, %s ASC
	`, bookColumns(), t.Table, t.Status, t.ReleaseDate, t.CreatorID, t.ID)

	return repository.queryBooks(ctx, query, StatusActive)
}

func (repository *PostgresRepository) ReleasedDupes(ctx context.Context, creatorID int64, titleFold string, excludeID int64) ([]*Book, error) {
	t := schema.Book
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = $2 AND %s IS NOT NULL AND %s <> $3
	`, bookColumns(), t.Table, t.CreatorID, t.TitleFold, t.ReleaseDate, t.ID)

	return repository.queryBooks(ctx, query, creatorID, titleFold, excludeID)
}

func (repository *PostgresRepository) BeginReleasing(ctx context.Context, id int64) (bool, error) {
	t := schema.Book
	query := fmt.Sprintf(`
		UPDATE %s SET %s = true, %s = now(), %s = now()
		WHERE %s = $1 AND %s = false
	`, t.Table, t.Releasing, t.ReleasingSetAt, t.UpdatedAt, t.ID, t.Releasing)

	tag, err := repository.db.Exec(ctx, query, id)
	if err != nil {
		return false, dberr.Wrap(err, "begin_releasing")
	}
	return tag.RowsAffected() == 1, nil
}

func (repository *PostgresRepository) ClearReleasing(ctx context.Context, id int64) error {
	t := schema.Book
	query := fmt.Sprintf(`
		UPDATE %s SET %s = false, %s = NULL, %s = now() WHERE %s = $1
	`, t.Table, t.Releasing, t.ReleasingSetAt, t.UpdatedAt, t.ID)

	if _, err := repository.db.Exec(ctx, query, id); err != nil {
		return dberr.Wrap(err, "clear_releasing")
	}
	return nil
}

func (repository *PostgresRepository) SetReleased(ctx context.Context, id int64, at time.Time) error {
	t := schema.Book
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $1, %s = false, %s = NULL, %s = now() WHERE %s = $2
	`, t.Table, t.ReleaseDate, t.Releasing, t.ReleasingSetAt, t.UpdatedAt, t.ID)

	if _, err := repository.db.Exec(ctx, query, at, id); err != nil {
		return dberr.Wrap(err, "set_released")
	}
	return nil
}

func (repository *PostgresRepository) ClearRelease(ctx context.Context, id int64) error {
	t := schema.Book
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = NULL, %s = NULL, %s = NULL, %s = false, %s = NULL, %s = now()
		WHERE %s = $1
	`, t.Table, t.ReleaseDate, t.Archive, t.Torrent, t.Releasing, t.ReleasingSetAt, t.UpdatedAt, t.ID)

	if _, err := repository.db.Exec(ctx, query, id); err != nil {
		return dberr.Wrap(err, "clear_release")
	}
	return nil
}

func (repository *PostgresRepository) SetArchive(ctx context.Context, id int64, archive *string) error {
	t := schema.Book
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = now() WHERE %s = $2`,
		t.Table, t.Archive, t.UpdatedAt, t.ID)

	if _, err := repository.db.Exec(ctx, query, archive, id); err != nil {
		return dberr.Wrap(err, "set_archive")
	}
	return nil
}

func (repository *PostgresRepository) SetTorrent(ctx context.Context, id int64, torrent *string) error {
	t := schema.Book
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = now() WHERE %s = $2`,
		t.Table, t.Torrent, t.UpdatedAt, t.ID)

	if _, err := repository.db.Exec(ctx, query, torrent, id); err != nil {
		return dberr.Wrap(err, "set_torrent")
	}
	return nil
}

func (repository *PostgresRepository) SetStatus(ctx context.Context, id int64, status Status) error {
	t := schema.Book
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = now() WHERE %s = $2`,
		t.Table, t.Status, t.UpdatedAt, t.ID)

	if _, err := repository.db.Exec(ctx, query, status, id); err != nil {
		return dberr.Wrap(err, "set_book_status")
	}
	return nil
}

func (repository *PostgresRepository) StaleReleasing(ctx context.Context, cutoff time.Time) ([]*Book, error) {
	t := schema.Book
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE %s = true AND %s < $1
	`, bookColumns(), t.Table, t.Releasing, t.ReleasingSetAt)

	return repository.queryBooks(ctx, query, cutoff)
}

// queryBooks runs a query returning bookColumns rows.
func (repository *PostgresRepository) queryBooks(ctx context.Context, query string, args ...any) ([]*Book, error) {
	rows, err := repository.db.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "query_books")
	}
	defer rows.Close()

	books := make([]*Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_book")
		}
		books = append(books, b)
	}
	return books, nil
}
