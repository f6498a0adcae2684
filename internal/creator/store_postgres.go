package creator

import (
	"context"
	"fmt"

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

func creatorColumns() string {
	t := schema.Creator
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		t.ID, t.Name, t.Slug, t.Email, t.PaypalEmail, t.Portrait, t.Indicia,
		t.Torrent, t.RebuildTorrent, t.CreatedAt, t.UpdatedAt)
}

func scanCreator(row pgx.Row) (*Creator, error) {
	c := &Creator{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Email, &c.PaypalEmail, &c.Portrait,
		&c.Indicia, &c.Torrent, &c.RebuildTorrent, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (repository *PostgresRepository) Create(ctx context.Context, c *Creator) error {
	t := schema.Creator
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s, %s, %s
	`,
		t.Table, t.Name, t.Slug, t.SlugFold, t.Email, t.PaypalEmail,
		t.ID, t.CreatedAt, t.UpdatedAt,
	)

	err := repository.db.QueryRow(ctx, query,
		c.Name, c.Slug, slug.Fold(c.Slug), c.Email, c.PaypalEmail,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "create_creator")
	}
	return nil
}

func (repository *PostgresRepository) GetByID(ctx context.Context, id int64) (*Creator, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		creatorColumns(), schema.Creator.Table, schema.Creator.ID)

	c, err := scanCreator(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "get_creator_by_id")
	}
	return c, nil
}

func (repository *PostgresRepository) GetBySlug(ctx context.Context, s string) (*Creator, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		creatorColumns(), schema.Creator.Table, schema.Creator.SlugFold)

	c, err := scanCreator(repository.db.QueryRow(ctx, query, slug.Fold(s)))
	if err != nil {
		return nil, dberr.Wrap(err, "get_creator_by_slug")
	}
	return c, nil
}

func (repository *PostgresRepository) Update(ctx context.Context, c *Creator) error {
	t := schema.Creator
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5, %s = now()
		WHERE %s = $6
	`,
		t.Table, t.Name, t.Slug, t.SlugFold, t.Email, t.PaypalEmail,
		t.UpdatedAt, t.ID,
	)

	tag, err := repository.db.Exec(ctx, query,
		c.Name, c.Slug, slug.Fold(c.Slug), c.Email, c.PaypalEmail, c.ID,
	)
	if err != nil {
		return dberr.Wrap(err, "update_creator")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) Search(ctx context.Context, query string, params pagination.Params) ([]*Creator, int, error) {
	t := schema.Creator
	pattern := "%" + query + "%"

	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s ILIKE $1`, t.Table, t.Name)

	var total int
	if err := repository.db.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_creators")
	}

	listQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s ILIKE $1
		ORDER BY %s ASC
		LIMIT $2 OFFSET $3
	`, creatorColumns(), t.Table, t.Name, t.Name)

	rows, err := repository.db.Query(ctx, listQuery, pattern, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err, "search_creators")
	}
	defer rows.Close()

	creators, err := collectCreators(rows)
	if err != nil {
		return nil, 0, err
	}
	return creators, total, nil
}

func (repository *PostgresRepository) List(ctx context.Context) ([]*Creator, error) {
	t := schema.Creator
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC`,
		creatorColumns(), t.Table, t.Name)

	rows, err := repository.db.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_creators")
	}
	defer rows.Close()

	return collectCreators(rows)
}

func (repository *PostgresRepository) SetPortrait(ctx context.Context, id int64, ref *string) error {
	return repository.setColumn(ctx, schema.Creator.Portrait, id, ref, "set_portrait")
}

func (repository *PostgresRepository) SetIndicia(ctx context.Context, id int64, ref *string) error {
	return repository.setColumn(ctx, schema.Creator.Indicia, id, ref, "set_indicia")
}

func (repository *PostgresRepository) SetTorrent(ctx context.Context, id int64, torrent *string) error {
	return repository.setColumn(ctx, schema.Creator.Torrent, id, torrent, "set_creator_torrent")
}

func (repository *PostgresRepository) MarkRebuildTorrent(ctx context.Context, id int64, rebuild bool) error {
	t := schema.Creator
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = now() WHERE %s = $2`,
		t.Table, t.RebuildTorrent, t.UpdatedAt, t.ID)

	if _, err := repository.db.Exec(ctx, query, rebuild, id); err != nil {
		return dberr.Wrap(err, "mark_rebuild_torrent")
	}
	return nil
}

func (repository *PostgresRepository) ListRebuildTorrent(ctx context.Context) ([]*Creator, error) {
	t := schema.Creator
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = true ORDER BY %s ASC`,
		creatorColumns(), t.Table, t.RebuildTorrent, t.ID)

	rows, err := repository.db.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_rebuild_torrent")
	}
	defer rows.Close()

	return collectCreators(rows)
}

func (repository *PostgresRepository) setColumn(ctx context.Context, column string, id int64, value *string, op string) error {
	t := schema.Creator
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = now() WHERE %s = $2`,
		t.Table, column, t.UpdatedAt, t.ID)

	tag, err := repository.db.Exec(ctx, query, value, id)
	if err != nil {
		return dberr.Wrap(err, op)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func collectCreators(rows pgx.Rows) ([]*Creator, error) {
	creators := make([]*Creator, 0)
	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_creator")
		}
		creators = append(creators, c)
	}
	return creators, nil
}
