package book

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zcomx/zcomix/internal/platform/database/schema"
	"github.com/zcomx/zcomix/internal/platform/dberr"
)

func (repository *PostgresRepository) GetMetadata(ctx context.Context, bookID int64) (*Metadata, error) {
	t := schema.PublicationMetadata
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s WHERE %s = $1
	`, t.ID, t.BookID, t.IsOriginal, t.PublishedName, t.PublishedFormat,
		t.Publisher, t.FromYear, t.ToYear, t.Table, t.BookID)

	m := &Metadata{}
	err := repository.db.QueryRow(ctx, query, bookID).Scan(
		&m.ID, &m.BookID, &m.IsOriginal, &m.PublishedName, &m.PublishedFormat,
		&m.Publisher, &m.FromYear, &m.ToYear,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_metadata")
	}

	if m.Serials, err = repository.listSerials(ctx, bookID); err != nil {
		return nil, err
	}
	if m.Derivative, err = repository.getDerivative(ctx, bookID); err != nil {
		return nil, err
	}

	return m, nil
}

func (repository *PostgresRepository) HasMetadata(ctx context.Context, bookID int64) (bool, error) {
	t := schema.PublicationMetadata
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`, t.Table, t.BookID)

	var exists bool
	if err := repository.db.QueryRow(ctx, query, bookID).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "has_metadata")
	}
	return exists, nil
}

func (repository *PostgresRepository) ReplaceMetadata(ctx context.Context, bookID int64, m *Metadata) error {
	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "replace_metadata_begin")
	}
	defer tx.Rollback(ctx)

	// The document is replaced wholesale: delete then re-insert.
	for _, table := range []string{
		schema.PublicationSerial.Table,
		schema.PublicationDerivative.Table,
		schema.PublicationMetadata.Table,
	} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE book_id = $1`, table)
		if _, err := tx.Exec(ctx, query, bookID); err != nil {
			return dberr.Wrap(err, "replace_metadata_clear")
		}
	}

	t := schema.PublicationMetadata
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, t.Table, t.BookID, t.IsOriginal, t.PublishedName, t.PublishedFormat,
		t.Publisher, t.FromYear, t.ToYear, t.ID)

	err = tx.QueryRow(ctx, insert,
		bookID, m.IsOriginal, m.PublishedName, m.PublishedFormat,
		m.Publisher, m.FromYear, m.ToYear,
	).Scan(&m.ID)
	if err != nil {
		return dberr.Wrap(err, "replace_metadata_insert")
	}
	m.BookID = bookID

	s := schema.PublicationSerial
	serialInsert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s
	`, s.Table, s.BookID, s.Sequence, s.PublishedName, s.PublishedFormat,
		s.Publisher, s.StoryNumber, s.SerialNumber, s.FromYear, s.ToYear, s.ID)

	for i := range m.Serials {
		serial := &m.Serials[i]
		err := tx.QueryRow(ctx, serialInsert,
			bookID, serial.Sequence, serial.PublishedName, serial.PublishedFormat,
			serial.Publisher, serial.StoryNumber, serial.SerialNumber,
			serial.FromYear, serial.ToYear,
		).Scan(&serial.ID)
		if err != nil {
			return dberr.Wrap(err, "replace_metadata_serial")
		}
	}

	if m.Derivative != nil {
		d := schema.PublicationDerivative
		derivativeInsert := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING %s
		`, d.Table, d.BookID, d.Title, d.CreatorName, d.CCLicence,
			d.FromYear, d.ToYear, d.ID)

		err := tx.QueryRow(ctx, derivativeInsert,
			bookID, m.Derivative.Title, m.Derivative.CreatorName,
			m.Derivative.CCLicence, m.Derivative.FromYear, m.Derivative.ToYear,
		).Scan(&m.Derivative.ID)
		if err != nil {
			return dberr.Wrap(err, "replace_metadata_derivative")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Wrap(err, "replace_metadata_commit")
	}
	return nil
}

func (repository *PostgresRepository) DeleteMetadata(ctx context.Context, bookID int64) error {
	for _, table := range []string{
		schema.PublicationSerial.Table,
		schema.PublicationDerivative.Table,
		schema.PublicationMetadata.Table,
	} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE book_id = $1`, table)
		if _, err := repository.db.Exec(ctx, query, bookID); err != nil {
			return dberr.Wrap(err, "delete_metadata")
		}
	}
	return nil
}

func (repository *PostgresRepository) listSerials(ctx context.Context, bookID int64) ([]Serial, error) {
	s := schema.PublicationSerial
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s WHERE %s = $1 ORDER BY %s ASC
	`, s.ID, s.Sequence, s.PublishedName, s.PublishedFormat, s.Publisher,
		s.StoryNumber, s.SerialNumber, s.FromYear, s.ToYear,
		s.Table, s.BookID, s.Sequence)

	rows, err := repository.db.Query(ctx, query, bookID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_serials")
	}
	defer rows.Close()

	serials := make([]Serial, 0)
	for rows.Next() {
		var serial Serial
		err := rows.Scan(
			&serial.ID, &serial.Sequence, &serial.PublishedName,
			&serial.PublishedFormat, &serial.Publisher, &serial.StoryNumber,
			&serial.SerialNumber, &serial.FromYear, &serial.ToYear,
		)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_serial")
		}
		serials = append(serials, serial)
	}
	return serials, nil
}

func (repository *PostgresRepository) getDerivative(ctx context.Context, bookID int64) (*Derivative, error) {
	d := schema.PublicationDerivative
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s FROM %s WHERE %s = $1
	`, d.ID, d.Title, d.CreatorName, d.CCLicence, d.FromYear, d.ToYear,
		d.Table, d.BookID)

	derivative := &Derivative{}
	err := repository.db.QueryRow(ctx, query, bookID).Scan(
		&derivative.ID, &derivative.Title, &derivative.CreatorName,
		&derivative.CCLicence, &derivative.FromYear, &derivative.ToYear,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dberr.Wrap(err, "get_derivative")
	}
	return derivative, nil
}
