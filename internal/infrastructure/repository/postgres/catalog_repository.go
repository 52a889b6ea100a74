package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// CatalogRepository is the append-only catalog table in Postgres.
type CatalogRepository struct {
	db    *sql.DB
	table string
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db, table: "catalog_records"}
}

func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS catalog_records (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	location TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL,
	file_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_catalog_records_created_at ON catalog_records(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CatalogRepository) Append(ctx context.Context, record domain.CatalogRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO catalog_records (id, name, location, description, url, file_key, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		record.ID, record.Name, record.Location, record.Description, record.FileLink, record.FileKey, record.CreatedAt,
	)
	if err != nil {
		return classifyPGError("insert catalog record", err)
	}
	return nil
}

func (r *CatalogRepository) Scan(ctx context.Context) ([]domain.CatalogRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, location, description, url, file_key, created_at
FROM catalog_records
ORDER BY created_at DESC, id
`)
	if err != nil {
		return nil, classifyPGError("query catalog records", err)
	}
	defer rows.Close()

	out := make([]domain.CatalogRecord, 0)
	for rows.Next() {
		var record domain.CatalogRecord
		if err := rows.Scan(
			&record.ID, &record.Name, &record.Location, &record.Description,
			&record.FileLink, &record.FileKey, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan catalog record: %w", err)
		}
		record.CreatedAt = record.CreatedAt.UTC()
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog records: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) Get(ctx context.Context, id string) (domain.CatalogRecord, error) {
	var record domain.CatalogRecord
	err := r.db.QueryRowContext(ctx, `
SELECT id, name, location, description, url, file_key, created_at
FROM catalog_records
WHERE id = $1
`, id).Scan(
		&record.ID, &record.Name, &record.Location, &record.Description,
		&record.FileLink, &record.FileKey, &record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogRecord{}, domain.WrapError(domain.ErrNotFound, "get catalog record", fmt.Errorf("record %s", id))
	}
	if err != nil {
		return domain.CatalogRecord{}, classifyPGError("get catalog record", err)
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}

func classifyPGError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.WrapError(domain.ErrInvalidInput, operation, err)
		case "28000", "28P01", "42501":
			return domain.WrapError(domain.ErrUnauthorized, operation, err)
		case "40001", "40P01", "53300", "57P03":
			return domain.WrapError(domain.ErrTemporary, operation, err)
		}
		return fmt.Errorf("%s: %w", operation, err)
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
