package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists settings documents keyed by region and category.
type Store interface {
	Get(ctx context.Context, regionID uuid.UUID, category Category) (*Document, error)
	List(ctx context.Context, regionID uuid.UUID) ([]Document, error)
	Put(ctx context.Context, regionID uuid.UUID, category Category, value json.RawMessage) (*Document, error)
	Delete(ctx context.Context, regionID uuid.UUID, category Category) error
}

// Repository provides PostgreSQL backed persistence for settings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, regionID uuid.UUID, category Category) (*Document, error) {
	const query = `SELECT region_id, category, value, updated_at FROM settings WHERE region_id = $1 AND category = $2`
	var doc Document
	err := r.pool.QueryRow(ctx, query, regionID, string(category)).Scan(&doc.RegionID, &doc.Category, &doc.Value, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get setting %s: %w", category, err)
	}
	return &doc, nil
}

func (r *Repository) List(ctx context.Context, regionID uuid.UUID) ([]Document, error) {
	const query = `SELECT region_id, category, value, updated_at FROM settings WHERE region_id = $1 ORDER BY category`
	rows, err := r.pool.Query(ctx, query, regionID)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.RegionID, &doc.Category, &doc.Value, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *Repository) Put(ctx context.Context, regionID uuid.UUID, category Category, value json.RawMessage) (*Document, error) {
	const query = `
		INSERT INTO settings (region_id, category, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (region_id, category) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		RETURNING region_id, category, value, updated_at`
	var doc Document
	err := r.pool.QueryRow(ctx, query, regionID, string(category), []byte(value)).Scan(&doc.RegionID, &doc.Category, &doc.Value, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("put setting %s: %w", category, err)
	}
	return &doc, nil
}

func (r *Repository) Delete(ctx context.Context, regionID uuid.UUID, category Category) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM settings WHERE region_id = $1 AND category = $2`, regionID, string(category))
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", category, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
