package settings

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context) (*Settings, error) {
	s := &Settings{}
	query := `SELECT id, gemini_api_key, default_similarity_floor, default_cap FROM settings WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.GeminiAPIKey, &s.DefaultSimilarityFloor, &s.DefaultCap)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepo) Update(ctx context.Context, s *Settings) error {
	query := `UPDATE settings SET gemini_api_key = $1, default_similarity_floor = $2, default_cap = $3, updated_at = NOW() WHERE id = 1`
	_, err := r.db.ExecContext(ctx, query, s.GeminiAPIKey, s.DefaultSimilarityFloor, s.DefaultCap)
	return err
}
