package record

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ErrNoEmbedding is returned when an operation requires the record's
// embedding and it has not been computed yet.
var ErrNoEmbedding = errors.New("record has no embedding")

type Repository interface {
	Upsert(ctx context.Context, rec *Record) (needsEnrichment bool, err error)
	Get(ctx context.Context, id string) (*Record, error)
	GetText(ctx context.Context, id string) (title, abstract string, err error)
	GetEmbedding(ctx context.Context, id string) ([]float32, error)
	SetEmbedding(ctx context.Context, id string, vec []float32) error
	SetPosition(ctx context.Context, id string, x, y float64) error
	SetMetadata(ctx context.Context, id, key string, value []byte) error
	Counts(ctx context.Context) (total, embedded, positioned int, err error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Upsert inserts or updates a record keyed by (source, source_local_id).
// A text change resets embedding and position so the pipeline recomputes
// them; the returned flag tells the caller whether to signal enrichment.
func (r *PostgresRepo) Upsert(ctx context.Context, rec *Record) (bool, error) {
	query := `INSERT INTO records (source, source_local_id, title, abstract, categories, primary_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source, source_local_id) DO UPDATE SET
			title = EXCLUDED.title,
			abstract = EXCLUDED.abstract,
			categories = EXCLUDED.categories,
			primary_date = EXCLUDED.primary_date,
			embedding = CASE WHEN records.title IS DISTINCT FROM EXCLUDED.title
				OR records.abstract IS DISTINCT FROM EXCLUDED.abstract
				THEN NULL ELSE records.embedding END,
			pos_x = CASE WHEN records.title IS DISTINCT FROM EXCLUDED.title
				OR records.abstract IS DISTINCT FROM EXCLUDED.abstract
				THEN NULL ELSE records.pos_x END,
			pos_y = CASE WHEN records.title IS DISTINCT FROM EXCLUDED.title
				OR records.abstract IS DISTINCT FROM EXCLUDED.abstract
				THEN NULL ELSE records.pos_y END,
			updated_at = NOW()
		RETURNING id, embedding IS NULL`

	var needsEnrichment bool
	err := r.db.QueryRowContext(ctx, query,
		rec.Source, rec.SourceLocalID, rec.Title, rec.Abstract,
		pq.Array(rec.Categories), rec.PrimaryDate,
	).Scan(&rec.ID, &needsEnrichment)
	if err != nil {
		return false, err
	}
	return needsEnrichment, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Record, error) {
	rec := &Record{}
	query := `SELECT id, source, source_local_id, title, abstract, categories, primary_date,
			embedding IS NOT NULL, pos_x, pos_y, updated_at
		FROM records WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Source, &rec.SourceLocalID, &rec.Title, &rec.Abstract,
		pq.Array(&rec.Categories), &rec.PrimaryDate,
		&rec.HasEmbedding, &rec.PosX, &rec.PosY, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Per-source metadata lives in a satellite table, resolved at read time.
	metaQuery := `SELECT jsonb_object_agg(key, value) FROM record_metadata WHERE record_id = $1`
	var meta sql.NullString
	if err := r.db.QueryRowContext(ctx, metaQuery, id).Scan(&meta); err == nil && meta.Valid {
		rec.Metadata = []byte(meta.String)
	}

	return rec, nil
}

func (r *PostgresRepo) GetText(ctx context.Context, id string) (string, string, error) {
	var title, abstract string
	query := `SELECT title, abstract FROM records WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&title, &abstract)
	return title, abstract, err
}

func (r *PostgresRepo) GetEmbedding(ctx context.Context, id string) ([]float32, error) {
	var vec pgvector.Vector
	query := `SELECT embedding FROM records WHERE id = $1 AND embedding IS NOT NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoEmbedding
	}
	if err != nil {
		return nil, err
	}
	return vec.Slice(), nil
}

func (r *PostgresRepo) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	query := `UPDATE records SET embedding = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, pgvector.NewVector(vec), id)
	return err
}

// SetPosition refuses to write a position for a record whose embedding is
// missing. The DB CHECK constraint backs this up, but the guard keeps the
// pipeline honest under signal reordering.
func (r *PostgresRepo) SetPosition(ctx context.Context, id string, x, y float64) error {
	query := `UPDATE records SET pos_x = $1, pos_y = $2, updated_at = NOW()
		WHERE id = $3 AND embedding IS NOT NULL`
	res, err := r.db.ExecContext(ctx, query, x, y, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoEmbedding
	}
	return nil
}

func (r *PostgresRepo) SetMetadata(ctx context.Context, id, key string, value []byte) error {
	query := `INSERT INTO record_metadata (record_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (record_id, key) DO UPDATE SET value = EXCLUDED.value`
	_, err := r.db.ExecContext(ctx, query, id, key, value)
	return err
}

func (r *PostgresRepo) Counts(ctx context.Context) (int, int, int, error) {
	var total, embedded, positioned int
	query := `SELECT COUNT(*), COUNT(embedding), COUNT(pos_x) FROM records`
	err := r.db.QueryRowContext(ctx, query).Scan(&total, &embedded, &positioned)
	return total, embedded, positioned, err
}
