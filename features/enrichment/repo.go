package enrichment

import (
	"context"
	"database/sql"
	"time"
)

// Repository is the queue contract. Every mutation is a single conditional
// statement so concurrent workers coordinate through the database, never
// through application-side read-then-write.
type Repository interface {
	Enqueue(ctx context.Context, recordID string, kind Kind, priority int) (bool, error)
	Claim(ctx context.Context, kind Kind, batchSize int, workerID string) ([]Entry, error)
	Complete(ctx context.Context, id int64) error
	Fail(ctx context.Context, id int64, cause string, retryable bool) error
	ReconcileStale(ctx context.Context, threshold time.Duration) (int64, error)
	ListFailed(ctx context.Context) ([]Entry, error)
	Requeue(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context) (map[Kind]map[string]int, error)
}

// RetryPolicy bounds transient-failure retries. Backoff doubles per attempt
// and is persisted on the entry, so it survives process restarts.
type RetryPolicy struct {
	MaxAttempts    int
	BackoffSeconds int
}

type PostgresRepo struct {
	db     *sql.DB
	policy RetryPolicy
}

func NewPostgresRepo(db *sql.DB, policy RetryPolicy) *PostgresRepo {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 5
	}
	if policy.BackoffSeconds <= 0 {
		policy.BackoffSeconds = 30
	}
	return &PostgresRepo{db: db, policy: policy}
}

// Enqueue inserts a pending entry unless one is already pending or
// processing for the same (record, kind). The partial unique index makes
// the coalescing atomic; redundant signals are a no-op.
func (r *PostgresRepo) Enqueue(ctx context.Context, recordID string, kind Kind, priority int) (bool, error) {
	query := `INSERT INTO enrichment_queue (record_id, kind, priority) VALUES ($1, $2, $3)
		ON CONFLICT (record_id, kind) WHERE status IN ('pending', 'processing') DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, recordID, string(kind), priority)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Claim transitions up to batchSize pending entries to processing and
// returns them. FOR UPDATE SKIP LOCKED guarantees no two concurrent callers
// receive the same entry; a loser simply gets fewer rows.
func (r *PostgresRepo) Claim(ctx context.Context, kind Kind, batchSize int, workerID string) ([]Entry, error) {
	query := `UPDATE enrichment_queue SET status = 'processing', claimed_at = NOW(), claimed_by = $3
		WHERE id IN (
			SELECT id FROM enrichment_queue
			WHERE kind = $1 AND status = 'pending' AND not_before <= NOW()
			ORDER BY priority DESC, created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, record_id, kind, priority, attempts, created_at`

	rows, err := r.db.QueryContext(ctx, query, string(kind), batchSize, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Kind, &e.Priority, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Status = StatusProcessing
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Complete marks a processing entry done. Zero rows affected means the
// reconciler already swept the entry back; that is not an error, the work
// is idempotent and the sweep loses nothing.
func (r *PostgresRepo) Complete(ctx context.Context, id int64) error {
	query := `UPDATE enrichment_queue SET status = 'done', processed_at = NOW()
		WHERE id = $1 AND status = 'processing'`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// Fail terminates a claim. Retryable failures return to pending with an
// exponential backoff until the attempt ceiling, then park as failed.
// Non-retryable failures park immediately.
func (r *PostgresRepo) Fail(ctx context.Context, id int64, cause string, retryable bool) error {
	query := `UPDATE enrichment_queue SET
			attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN $3 AND attempts + 1 < $4 THEN 'pending' ELSE 'failed' END,
			not_before = NOW() + make_interval(secs => $5 * power(2, LEAST(attempts, 8))),
			processed_at = CASE WHEN $3 AND attempts + 1 < $4 THEN NULL ELSE NOW() END,
			claimed_at = NULL,
			claimed_by = NULL
		WHERE id = $1 AND status = 'processing'`
	_, err := r.db.ExecContext(ctx, query, id, cause, retryable, r.policy.MaxAttempts, r.policy.BackoffSeconds)
	return err
}

// ReconcileStale sweeps entries stuck in processing past the threshold back
// to pending. This is what makes delivery at-least-once when a worker dies
// between claim and complete.
func (r *PostgresRepo) ReconcileStale(ctx context.Context, threshold time.Duration) (int64, error) {
	query := `UPDATE enrichment_queue SET status = 'pending', claimed_at = NULL, claimed_by = NULL
		WHERE status = 'processing' AND claimed_at < NOW() - make_interval(secs => $1)`
	res, err := r.db.ExecContext(ctx, query, threshold.Seconds())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepo) ListFailed(ctx context.Context) ([]Entry, error) {
	query := `SELECT id, record_id, kind, priority, attempts, COALESCE(last_error, ''), created_at, processed_at
		FROM enrichment_queue WHERE status = 'failed' ORDER BY processed_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Kind, &e.Priority, &e.Attempts, &e.LastError, &e.CreatedAt, &e.ProcessedAt); err != nil {
			return nil, err
		}
		e.Status = StatusFailed
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Requeue returns a parked entry to pending with a fresh attempt budget.
// The NOT EXISTS guard keeps the one-active-entry invariant when a newer
// signal already re-enqueued the same work.
func (r *PostgresRepo) Requeue(ctx context.Context, id int64) error {
	query := `UPDATE enrichment_queue q
		SET status = 'pending', attempts = 0, last_error = NULL, not_before = NOW(), processed_at = NULL
		WHERE q.id = $1 AND q.status = 'failed'
		AND NOT EXISTS (
			SELECT 1 FROM enrichment_queue e
			WHERE e.record_id = q.record_id AND e.kind = q.kind
			AND e.status IN ('pending', 'processing')
		)`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepo) CountByStatus(ctx context.Context) (map[Kind]map[string]int, error) {
	query := `SELECT kind, status, COUNT(*) FROM enrichment_queue GROUP BY kind, status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Kind]map[string]int)
	for rows.Next() {
		var kind, status string
		var count int
		if err := rows.Scan(&kind, &status, &count); err != nil {
			return nil, err
		}
		k := Kind(kind)
		if out[k] == nil {
			out[k] = make(map[string]int)
		}
		out[k][status] = count
	}
	return out, rows.Err()
}
