package explore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ErrQueryTimeout is surfaced as its own kind so the caller can offer to
// narrow the request instead of treating it as a server fault.
var ErrQueryTimeout = errors.New("query timed out")

// Engine translates a QuerySpec into one compound SQL statement. All
// predicates are intersected before the cap is applied; the cap can only
// ever truncate the correctly filtered and ordered set.
type Engine struct {
	db *sql.DB
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db}
}

func (e *Engine) Search(ctx context.Context, spec QuerySpec) (*Result, error) {
	if spec.Cap <= 0 {
		return nil, fmt.Errorf("cap must be positive")
	}
	if spec.Box != nil && spec.Box.Empty() {
		return &Result{Hits: []Hit{}}, nil
	}

	query, args := buildQuery(spec)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	semantic := spec.Vector != nil
	var hits []Hit
	for rows.Next() {
		var h Hit
		dest := []any{
			&h.ID, &h.Source, &h.SourceLocalID, &h.Title, &h.Abstract,
			pq.Array(&h.Categories), &h.PrimaryDate, &h.PosX, &h.PosY,
		}
		if semantic {
			dest = append(dest, &h.Score)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	// One extra row was requested to detect truncation.
	truncated := len(hits) > spec.Cap
	if truncated {
		hits = hits[:spec.Cap]
	}
	if hits == nil {
		hits = []Hit{}
	}
	return &Result{Hits: hits, Truncated: truncated}, nil
}

// buildQuery assembles the compound statement. Pure-recency queries with no
// spatial restriction route through the records_recent view, whose backing
// partial date index lets LIMIT reads stop early instead of sorting the
// table.
func buildQuery(spec QuerySpec) (string, []any) {
	semantic := spec.Vector != nil
	recentPath := !semantic && spec.Box == nil

	table := "records"
	if recentPath {
		table = "records_recent"
	}

	cols := "id, source, source_local_id, title, abstract, categories, primary_date, pos_x, pos_y"

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var conds []string
	if !recentPath {
		// Records pending projection have no position to filter or display;
		// they are invisible by design, not by accident.
		conds = append(conds, "pos_x IS NOT NULL AND pos_y IS NOT NULL")
	}

	if len(spec.Sources) > 0 {
		conds = append(conds, fmt.Sprintf("source = ANY(%s)", arg(pq.Array(spec.Sources))))
	}
	if len(spec.Categories) > 0 {
		conds = append(conds, fmt.Sprintf("categories && %s", arg(pq.Array(spec.Categories))))
	}
	if spec.DateFrom != nil {
		conds = append(conds, fmt.Sprintf("primary_date >= %s", arg(*spec.DateFrom)))
	}
	if spec.DateTo != nil {
		conds = append(conds, fmt.Sprintf("primary_date <= %s", arg(*spec.DateTo)))
	}
	if spec.Box != nil {
		conds = append(conds, fmt.Sprintf("pos_x BETWEEN %s AND %s", arg(spec.Box.MinX), arg(spec.Box.MaxX)))
		conds = append(conds, fmt.Sprintf("pos_y BETWEEN %s AND %s", arg(spec.Box.MinY), arg(spec.Box.MaxY)))
	}

	order := "primary_date DESC"
	if semantic {
		vec := arg(pgvector.NewVector(spec.Vector))
		cols += fmt.Sprintf(", 1 - (embedding <=> %s) AS score", vec)
		conds = append(conds, "embedding IS NOT NULL")
		conds = append(conds, fmt.Sprintf("1 - (embedding <=> %s) >= %s", vec, arg(spec.SimilarityFloor)))
		order = fmt.Sprintf("embedding <=> %s ASC", vec)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order)
	// cap+1 so the engine can tell "complete" from "truncated"
	sb.WriteString(fmt.Sprintf(" LIMIT %s", arg(spec.Cap+1)))

	return sb.String(), args
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrQueryTimeout, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "57014" { // query_canceled
		return fmt.Errorf("%w: %v", ErrQueryTimeout, err)
	}
	return err
}
