package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"corpusmap/backend/features/enrichment"
	"corpusmap/backend/features/record"
	"corpusmap/backend/internal/projection"
)

// ProjectProcessor applies the cached projection model to a record's
// embedding. The model is fixed between retrains, so new points land
// consistently with the existing layout instead of reshuffling it.
type ProjectProcessor struct {
	cache   *projection.Cache
	records RecordStore
}

func NewProjectProcessor(cache *projection.Cache, r RecordStore) *ProjectProcessor {
	return &ProjectProcessor{cache: cache, records: r}
}

func (p *ProjectProcessor) Kind() enrichment.Kind {
	return enrichment.KindProjection
}

// Ready gates the pool: without a model there is no point claiming entries
// only to fail them. The pool reports degraded and idles.
func (p *ProjectProcessor) Ready() error {
	if !p.cache.Healthy() {
		return projection.ErrModelUnavailable
	}
	return nil
}

func (p *ProjectProcessor) Process(ctx context.Context, entry enrichment.Entry) error {
	// Guard: projection entries are enqueued after embedding completes, but
	// a text update can null the embedding between enqueue and claim.
	vec, err := p.records.GetEmbedding(ctx, entry.RecordID)
	if err != nil {
		if errors.Is(err, record.ErrNoEmbedding) {
			return fmt.Errorf("record %s not embedded yet: %w", entry.RecordID, err)
		}
		return fmt.Errorf("load embedding: %w", err)
	}

	model, err := p.cache.Get()
	if err != nil {
		return err
	}

	x, y, err := model.Project(vec)
	if err != nil {
		if errors.Is(err, projection.ErrDimensionMismatch) {
			return Permanent(err)
		}
		return err
	}

	if err := p.records.SetPosition(ctx, entry.RecordID, x, y); err != nil {
		if errors.Is(err, record.ErrNoEmbedding) {
			return fmt.Errorf("embedding vanished before position write: %w", err)
		}
		return fmt.Errorf("write position: %w", err)
	}

	slog.InfoContext(ctx, "record positioned", "record_id", entry.RecordID, "model_version", model.Version, "x", x, "y", y)
	return nil
}
