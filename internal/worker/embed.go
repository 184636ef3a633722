package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"corpusmap/backend/features/enrichment"
	"corpusmap/backend/internal/adapter/gemini"
)

const embedTimeout = 60 * time.Second

// EmbedProcessor computes a record's embedding and chains the projection
// stage: writing the vector is what makes the record eligible for a 2-D
// position, so completion here enqueues the projection entry.
type EmbedProcessor struct {
	embedder Embedder
	records  RecordStore
	enqueuer Enqueuer
}

func NewEmbedProcessor(e Embedder, r RecordStore, q Enqueuer) *EmbedProcessor {
	return &EmbedProcessor{embedder: e, records: r, enqueuer: q}
}

func (p *EmbedProcessor) Kind() enrichment.Kind {
	return enrichment.KindEmbedding
}

func (p *EmbedProcessor) Process(ctx context.Context, entry enrichment.Entry) error {
	title, abstract, err := p.records.GetText(ctx, entry.RecordID)
	if err != nil {
		return fmt.Errorf("load record text: %w", err)
	}

	if title == "" && abstract == "" {
		return Permanentf("record %s has no text to embed", entry.RecordID)
	}

	// Contextual string, title first so short abstracts still carry signal.
	text := fmt.Sprintf("Title: %s\n---\n%s", title, abstract)

	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vec, err := p.embedder.Embed(embedCtx, text)
	if err != nil {
		if !gemini.Transient(err) {
			return Permanent(fmt.Errorf("embed record %s: %w", entry.RecordID, err))
		}
		return fmt.Errorf("embed record %s: %w", entry.RecordID, err)
	}

	if err := p.records.SetEmbedding(ctx, entry.RecordID, vec); err != nil {
		return fmt.Errorf("write embedding: %w", err)
	}

	// Stage chaining: the embedding now exists, so projection work is valid.
	if err := p.enqueuer.Enqueue(ctx, entry.RecordID, enrichment.KindProjection, entry.Priority); err != nil {
		return fmt.Errorf("enqueue projection: %w", err)
	}

	slog.InfoContext(ctx, "record embedded", "record_id", entry.RecordID, "dims", len(vec))
	return nil
}
