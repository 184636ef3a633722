package record

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"corpusmap/backend/internal/config"
	"corpusmap/backend/internal/middleware"
)

const DefaultPriority = 0

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type IngestInput struct {
	Source        string            `json:"source"`
	SourceLocalID string            `json:"source_local_id"`
	Title         string            `json:"title"`
	Abstract      string            `json:"abstract"`
	Categories    []string          `json:"categories"`
	PrimaryDate   time.Time         `json:"primary_date"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
}

type Service struct {
	repo Repository
	pub  EventPublisher
}

func NewService(repo Repository, pub EventPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// Ingest writes the record and, when it needs enrichment, publishes the
// embedding signal. "On write, enqueue" is this service's obligation toward
// the pipeline; the signal consumer makes it durable.
func (s *Service) Ingest(ctx context.Context, in *IngestInput) (*Record, error) {
	if in.Source == "" || in.SourceLocalID == "" {
		return nil, fmt.Errorf("source and source_local_id are required")
	}
	if in.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if in.PrimaryDate.IsZero() {
		return nil, fmt.Errorf("primary_date is required")
	}
	if in.Categories == nil {
		in.Categories = []string{}
	}

	rec := &Record{
		Source:        in.Source,
		SourceLocalID: in.SourceLocalID,
		Title:         in.Title,
		Abstract:      in.Abstract,
		Categories:    in.Categories,
		PrimaryDate:   in.PrimaryDate,
	}

	needsEnrichment, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("upsert record: %w", err)
	}

	for key, val := range in.Metadata {
		raw, err := json.Marshal(val)
		if err != nil {
			slog.WarnContext(ctx, "skipping unmarshalable metadata value", "key", key, "error", err)
			continue
		}
		if err := s.repo.SetMetadata(ctx, rec.ID, key, raw); err != nil {
			slog.WarnContext(ctx, "failed to store record metadata", "key", key, "error", err)
		}
	}

	if needsEnrichment {
		if err := s.signalEnrichment(ctx, rec.ID); err != nil {
			// The reconciler cannot recover a lost signal, so surface it.
			return nil, fmt.Errorf("publish enrichment signal: %w", err)
		}
	}

	return rec, nil
}

func (s *Service) BulkIngest(ctx context.Context, inputs []IngestInput) ([]Record, error) {
	out := make([]Record, 0, len(inputs))
	for i := range inputs {
		rec, err := s.Ingest(ctx, &inputs[i])
		if err != nil {
			return out, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) signalEnrichment(ctx context.Context, recordID string) error {
	signal := EnrichSignal{
		RecordID:      recordID,
		Kind:          "embedding",
		Priority:      DefaultPriority,
		CorrelationID: middleware.GetCorrelationID(ctx),
	}
	body, err := json.Marshal(signal)
	if err != nil {
		return err
	}
	return s.pub.Publish(config.TopicEnrichSignal, body)
}
