package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"corpusmap/backend/features/enrichment"
)

type RecordCounter interface {
	Counts(ctx context.Context) (total, embedded, positioned int, err error)
}

type QueueCounter interface {
	CountByStatus(ctx context.Context) (map[enrichment.Kind]map[string]int, error)
}

type ModelInfo interface {
	Healthy() bool
	Version() string
}

type Handler struct {
	records RecordCounter
	queue   QueueCounter
	model   ModelInfo
}

func NewHandler(records RecordCounter, queue QueueCounter, model ModelInfo) *Handler {
	return &Handler{records: records, queue: queue, model: model}
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, embedded, positioned, err := h.records.Counts(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count records", "error", err)
		http.Error(w, `{"error":"failed to gather stats"}`, http.StatusInternalServerError)
		return
	}

	queue, err := h.queue.CountByStatus(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count queue entries", "error", err)
		http.Error(w, `{"error":"failed to gather stats"}`, http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"records": map[string]int{
			"total":      total,
			"embedded":   embedded,
			"positioned": positioned,
		},
		"queue": queue,
		"projection_model": map[string]any{
			"healthy": h.model.Healthy(),
			"version": h.model.Version(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
