package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"corpusmap/backend/features/enrichment"
	"corpusmap/backend/internal/middleware"
)

type enrichSignal struct {
	RecordID      string `json:"record_id"`
	Kind          string `json:"kind"`
	Priority      int    `json:"priority"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// SignalConsumer folds NSQ enrichment signals into the durable queue.
// Enqueue is idempotent, so redelivered or duplicated signals are harmless.
type SignalConsumer struct {
	enqueuer Enqueuer
}

func NewSignalConsumer(e Enqueuer) *SignalConsumer {
	return &SignalConsumer{enqueuer: e}
}

func (h *SignalConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var signal enrichSignal
	if err := json.Unmarshal(m.Body, &signal); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid signal json", "error", err)
		return nil
	}

	ctx := context.Background()
	if signal.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, signal.CorrelationID)
	}

	kind := enrichment.Kind(signal.Kind)
	if signal.RecordID == "" || !kind.Valid() {
		slog.ErrorContext(ctx, "dropping malformed signal", "record_id", signal.RecordID, "kind", signal.Kind)
		return nil
	}

	if err := h.enqueuer.Enqueue(ctx, signal.RecordID, kind, signal.Priority); err != nil {
		slog.ErrorContext(ctx, "enqueue failed", "record_id", signal.RecordID, "kind", kind, "error", err)
		return err // Retry: the queue write must land for at-least-once
	}

	slog.DebugContext(ctx, "signal enqueued", "record_id", signal.RecordID, "kind", kind)
	return nil
}
