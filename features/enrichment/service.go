package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Service struct {
	repo           Repository
	staleThreshold time.Duration
}

func NewService(repo Repository, staleThreshold time.Duration) *Service {
	return &Service{repo: repo, staleThreshold: staleThreshold}
}

func (s *Service) Enqueue(ctx context.Context, recordID string, kind Kind, priority int) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown enrichment kind %q", kind)
	}
	inserted, err := s.repo.Enqueue(ctx, recordID, kind, priority)
	if err != nil {
		return err
	}
	if !inserted {
		slog.DebugContext(ctx, "enrichment signal coalesced", "record_id", recordID, "kind", kind)
	}
	return nil
}

func (s *Service) ListFailed(ctx context.Context) ([]Entry, error) {
	return s.repo.ListFailed(ctx)
}

func (s *Service) Requeue(ctx context.Context, id int64) error {
	return s.repo.Requeue(ctx, id)
}

func (s *Service) CountByStatus(ctx context.Context) (map[Kind]map[string]int, error) {
	return s.repo.CountByStatus(ctx)
}

// RunReconciler periodically sweeps stale processing entries back to
// pending until the context is cancelled.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("queue reconciler started", "interval", interval, "stale_threshold", s.staleThreshold)
	for {
		select {
		case <-ctx.Done():
			slog.Info("queue reconciler stopped")
			return
		case <-ticker.C:
			swept, err := s.repo.ReconcileStale(ctx, s.staleThreshold)
			if err != nil {
				slog.ErrorContext(ctx, "stale entry sweep failed", "error", err)
				continue
			}
			if swept > 0 {
				slog.WarnContext(ctx, "swept stale processing entries back to pending", "count", swept)
			}
		}
	}
}
