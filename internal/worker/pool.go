package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"corpusmap/backend/features/enrichment"
)

// Pool runs N independent pull loops against the queue for one enrichment
// kind: claim a batch, process entries sequentially, complete or fail each
// one on its own. No lock is held across a provider call; claim atomicity
// lives entirely in the queue.
type Pool struct {
	queue   Queue
	proc    Processor
	workers int
	batch   int
	idle    time.Duration
	name    string
}

func NewPool(queue Queue, proc Processor, workers, batch int, idle time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if batch <= 0 {
		batch = 1
	}
	return &Pool{
		queue:   queue,
		proc:    proc,
		workers: workers,
		batch:   batch,
		idle:    idle,
		name:    fmt.Sprintf("%s-%s", proc.Kind(), uuid.New().String()[:8]),
	}
}

// Run blocks until ctx is cancelled and all loops have drained.
func (p *Pool) Run(ctx context.Context) {
	slog.Info("worker pool starting", "kind", p.proc.Kind(), "workers", p.workers, "batch", p.batch)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		workerID := fmt.Sprintf("%s-%d", p.name, i)
		go func() {
			defer wg.Done()
			p.loop(ctx, workerID)
		}()
	}
	wg.Wait()
	slog.Info("worker pool stopped", "kind", p.proc.Kind())
}

func (p *Pool) loop(ctx context.Context, workerID string) {
	for {
		if ctx.Err() != nil {
			return
		}

		if gated, ok := p.proc.(Gated); ok {
			if err := gated.Ready(); err != nil {
				slog.WarnContext(ctx, "processor not ready, idling", "worker", workerID, "error", err)
				if !p.sleep(ctx) {
					return
				}
				continue
			}
		}

		entries, err := p.queue.Claim(ctx, p.proc.Kind(), p.batch, workerID)
		if err != nil {
			slog.ErrorContext(ctx, "claim failed", "worker", workerID, "error", err)
			if !p.sleep(ctx) {
				return
			}
			continue
		}

		if len(entries) == 0 {
			if !p.sleep(ctx) {
				return
			}
			continue
		}

		for _, entry := range entries {
			p.handleEntry(ctx, workerID, entry)
		}
	}
}

func (p *Pool) handleEntry(ctx context.Context, workerID string, entry enrichment.Entry) {
	err := p.proc.Process(ctx, entry)
	if err == nil {
		if err := p.queue.Complete(ctx, entry.ID); err != nil {
			slog.ErrorContext(ctx, "complete failed", "worker", workerID, "entry", entry.ID, "error", err)
		}
		return
	}

	retryable := !IsPermanent(err)
	slog.ErrorContext(ctx, "entry processing failed",
		"worker", workerID, "entry", entry.ID, "record_id", entry.RecordID,
		"kind", entry.Kind, "attempts", entry.Attempts, "retryable", retryable, "error", err)

	if failErr := p.queue.Fail(ctx, entry.ID, err.Error(), retryable); failErr != nil {
		slog.ErrorContext(ctx, "fail transition failed", "worker", workerID, "entry", entry.ID, "error", failErr)
	}
}

// sleep waits out the idle interval; false means the context ended.
func (p *Pool) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(p.idle):
		return true
	}
}
