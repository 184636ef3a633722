package worker_test

import (
	"context"
	"fmt"
	"sync"

	"corpusmap/backend/features/enrichment"
	"corpusmap/backend/features/record"
)

// memQueue is an in-memory queue with the same coalescing and transition
// semantics as the Postgres repository, for exercising pull loops and stage
// chaining without a database.
type memQueue struct {
	mu          sync.Mutex
	nextID      int64
	entries     map[int64]*enrichment.Entry
	maxAttempts int
}

func newMemQueue() *memQueue {
	return &memQueue{entries: make(map[int64]*enrichment.Entry), maxAttempts: 5}
}

func (q *memQueue) Enqueue(ctx context.Context, recordID string, kind enrichment.Kind, priority int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.RecordID == recordID && e.Kind == kind &&
			(e.Status == enrichment.StatusPending || e.Status == enrichment.StatusProcessing) {
			return nil
		}
	}
	q.nextID++
	q.entries[q.nextID] = &enrichment.Entry{
		ID:       q.nextID,
		RecordID: recordID,
		Kind:     kind,
		Priority: priority,
		Status:   enrichment.StatusPending,
	}
	return nil
}

func (q *memQueue) Claim(ctx context.Context, kind enrichment.Kind, batchSize int, workerID string) ([]enrichment.Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []enrichment.Entry
	for _, e := range q.entries {
		if len(out) >= batchSize {
			break
		}
		if e.Kind == kind && e.Status == enrichment.StatusPending {
			e.Status = enrichment.StatusProcessing
			out = append(out, *e)
		}
	}
	return out, nil
}

func (q *memQueue) Complete(ctx context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.entries[id]; ok && e.Status == enrichment.StatusProcessing {
		e.Status = enrichment.StatusDone
	}
	return nil
}

func (q *memQueue) Fail(ctx context.Context, id int64, cause string, retryable bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok || e.Status != enrichment.StatusProcessing {
		return nil
	}
	e.Attempts++
	e.LastError = cause
	if retryable && e.Attempts < q.maxAttempts {
		e.Status = enrichment.StatusPending
	} else {
		e.Status = enrichment.StatusFailed
	}
	return nil
}

func (q *memQueue) countByKindStatus(kind enrichment.Kind, status string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, e := range q.entries {
		if e.Kind == kind && e.Status == status {
			n++
		}
	}
	return n
}

func (q *memQueue) get(id int64) enrichment.Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return *q.entries[id]
}

// memRecords mirrors the record repository invariants: no position without
// an embedding.
type memRecords struct {
	mu         sync.Mutex
	texts      map[string][2]string
	embeddings map[string][]float32
	positions  map[string][2]float64
}

func newMemRecords() *memRecords {
	return &memRecords{
		texts:      make(map[string][2]string),
		embeddings: make(map[string][]float32),
		positions:  make(map[string][2]float64),
	}
}

func (r *memRecords) GetText(ctx context.Context, id string) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.texts[id]
	if !ok {
		return "", "", fmt.Errorf("record %s not found", id)
	}
	return t[0], t[1], nil
}

func (r *memRecords) GetEmbedding(ctx context.Context, id string) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vec, ok := r.embeddings[id]
	if !ok {
		return nil, record.ErrNoEmbedding
	}
	return vec, nil
}

func (r *memRecords) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[id] = vec
	return nil
}

func (r *memRecords) SetPosition(ctx context.Context, id string, x, y float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.embeddings[id]; !ok {
		return record.ErrNoEmbedding
	}
	r.positions[id] = [2]float64{x, y}
	return nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}
