package worker

import (
	"context"
	"errors"
	"fmt"

	"corpusmap/backend/features/enrichment"
)

// Queue is the slice of the enrichment repository the pull loops need.
type Queue interface {
	Claim(ctx context.Context, kind enrichment.Kind, batchSize int, workerID string) ([]enrichment.Entry, error)
	Complete(ctx context.Context, id int64) error
	Fail(ctx context.Context, id int64, cause string, retryable bool) error
}

// Enqueuer lets one stage's completion trigger the next stage's work.
type Enqueuer interface {
	Enqueue(ctx context.Context, recordID string, kind enrichment.Kind, priority int) error
}

// RecordStore is the slice of the record repository the processors need.
type RecordStore interface {
	GetText(ctx context.Context, id string) (title, abstract string, err error)
	GetEmbedding(ctx context.Context, id string) ([]float32, error)
	SetEmbedding(ctx context.Context, id string, vec []float32) error
	SetPosition(ctx context.Context, id string, x, y float64) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Processor handles one claimed entry. A returned error wrapped in
// Permanent parks the entry; anything else is retried with backoff.
type Processor interface {
	Kind() enrichment.Kind
	Process(ctx context.Context, entry enrichment.Entry) error
}

// Gated is implemented by processors that can refuse work, e.g. the
// projection processor when its model is missing. A gated pool idles
// instead of claiming entries it cannot finish.
type Gated interface {
	Ready() error
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as a non-retryable input failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func Permanentf(format string, args ...any) error {
	return &permanentError{err: fmt.Errorf(format, args...)}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
