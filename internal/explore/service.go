package explore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"corpusmap/backend/internal/settings"
)

// ErrEmbedUnavailable marks a semantic request whose query vector could not
// be produced. Ranking correctness is part of the contract, so this fails
// the request rather than degrading to unranked results.
var ErrEmbedUnavailable = errors.New("could not embed semantic query")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Request is the API-facing shape; the service resolves it into a QuerySpec.
type Request struct {
	Box        *Box       `json:"box,omitempty"`
	Sources    []string   `json:"sources,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`

	Semantic        string   `json:"semantic,omitempty"`
	SimilarityFloor *float32 `json:"similarity_floor,omitempty"`

	Order string `json:"order,omitempty"`
	Cap   int    `json:"cap,omitempty"`
}

type Service struct {
	embedder Embedder
	engine   *Engine
	settings *settings.Service
	logger   *QueryLogger
	timeout  time.Duration
	maxCap   int
}

func NewService(e Embedder, engine *Engine, set *settings.Service, l *QueryLogger, timeout time.Duration, maxCap int) *Service {
	return &Service{
		embedder: e,
		engine:   engine,
		settings: set,
		logger:   l,
		timeout:  timeout,
		maxCap:   maxCap,
	}
}

func (s *Service) Search(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	var res *Result
	var err error

	defer func() {
		if s.logger != nil && err == nil {
			s.logger.Log(QueryLogEntry{
				Semantic:   req.Semantic,
				NumResults: len(res.Hits),
				Truncated:  res.Truncated,
				Duration:   time.Since(start),
			})
		}
	}()

	spec, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err = s.engine.Search(queryCtx, *spec)
	return res, err
}

// resolve fills defaults from settings and, for semantic requests, turns
// the query text into a vector. Embedding failure is fatal for the request.
func (s *Service) resolve(ctx context.Context, req *Request) (*QuerySpec, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		// Settings should always exist; fall back to safe defaults.
		cfg = &settings.Settings{DefaultSimilarityFloor: 0.7, DefaultCap: 200}
	}

	cap := req.Cap
	if cap <= 0 {
		cap = cfg.DefaultCap
	}
	if s.maxCap > 0 && cap > s.maxCap {
		cap = s.maxCap
	}

	spec := &QuerySpec{
		Box:        req.Box,
		Sources:    req.Sources,
		Categories: req.Categories,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Order:      OrderRecency,
		Cap:        cap,
	}

	if req.Semantic != "" {
		vec, err := s.embedder.Embed(ctx, req.Semantic)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbedUnavailable, err)
		}
		spec.Vector = vec
		spec.Order = OrderSimilarity
		if req.SimilarityFloor != nil {
			spec.SimilarityFloor = *req.SimilarityFloor
		} else {
			spec.SimilarityFloor = cfg.DefaultSimilarityFloor
		}
	} else if req.Order == string(OrderSimilarity) {
		return nil, fmt.Errorf("similarity ordering requires a semantic query")
	}

	return spec, nil
}
