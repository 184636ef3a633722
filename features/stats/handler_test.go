package stats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"corpusmap/backend/features/enrichment"
)

type stubRecords struct{ err error }

func (s stubRecords) Counts(ctx context.Context) (int, int, int, error) {
	return 10, 8, 6, s.err
}

type stubQueue struct{}

func (stubQueue) CountByStatus(ctx context.Context) (map[enrichment.Kind]map[string]int, error) {
	return map[enrichment.Kind]map[string]int{
		enrichment.KindEmbedding: {"pending": 2, "failed": 1},
	}, nil
}

type stubModel struct {
	healthy bool
	version string
}

func (s stubModel) Healthy() bool   { return s.healthy }
func (s stubModel) Version() string { return s.version }

func TestHandler_GetStats(t *testing.T) {
	t.Run("ReportsCountsAndModelHealth", func(t *testing.T) {
		h := NewHandler(stubRecords{}, stubQueue{}, stubModel{healthy: true, version: "v3"})

		rr := httptest.NewRecorder()
		h.GetStats(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, `"total":10`)
		assert.Contains(t, body, `"positioned":6`)
		assert.Contains(t, body, `"pending":2`)
		assert.Contains(t, body, `"version":"v3"`)
		assert.Contains(t, body, `"healthy":true`)
	})

	t.Run("CountFailure", func(t *testing.T) {
		h := NewHandler(stubRecords{err: errors.New("db down")}, stubQueue{}, stubModel{})

		rr := httptest.NewRecorder()
		h.GetStats(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
