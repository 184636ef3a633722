package enrichment

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type handlerRepo struct {
	Repository

	failed     []Entry
	requeueErr error
}

func (h *handlerRepo) ListFailed(ctx context.Context) ([]Entry, error) {
	return h.failed, nil
}

func (h *handlerRepo) Requeue(ctx context.Context, id int64) error {
	return h.requeueErr
}

func TestHandler_ListFailed(t *testing.T) {
	t.Run("WithEntries", func(t *testing.T) {
		repo := &handlerRepo{failed: []Entry{
			{ID: 3, RecordID: "rec-9", Kind: KindEmbedding, Status: StatusFailed, Attempts: 5, LastError: "rate limited"},
		}}
		h := NewHandler(NewService(repo, time.Minute))

		rr := httptest.NewRecorder()
		h.ListFailed(rr, httptest.NewRequest(http.MethodGet, "/enrichment/failed", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"count":1`)
		assert.Contains(t, rr.Body.String(), "rate limited")
	})

	t.Run("EmptyListIsNotNull", func(t *testing.T) {
		h := NewHandler(NewService(&handlerRepo{}, time.Minute))

		rr := httptest.NewRecorder()
		h.ListFailed(rr, httptest.NewRequest(http.MethodGet, "/enrichment/failed", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"data":[]`)
	})
}

func TestHandler_Requeue(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := NewHandler(NewService(&handlerRepo{}, time.Minute))

		req := httptest.NewRequest(http.MethodPost, "/enrichment/3/requeue", nil)
		req.SetPathValue("id", "3")
		rr := httptest.NewRecorder()
		h.Requeue(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		h := NewHandler(NewService(&handlerRepo{requeueErr: sql.ErrNoRows}, time.Minute))

		req := httptest.NewRequest(http.MethodPost, "/enrichment/99/requeue", nil)
		req.SetPathValue("id", "99")
		rr := httptest.NewRecorder()
		h.Requeue(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "NOT_FOUND")
	})

	t.Run("BadID", func(t *testing.T) {
		h := NewHandler(NewService(&handlerRepo{}, time.Minute))

		req := httptest.NewRequest(http.MethodPost, "/enrichment/abc/requeue", nil)
		req.SetPathValue("id", "abc")
		rr := httptest.NewRecorder()
		h.Requeue(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
