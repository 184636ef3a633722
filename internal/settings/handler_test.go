package settings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	set Settings
}

func (m *memRepo) Get(ctx context.Context) (*Settings, error) {
	s := m.set
	return &s, nil
}

func (m *memRepo) Update(ctx context.Context, s *Settings) error {
	m.set = *s
	return nil
}

func TestHandler_GetSettings_MasksKey(t *testing.T) {
	repo := &memRepo{set: Settings{GeminiAPIKey: "sk-secret", DefaultSimilarityFloor: 0.7, DefaultCap: 200}}
	h := NewHandler(NewService(repo))

	rr := httptest.NewRecorder()
	h.GetSettings(rr, httptest.NewRequest(http.MethodGet, "/settings", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.NotContains(t, body, "sk-secret")
	assert.Contains(t, body, `"gemini_api_key_set":true`)
	assert.Contains(t, body, `"default_cap":200`)
}

func TestHandler_UpdateSettings(t *testing.T) {
	t.Run("EmptyKeyKeepsExisting", func(t *testing.T) {
		repo := &memRepo{set: Settings{GeminiAPIKey: "sk-old", DefaultSimilarityFloor: 0.7, DefaultCap: 200}}
		h := NewHandler(NewService(repo))

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/settings",
			strings.NewReader(`{"default_cap":500}`))
		h.UpdateSettings(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "sk-old", repo.set.GeminiAPIKey)
		assert.Equal(t, 500, repo.set.DefaultCap)
		assert.InDelta(t, 0.7, repo.set.DefaultSimilarityFloor, 1e-6)
	})

	t.Run("NewKeyReplaces", func(t *testing.T) {
		repo := &memRepo{set: Settings{GeminiAPIKey: "sk-old", DefaultSimilarityFloor: 0.7, DefaultCap: 200}}
		h := NewHandler(NewService(repo))

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/settings",
			strings.NewReader(`{"gemini_api_key":"sk-new"}`))
		h.UpdateSettings(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "sk-new", repo.set.GeminiAPIKey)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		h := NewHandler(NewService(&memRepo{}))
		rr := httptest.NewRecorder()
		h.UpdateSettings(rr, httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader("{bad")))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
