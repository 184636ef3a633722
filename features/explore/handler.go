package explore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"corpusmap/backend/internal/cluster"
	"corpusmap/backend/internal/explore"
	"corpusmap/backend/internal/middleware"
)

type Handler struct {
	service  *explore.Service
	analyzer *cluster.Analyzer
}

func NewHandler(s *explore.Service, a *cluster.Analyzer) *Handler {
	return &Handler{service: s, analyzer: a}
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req explore.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "INVALID_REQUEST", "invalid JSON body", http.StatusBadRequest)
		return
	}

	res, err := h.service.Search(ctx, &req)
	if err != nil {
		h.searchError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"data": res.Hits,
		"meta": map[string]any{
			"count":     len(res.Hits),
			"truncated": res.Truncated,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

type clusterRequest struct {
	explore.Request
	K int `json:"k"`
}

// Clusters runs the same query pipeline and partitions the result set.
// Geometry always comes back when the query succeeds; labels are
// best-effort and may be absent.
func (h *Handler) Clusters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req clusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "INVALID_REQUEST", "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.K <= 0 {
		h.writeError(ctx, w, "INVALID_REQUEST", "k must be positive", http.StatusBadRequest)
		return
	}

	res, err := h.service.Search(ctx, &req.Request)
	if err != nil {
		h.searchError(ctx, w, err)
		return
	}

	points := make([]cluster.Point, len(res.Hits))
	for i, hit := range res.Hits {
		points[i] = cluster.Point{ID: hit.ID, Title: hit.Title, X: hit.PosX, Y: hit.PosY}
	}

	clusters, err := h.analyzer.Analyze(ctx, points, req.K)
	if err != nil {
		slog.ErrorContext(ctx, "cluster analysis failed", "error", err)
		h.writeError(ctx, w, "CLUSTER_FAILED", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"data": clusters,
		"meta": map[string]any{
			"count":     len(clusters),
			"points":    len(points),
			"truncated": res.Truncated,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) searchError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, explore.ErrQueryTimeout):
		slog.WarnContext(ctx, "query timed out", "error", err)
		h.writeError(ctx, w, "QUERY_TIMEOUT", "query timed out; narrow the viewport or filters", http.StatusGatewayTimeout)
	case errors.Is(err, explore.ErrEmbedUnavailable):
		slog.ErrorContext(ctx, "semantic embedding unavailable", "error", err)
		h.writeError(ctx, w, "EMBED_UNAVAILABLE", "semantic query could not be embedded", http.StatusBadGateway)
	default:
		slog.ErrorContext(ctx, "query failed", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
