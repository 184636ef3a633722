package settings

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	set, err := h.service.Get(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get settings", "error", err)
		http.Error(w, `{"error":"failed to get settings"}`, http.StatusInternalServerError)
		return
	}

	// Never return the raw key, only whether one is configured.
	resp := map[string]any{
		"gemini_api_key_set":       set.GeminiAPIKey != "",
		"default_similarity_floor": set.DefaultSimilarityFloor,
		"default_cap":              set.DefaultCap,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	current, err := h.service.Get(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get settings", "error", err)
		http.Error(w, `{"error":"failed to get settings"}`, http.StatusInternalServerError)
		return
	}

	// Empty key in the request means "keep the existing one".
	if in.GeminiAPIKey == "" {
		in.GeminiAPIKey = current.GeminiAPIKey
	}
	if in.DefaultCap <= 0 {
		in.DefaultCap = current.DefaultCap
	}
	if in.DefaultSimilarityFloor <= 0 {
		in.DefaultSimilarityFloor = current.DefaultSimilarityFloor
	}

	if err := h.service.Update(ctx, &in); err != nil {
		slog.ErrorContext(ctx, "failed to update settings", "error", err)
		http.Error(w, `{"error":"failed to update settings"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "updated"}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
