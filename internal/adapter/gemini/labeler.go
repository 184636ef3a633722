package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"corpusmap/backend/internal/settings"
)

const maxLabelTitles = 20

// Labeler asks Gemini for a short topic label given a cluster's titles.
// Callers treat every error as best-effort: an unlabeled cluster is a valid
// partial result.
type Labeler struct {
	settingsSvc *settings.Service
	model       string
	client      *genai.Client
	currentKey  string
	mu          sync.RWMutex
	clientOpts  []option.ClientOption
}

func NewLabeler(svc *settings.Service, model string, opts ...option.ClientOption) *Labeler {
	return &Labeler{
		settingsSvc: svc,
		model:       model,
		clientOpts:  opts,
	}
}

func (l *Labeler) Label(ctx context.Context, titles []string) (string, error) {
	s, err := l.settingsSvc.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get settings: %w", err)
	}
	if s.GeminiAPIKey == "" {
		return "", fmt.Errorf("gemini api key not configured")
	}

	client, err := l.getClient(ctx, s.GeminiAPIKey)
	if err != nil {
		return "", err
	}

	if len(titles) > maxLabelTitles {
		titles = titles[:maxLabelTitles]
	}

	prompt := fmt.Sprintf(
		"These document titles belong to one topic cluster:\n%s\n\nReply with a short topic label (2-5 words), nothing else.",
		"- "+strings.Join(titles, "\n- "),
	)

	model := client.GenerativeModel(l.model)
	res, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty label response")
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	label := strings.TrimSpace(strings.Trim(sb.String(), "\"'`"))
	if label == "" {
		return "", fmt.Errorf("empty label response")
	}
	return label, nil
}

func (l *Labeler) getClient(ctx context.Context, key string) (*genai.Client, error) {
	l.mu.RLock()
	if l.client != nil && l.currentKey == key {
		defer l.mu.RUnlock()
		return l.client, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil && l.currentKey == key {
		return l.client, nil
	}

	if l.client != nil {
		_ = l.client.Close()
	}

	opts := append(l.clientOpts, option.WithAPIKey(key))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	l.client = client
	l.currentKey = key
	return client, nil
}
