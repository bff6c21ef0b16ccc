package advice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"wealthtrack/internal/core"
)

const (
	DefaultModel    = "gemini-2.5-flash"
	DefaultLanguage = "Chinese"
)

// Gemini asks a Gemini model for advice. A zero API key makes every call
// fail with ErrNoAPIKey without touching the network.
type Gemini struct {
	apiKey   string
	model    string
	language string

	mu     sync.Mutex
	client *genai.Client
}

func NewGemini(apiKey, model, language string) *Gemini {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	return &Gemini{apiKey: strings.TrimSpace(apiKey), model: model, language: language}
}

func (g *Gemini) ensureClient(ctx context.Context) error {
	if g.apiKey == "" {
		return ErrNoAPIKey
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("gemini: create client: %w", err)
	}
	g.client = client
	return nil
}

func (g *Gemini) Advise(ctx context.Context, r core.WealthRecord, m core.GlobalMetrics) (string, error) {
	if err := g.ensureClient(ctx); err != nil {
		return "", err
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(BuildPrompt(r, m, g.language)),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: fmt.Sprintf(systemInstruction, g.language)}}},
		})
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return resp.Text(), nil
}
