package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements Generator and Embedder on top of the Google generative
// AI API.
type Gemini struct {
	client *genai.Client
	gen    *genai.GenerativeModel
	embed  *genai.EmbeddingModel
}

// NewGemini builds a client for the given API key and model names.
func NewGemini(ctx context.Context, apiKey, genModel, embedModel string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{
		client: client,
		gen:    client.GenerativeModel(genModel),
		embed:  client.EmbeddingModel(embedModel),
	}, nil
}

func (g *Gemini) Close() error { return g.client.Close() }

// Generate sends one prompt and concatenates the text parts of the first
// candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.gen.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("%w: no text parts in response", ErrUpstream)
	}
	return out, nil
}

// Embed returns the embedding vector for text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := g.embed.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", ErrUpstream, err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrUpstream)
	}
	return res.Embedding.Values, nil
}
