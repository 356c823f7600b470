package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/Indexa/internal/core"
)

// defaultOracleTimeout bounds every Gemini request so a hung oracle degrades
// into the caller's fallback path instead of stalling the worker.
const defaultOracleTimeout = 30 * time.Second

func requestContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

type GeminiLLM struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName, timeout: timeout}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := requestContext(ctx, g.timeout)
	defer cancel()

	m := g.client.GenerativeModel(g.modelName)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
