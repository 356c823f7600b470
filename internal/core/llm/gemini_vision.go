package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/Indexa/internal/core"
)

type GeminiVision struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

func NewGeminiVision(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiVision, error) {
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
	return &GeminiVision{client: cl, modelName: modelName, timeout: timeout}, nil
}

func (g *GeminiVision) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Describe sends the prompt plus all images in a single request and returns
// the model's text response.
func (g *GeminiVision) Describe(ctx context.Context, images [][]byte, prompt string) (string, error) {
	if len(images) == 0 {
		return "", nil
	}

	ctx, cancel := requestContext(ctx, g.timeout)
	defer cancel()

	m := g.client.GenerativeModel(g.modelName)

	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(prompt))
	for _, img := range images {
		parts = append(parts, genai.ImageData(imageFormat(img), img))
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini vision: %w", err)
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

// imageFormat maps sniffed content types to the format suffix genai expects
// (the part after "image/").
func imageFormat(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpeg"
	}
}

var _ core.VisionProvider = (*GeminiVision)(nil)
