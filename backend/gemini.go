package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient generates text using the Google Gemini API
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient wraps an existing genai client
func NewGeminiClient(client *genai.Client, model string) *GeminiClient {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}
}

// NewGeminiClientFromEnv creates a Gemini client configured from
// GEMINI_API_KEY and GEMINI_MODEL.
func NewGeminiClientFromEnv(ctx context.Context) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return NewGeminiClient(client, os.Getenv("GEMINI_MODEL")), nil
}

// Generate implements Client
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.1)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return "", &Error{Op: "gemini generate", Status: gerr.Code, Transient: transientStatus(gerr.Code), Err: err}
		}
		return "", &Error{Op: "gemini generate", Transient: errors.Is(err, context.DeadlineExceeded), Err: err}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", &Error{Op: "gemini generate", Err: fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)}
	}
	if len(resp.Candidates) == 0 {
		return "", &Error{Op: "gemini generate", Transient: true, Err: errors.New("no candidates returned")}
	}

	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}

	result := text.String()
	if result == "" {
		return "", &Error{Op: "gemini generate", Transient: true, Err: errors.New("empty content returned")}
	}
	return result, nil
}

// Close releases the underlying API client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
