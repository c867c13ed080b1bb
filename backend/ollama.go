package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.1:8b"
)

// OllamaClient generates text against an Ollama-compatible HTTP endpoint
type OllamaClient struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewOllamaClient creates a client for the given endpoint and model.
func NewOllamaClient(baseURL, model, apiKey string) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// NewOllamaClientFromEnv creates a client configured from OLLAMA_BASE_URL,
// OLLAMA_MODEL and OLLAMA_API_KEY.
func NewOllamaClientFromEnv() (*OllamaClient, error) {
	return NewOllamaClient(
		os.Getenv("OLLAMA_BASE_URL"),
		os.Getenv("OLLAMA_MODEL"),
		os.Getenv("OLLAMA_API_KEY"),
	), nil
}

type ollamaRequest struct {
	Model       string        `json:"model"`
	Prompt      string        `json:"prompt"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
	Options     ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict int     `json:"num_predict"`
	TopK       int     `json:"top_k"`
	TopP       float64 `json:"top_p"`
	NumCtx     int     `json:"num_ctx"`
}

// Generate implements Client
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload := ollamaRequest{
		Model:       c.model,
		Prompt:      prompt,
		Temperature: 0.1,
		Stream:      false,
		Options: ollamaOptions{
			NumPredict: 1024,
			TopK:       30,
			TopP:       0.85,
			NumCtx:     3072,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &Error{Op: "ollama generate", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Op: "ollama generate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Op: "ollama generate", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Op: "ollama generate", Transient: true, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Op:        "ollama generate",
			Status:    resp.StatusCode,
			Transient: transientStatus(resp.StatusCode),
			Err:       fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(raw))),
		}
	}

	// Different server builds name the completion field differently.
	var decoded struct {
		Response string `json:"response"`
		Text     string `json:"text"`
		Result   string `json:"result"`
		Output   string `json:"output"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &Error{Op: "ollama generate", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	for _, text := range []string{decoded.Response, decoded.Text, decoded.Result, decoded.Output} {
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return "", &Error{Op: "ollama generate", Transient: true, Err: errors.New("empty content returned")}
}
