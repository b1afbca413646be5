// Package llm talks to OpenAI-compatible embedding and chat-completion
// APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"LinkVault/internal/config"
	"LinkVault/internal/domain"
	"LinkVault/internal/ports"
)

// EmbeddingClient implements ports.Embedder against an embeddings
// endpoint.
type EmbeddingClient struct {
	endpoint   string
	model      string
	apiKey     string
	dimensions int
	httpClient *http.Client
}

var _ ports.Embedder = (*EmbeddingClient)(nil)

// NewEmbeddingClient builds a client from configuration.
func NewEmbeddingClient(cfg config.OpenAIConfig) *EmbeddingClient {
	dims := cfg.EmbedDimensions
	if dims <= 0 {
		dims = domain.EmbeddingDimensions
	}
	return &EmbeddingClient{
		endpoint:   cfg.EmbedEndpoint,
		model:      cfg.EmbedModel,
		apiKey:     cfg.APIKey,
		dimensions: dims,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Dimensions returns the configured vector width.
func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}

// Embed submits text and returns its vector. The caller is responsible
// for truncating input to the provider's size ceiling.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, &domain.ProviderError{Provider: "embedding", Err: fmt.Errorf("client misconfigured")}
	}

	body := map[string]any{"model": c.model, "input": text}
	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := postJSON(ctx, c.httpClient, c.endpoint, c.apiKey, body, &parsed); err != nil {
		return nil, &domain.ProviderError{Provider: "embedding", Err: err}
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, &domain.ProviderError{Provider: "embedding", Err: fmt.Errorf("empty embedding response")}
	}

	vector := parsed.Data[0].Embedding
	if len(vector) != c.dimensions {
		return nil, &domain.ProviderError{
			Provider: "embedding",
			Err:      fmt.Errorf("provider returned %d dimensions, expected %d", len(vector), c.dimensions),
		}
	}
	return vector, nil
}

// ChatClient implements ports.Generator against a chat-completions
// endpoint.
type ChatClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Generator = (*ChatClient)(nil)

// NewChatClient builds a client from configuration.
func NewChatClient(cfg config.OpenAIConfig) *ChatClient {
	return &ChatClient{
		endpoint:   cfg.ChatEndpoint,
		model:      cfg.ChatModel,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Complete returns the first choice's message content.
func (c *ChatClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", &domain.ProviderError{Provider: "generation", Err: fmt.Errorf("client misconfigured")}
	}

	messages := []map[string]string{}
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	body := map[string]any{"model": c.model, "messages": messages}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, c.httpClient, c.endpoint, c.apiKey, body, &parsed); err != nil {
		return "", &domain.ProviderError{Provider: "generation", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &domain.ProviderError{Provider: "generation", Err: fmt.Errorf("empty completion response")}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func postJSON(ctx context.Context, client *http.Client, endpoint, apiKey string, payload, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("provider error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
