package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"LinkVault/internal/config"
	"LinkVault/internal/domain"
	"LinkVault/internal/ports"
)

func embedConfig(endpoint string, dims int) config.OpenAIConfig {
	return config.OpenAIConfig{
		APIKey:          "test-key",
		EmbedEndpoint:   endpoint,
		EmbedModel:      "test-embed",
		EmbedDimensions: dims,
	}
}

func TestEmbed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var payload struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.Model != "test-embed" || payload.Input != "some text" {
			t.Errorf("payload = %+v", payload)
		}
		fmt.Fprint(w, `{"data": [{"embedding": [0.1, 0.2, 0.3]}]}`)
	}))
	defer server.Close()

	client := NewEmbeddingClient(embedConfig(server.URL, 3))
	vector, err := client.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Errorf("vector = %v", vector)
	}
}

func TestEmbedRejectsWrongDimensions(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [{"embedding": [0.1, 0.2]}]}`)
	}))
	defer server.Close()

	client := NewEmbeddingClient(embedConfig(server.URL, 4))
	_, err := client.Embed(context.Background(), "text")

	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want *domain.ProviderError", err)
	}
	if provErr.Provider != "embedding" {
		t.Errorf("provider = %q", provErr.Provider)
	}
}

func TestEmbedProviderFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewEmbeddingClient(embedConfig(server.URL, 3))
	_, err := client.Embed(context.Background(), "text")

	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want *domain.ProviderError", err)
	}
}

func TestEmbedMisconfigured(t *testing.T) {
	t.Parallel()

	client := NewEmbeddingClient(config.OpenAIConfig{})
	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("want error for missing key/endpoint/model")
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model     string              `json:"model"`
			MaxTokens int                 `json:"max_tokens"`
			Messages  []map[string]string `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(payload.Messages) != 2 {
			t.Fatalf("messages = %v, want system + user", payload.Messages)
		}
		if payload.Messages[0]["role"] != "system" || payload.Messages[1]["role"] != "user" {
			t.Errorf("roles = %v", payload.Messages)
		}
		if payload.MaxTokens != 256 {
			t.Errorf("max_tokens = %d", payload.MaxTokens)
		}
		fmt.Fprint(w, `{"choices": [{"message": {"content": "  an answer  "}}]}`)
	}))
	defer server.Close()

	client := NewChatClient(config.OpenAIConfig{
		APIKey:       "test-key",
		ChatEndpoint: server.URL,
		ChatModel:    "test-chat",
	})

	answer, err := client.Complete(context.Background(), ports.CompletionRequest{
		System:    "be brief",
		Prompt:    "question?",
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if answer != "an answer" {
		t.Errorf("answer = %q, want trimmed content", answer)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	}))
	defer server.Close()

	client := NewChatClient(config.OpenAIConfig{
		APIKey:       "test-key",
		ChatEndpoint: server.URL,
		ChatModel:    "test-chat",
	})

	_, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "q"})
	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want *domain.ProviderError", err)
	}
	if provErr.Provider != "generation" {
		t.Errorf("provider = %q", provErr.Provider)
	}
}
