// Package llm provides the model backends used for narrative scoring
// and assignment briefs: a local Ollama instance, with OpenAI as the
// fallback when Ollama is unreachable.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

const openaiEndpoint = "https://api.openai.com/v1/chat/completions"

// Provider generates completions for analysis prompts.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OllamaProvider talks to a local Ollama server.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
}

func NewOllamaProvider(model, baseURL string) *OllamaProvider {
	return &OllamaProvider{
		Model:   model,
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured reports whether Ollama is reachable and serves the
// configured model (any tag of it).
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}

	want := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range tags.Models {
		if strings.Contains(m.Name, want) {
			return true
		}
	}
	log.Printf("Ollama is running but model %q is not pulled", o.Model)
	return false
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := struct {
		Model    string         `json:"model"`
		Messages []chatMessage  `json:"messages"`
		Stream   bool           `json:"stream"`
		Options  map[string]any `json:"options"`
	}{
		Model:    o.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Options: map[string]any{
			"num_predict": maxTokens,
			"temperature": 0.3,
		},
	}

	var reply struct {
		Message chatMessage `json:"message"`
	}
	if err := postJSON(ctx, o.client, o.BaseURL+"/api/chat", "", payload, &reply); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	return reply.Message.Content, nil
}

// OpenAIProvider talks to the OpenAI chat completions API.
type OpenAIProvider struct {
	Model  string
	APIKey string
	client *http.Client
}

func NewOpenAIProvider(model, apiKeyEnv string) *OpenAIProvider {
	return &OpenAIProvider{
		Model:  model,
		APIKey: os.Getenv(apiKeyEnv),
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	payload := struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		MaxTokens   int           `json:"max_tokens"`
		Temperature float64       `json:"temperature"`
	}{
		Model:       o.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	}

	var reply struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, o.client, openaiEndpoint, o.APIKey, payload, &reply); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(reply.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return reply.Choices[0].Message.Content, nil
}

// postJSON posts a JSON payload and decodes the JSON reply. A non-empty
// token is sent as a bearer Authorization header.
func postJSON(ctx context.Context, client *http.Client, url, token string, payload, reply any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(reply)
}

// CreateProvider resolves the scoring provider from config: Ollama when
// requested and reachable, otherwise OpenAI when a key is present,
// otherwise nil.
func CreateProvider(provider, model, ollamaURL, openaiModel, apiKeyEnv string) Provider {
	if strings.ToLower(provider) == "ollama" {
		p := NewOllamaProvider(model, ollamaURL)
		if p.IsConfigured() {
			log.Printf("Scoring with Ollama model %s", model)
			return p
		}
		log.Println("Ollama not available, falling back to OpenAI")
	}

	p := NewOpenAIProvider(openaiModel, apiKeyEnv)
	if p.IsConfigured() {
		log.Printf("Scoring with OpenAI model %s", openaiModel)
		return p
	}

	log.Printf("No scoring provider available; start Ollama or set %s", apiKeyEnv)
	return nil
}
