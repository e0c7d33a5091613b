package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIConfig configures the OpenAI chat-completions adapter.
// Zero values are filled with defaults; APIKey falls back to the
// OPENAI_API_KEY environment variable.
type OpenAIConfig struct {
	Name       string
	ID         string
	Model      string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAI is a Gateway backed by the OpenAI chat completions API.
type OpenAI struct {
	cfg OpenAIConfig
}

// NewOpenAI builds an OpenAI gateway.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Name == "" {
		cfg.Name = "ChatGPT 5.2"
	}
	if cfg.ID == "" {
		cfg.ID = "chatgpt"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-5.2-chat-latest"
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultOpenAIURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return &OpenAI{cfg: cfg}
}

// Name returns the display name.
func (o *OpenAI) Name() string { return o.cfg.Name }

// ID returns the selection identifier.
func (o *OpenAI) ID() string { return o.cfg.ID }

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Send posts the prompts to the chat completions endpoint and returns the
// first choice's text content.
func (o *OpenAI) Send(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if o.cfg.APIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY is not set")
	}

	body, err := json.Marshal(openAIRequest{
		Model: o.cfg.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read openai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
