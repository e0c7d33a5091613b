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

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiConfig configures the Google Gemini adapter.
// Zero values are filled with defaults; APIKey falls back to the
// GEMINI_API_KEY or GOOGLE_API_KEY environment variable.
type GeminiConfig struct {
	Name       string
	ID         string
	Model      string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini is a Gateway backed by the Gemini generateContent API.
type Gemini struct {
	cfg GeminiConfig
}

// NewGemini builds a Gemini gateway.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Name == "" {
		cfg.Name = "Gemini"
	}
	if cfg.ID == "" {
		cfg.ID = "gemini"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultGeminiURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	}
	return &Gemini{cfg: cfg}
}

// Name returns the display name.
func (g *Gemini) Name() string { return g.cfg.Name }

// ID returns the selection identifier.
func (g *Gemini) ID() string { return g.cfg.ID }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Send posts the prompts to the generateContent endpoint and returns the
// first candidate's concatenated text parts.
func (g *Gemini) Send(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.cfg.APIKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY or GOOGLE_API_KEY is not set")
	}

	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: userPrompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("gemini response contained no candidates")
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}
