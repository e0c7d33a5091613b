package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAISend(t *testing.T) {
	t.Run("returns the first choice's content", func(t *testing.T) {
		var gotAuth string
		var gotBody map[string]any

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices": [{"message": {"content": "{\"move\": \"e4\"}"}}]}`))
		}))
		defer server.Close()

		gw := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
		reply, err := gw.Send(context.Background(), "system text", "user text")
		require.NoError(t, err)
		assert.Equal(t, `{"move": "e4"}`, reply)

		assert.Equal(t, "Bearer test-key", gotAuth)
		messages := gotBody["messages"].([]any)
		require.Len(t, messages, 2)
		first := messages[0].(map[string]any)
		assert.Equal(t, "system", first["role"])
		assert.Equal(t, "system text", first["content"])
	})

	t.Run("surfaces non-200 with truncated body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()

		gw := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
		_, err := gw.Send(context.Background(), "s", "u")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("errors on empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": []}`))
		}))
		defer server.Close()

		gw := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
		_, err := gw.Send(context.Background(), "s", "u")
		assert.Error(t, err)
	})

	t.Run("errors without an API key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		gw := NewOpenAI(OpenAIConfig{})
		_, err := gw.Send(context.Background(), "s", "u")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("defaults are applied", func(t *testing.T) {
		gw := NewOpenAI(OpenAIConfig{})
		assert.Equal(t, "chatgpt", gw.ID())
		assert.NotEmpty(t, gw.Name())
	})
}

func TestGeminiSend(t *testing.T) {
	t.Run("concatenates candidate text parts", func(t *testing.T) {
		var gotKey, gotPath string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.Header.Get("x-goog-api-key")
			gotPath = r.URL.Path
			w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "{\"move\": "}, {"text": "\"d4\"}"}]}}]}`))
		}))
		defer server.Close()

		gw := NewGemini(GeminiConfig{APIKey: "gem-key", BaseURL: server.URL, Model: "gemini-test"})
		reply, err := gw.Send(context.Background(), "system", "user")
		require.NoError(t, err)
		assert.Equal(t, `{"move": "d4"}`, reply)
		assert.Equal(t, "gem-key", gotKey)
		assert.Equal(t, "/gemini-test:generateContent", gotPath)
	})

	t.Run("errors on empty candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates": []}`))
		}))
		defer server.Close()

		gw := NewGemini(GeminiConfig{APIKey: "k", BaseURL: server.URL})
		_, err := gw.Send(context.Background(), "s", "u")
		assert.Error(t, err)
	})

	t.Run("errors without an API key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_API_KEY", "")
		gw := NewGemini(GeminiConfig{})
		_, err := gw.Send(context.Background(), "s", "u")
		assert.Error(t, err)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("builds gateways for valid specs", func(t *testing.T) {
		registry, err := NewRegistry([]Spec{
			{ID: "gpt", DisplayName: "GPT", Provider: "openai"},
			{ID: "gem", DisplayName: "Gem", Provider: "gemini"},
		})
		require.NoError(t, err)

		gw, ok := registry.ByID("gpt")
		require.True(t, ok)
		assert.Equal(t, "GPT", gw.Name())
		assert.Len(t, registry.All(), 2)
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		_, err := NewRegistry([]Spec{{ID: "x", Provider: "anthropic"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})

	t.Run("rejects duplicate IDs", func(t *testing.T) {
		_, err := NewRegistry([]Spec{
			{ID: "x", Provider: "openai"},
			{ID: "x", Provider: "gemini"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("rejects missing ID", func(t *testing.T) {
		_, err := NewRegistry([]Spec{{Provider: "openai"}})
		assert.Error(t, err)
	})

	t.Run("default specs resolve", func(t *testing.T) {
		registry, err := NewRegistry(DefaultSpecs())
		require.NoError(t, err)

		_, ok := registry.ByID("chatgpt")
		assert.True(t, ok)
		_, ok = registry.ByID("gemini")
		assert.True(t, ok)
	})
}
