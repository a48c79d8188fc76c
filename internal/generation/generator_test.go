package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, answer string, capture *chatRequest) *Service {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"role": "assistant", "content": answer},
					"finish_reason": "stop",
				},
			},
		})
	}))
	t.Cleanup(server.Close)

	service, err := NewService(Config{BaseURL: server.URL, Model: "llama3.1"}, nil)
	require.NoError(t, err)
	return service
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(Config{Model: "llama3.1"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewService(Config{BaseURL: "http://localhost:11434/v1"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGenerate(t *testing.T) {
	var captured chatRequest
	service := newChatServer(t, "Refunds are accepted within 30 days.", &captured)

	text, err := service.Generate(context.Background(), "general",
		"[1] (docs_main) refund policy overview", "what is the refund policy", "en")
	require.NoError(t, err)
	assert.Equal(t, "Refunds are accepted within 30 days.", text)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "helpful assistant")
	assert.Contains(t, captured.Messages[0].Content, "Answer in en.")
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Contains(t, captured.Messages[1].Content, "Context:\n[1] (docs_main) refund policy overview")
	assert.Contains(t, captured.Messages[1].Content, "Question: what is the refund policy")
}

func TestGenerateVariantPrompt(t *testing.T) {
	var captured chatRequest
	service := newChatServer(t, "ok", &captured)

	_, err := service.Generate(context.Background(), "compliance", "ctx", "q", "")
	require.NoError(t, err)
	assert.Contains(t, captured.Messages[0].Content, "compliance assistant")
	assert.NotContains(t, captured.Messages[0].Content, "Answer in")
}

func TestGenerateUnknownVariantFallsBack(t *testing.T) {
	var captured chatRequest
	service := newChatServer(t, "ok", &captured)

	_, err := service.Generate(context.Background(), "nonexistent", "ctx", "q", "")
	require.NoError(t, err)
	assert.Contains(t, captured.Messages[0].Content, "helpful assistant")
}

func TestGenerateConfiguredPromptOverride(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"role": "assistant", "content": "ok"},
					"finish_reason": "stop",
				},
			},
		})
	}))
	t.Cleanup(server.Close)

	service, err := NewService(Config{
		BaseURL: server.URL,
		Model:   "llama3.1",
		Prompts: map[string]string{"general": "Answer in one sentence."},
	}, nil)
	require.NoError(t, err)

	_, err = service.Generate(context.Background(), "general", "ctx", "q", "")
	require.NoError(t, err)
	assert.Contains(t, captured.Messages[0].Content, "Answer in one sentence.")
}

func TestGenerateBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	service, err := NewService(Config{BaseURL: server.URL, Model: "llama3.1"}, nil)
	require.NoError(t, err)

	_, err = service.Generate(context.Background(), "general", "ctx", "q", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}
