package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labchat/internal/domain"
	"github.com/kailas-cloud/labchat/internal/domain/prompt"
)

// chatRequest mirrors the fields of the chat completion request the tests inspect.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatResponse(contents ...string) map[string]any {
	choices := make([]map[string]any, len(contents))
	for i, c := range contents {
		choices[i] = map[string]any{
			"index":         i,
			"message":       map[string]any{"role": "assistant", "content": c},
			"finish_reason": "stop",
		}
	}
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "gpt-3.5-turbo",
		"choices": choices,
		"usage":   map[string]any{"prompt_tokens": 30, "completion_tokens": 7, "total_tokens": 37},
	}
}

func newTestCompleter(url string) *Completer {
	return NewCompleter(&Config{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "gpt-3.5-turbo",
		Logger:  zap.NewNop(),
	})
}

func TestCompleter_Complete(t *testing.T) {
	var got chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse("Check your .env file", "ignored"))
	}))
	defer server.Close()

	messages := prompt.BuildMessages("Why no books?", "Check your .env file (Score: 0.95)\n\n", "You are a lab assistant.")

	reply, err := newTestCompleter(server.URL).Complete(context.Background(), messages)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "Check your .env file" {
		t.Errorf("reply = %q, want first choice", reply)
	}

	if got.Model != "gpt-3.5-turbo" {
		t.Errorf("model = %q", got.Model)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got.Messages))
	}
	wantRoles := []string{"system", "user", "system"}
	for i, m := range got.Messages {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d role = %q, want %q", i, m.Role, wantRoles[i])
		}
		if m.Content != messages[i].Content {
			t.Errorf("message %d content altered: %q", i, m.Content)
		}
	}
}

func TestCompleter_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse())
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), prompt.BuildMessages("q", "c", "s"))
	if !errors.Is(err, domain.ErrCompletionService) {
		t.Fatalf("expected ErrCompletionService, got %v", err)
	}
}

func TestCompleter_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "Incorrect API key provided",
				"type":    "invalid_request_error",
			},
		})
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), prompt.BuildMessages("q", "c", "s"))
	if !errors.Is(err, domain.ErrCompletionService) {
		t.Fatalf("expected ErrCompletionService, got %v", err)
	}
}

func TestParseAPIError_DetailBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail":"upstream unavailable"}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), prompt.BuildMessages("q", "c", "s"))
	if !errors.Is(err, domain.ErrCompletionService) {
		t.Fatalf("expected ErrCompletionService, got %v", err)
	}
}
