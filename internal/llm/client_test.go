package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/maven/internal/config"
)

func TestNewClient(t *testing.T) {
	if _, err := NewClient(config.LLMConfig{Provider: config.ProviderAnthropic}); err != nil {
		t.Errorf("anthropic: %v", err)
	}
	if _, err := NewClient(config.LLMConfig{Provider: config.ProviderOpenAI}); err != nil {
		t.Errorf("openai: %v", err)
	}
	if _, err := NewClient(config.LLMConfig{Provider: "cohere"}); err == nil {
		t.Error("Expected error for unsupported provider")
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "sk-ant-test" {
			t.Errorf("Missing api key header")
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-opus-4-5",
			"content": [{"type": "text", "text": "Great question. "}, {"type": "text", "text": "Start small."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer ts.Close()

	c := NewAnthropicClient(config.ProviderConfig{APIKey: "sk-ant-test", Model: "claude-opus-4-5"}, ts.URL+"/")
	text, err := c.Complete(context.Background(), "persona", "situation", 700)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "Great question. Start small." {
		t.Errorf("Unexpected text %q", text)
	}

	if body["model"] != "claude-opus-4-5" {
		t.Errorf("Unexpected model %v", body["model"])
	}
	if body["max_tokens"] != float64(700) {
		t.Errorf("Unexpected max_tokens %v", body["max_tokens"])
	}
	if !strings.Contains(toJSON(body["system"]), "persona") {
		t.Errorf("Expected system instructions in system field, got %v", body["system"])
	}
	if strings.Contains(toJSON(body["messages"]), "persona") {
		t.Error("System instructions leaked into messages")
	}
}

func TestAnthropicClientError(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer ts.Close()

	c := NewAnthropicClient(config.ProviderConfig{APIKey: "k", Model: "m"}, ts.URL+"/")
	if _, err := c.Complete(context.Background(), "s", "u", 10); err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected SDK retries disabled, got %d calls", calls)
	}
}

func TestOpenAIClientComplete(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Unexpected auth header %q", r.Header.Get("Authorization"))
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Lead with curiosity."}, "finish_reason": "stop"}]
		}`)
	}))
	defer ts.Close()

	c := NewOpenAIClient(config.ProviderConfig{APIKey: "sk-test", Model: "gpt-4o"}, ts.URL+"/")
	text, err := c.Complete(context.Background(), "persona", "situation", 700)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "Lead with curiosity." {
		t.Errorf("Unexpected text %q", text)
	}

	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("Expected system and user messages, got %v", body["messages"])
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("Expected first message to be system, got %v", first["role"])
	}
	if body["max_completion_tokens"] != float64(700) {
		t.Errorf("Unexpected max_completion_tokens %v", body["max_completion_tokens"])
	}
}

func toJSON(v any) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
