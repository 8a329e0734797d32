package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/docdex/docdex/internal/usecase/search"
)

func TestExtractIndexArray(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []int
		wantErr bool
	}{
		{"bare array", "[2, 0, 1]", []int{2, 0, 1}, false},
		{"prose around it", "The best order is: [1, 0]. Hope that helps!", []int{1, 0}, false},
		{"code fence", "```json\n[0, 2, 1]\n```", []int{0, 2, 1}, false},
		{"single element", "[0]", []int{0}, false},
		{"empty array", "[]", nil, true},
		{"no array", "I cannot rank these.", nil, true},
		{"unterminated", "[0, 1", nil, true},
		{"non-integer elements", `["a", "b"]`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractIndexArray(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractIndexArray: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractIndexArray(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestRerankUserMessage(t *testing.T) {
	msg := rerankUserMessage("user token", []search.Candidate{
		{Title: "User Login", Content: "Authenticates a user"},
		{Title: "User Logout", Content: "Invalidates the session"},
	})
	if !strings.Contains(msg, "Query: user token") {
		t.Errorf("message missing query: %q", msg)
	}
	if !strings.Contains(msg, "0. User Login") || !strings.Contains(msg, "1. User Logout") {
		t.Errorf("candidates not enumerated from 0: %q", msg)
	}
}

func chatCompletionServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system + user messages, got %d", len(req.Messages))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": ` +
			encodeJSONString(reply) + `}, "finish_reason": "stop"}]
		}`))
	}))
}

func encodeJSONString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestReranker_Rerank(t *testing.T) {
	server := chatCompletionServer(t, "Ranked: [2, 0, 1]")
	defer server.Close()

	r := NewReranker(&RerankerConfig{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})
	candidates := []search.Candidate{
		{Title: "a"}, {Title: "b"}, {Title: "c"},
	}
	perm, err := r.Rerank(context.Background(), "user token", candidates)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if !reflect.DeepEqual(perm, []int{2, 0, 1}) {
		t.Errorf("permutation = %v, want [2 0 1]", perm)
	}
}

func TestReranker_UnparseableResponse(t *testing.T) {
	server := chatCompletionServer(t, "I cannot rank these documents.")
	defer server.Close()

	r := NewReranker(&RerankerConfig{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})
	if _, err := r.Rerank(context.Background(), "q", []search.Candidate{{Title: "a"}}); err == nil {
		t.Fatal("expected error for prose-only response")
	}
}

func TestReranker_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := NewReranker(&RerankerConfig{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})
	if _, err := r.Rerank(context.Background(), "q", []search.Candidate{{Title: "a"}}); err == nil {
		t.Fatal("expected transport error")
	}
}
