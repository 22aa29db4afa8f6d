package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoogleProvider_Complete(t *testing.T) {
	var received geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing or wrong API key header")
		}
		if r.URL.Query().Get("key") != "" {
			t.Error("API key must not be sent in the query string")
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "{\"ok\":"}, {"text": "true}"}]}}],
			"usageMetadata": {"promptTokenCount": 8, "candidatesTokenCount": 12},
			"modelVersion": "gemini-test-001"
		}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL), WithGoogleModel("gemini-test"))

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "Answer in JSON."},
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
			{Role: "user", Content: "again"},
		},
		MaxTokens: 256,
		JSON:      true,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if received.SystemInstruction == nil || received.SystemInstruction.Parts[0].Text != "Answer in JSON." {
		t.Errorf("systemInstruction = %+v", received.SystemInstruction)
	}
	if len(received.Contents) != 3 || received.Contents[1].Role != "model" {
		t.Errorf("contents = %+v, want 3 turns with the assistant mapped to model", received.Contents)
	}
	cfg := received.GenerationConfig
	if cfg == nil || cfg.MaxOutputTokens != 256 || cfg.ResponseMIMEType != "application/json" {
		t.Errorf("generationConfig = %+v", cfg)
	}

	if resp.Content != `{"ok":true}` {
		t.Errorf("content = %q, want joined parts", resp.Content)
	}
	if resp.Provider != "google" || resp.Model != "gemini-test-001" {
		t.Errorf("provider/model = %s/%s", resp.Provider, resp.Model)
	}
	if resp.InputTokens != 8 || resp.OutputTokens != 12 {
		t.Errorf("tokens = %d/%d, want 8/12", resp.InputTokens, resp.OutputTokens)
	}
}

func TestGoogleProvider_Complete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusForbidden, `{"error": {"message": "API key not valid"}}`},
		{"no candidates", http.StatusOK, `{"candidates": []}`},
		{"bad json", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))
			_, err := provider.Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: "user", Content: "hello"}},
			})
			if err == nil {
				t.Fatal("Complete() should return error")
			}
		})
	}
}

func TestGoogleProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusForbidden, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("x-goog-api-key") != "test-key" {
					t.Error("health check should send the API key header")
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))
			err := provider.HealthCheck(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
