package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/timmy/shotrank/internal/config"
)

func TestParseExpansions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "json array",
			content: `["warm beige palette", "soft rounded typography"]`,
			want:    []string{"warm beige palette", "soft rounded typography"},
		},
		{
			name:    "fenced json",
			content: "```json\n[\"hand-drawn icons\"]\n```",
			want:    []string{"hand-drawn icons"},
		},
		{
			name:    "bullet lines",
			content: "- warm beige palette\n* soft lighting photos\n3. rounded corners",
			want:    []string{"warm beige palette", "soft lighting photos", "rounded corners"},
		},
		{
			name:    "keeps leading digits of phrases",
			content: "1. 3d rendered glossy shapes\n2) 1970s color palette with orange\n- 404 page illustrations\n1.5x zoomed hero",
			want:    []string{"3d rendered glossy shapes", "1970s color palette with orange", "404 page illustrations", "1.5x zoomed hero"},
		},
		{
			name:    "dedupes case-insensitively",
			content: `["Warm palette", "warm palette", " ", "wood textures"]`,
			want:    []string{"Warm palette", "wood textures"},
		},
		{
			name:    "caps at six",
			content: `["a","b","c","d","e","f","g","h"]`,
			want:    []string{"a", "b", "c", "d", "e", "f"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExpansions(tt.content)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("parseExpansions() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLLMGeneratorGenerate(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[\"warm beige palette\",\"soft rounded typography\"]"}}]}`))
	}))
	defer server.Close()

	gen := NewLLMGenerator(&config.GenerationConfig{
		Enabled: true,
		Model:   "gpt-test",
		APIKey:  "secret",
		BaseURL: server.URL,
	})

	phrases, err := gen.Generate(context.Background(), "cozy", "packaging")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(phrases) != 2 {
		t.Errorf("expected 2 phrases, got %v", phrases)
	}
	if gotReq.Model != "gpt-test" || len(gotReq.Messages) != 2 {
		t.Fatalf("unexpected request %+v", gotReq)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "packaging") {
		t.Errorf("category missing from prompt: %q", gotReq.Messages[1].Content)
	}
}

func TestLLMGeneratorErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	gen := NewLLMGenerator(&config.GenerationConfig{Enabled: true, Model: "m", BaseURL: server.URL})
	if _, err := gen.Generate(context.Background(), "cozy", ""); err == nil || !strings.Contains(err.Error(), "slow down") {
		t.Errorf("expected API error, got %v", err)
	}

	disabled := NewLLMGenerator(nil)
	if _, err := disabled.Generate(context.Background(), "cozy", ""); !errors.Is(err, ErrGenerationDisabled) {
		t.Errorf("expected ErrGenerationDisabled, got %v", err)
	}
}
