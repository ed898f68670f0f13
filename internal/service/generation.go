package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/shotrank/internal/config"
	"github.com/timmy/shotrank/internal/prompts"
	"golang.org/x/time/rate"
)

// listMarker matches a leading bullet or "1." / "2)" numbering, never the
// phrase's own digits.
var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

const (
	maxGeneratedExpansions = 6
	defaultGenerationURL   = "https://api.openai.com/v1"
)

// ErrGenerationDisabled is returned by a disabled Generator.
var ErrGenerationDisabled = errors.New("expansion generation is disabled")

// Generator writes visual-pattern expansions for an abstract term.
type Generator interface {
	// Model returns the model identifier recorded on cached expansions.
	Model() string
	// Generate returns up to six short phrases describing how term looks.
	Generate(ctx context.Context, term, category string) ([]string, error)
}

// LLMGenerator implements Generator with an OpenAI-compatible chat
// completions endpoint.
type LLMGenerator struct {
	client   *resty.Client
	model    string
	endpoint string
	enabled  bool
	limiter  *rate.Limiter
}

// NewLLMGenerator creates a generator from configuration. A disabled config
// yields a generator that always returns ErrGenerationDisabled.
// Parameters:
//   - cfg: generation configuration.
// Returns:
//   - *LLMGenerator: configured generator.
func NewLLMGenerator(cfg *config.GenerationConfig) *LLMGenerator {
	if cfg == nil || !cfg.Enabled {
		return &LLMGenerator{enabled: false}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGenerationURL
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &LLMGenerator{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
		enabled:  true,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Model returns the configured model name.
func (g *LLMGenerator) Model() string {
	return g.model
}

// IsEnabled returns whether generation is enabled.
func (g *LLMGenerator) IsEnabled() bool {
	return g.enabled
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate asks the LLM for visual expansions of term.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - term: normalized abstract term.
//   - category: optional domain context.
// Returns:
//   - []string: trimmed, deduplicated phrases, at most six.
//   - error: non-nil if the call fails or yields nothing usable.
func (g *LLMGenerator) Generate(ctx context.Context, term, category string) ([]string, error) {
	if !g.enabled {
		return nil, ErrGenerationDisabled
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.ExpansionSystemPrompt},
			{Role: "user", Content: prompts.ExpansionUserPrompt(term, category)},
		},
		MaxTokens:   300,
		Temperature: 0.3,
	}

	var resp chatResponse
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(g.endpoint)

	if err != nil {
		return nil, fmt.Errorf("expansion API call failed: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return nil, fmt.Errorf("expansion API error: %s", resp.Error.Message)
		}
		return nil, fmt.Errorf("expansion API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("expansion API returned no choices")
	}

	phrases := parseExpansions(resp.Choices[0].Message.Content)
	if len(phrases) == 0 {
		return nil, fmt.Errorf("expansion API returned no usable phrases")
	}
	return phrases, nil
}

// parseExpansions accepts a JSON array (optionally inside a code fence) or
// one phrase per line with list markers.
func parseExpansions(content string) []string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []string
	if start, end := strings.Index(content, "["), strings.LastIndex(content, "]"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
			raw = nil
		}
	}
	if raw == nil {
		for _, line := range strings.Split(content, "\n") {
			line = strings.TrimSpace(line)
			line = listMarker.ReplaceAllString(line, "")
			raw = append(raw, line)
		}
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, maxGeneratedExpansions)
	for _, phrase := range raw {
		phrase = strings.Trim(strings.TrimSpace(phrase), `"'`)
		if phrase == "" {
			continue
		}
		key := strings.ToLower(phrase)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, phrase)
		if len(out) == maxGeneratedExpansions {
			break
		}
	}
	return out
}
