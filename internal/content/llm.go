// internal/content/llm.go
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jason-s-yu/psykos/internal/metrics"
	"github.com/sirupsen/logrus"
)

const systemPrompt = "You write content for a party game. Keep it short and fun. " +
	"Use player names when the request mentions players. " +
	"Never include category names, labels or commentary; return only the content."

// LLMConfig points the provider at an OpenAI-compatible chat completions API.
type LLMConfig struct {
	BaseURL     string // e.g. https://api.groq.com/openai/v1
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// LLMProvider asks a chat model for prompts and falls back to canned content
// on any failure, so callers never see an error.
type LLMProvider struct {
	cfg        LLMConfig
	httpClient *http.Client
	fallback   *FallbackProvider
	logger     logrus.FieldLogger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewLLMProvider(cfg LLMConfig, fallback *FallbackProvider, logger logrus.FieldLogger) *LLMProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 100
	}
	if fallback == nil {
		fallback = NewFallbackProvider()
	}
	return &LLMProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		fallback:   fallback,
		logger:     logger,
	}
}

// GeneratePrompt returns a cleaned model prompt, or fallback content if the
// model is unconfigured, slow, failing or returns nothing usable.
func (p *LLMProvider) GeneratePrompt(ctx context.Context, category string, names []string) string {
	if p.cfg.APIKey == "" || p.cfg.BaseURL == "" {
		metrics.RecordPromptRequest("fallback", 0)
		return p.fallback.GeneratePrompt(ctx, category, names)
	}

	start := time.Now()
	text, err := p.complete(ctx, instructionFor(category, names))
	if err == nil {
		text = Clean(text)
		if text == "" {
			err = fmt.Errorf("model returned empty content")
		}
	}
	if err != nil {
		metrics.RecordPromptRequest("error", time.Since(start))
		p.logger.WithError(err).WithField("category", category).Warn("prompt generation failed, using fallback")
		return p.fallback.GeneratePrompt(ctx, category, names)
	}
	metrics.RecordPromptRequest("ok", time.Since(start))
	return text
}

func (p *LLMProvider) complete(ctx context.Context, instruction string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: instruction},
		},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model returned status %d: %s", resp.StatusCode, string(raw))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
