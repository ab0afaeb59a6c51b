package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/bookgest/internal/config"
	"golang.org/x/time/rate"
)

// Completer is the single-operation boundary the analyzer depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client calls a DeepSeek-compatible chat-completions endpoint.
// Each Complete call makes up to MaxRetries attempts with the configured
// backoff; exhaustion returns the last error, never a panic.
type Client struct {
	apiKey      string
	apiURL      string
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int

	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    BackoffPolicy
	log        *slog.Logger

	Stats *Stats
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		apiKey:      cfg.DeepseekAPIKey,
		apiURL:      cfg.DeepseekAPIURL,
		model:       cfg.DeepseekModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTok,
		maxRetries:  cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		backoff: PolicyFromConfig(cfg),
		log:     log,
		Stats:   NewStats(time.Hour),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

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
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the prompt as a single-turn user message and returns the
// raw text content of the first choice. Transient failures are retried with
// the configured backoff; the error after exhaustion carries the last cause.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoff.Delay(attempt-1)); err != nil {
				return "", err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		c.log.Info("calling completion api", "attempt", attempt+1, "max_attempts", c.maxRetries)

		start := time.Now()
		content, err := c.complete(ctx, prompt)
		if err == nil {
			c.Stats.Record(time.Since(start).Milliseconds())
			return content, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			c.log.Error("completion failed", "attempt", attempt+1, "error", err)
			return "", err
		}
		c.log.Warn("completion attempt failed", "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &RetryableError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &RetryableError{Message: "read response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response: no choices")
	}

	return apiResp.Choices[0].Message.Content, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
