// Package translate calls the DeepL v2 translate endpoint. Translation is a
// best-effort pass over report fields: after retries are exhausted the caller
// keeps the untranslated text, so a broken translation service degrades the
// report instead of aborting it.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/bookgest/internal/config"
)

type Client struct {
	apiKey     string
	apiURL     string
	targetLang string
	maxRetries int
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	return &Client{
		apiKey:     cfg.DeepLAPIKey,
		apiURL:     cfg.DeepLAPIURL,
		targetLang: cfg.TranslateLang,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// Translate converts text to the configured target language, retrying
// transient failures with exponential delay. The error after exhaustion
// carries the last cause; callers decide whether to degrade.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt)) * time.Second
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return "", ctx.Err()
			case <-t.C:
			}
		}

		c.log.Info("calling translation api", "attempt", attempt+1, "chars", len(text))

		out, err := c.translate(ctx, text)
		if err == nil {
			return out, nil
		}
		lastErr = err
		c.log.Warn("translation attempt failed", "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("translation failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) translate(ctx context.Context, text string) (string, error) {
	form := url.Values{
		"auth_key":            {c.apiKey},
		"text":                {text},
		"target_lang":         {c.targetLang},
		"preserve_formatting": {"1"},
		"split_sentences":     {"1"},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("deepl api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepl status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp deeplResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Translations) == 0 {
		return "", fmt.Errorf("empty translation response")
	}
	return apiResp.Translations[0].Text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
