package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ai-docqa-be/pkg/apperr"

	readability "github.com/go-shiori/go-readability"
)

const maxPageBytes = 10 << 20

// WebExtractor fetches a page and keeps its readable article text.
type WebExtractor struct {
	Client    *http.Client
	UserAgent string
}

func NewWebExtractor(timeout time.Duration) *WebExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebExtractor{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: "ai-docqa-be/1.0",
	}
}

func (e *WebExtractor) Extract(ctx context.Context, link string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.Input(fmt.Sprintf("Invalid URL: %s", link))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.UserAgent)

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", apperr.Transport("fetch page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperr.Transport("fetch page", fmt.Errorf("status %d for %s", resp.StatusCode, u))
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), u)
	if err != nil {
		return "", apperr.Malformed("fetch page", "page has no readable content", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", apperr.Input(fmt.Sprintf("No readable text found at %s", link))
	}
	if title := strings.TrimSpace(article.Title); title != "" && !strings.HasPrefix(text, title) {
		text = title + "\n" + text
	}
	return text, nil
}
