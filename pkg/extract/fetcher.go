package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher retrieves page HTML and image bytes.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxPageBytes int64
	maxImgBytes  int64
}

// FetcherConfig configures the HTTP fetcher
type FetcherConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	MaxPageBytes int64
	MaxImgBytes  int64
}

// DefaultFetcherConfig returns default fetcher configuration
func DefaultFetcherConfig() *FetcherConfig {
	return &FetcherConfig{
		UserAgent:    "altbridge/1.0 (Alt Text Companion)",
		Timeout:      30 * time.Second,
		MaxRedirects: 10,
		MaxPageBytes: 10 * 1024 * 1024,
		MaxImgBytes:  20 * 1024 * 1024,
	}
}

// NewFetcher creates a new fetcher
func NewFetcher(cfg *FetcherConfig) *Fetcher {
	if cfg == nil {
		cfg = DefaultFetcherConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:       100,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("too many redirects (max %d)", cfg.MaxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{
		client:       client,
		userAgent:    cfg.UserAgent,
		maxPageBytes: cfg.MaxPageBytes,
		maxImgBytes:  cfg.MaxImgBytes,
	}
}

// pageStatusError is a reachable page answering with a non-success
// status. It never triggers the transport retry.
type pageStatusError struct {
	status string
}

func (e *pageStatusError) Error() string {
	return fmt.Sprintf("page returned %s", e.status)
}

// FetchPage retrieves the HTML of a page. A transport failure gets exactly
// one automatic retry, mirroring the single re-injection attempt a browser
// extension would make when its page listener is not yet registered; a
// second failure is reported as a connection error advising a reload.
// A non-success HTTP status means the page was reached, so it is surfaced
// as-is without a retry.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", &ExtractError{
			Type:       ErrInvalidURL,
			Message:    fmt.Sprintf("invalid page URL: %s", rawURL),
			Suggestion: "Provide a full URL including http:// or https://",
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", &ExtractError{
			Type:    ErrInvalidURL,
			Message: fmt.Sprintf("unsupported URL scheme: %s", parsed.Scheme),
		}
	}

	html, err := f.fetchPageOnce(ctx, rawURL)
	if err == nil {
		return html, nil
	}
	var statusErr *pageStatusError
	if errors.As(err, &statusErr) {
		return "", &ExtractError{
			Type:    ErrConnection,
			Message: statusErr.Error(),
		}
	}
	if ctx.Err() != nil {
		return "", err
	}

	// One retry, then give up.
	html, retryErr := f.fetchPageOnce(ctx, rawURL)
	if retryErr == nil {
		return html, nil
	}
	if errors.As(retryErr, &statusErr) {
		return "", &ExtractError{
			Type:    ErrConnection,
			Message: statusErr.Error(),
		}
	}

	return "", &ExtractError{
		Type:       ErrConnection,
		Message:    fmt.Sprintf("could not reach the page: %v", retryErr),
		Suggestion: "Reload the page and try again",
	}
}

func (f *Fetcher) fetchPageOnce(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &pageStatusError{status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxPageBytes))
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// FetchImage retrieves raw image bytes. Failures map to ErrImageLoad, the
// equivalent of a canvas image failing to load cross-origin.
func (f *Fetcher) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", &ExtractError{
			Type:    ErrInvalidURL,
			Message: fmt.Sprintf("invalid image URL: %s", rawURL),
		}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", &ExtractError{
			Type:    ErrImageLoad,
			Message: fmt.Sprintf("failed to load image: %v", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &ExtractError{
			Type:    ErrImageLoad,
			Message: fmt.Sprintf("failed to load image: server returned %s", resp.Status),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxImgBytes))
	if err != nil {
		return nil, "", &ExtractError{
			Type:    ErrImageLoad,
			Message: fmt.Sprintf("failed to read image data: %v", err),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}

	return data, strings.TrimSpace(contentType), nil
}
