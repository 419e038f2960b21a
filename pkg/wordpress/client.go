// Package wordpress talks to a WordPress site's REST API: media lookup,
// alt-text updates and the companion AltSync plugin endpoints.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrMediaNotFound is returned when an update or sync needs a media id
// and resolution came up empty.
var ErrMediaNotFound = errors.New("could not find media ID for this image")

// APIError is a non-success response from the WordPress REST API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("WordPress API error: %d", e.StatusCode)
	}
	return fmt.Sprintf("WordPress API error: %d - %s", e.StatusCode, e.Message)
}

// Client is a WordPress REST API client. Authenticated calls use an
// application password over basic auth; the client never carries cookies,
// so interactive login sessions on the same site cannot collide with
// application-password auth.
type Client struct {
	siteURL    string
	username   string
	appPasswd  string
	httpClient *http.Client
}

// Config holds WordPress client configuration.
type Config struct {
	SiteURL             string
	Username            string
	ApplicationPassword string
	Timeout             time.Duration
}

// NewClient creates a new WordPress client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		siteURL:   strings.TrimRight(cfg.SiteURL, "/"),
		username:  cfg.Username,
		appPasswd: cfg.ApplicationPassword,
		// No cookie jar: requests carry only the credentials we set.
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SiteURL returns the configured site base URL.
func (c *Client) SiteURL() string {
	return c.siteURL
}

// HasCredentials reports whether authenticated calls are possible.
func (c *Client) HasCredentials() bool {
	return c.siteURL != "" && c.username != "" && c.appPasswd != ""
}

// UpdateAltText sets the alt text of a media attachment.
func (c *Client) UpdateAltText(ctx context.Context, mediaID int, altText string) error {
	if mediaID == 0 {
		return ErrMediaNotFound
	}

	payload, err := json.Marshal(map[string]string{"alt_text": altText})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/wp-json/wp/v2/media/%d", c.siteURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.appPasswd)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("media update request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	return nil
}

// MediaItem is the subset of a media-library entry the resolver needs.
type MediaItem struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
}

// SearchMedia queries the media list by search term. The call is
// unauthenticated and cookie-free, matching how the media library is
// searched from a page the user merely views.
func (c *Client) SearchMedia(ctx context.Context, query string, perPage int) ([]MediaItem, error) {
	endpoint := fmt.Sprintf("%s/wp-json/wp/v2/media?search=%s&per_page=%d", c.siteURL, url.QueryEscape(query), perPage)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var items []MediaItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse media search response: %w", err)
	}

	return items, nil
}

// readErrorMessage pulls the human-readable message out of a WP error
// body, falling back to the raw body.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var wpErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &wpErr); err == nil && wpErr.Message != "" {
		return wpErr.Message
	}

	return strings.TrimSpace(string(data))
}
