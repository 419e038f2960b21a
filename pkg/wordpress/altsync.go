package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AltSyncError is a non-success response from the AltSync plugin.
type AltSyncError struct {
	StatusCode int
	Message    string
}

func (e *AltSyncError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("AltSync API error: %d", e.StatusCode)
	}
	return fmt.Sprintf("AltSync API error: %d - %s", e.StatusCode, e.Message)
}

// AltSyncStatus describes plugin availability on the site.
type AltSyncStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
}

// AltSyncResult is the outcome of a site-wide sync.
type AltSyncResult struct {
	Updated int    `json:"updated"`
	Message string `json:"message"`
}

// ProbeAltSync checks whether the companion plugin is installed. The
// probe fails open: any transport error or non-success status means
// "unavailable", never an error the user sees.
func (c *Client) ProbeAltSync(ctx context.Context) AltSyncStatus {
	endpoint := c.siteURL + "/wp-json/altsync/v1/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return AltSyncStatus{}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AltSyncStatus{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return AltSyncStatus{}
	}

	var status struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return AltSyncStatus{}
	}

	return AltSyncStatus{Available: true, Version: status.Version}
}

// SyncImage asks the plugin to propagate the attachment's alt text to
// every page referencing the image. The sync mode controls how
// aggressively existing alt text elsewhere is overwritten.
func (c *Client) SyncImage(ctx context.Context, mediaID int, syncMode string) (*AltSyncResult, error) {
	if mediaID == 0 {
		return nil, ErrMediaNotFound
	}

	payload, err := json.Marshal(map[string]interface{}{
		"attachment_id": mediaID,
		"sync_mode":     syncMode,
	})
	if err != nil {
		return nil, err
	}

	endpoint := c.siteURL + "/wp-json/altsync/v1/sync-image"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.appPasswd)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AltSyncError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var result AltSyncResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse sync response: %w", err)
	}

	return &result, nil
}
