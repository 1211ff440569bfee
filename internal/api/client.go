// Package api talks to the companion web service: party roster lookups and
// exported combat log uploads.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmhelper/extension/pkg/core"
)

// Client handles communication with the companion web service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the web service is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

type partyMember struct {
	ID   core.CombatantID `json:"id"`
	Name string           `json:"name"`
}

// Roster fetches the current party from GET /party.
// The response is a JSON array of {"id", "name"} objects.
func (c *Client) Roster(ctx context.Context) ([]core.RosterMember, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/party", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster returned status %d", resp.StatusCode)
	}

	var party []partyMember
	if err := json.NewDecoder(resp.Body).Decode(&party); err != nil {
		return nil, fmt.Errorf("failed to decode roster: %w", err)
	}

	members := make([]core.RosterMember, 0, len(party))
	for _, p := range party {
		if p.Name == "" {
			continue
		}
		members = append(members, core.RosterMember{ID: p.ID, Name: p.Name})
	}
	return members, nil
}

// Upload sends an exported combat log to the web service.
func (c *Client) Upload(filePath string, meta core.UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer writer.Close()

		_ = writer.WriteField("secret", c.apiKey)
		_ = writer.WriteField("filename", filepath.Base(filePath))
		_ = writer.WriteField("sessionName", meta.SessionName)
		_ = writer.WriteField("dm", meta.DM)
		_ = writer.WriteField("tag", meta.Tag)
		_ = writer.WriteField("entries", strconv.Itoa(meta.Entries))
		_ = writer.WriteField("defeated", strconv.Itoa(meta.Defeated))
		_ = writer.WriteField("downed", strconv.Itoa(meta.Downed))
		_ = writer.WriteField("duration", fmt.Sprintf("%f", meta.Duration.Seconds()))

		part, err := writer.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			errCh <- fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			errCh <- fmt.Errorf("failed to copy file: %w", err)
			return
		}
		errCh <- nil
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/sessions/add", pr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return writeErr
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}
