// Package sink submits finished scans to a report-archive service.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/repowatch/repowatch/internal/archive"
	"github.com/repowatch/repowatch/internal/types"
)

const SchemaVersion = "1"

// ScansPath is the archive endpoint reports are posted to.
const ScansPath = "/api/scans"

// Report is the JSON body of a submission.
type Report struct {
	Tool         string           `json:"tool,omitempty"`
	Version      string           `json:"version,omitempty"`
	Schema       string           `json:"schema_version,omitempty"`
	Repo         string           `json:"repo"`
	Source       types.SourceKind `json:"source"`
	Locator      string           `json:"locator,omitempty"`
	Commit       string           `json:"commit,omitempty"`
	Branch       string           `json:"branch,omitempty"`
	FilesScanned int              `json:"files_scanned,omitempty"`
	Findings     []types.Finding  `json:"findings"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Ack is the archive's reply to a submission.
type Ack struct {
	OK     bool           `json:"ok"`
	ID     string         `json:"id,omitempty"`
	Totals archive.Totals `json:"totals"`
	Error  string         `json:"error,omitempty"`
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New returns a client for the archive at baseURL. An empty token sends no
// Authorization header.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Submit posts the report once. There is no retry; callers treat a failure as
// a warning.
func (c *Client) Submit(ctx context.Context, r Report) (Ack, error) {
	if c.BaseURL == "" {
		return Ack{}, errors.New("sink: no server URL configured")
	}
	if r.Tool == "" {
		r.Tool = "repowatch"
	}
	if r.Schema == "" {
		r.Schema = SchemaVersion
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.Findings == nil {
		r.Findings = []types.Finding{}
	}
	body, err := json.Marshal(r)
	if err != nil {
		return Ack{}, fmt.Errorf("sink: encode report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+ScansPath, bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("sink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Ack{}, fmt.Errorf("sink: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Ack{}, fmt.Errorf("sink: read response: %w", err)
	}
	var ack Ack
	decodeErr := json.Unmarshal(raw, &ack)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && ack.Error != "" {
			return ack, fmt.Errorf("sink: status %d: %s", resp.StatusCode, ack.Error)
		}
		return Ack{}, fmt.Errorf("sink: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return Ack{}, fmt.Errorf("sink: decode ack: %w", decodeErr)
	}
	return ack, nil
}

// List returns the archived scans, newest first.
func (c *Client) List(ctx context.Context) ([]archive.Record, error) {
	var out struct {
		Scans []archive.Record `json:"scans"`
	}
	if err := c.get(ctx, ScansPath, &out); err != nil {
		return nil, err
	}
	return out.Scans, nil
}

// Totals returns the archive-wide counters.
func (c *Client) Totals(ctx context.Context) (archive.Totals, error) {
	var out struct {
		Totals archive.Totals `json:"totals"`
	}
	if err := c.get(ctx, "/api/totals", &out); err != nil {
		return archive.Totals{}, err
	}
	return out.Totals, nil
}

func (c *Client) get(ctx context.Context, path string, into any) error {
	if c.BaseURL == "" {
		return errors.New("sink: no server URL configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("sink: build request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sink: GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(into); err != nil {
		return fmt.Errorf("sink: decode %s: %w", path, err)
	}
	return nil
}
