// Package unifi implements the woven provider interface for UniFi Network
// Controller static DNS entries, via its undocumented but stable REST API.
// There is no official Go SDK for UniFi's controller, so this is a thin
// net/http client in the idiom of providers/pihole's v6 session-based client.
package unifi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// staticDNSRecord mirrors a UniFi "Static DNS" entry under
// /proxy/network/v2/api/site/{site}/static-dns.
type staticDNSRecord struct {
	ID         string `json:"_id,omitempty"`
	Key        string `json:"key"`             // Record type: "A", "AAAA", "CNAME", "TXT", "SRV"
	RecordType string `json:"record_type"`     // Same as Key, some controller versions duplicate this
	Name       string `json:"key_value"`       // hostname/record name (unifi's own field naming is inconsistent across versions)
	Value      string `json:"value"`           // Target: IP, hostname, or text
	TTL        int    `json:"ttl,omitempty"`
	Enabled    bool   `json:"enabled"`
	Priority   int    `json:"priority,omitempty"`
	Weight     int    `json:"weight,omitempty"`
	Port       int    `json:"port,omitempty"`
}

// Client handles HTTP communication with a UniFi Network Controller.
type Client struct {
	baseURL    string
	username   string
	password   string
	site       string
	httpClient *http.Client
	logger     *slog.Logger

	mu           sync.Mutex
	cookie       string
	csrfToken    string
	authedAt     time.Time
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client (for testing, or custom TLS config).
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient creates a new UniFi controller client.
func NewClient(cfg *Config, opts ...ClientOption) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if cfg.InsecureTLS {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in for self-signed on-prem controllers
		}
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		site:       cfg.Site,
		httpClient: httpClient,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// sessionMaxAge is how long a controller login cookie is assumed valid
// before re-authenticating proactively.
const sessionMaxAge = 55 * time.Minute

func (c *Client) authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cookie != "" && time.Since(c.authedAt) < sessionMaxAge {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return fmt.Errorf("marshaling login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("login failed: status %d: %s", resp.StatusCode, string(body))
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "TOKEN" || cookie.Name == "unifises" {
			c.cookie = cookie.Name + "=" + cookie.Value
		}
	}
	c.csrfToken = resp.Header.Get("X-CSRF-Token")
	c.authedAt = time.Now()

	if c.cookie == "" {
		return fmt.Errorf("login succeeded but no session cookie was returned")
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if err := c.authenticate(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.Lock()
	req.Header.Set("Cookie", c.cookie)
	if c.csrfToken != "" {
		req.Header.Set("X-CSRF-Token", c.csrfToken)
	}
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unifi API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func (c *Client) staticDNSPath(suffix string) string {
	return fmt.Sprintf("/proxy/network/v2/api/site/%s/static-dns%s", c.site, suffix)
}

// List returns every static DNS entry configured on the controller.
func (c *Client) List(ctx context.Context) ([]staticDNSRecord, error) {
	var records []staticDNSRecord
	if err := c.do(ctx, http.MethodGet, c.staticDNSPath(""), nil, &records); err != nil {
		return nil, fmt.Errorf("listing static DNS records: %w", err)
	}
	return records, nil
}

// Create adds a new static DNS entry.
func (c *Client) Create(ctx context.Context, rec staticDNSRecord) error {
	rec.Enabled = true
	if err := c.do(ctx, http.MethodPost, c.staticDNSPath(""), rec, nil); err != nil {
		return fmt.Errorf("creating static DNS record: %w", err)
	}
	return nil
}

// Delete removes a static DNS entry by its controller-assigned ID.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.staticDNSPath("/"+id), nil, nil); err != nil {
		return fmt.Errorf("deleting static DNS record: %w", err)
	}
	return nil
}

// Ping verifies connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.List(ctx)
	return err
}
