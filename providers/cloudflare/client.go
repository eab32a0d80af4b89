// Package cloudflare implements the woven provider interface for Cloudflare
// DNS, backed by the official cloudflare-go/v6 SDK.
package cloudflare

import (
	"context"
	"fmt"
	"strings"
	"sync"

	cf "github.com/cloudflare/cloudflare-go/v6"
	"github.com/cloudflare/cloudflare-go/v6/option"
	"github.com/cloudflare/cloudflare-go/v6/zones"
)

// Client wraps the Cloudflare API client with zone ID resolution and
// caching, since the provider interface deals in hostnames while the API
// deals in zone IDs.
type Client struct {
	api         *cf.Client
	zoneCache   map[string]string // zone name -> zone ID
	zonesLoaded bool
	zoneCacheMu sync.RWMutex
}

// NewClient creates a new Cloudflare API client authenticated with an API token.
func NewClient(token string) *Client {
	return &Client{
		api:       cf.NewClient(option.WithAPIToken(token)),
		zoneCache: make(map[string]string),
	}
}

// API returns the underlying cloudflare-go client for callers that need the
// full SDK surface (used by the tunnel provider, which shares this client).
func (c *Client) API() *cf.Client {
	return c.api
}

// GetZoneID resolves the zone ID for a hostname by loading and caching every
// zone visible to this token, then matching the longest suffix.
func (c *Client) GetZoneID(ctx context.Context, hostname string) (string, error) {
	if err := c.loadZones(ctx); err != nil {
		return "", err
	}

	c.zoneCacheMu.RLock()
	defer c.zoneCacheMu.RUnlock()

	_, zoneID := c.matchZoneForHostname(hostname)
	if zoneID == "" {
		return "", fmt.Errorf("no matching zone found for hostname: %s", hostname)
	}
	return zoneID, nil
}

func (c *Client) loadZones(ctx context.Context) error {
	c.zoneCacheMu.RLock()
	if c.zonesLoaded {
		c.zoneCacheMu.RUnlock()
		return nil
	}
	c.zoneCacheMu.RUnlock()

	c.zoneCacheMu.Lock()
	defer c.zoneCacheMu.Unlock()
	if c.zonesLoaded {
		return nil
	}

	zoneList, err := c.api.Zones.List(ctx, zones.ZoneListParams{})
	if err != nil {
		return fmt.Errorf("listing zones: %w", err)
	}
	for _, z := range zoneList.Result {
		c.zoneCache[z.Name] = z.ID
	}
	c.zonesLoaded = true
	return nil
}

// matchZoneForHostname walks hostname labels to find the longest matching
// zone name. Must be called with zoneCacheMu held.
func (c *Client) matchZoneForHostname(hostname string) (name, id string) {
	hostname = strings.TrimSuffix(hostname, ".")
	candidate := hostname
	for candidate != "" {
		if zoneID, ok := c.zoneCache[candidate]; ok {
			return candidate, zoneID
		}
		idx := strings.Index(candidate, ".")
		if idx < 0 {
			break
		}
		candidate = candidate[idx+1:]
	}
	return "", ""
}

// InvalidateZoneCache forces the next GetZoneID call to reload zones.
func (c *Client) InvalidateZoneCache() {
	c.zoneCacheMu.Lock()
	defer c.zoneCacheMu.Unlock()
	c.zoneCache = make(map[string]string)
	c.zonesLoaded = false
}

// Validate verifies the API token is valid and active.
func (c *Client) Validate(ctx context.Context) error {
	result, err := c.api.User.Tokens.Verify(ctx)
	if err != nil {
		if _, zoneErr := c.api.Zones.List(ctx, zones.ZoneListParams{}); zoneErr != nil {
			return fmt.Errorf("credential validation failed: %w", err)
		}
		return nil
	}
	if result.Status != "active" {
		return fmt.Errorf("token is not active: status=%s", result.Status)
	}
	return nil
}
