package route53

import (
	"context"
	"fmt"
	"strings"
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Client wraps the Route53 SDK client with hosted-zone ID resolution.
type Client struct {
	api *route53.Client

	zoneCacheMu sync.RWMutex
	zoneCache   map[string]string // zone name -> hosted zone ID (without "/hostedzone/" prefix)
	zonesLoaded bool
}

// NewClient builds a Route53 client for the given region, optionally using
// static credentials; when AccessKeyID/SecretAccessKey are empty, the
// default AWS credential chain (env vars, shared config, instance role) is
// used instead.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithAppID("woven"),
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awssdk.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Client{
		api:       route53.NewFromConfig(awsCfg),
		zoneCache: make(map[string]string),
	}, nil
}

// HostedZoneID resolves the hosted zone ID for a hostname (or bare zone
// name), caching the full zone list on first use and matching the longest
// suffix.
func (c *Client) HostedZoneID(ctx context.Context, hostname string) (string, error) {
	if err := c.loadZones(ctx); err != nil {
		return "", err
	}

	c.zoneCacheMu.RLock()
	defer c.zoneCacheMu.RUnlock()

	hostname = strings.TrimSuffix(hostname, ".")
	candidate := hostname
	for candidate != "" {
		if id, ok := c.zoneCache[candidate]; ok {
			return id, nil
		}
		idx := strings.Index(candidate, ".")
		if idx < 0 {
			break
		}
		candidate = candidate[idx+1:]
	}
	return "", fmt.Errorf("no hosted zone found for hostname: %s", hostname)
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

	paginator := route53.NewListHostedZonesPaginator(c.api, &route53.ListHostedZonesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing hosted zones: %w", err)
		}
		for _, z := range page.HostedZones {
			name := strings.TrimSuffix(awssdk.ToString(z.Name), ".")
			id := strings.TrimPrefix(awssdk.ToString(z.Id), "/hostedzone/")
			c.zoneCache[name] = id
		}
	}
	c.zonesLoaded = true
	return nil
}

// ListResourceRecordSets returns every record set in the hosted zone,
// paginating through StartRecordName/StartRecordType as needed.
func (c *Client) ListResourceRecordSets(ctx context.Context, hostedZoneID string) ([]r53types.ResourceRecordSet, error) {
	var out []r53types.ResourceRecordSet
	input := &route53.ListResourceRecordSetsInput{HostedZoneId: awssdk.String(hostedZoneID)}

	for {
		resp, err := c.api.ListResourceRecordSets(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("listing resource record sets: %w", err)
		}
		out = append(out, resp.ResourceRecordSets...)
		if !resp.IsTruncated {
			break
		}
		input.StartRecordName = resp.NextRecordName
		input.StartRecordType = resp.NextRecordType
		input.StartRecordIdentifier = resp.NextRecordIdentifier
	}

	return out, nil
}

// ChangeResourceRecordSets submits a single atomic batch of changes.
func (c *Client) ChangeResourceRecordSets(ctx context.Context, hostedZoneID string, changes []r53types.Change) error {
	if len(changes) == 0 {
		return nil
	}
	_, err := c.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: awssdk.String(hostedZoneID),
		ChangeBatch:  &r53types.ChangeBatch{Changes: changes},
	})
	if err != nil {
		return fmt.Errorf("changing resource record sets: %w", err)
	}
	return nil
}

// Ping verifies connectivity and credentials by listing hosted zones.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.ListHostedZones(ctx, &route53.ListHostedZonesInput{MaxItems: awssdk.Int32(1)})
	if err != nil {
		return fmt.Errorf("route53 ping failed: %w", err)
	}
	return nil
}
