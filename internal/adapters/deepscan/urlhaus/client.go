// Package urlhaus checks the links of an email against the abuse.ch URLhaus
// database.
package urlhaus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/deepscan"
	"github.com/mikey/phishguard/internal/core"
)

// DefaultEndpoint is the URLhaus URL lookup API.
const DefaultEndpoint = "https://urlhaus-api.abuse.ch/v1/url/"

// maxLinks bounds the lookups made for one email.
const maxLinks = 5

type lookup struct {
	QueryStatus string `json:"query_status"`
	URLStatus   string `json:"url_status"`
	Threat      string `json:"threat"`
}

// Client queries URLhaus.
type Client struct {
	http     *http.Client
	endpoint string
	authKey  string
	logger   *zap.Logger
}

// NewClient creates a URLhaus scanner. An empty endpoint uses DefaultEndpoint.
func NewClient(endpoint, authKey string, httpClient *http.Client, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: httpClient, endpoint: endpoint, authKey: authKey, logger: logger}
}

// Name identifies the provider
func (c *Client) Name() string {
	return "urlhaus"
}

// Scan looks up each http(s) link. The email is malicious when any link is
// known to URLhaus.
func (c *Client) Scan(ctx context.Context, email core.EmailData, _ core.AnalysisResult) (*core.DeepScanReport, error) {
	var links []string
	for _, l := range email.Links {
		lower := strings.ToLower(l)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			links = append(links, l)
		}
		if len(links) == maxLinks {
			break
		}
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: no links to check", deepscan.ErrSkipped)
	}

	var hits []string
	for _, link := range links {
		res, err := c.lookup(ctx, link)
		if err != nil {
			return nil, err
		}
		if res.QueryStatus == "ok" {
			hit := link
			if res.Threat != "" {
				hit += " (" + res.Threat + ")"
			}
			hits = append(hits, hit)
		}
	}

	report := &core.DeepScanReport{
		Provider:    c.Name(),
		Malicious:   len(hits) > 0,
		Confidence:  1,
		Explanation: fmt.Sprintf("%d link(s) checked, none known to URLhaus", len(links)),
		ScannedAt:   time.Now().UTC(),
	}
	if report.Malicious {
		report.Score = 100
		report.Explanation = "Known malicious links: " + strings.Join(hits, ", ")
	}
	return report, nil
}

func (c *Client) lookup(ctx context.Context, link string) (*lookup, error) {
	form := url.Values{"url": {link}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build URLhaus request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.authKey != "" {
		req.Header.Set("Auth-Key", c.authKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query URLhaus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("URLhaus returned status %d", resp.StatusCode)
	}

	var out lookup
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode URLhaus response: %w", err)
	}
	c.logger.Debug("URLhaus lookup",
		zap.String("url", link),
		zap.String("query_status", out.QueryStatus))
	return &out, nil
}
