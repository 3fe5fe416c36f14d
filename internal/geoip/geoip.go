// Package geoip resolves client IPs to ISO country codes. Lookups are
// best-effort: verification proceeds with an empty country when a lookup
// fails.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Resolver resolves an IP address to an ISO 3166-1 alpha-2 country code.
type Resolver interface {
	Country(ctx context.Context, ip string) (string, error)
}

// Client queries an ip-api style HTTP endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// New creates a client for the given endpoint. The IP is appended as a
// path segment, e.g. endpoint "http://ip-api.com/json" and IP "1.2.3.4"
// query "http://ip-api.com/json/1.2.3.4".
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// lookupResponse is the subset of the ip-api response we care about.
type lookupResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
}

// Country looks up the country code for an IP.
func (c *Client) Country(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return "", fmt.Errorf("building geoip request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geoip lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geoip lookup: unexpected status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding geoip response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return "", fmt.Errorf("geoip lookup failed for %s", ip)
	}

	return strings.ToUpper(body.CountryCode), nil
}

// Static is a map-backed resolver used when no endpoint is configured and
// in tests. Unknown IPs resolve to the empty country.
type Static struct {
	countries map[string]string
}

// NewStatic creates a static resolver from an IP-to-country map.
func NewStatic(countries map[string]string) *Static {
	if countries == nil {
		countries = map[string]string{}
	}
	return &Static{countries: countries}
}

// LoadStatic creates a static resolver from a JSON file mapping IPs to
// country codes.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading geoip shim file: %w", err)
	}
	var countries map[string]string
	if err := json.Unmarshal(data, &countries); err != nil {
		return nil, fmt.Errorf("parsing geoip shim file: %w", err)
	}
	return NewStatic(countries), nil
}

// Country resolves from the static map.
func (s *Static) Country(_ context.Context, ip string) (string, error) {
	return strings.ToUpper(s.countries[ip]), nil
}
