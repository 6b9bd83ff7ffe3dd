package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultEndpoint = "https://api.postcodes.io"

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Client resolves postcodes to coordinates. A nil result with a nil error
// means the lookup service has no answer for the postcode.
type Client interface {
	Lookup(ctx context.Context, postcode string) (*Coordinates, error)
}

// HTTPClient talks to a postcodes.io compatible API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type postcodeResponse struct {
	Status int `json:"status"`
	Result *struct {
		Postcode  string  `json:"postcode"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"result"`
}

func (c *HTTPClient) Lookup(ctx context.Context, postcode string) (*Coordinates, error) {
	cleaned := Clean(postcode)
	if cleaned == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/postcodes/%s", c.baseURL, url.PathEscape(cleaned))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var body postcodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if body.Result == nil {
		return nil, nil
	}

	return &Coordinates{
		Latitude:  body.Result.Latitude,
		Longitude: body.Result.Longitude,
	}, nil
}

// Clean removes whitespace and upper-cases a postcode ("sw1a 1aa" -> "SW1A1AA").
func Clean(postcode string) string {
	return strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
}

// NoopClient never resolves anything. Used when geocoding is disabled.
type NoopClient struct{}

func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

func (c *NoopClient) Lookup(ctx context.Context, postcode string) (*Coordinates, error) {
	return nil, nil
}
