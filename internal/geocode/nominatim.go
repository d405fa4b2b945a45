package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/woozymasta/geopro/internal/config"
)

// Nominatim is a client for the Nominatim reverse endpoint.
type Nominatim struct {
	Endpoint  string
	UserAgent string
	Language  string
	Client    *http.Client

	// Limiter paces requests; nil means unlimited.
	Limiter *rate.Limiter
}

// NewNominatim creates a client from the geocoder configuration. A zero
// rate limit leaves requests unpaced.
func NewNominatim(cfg config.Geocoder) *Nominatim {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Nominatim{
		Endpoint:  cfg.Endpoint,
		UserAgent: cfg.UserAgent,
		Language:  cfg.Language,
		Client:    &http.Client{Timeout: cfg.Timeout},
		Limiter:   rate.NewLimiter(limit, 1),
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Reverse returns the display name of the place at lat, lon. It waits for
// the limiter first and fails with ErrThrottled when the wait would outlast
// ctx.
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	if n.Limiter != nil {
		if err := n.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", ErrThrottled, err)
		}
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if n.Language != "" {
		q.Set("accept-language", n.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	if n.UserAgent != "" {
		req.Header.Set("User-Agent", n.UserAgent)
	}

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nominatim: unexpected status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("nominatim: decode: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("nominatim: %s", body.Error)
	}
	if body.DisplayName == "" {
		return "", errors.New("nominatim: empty display name")
	}

	return body.DisplayName, nil
}
