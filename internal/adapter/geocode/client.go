// Package geocode resolves outage centers to place names through the
// geocode.maps.co reverse geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
	"github.com/couchcryptid/outage-alert-etl/internal/observability"
)

const defaultBaseURL = "https://geocode.maps.co"

// Client implements domain.Geocoder using the maps.co reverse endpoint. The
// free tier allows about one request per second, so calls wait on a limiter;
// repeated failures open a circuit breaker so a dead API does not slow every
// alert.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[domain.Place]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a maps.co geocoding client. ratePerSecond <= 0 disables limiting.
func NewClient(apiKey string, timeout time.Duration, ratePerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(limit, 1),
		breaker: newBreaker(logger),
		metrics: metrics,
		logger:  logger,
	}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker[domain.Place] {
	return gobreaker.NewCircuitBreaker[domain.Place](gobreaker.Settings{
		Name:    "geocode",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// ReverseGeocode converts coordinates to place details. An empty Place with a
// nil error means the API knew nothing about the location.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Place{}, fmt.Errorf("geocode rate limit: %w", err)
	}

	place, err := c.breaker.Execute(func() (domain.Place, error) {
		return c.doRequest(ctx, lat, lon)
	})
	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.Place{}, fmt.Errorf("geocode unavailable: %w", err)
		}
		return domain.Place{}, err
	case place.IsZero():
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return place, nil
}

func (c *Client) doRequest(ctx context.Context, lat, lon float64) (domain.Place, error) {
	params := url.Values{
		"lat":     {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":     {strconv.FormatFloat(lon, 'f', -1, 64)},
		"api_key": {c.apiKey},
	}
	fullURL := c.baseURL + "/reverse?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.Place{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Place{}, fmt.Errorf("maps.co API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return domain.Place{}, fmt.Errorf("decode response: %w", err)
	}

	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}
	state, ok := StateAbbreviation(r.Address.State)
	if !ok && r.Address.State != "" {
		c.logger.Debug("unrecognized state name", "state", r.Address.State)
	}
	return domain.Place{
		Suburb: r.Address.Suburb,
		City:   city,
		State:  state,
	}, nil
}

// maps.co API response types.

type response struct {
	Address address `json:"address"`
}

type address struct {
	Suburb string `json:"suburb"`
	City   string `json:"city"`
	Town   string `json:"town"`
	State  string `json:"state"`
}

var stateAbbreviations = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
	"american samoa": "AS", "guam": "GU", "northern mariana islands": "MP",
	"puerto rico": "PR", "u.s. virgin islands": "VI",
}

// StateAbbreviation maps a full US state or territory name to its USPS code,
// case-insensitively.
func StateAbbreviation(name string) (string, bool) {
	abbr, ok := stateAbbreviations[strings.ToLower(strings.TrimSpace(name))]
	return abbr, ok
}
