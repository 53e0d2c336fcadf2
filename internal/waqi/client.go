// Package waqi implements a client for the World Air Quality Index API
// (aqicn.org). It covers the per-station feed endpoint used by the sync
// pass and the station search endpoint used by city management.
package waqi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/daffaahh/HowsTheAir-be/internal/aqi"
)

var (
	// ErrRejected indicates the provider answered but did not return an
	// "ok" envelope (unknown station, bad token, over quota).
	ErrRejected = errors.New("waqi: request rejected by provider")
)

// Reading is one successful per-station measurement.
type Reading struct {
	AQI         int
	Category    string
	StationName string
	RecordedAt  time.Time
}

// SearchResult is one station entry from the search endpoint.
type SearchResult struct {
	UID  int64     `json:"uid"`
	Name string    `json:"name"`
	Geo  []float64 `json:"geo"`
	AQI  string    `json:"aqi"`
}

// Client talks to the WAQI HTTP API. Outbound calls go through a circuit
// breaker so a dead upstream trips fast instead of timing out per station.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New builds a client for the given base URL and access token.
func New(baseURL, token string, timeout time.Duration) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "waqi",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    cb,
	}
}

type feedEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type feedData struct {
	AQI  json.RawMessage `json:"aqi"`
	Time struct {
		ISO string `json:"iso"`
		S   string `json:"s"`
		V   int64  `json:"v"`
	} `json:"time"`
	City struct {
		Name string    `json:"name"`
		Geo  []float64 `json:"geo"`
	} `json:"city"`
}

// Feed fetches the current reading for one station. The target is either a
// keyword slug ("chongqing") or the "@<uid>" form, decided when the city was
// registered.
func (c *Client) Feed(ctx context.Context, target string) (Reading, error) {
	env, err := c.get(ctx, fmt.Sprintf("%s/feed/%s/", c.baseURL, url.PathEscape(target)), nil)
	if err != nil {
		return Reading{}, err
	}

	var data feedData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return Reading{}, fmt.Errorf("decode feed data: %w", err)
	}

	value, err := parseAQI(data.AQI)
	if err != nil {
		// WAQI reports "-" when a station has no current index.
		return Reading{}, fmt.Errorf("%w: no numeric aqi (%s)", ErrRejected, data.AQI)
	}

	recordedAt, err := time.Parse(time.RFC3339, data.Time.ISO)
	if err != nil {
		if data.Time.V == 0 {
			return Reading{}, fmt.Errorf("decode feed time: %w", err)
		}
		recordedAt = time.Unix(data.Time.V, 0).UTC()
	}

	return Reading{
		AQI:         value,
		Category:    aqi.Category(value),
		StationName: data.City.Name,
		RecordedAt:  recordedAt.UTC(),
	}, nil
}

// parseAQI accepts the index as a bare number or a quoted numeric string.
func parseAQI(raw json.RawMessage) (int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Search looks up stations matching a keyword.
func (c *Client) Search(ctx context.Context, keyword string) ([]SearchResult, error) {
	env, err := c.get(ctx, c.baseURL+"/search/", url.Values{"keyword": {keyword}})
	if err != nil {
		return nil, err
	}

	var entries []struct {
		UID     int64 `json:"uid"`
		Station struct {
			Name string    `json:"name"`
			Geo  []float64 `json:"geo"`
		} `json:"station"`
		AQI string `json:"aqi"`
	}
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		return nil, fmt.Errorf("decode search data: %w", err)
	}

	results := make([]SearchResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, SearchResult{
			UID:  e.UID,
			Name: e.Station.Name,
			Geo:  e.Station.Geo,
			AQI:  e.AQI,
		})
	}
	return results, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (feedEnvelope, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return feedEnvelope{}, err
	}

	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request waqi: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}

		var env feedEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return env, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return feedEnvelope{}, fmt.Errorf("waqi circuit open: %w", err)
		}
		return feedEnvelope{}, err
	}

	env := result.(feedEnvelope)
	if env.Status != "ok" {
		return feedEnvelope{}, fmt.Errorf("%w: status %q", ErrRejected, env.Status)
	}
	return env, nil
}
