package nager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://date.nager.at"

// Client is a Nager.Date public holidays API client
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Nager.Date client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
		log: log.With().Str("client", "nager").Logger(),
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint (tests)
func NewClientWithBaseURL(baseURL string, log zerolog.Logger) *Client {
	c := NewClient(log)
	c.baseURL = baseURL
	return c
}

// publicHoliday is one entry of the PublicHolidays response
type publicHoliday struct {
	Date        string `json:"date"` // YYYY-MM-DD
	LocalName   string `json:"localName"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
}

// PublicHolidays fetches the public holiday dates for a (year, country)
// pair. The caller caches results; this client performs one plain fetch.
func (c *Client) PublicHolidays(ctx context.Context, year int, countryCode string) ([]time.Time, error) {
	reqURL := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", c.baseURL, year, countryCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holidays: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Nager.Date API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var holidays []publicHoliday
	if err := json.Unmarshal(body, &holidays); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	dates := make([]time.Time, 0, len(holidays))
	for _, h := range holidays {
		d, err := time.Parse("2006-01-02", h.Date)
		if err != nil {
			c.log.Warn().Str("date", h.Date).Str("name", h.Name).Msg("Skipping holiday with bad date")
			continue
		}
		dates = append(dates, d)
	}

	c.log.Debug().
		Int("year", year).
		Str("country", countryCode).
		Int("count", len(dates)).
		Msg("Fetched public holidays")

	return dates, nil
}
