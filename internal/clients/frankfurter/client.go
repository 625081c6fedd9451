package frankfurter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.frankfurter.app"

// Client is a Frankfurter FX rates API client
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Frankfurter client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
		log: log.With().Str("client", "frankfurter").Logger(),
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint (tests)
func NewClientWithBaseURL(baseURL string, log zerolog.Logger) *Client {
	c := NewClient(log)
	c.baseURL = baseURL
	return c
}

// rateResponse is the Frankfurter historical rates payload
type rateResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Rate fetches the conversion rate between two currencies on a given date.
// Frankfurter resolves non-trading days to the previous banking day.
func (c *Client) Rate(ctx context.Context, date time.Time, from, to string) (float64, error) {
	if from == to {
		return 1.0, nil
	}

	params := url.Values{}
	params.Add("from", from)
	params.Add("to", to)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, date.Format("2006-01-02"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("Frankfurter API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response body: %w", err)
	}

	var result rateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	rate, ok := result.Rates[to]
	if !ok {
		return 0, fmt.Errorf("no rate for %s->%s on %s", from, to, date.Format("2006-01-02"))
	}

	c.log.Debug().
		Str("date", date.Format("2006-01-02")).
		Str("from", from).
		Str("to", to).
		Float64("rate", rate).
		Msg("Fetched FX rate")

	return rate, nil
}
