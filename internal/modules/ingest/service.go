package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Service fetches the raw transaction batch from the accounts API. The
// batch is a complete, finite collection; there is no streaming contract.
type Service struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewService creates a new source ingester
func NewService(url string, log zerolog.Logger) *Service {
	return &Service{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("component", "ingest").Logger(),
	}
}

// FetchBatch downloads the raw batch with bounded exponential backoff.
func (s *Service) FetchBatch(ctx context.Context) ([]map[string]interface{}, error) {
	const maxRetries = 3

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		batch, err := s.fetch(ctx)
		if err == nil {
			s.log.Info().Int("records", len(batch)).Str("url", s.url).Msg("Raw batch fetched")
			return batch, nil
		}

		lastErr = err
		if attempt < maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			s.log.Warn().Err(err).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Failed to fetch batch, retrying")

			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (s *Service) fetch(ctx context.Context) ([]map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("accounts API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var batch []map[string]interface{}
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return batch, nil
}
