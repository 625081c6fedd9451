package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Archive persists timestamped snapshots of each raw batch so a pipeline
// run can be replayed against the exact input it saw.
type Archive struct {
	dir string
	log zerolog.Logger
}

// NewArchive creates an archive rooted at dir/raw
func NewArchive(dataDir string, log zerolog.Logger) *Archive {
	return &Archive{
		dir: filepath.Join(dataDir, "raw"),
		log: log.With().Str("component", "archive").Logger(),
	}
}

// Save writes one raw batch snapshot and returns its path.
func (a *Archive) Save(batch []map[string]interface{}) (string, error) {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	data, err := msgpack.Marshal(batch)
	if err != nil {
		return "", fmt.Errorf("failed to encode batch: %w", err)
	}

	path := filepath.Join(a.dir, fmt.Sprintf("accounts_%s.msgpack", time.Now().UTC().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	a.log.Info().Str("path", path).Int("records", len(batch)).Msg("Raw snapshot saved")
	return path, nil
}

// Latest loads the most recent snapshot.
func (a *Archive) Latest() ([]map[string]interface{}, string, error) {
	matches, err := filepath.Glob(filepath.Join(a.dir, "accounts_*.msgpack"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to list snapshots: %w", err)
	}
	if len(matches) == 0 {
		return nil, "", fmt.Errorf("no snapshots in %s", a.dir)
	}

	// Timestamped filenames sort chronologically.
	sort.Strings(matches)
	path := matches[len(matches)-1]

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read snapshot: %w", err)
	}

	var batch []map[string]interface{}
	if err := msgpack.Unmarshal(data, &batch); err != nil {
		return nil, "", fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}

	return batch, path, nil
}
