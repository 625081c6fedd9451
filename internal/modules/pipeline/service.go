package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/ledgerlens/internal/modules/enrich"
	"github.com/aristath/ledgerlens/internal/modules/export"
	"github.com/aristath/ledgerlens/internal/modules/ingest"
	"github.com/aristath/ledgerlens/internal/modules/warehouse"
)

// Source provides one raw batch per run.
type Source interface {
	FetchBatch(ctx context.Context) ([]map[string]interface{}, error)
}

// Service orchestrates one full pipeline run: fetch, snapshot, enrich,
// load, dump, optional upload. Runs are serialized by the caller (the cron
// scheduler or the HTTP trigger); the service itself holds no run state.
type Service struct {
	source   Source
	archive  *ingest.Archive
	engine   *enrich.Engine
	repo     *warehouse.Repository
	uploader *export.Uploader // nil when no bucket is configured
	dataDir  string
	log      zerolog.Logger
}

// NewService creates a pipeline service
func NewService(
	source Source,
	archive *ingest.Archive,
	engine *enrich.Engine,
	repo *warehouse.Repository,
	uploader *export.Uploader,
	dataDir string,
	log zerolog.Logger,
) *Service {
	return &Service{
		source:   source,
		archive:  archive,
		engine:   engine,
		repo:     repo,
		uploader: uploader,
		dataDir:  dataDir,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one complete pipeline run and returns its audit record.
// The returned run is also persisted, including on failure.
func (s *Service) Run(ctx context.Context) (*warehouse.Run, error) {
	run := &warehouse.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    warehouse.RunStatusRunning,
	}
	if err := s.repo.RecordRun(run); err != nil {
		return nil, err
	}
	s.log.Info().Str("run_id", run.ID).Msg("Pipeline run started")

	result, err := s.execute(ctx, run)
	now := time.Now().UTC()
	run.FinishedAt = &now

	if err != nil {
		run.Status = warehouse.RunStatusFailed
		run.Error = err.Error()
		if recErr := s.repo.RecordRun(run); recErr != nil {
			s.log.Error().Err(recErr).Str("run_id", run.ID).Msg("Failed to record failed run")
		}
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Pipeline run failed")
		return run, err
	}

	run.Status = warehouse.RunStatusSuccess
	run.RowsOut = len(result.Records)
	if stats, jsonErr := json.Marshal(result.Stats); jsonErr == nil {
		run.StatsJSON = string(stats)
	}
	if err := s.repo.RecordRun(run); err != nil {
		return run, err
	}

	s.log.Info().
		Str("run_id", run.ID).
		Int("rows_in", run.RowsIn).
		Int("rows_out", run.RowsOut).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Msg("Pipeline run completed")
	return run, nil
}

func (s *Service) execute(ctx context.Context, run *warehouse.Run) (*enrich.Result, error) {
	batch, err := s.source.FetchBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	run.RowsIn = len(batch)

	// A lost snapshot costs replayability, not the run.
	snapshotPath, err := s.archive.Save(batch)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to save raw snapshot")
	} else {
		run.SnapshotPath = snapshotPath
	}

	result, err := s.engine.Run(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}

	if err := s.repo.ReplaceBatch(result); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	dumpPath, err := s.repo.WriteDump(filepath.Join(s.dataDir, "dumps"))
	if err != nil {
		return nil, fmt.Errorf("dump: %w", err)
	}
	run.DumpPath = dumpPath

	if s.uploader != nil {
		if _, err := s.uploader.UploadDump(ctx, dumpPath); err != nil {
			// The warehouse is already consistent; the upload can be redone.
			s.log.Warn().Err(err).Msg("Failed to upload dump")
		}
	}

	return result, nil
}

// Replay re-runs enrichment and loading against the latest raw snapshot
// without touching the source API.
func (s *Service) Replay(ctx context.Context) (*warehouse.Run, error) {
	batch, path, err := s.archive.Latest()
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("snapshot", path).Msg("Replaying latest snapshot")
	return s.runWith(ctx, batch, path)
}

func (s *Service) runWith(ctx context.Context, batch []map[string]interface{}, snapshotPath string) (*warehouse.Run, error) {
	run := &warehouse.Run{
		ID:           uuid.NewString(),
		StartedAt:    time.Now().UTC(),
		Status:       warehouse.RunStatusRunning,
		RowsIn:       len(batch),
		SnapshotPath: snapshotPath,
	}
	if err := s.repo.RecordRun(run); err != nil {
		return nil, err
	}

	finish := func(result *enrich.Result, err error) (*warehouse.Run, error) {
		now := time.Now().UTC()
		run.FinishedAt = &now
		if err != nil {
			run.Status = warehouse.RunStatusFailed
			run.Error = err.Error()
		} else {
			run.Status = warehouse.RunStatusSuccess
			run.RowsOut = len(result.Records)
			if stats, jsonErr := json.Marshal(result.Stats); jsonErr == nil {
				run.StatsJSON = string(stats)
			}
		}
		if recErr := s.repo.RecordRun(run); recErr != nil {
			s.log.Error().Err(recErr).Str("run_id", run.ID).Msg("Failed to record run")
		}
		return run, err
	}

	result, err := s.engine.Run(ctx, batch)
	if err != nil {
		return finish(nil, fmt.Errorf("enrich: %w", err))
	}
	if err := s.repo.ReplaceBatch(result); err != nil {
		return finish(nil, fmt.Errorf("load: %w", err))
	}
	dumpPath, err := s.repo.WriteDump(filepath.Join(s.dataDir, "dumps"))
	if err != nil {
		return finish(nil, fmt.Errorf("dump: %w", err))
	}
	run.DumpPath = dumpPath
	return finish(result, nil)
}
