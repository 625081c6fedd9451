package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Settings is the immutable configuration for one engine instance. Passed
// in explicitly so concurrent or repeated runs with different settings
// cannot interfere through shared state.
type Settings struct {
	EnableHolidays   bool
	HolidayCountry   string
	EnableFX         bool
	FXTargetCurrency string

	LargeAmountThreshold float64
	OutlierZThreshold    float64
	RareCategoryRule     bool
	RareCategoryMaxCount int

	RecurringMinCount      int
	DuplicateWindowDays    int
	DuplicateAmountEpsilon float64

	MinDescriptionLength int
	QualityWeights       QualityWeights
}

// DefaultSettings returns the standard engine configuration.
func DefaultSettings() Settings {
	return Settings{
		EnableHolidays:         true,
		HolidayCountry:         "US",
		EnableFX:               false,
		FXTargetCurrency:       "USD",
		LargeAmountThreshold:   500,
		OutlierZThreshold:      3,
		RareCategoryRule:       false,
		RareCategoryMaxCount:   1,
		RecurringMinCount:      3,
		DuplicateWindowDays:    1,
		DuplicateAmountEpsilon: 0.01,
		MinDescriptionLength:   3,
		QualityWeights:         DefaultQualityWeights(),
	}
}

// Engine runs the enrichment pipeline over a complete batch snapshot.
// Stages run strictly in order on whole-table snapshots: category baselines
// and recurrence ordering need full-batch visibility before any row's
// derived fields can be finalized. Only the external enrichment stage
// performs blocking work.
type Engine struct {
	settings   Settings
	normalizer *Normalizer
	profiler   *Profiler
	detector   *Detector
	analyzer   *Analyzer
	scorer     *Scorer
	external   *ExternalEnricher
	log        zerolog.Logger
}

// NewEngine creates an enrichment engine. The holiday and rate lookups may
// be nil, which disables the corresponding enrichment regardless of
// settings.
func NewEngine(settings Settings, holidays HolidayLookup, rates RateLookup, log zerolog.Logger) *Engine {
	return &Engine{
		settings:   settings,
		normalizer: NewNormalizer(log),
		profiler:   NewProfiler(log),
		detector:   NewDetector(settings, log),
		analyzer:   NewAnalyzer(settings, log),
		scorer:     NewScorer(settings),
		external:   NewExternalEnricher(settings, holidays, rates, log),
		log:        log.With().Str("component", "engine").Logger(),
	}
}

// Run executes all stages over one raw batch. The only fatal condition is
// a malformed input batch; everything else degrades to null fields and
// counters. Derived columns are deterministic for a given batch.
func (e *Engine) Run(ctx context.Context, raw []map[string]interface{}) (*Result, error) {
	started := time.Now()
	result := &Result{
		FXTarget: e.settings.FXTargetCurrency,
	}

	records, err := e.normalizer.Normalize(raw, &result.Stats)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	ApplyTemporalFeatures(records)

	result.Profiles = e.profiler.Apply(records, &result.Stats)

	e.detector.Apply(records, &result.Stats)

	e.analyzer.Apply(records, &result.Stats)

	e.scorer.Apply(records)

	result.HolidaysApplied, result.FXApplied = e.external.Apply(ctx, records, &result.Stats)

	result.Records = records
	result.ProcessedAt = time.Now().UTC()

	e.log.Info().
		Int("rows", len(records)).
		Dur("elapsed", time.Since(started)).
		Bool("holidays", result.HolidaysApplied).
		Bool("fx", result.FXApplied).
		Msg("Enrichment run completed")

	return result, nil
}
