package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HolidayLookup returns the public holiday dates for one (country, year).
type HolidayLookup interface {
	PublicHolidays(ctx context.Context, year int, countryCode string) ([]time.Time, error)
}

// RateLookup returns the conversion rate for one (date, from, to) triple.
type RateLookup interface {
	Rate(ctx context.Context, date time.Time, from, to string) (float64, error)
}

type holidayKey struct {
	country string
	year    int
}

type fxKey struct {
	date string
	from string
}

// ExternalEnricher attaches public-holiday flags and currency-normalized
// amounts. Both enrichments are independently toggleable and non-fatal: a
// failed fetch degrades only the rows referencing that key, never the run.
// Each distinct key is fetched exactly once; failures are cached too, so a
// dead endpoint is not hammered once per row.
type ExternalEnricher struct {
	holidays HolidayLookup
	rates    RateLookup
	settings Settings
	log      zerolog.Logger
}

// NewExternalEnricher creates a new external enrichment adapter
func NewExternalEnricher(settings Settings, holidays HolidayLookup, rates RateLookup, log zerolog.Logger) *ExternalEnricher {
	return &ExternalEnricher{
		holidays: holidays,
		rates:    rates,
		settings: settings,
		log:      log.With().Str("stage", "external").Logger(),
	}
}

// Apply runs the enabled enrichments. Returns whether each enrichment's
// columns are part of the batch schema (a degraded fetch still produces
// the columns, with default values).
func (e *ExternalEnricher) Apply(ctx context.Context, records []*Record, stats *RunStats) (holidaysApplied, fxApplied bool) {
	if e.settings.EnableHolidays && e.holidays != nil {
		e.applyHolidays(ctx, records, stats)
		holidaysApplied = true
	}

	if e.settings.EnableFX && e.rates != nil {
		fxApplied = e.applyFX(ctx, records, stats)
	}

	return holidaysApplied, fxApplied
}

// applyHolidays fetches the holiday set once per distinct (country, year)
// and flags rows by set membership. An unreachable source leaves every
// affected row at is_public_holiday=false.
func (e *ExternalEnricher) applyHolidays(ctx context.Context, records []*Record, stats *RunStats) {
	keys := make(map[holidayKey]bool)
	for _, r := range records {
		if r.Date != nil {
			keys[holidayKey{country: e.settings.HolidayCountry, year: r.Date.Year()}] = true
		}
	}
	if len(keys) == 0 {
		return
	}

	// One fetch per key, fanned out concurrently; the cache is the only
	// shared resource. A nil entry marks a key as unavailable.
	cache := make(map[holidayKey]map[string]bool, len(keys))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for key := range keys {
		wg.Add(1)
		go func(key holidayKey) {
			defer wg.Done()

			dates, err := e.holidays.PublicHolidays(ctx, key.year, key.country)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.log.Warn().Err(err).
					Str("country", key.country).
					Int("year", key.year).
					Msg("Holiday fetch failed, degrading to empty set")
				cache[key] = nil
				stats.HolidayKeysFailed++
				return
			}

			set := make(map[string]bool, len(dates))
			for _, d := range dates {
				set[d.Format("2006-01-02")] = true
			}
			cache[key] = set
			stats.HolidayKeysFetched++
		}(key)
	}
	wg.Wait()

	for _, r := range records {
		if r.Date == nil {
			continue
		}
		set := cache[holidayKey{country: e.settings.HolidayCountry, year: r.Date.Year()}]
		if set != nil && set[r.Date.Format("2006-01-02")] {
			r.IsPublicHoliday = true
		}
	}
}

// applyFX converts amounts into the target currency. Returns false when the
// batch has no currency column at all: in that case the enrichment is
// skipped cleanly before any external call, never partially applied.
func (e *ExternalEnricher) applyFX(ctx context.Context, records []*Record, stats *RunStats) bool {
	target := e.settings.FXTargetCurrency

	hasCurrency := false
	keys := make(map[fxKey]bool)
	for _, r := range records {
		if r.Currency == "" {
			continue
		}
		hasCurrency = true
		if r.Date != nil && r.Currency != target {
			keys[fxKey{date: r.Date.Format("2006-01-02"), from: r.Currency}] = true
		}
	}

	if !hasCurrency {
		e.log.Warn().Msg("FX enrichment enabled but batch has no currency column, skipping")
		stats.FXSkippedNoCurrency = true
		return false
	}

	// One fetch per distinct (date, source currency); nil marks a rate as
	// unavailable so failing keys are not re-fetched per row.
	cache := make(map[fxKey]*float64, len(keys))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for key := range keys {
		wg.Add(1)
		go func(key fxKey) {
			defer wg.Done()

			date, _ := time.Parse("2006-01-02", key.date)
			rate, err := e.rates.Rate(ctx, date, key.from, target)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.log.Warn().Err(err).
					Str("date", key.date).
					Str("from", key.from).
					Str("to", target).
					Msg("FX rate fetch failed, rows degrade to null")
				cache[key] = nil
				stats.FXKeysFailed++
				return
			}
			cache[key] = &rate
			stats.FXKeysFetched++
		}(key)
	}
	wg.Wait()

	for _, r := range records {
		if r.Currency == "" || r.Date == nil {
			stats.FXRowsUnresolved++
			continue
		}

		var rate float64
		if r.Currency == target {
			rate = 1.0
		} else {
			cached := cache[fxKey{date: r.Date.Format("2006-01-02"), from: r.Currency}]
			if cached == nil {
				stats.FXRowsUnresolved++
				continue
			}
			rate = *cached
		}

		r.FXRate = &rate
		rateDec := decimal.NewFromFloat(rate)
		if r.Net.Valid {
			r.NetConverted = decimal.NewNullDecimal(r.Net.Decimal.Mul(rateDec).Round(2))
		}
		if r.Credit.Valid {
			r.CreditConverted = decimal.NewNullDecimal(r.Credit.Decimal.Mul(rateDec).Round(2))
		}
		if r.Debit.Valid {
			r.DebitConverted = decimal.NewNullDecimal(r.Debit.Decimal.Mul(rateDec).Round(2))
		}
	}

	return true
}
