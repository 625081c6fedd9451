package enrich

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHolidays serves a fixed holiday set and counts fetches per key.
type mockHolidays struct {
	mu       sync.Mutex
	calls    map[string]int
	holidays []time.Time
	fail     bool
}

func (m *mockHolidays) PublicHolidays(ctx context.Context, year int, countryCode string) ([]time.Time, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[fmt.Sprintf("%s-%d", countryCode, year)]++
	m.mu.Unlock()

	if m.fail {
		return nil, fmt.Errorf("mock holiday outage")
	}
	return m.holidays, nil
}

// mockRates serves fixed rates and counts fetches per key.
type mockRates struct {
	mu    sync.Mutex
	calls map[string]int
	rate  float64
	fail  bool
}

func (m *mockRates) Rate(ctx context.Context, date time.Time, from, to string) (float64, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[date.Format("2006-01-02")+"-"+from]++
	m.mu.Unlock()

	if m.fail {
		return 0, fmt.Errorf("mock rate outage")
	}
	return m.rate, nil
}

func externalRecord(date, currency string, net float64) *Record {
	r := &Record{Currency: currency}
	if date != "" {
		d, _ := time.Parse("2006-01-02", date)
		d = d.UTC()
		r.Date = &d
	}
	nd := decimal.NewFromFloat(net)
	r.Net = decimal.NewNullDecimal(nd)
	r.Credit = decimal.NewNullDecimal(nd.Abs())
	return r
}

func holidaySettings() Settings {
	s := DefaultSettings()
	s.EnableHolidays = true
	s.HolidayCountry = "US"
	s.EnableFX = false
	return s
}

func fxSettings() Settings {
	s := DefaultSettings()
	s.EnableHolidays = false
	s.EnableFX = true
	s.FXTargetCurrency = "USD"
	return s
}

func TestExternal_HolidayFlagging(t *testing.T) {
	july4 := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	holidays := &mockHolidays{holidays: []time.Time{july4}}

	e := NewExternalEnricher(holidaySettings(), holidays, nil, zerolog.Nop())

	onHoliday := externalRecord("2024-07-04", "", -20)
	offHoliday := externalRecord("2024-07-05", "", -20)
	undated := externalRecord("", "", -20)

	stats := &RunStats{}
	applied, fxApplied := e.Apply(context.Background(), []*Record{onHoliday, offHoliday, undated}, stats)

	assert.True(t, applied)
	assert.False(t, fxApplied)
	assert.True(t, onHoliday.IsPublicHoliday)
	assert.False(t, offHoliday.IsPublicHoliday)
	assert.False(t, undated.IsPublicHoliday)
	assert.Equal(t, 1, stats.HolidayKeysFetched)
}

func TestExternal_HolidayFetchOncePerYear(t *testing.T) {
	holidays := &mockHolidays{}
	e := NewExternalEnricher(holidaySettings(), holidays, nil, zerolog.Nop())

	records := []*Record{
		externalRecord("2023-12-31", "", -1),
		externalRecord("2024-01-01", "", -1),
		externalRecord("2024-06-15", "", -1),
		externalRecord("2024-11-11", "", -1),
	}
	e.Apply(context.Background(), records, &RunStats{})

	// Three 2024 rows share one fetch; 2023 gets its own.
	assert.Equal(t, 1, holidays.calls["US-2024"])
	assert.Equal(t, 1, holidays.calls["US-2023"])
	assert.Len(t, holidays.calls, 2)
}

func TestExternal_HolidayOutageDegradesToAllFalse(t *testing.T) {
	holidays := &mockHolidays{fail: true}
	e := NewExternalEnricher(holidaySettings(), holidays, nil, zerolog.Nop())

	records := []*Record{
		externalRecord("2024-07-04", "", -20),
		externalRecord("2024-12-25", "", -20),
	}
	stats := &RunStats{}
	applied, _ := e.Apply(context.Background(), records, stats)

	// The column still applies; every row just stays false.
	assert.True(t, applied)
	for _, r := range records {
		assert.False(t, r.IsPublicHoliday)
	}
	assert.Equal(t, 1, stats.HolidayKeysFailed)
	assert.Equal(t, 0, stats.HolidayKeysFetched)
}

func TestExternal_FXConversion(t *testing.T) {
	rates := &mockRates{rate: 1.10}
	e := NewExternalEnricher(fxSettings(), nil, rates, zerolog.Nop())

	eur := externalRecord("2024-05-01", "EUR", 100)
	usd := externalRecord("2024-05-01", "USD", 50)

	stats := &RunStats{}
	_, applied := e.Apply(context.Background(), []*Record{eur, usd}, stats)
	require.True(t, applied)

	require.NotNil(t, eur.FXRate)
	assert.InDelta(t, 1.10, *eur.FXRate, 1e-9)
	require.True(t, eur.NetConverted.Valid)
	assert.True(t, eur.NetConverted.Decimal.Equal(decimal.RequireFromString("110")))
	require.True(t, eur.CreditConverted.Valid)

	// Target-currency rows convert at 1.0 without an external call.
	require.NotNil(t, usd.FXRate)
	assert.Equal(t, 1.0, *usd.FXRate)
	assert.True(t, usd.NetConverted.Decimal.Equal(decimal.RequireFromString("50")))
	assert.Len(t, rates.calls, 1)
}

func TestExternal_FXSkipsBatchWithoutCurrency(t *testing.T) {
	rates := &mockRates{rate: 1.10}
	e := NewExternalEnricher(fxSettings(), nil, rates, zerolog.Nop())

	records := []*Record{
		externalRecord("2024-05-01", "", 100),
		externalRecord("2024-05-02", "", -30),
	}
	stats := &RunStats{}
	_, applied := e.Apply(context.Background(), records, stats)

	assert.False(t, applied, "no currency column means no FX schema")
	assert.True(t, stats.FXSkippedNoCurrency)
	assert.Empty(t, rates.calls, "skip happens before any external call")
	assert.Nil(t, records[0].FXRate)
}

func TestExternal_FXOutageLeavesRowsNull(t *testing.T) {
	rates := &mockRates{fail: true}
	e := NewExternalEnricher(fxSettings(), nil, rates, zerolog.Nop())

	eur := externalRecord("2024-05-01", "EUR", 100)
	usd := externalRecord("2024-05-01", "USD", 50)
	undated := externalRecord("", "EUR", 10)

	stats := &RunStats{}
	_, applied := e.Apply(context.Background(), []*Record{eur, usd, undated}, stats)

	// Columns exist, failed keys degrade per row.
	assert.True(t, applied)
	assert.Nil(t, eur.FXRate)
	assert.False(t, eur.NetConverted.Valid)
	assert.NotNil(t, usd.FXRate, "same-currency rows never depend on the source")
	assert.Nil(t, undated.FXRate)

	assert.Equal(t, 1, stats.FXKeysFailed)
	assert.Equal(t, 2, stats.FXRowsUnresolved)
}

func TestExternal_DisabledLookupsDoNothing(t *testing.T) {
	s := DefaultSettings()
	s.EnableHolidays = true
	s.EnableFX = true

	// Nil lookups disable both regardless of settings.
	e := NewExternalEnricher(s, nil, nil, zerolog.Nop())
	r := externalRecord("2024-07-04", "EUR", 100)

	holidaysApplied, fxApplied := e.Apply(context.Background(), []*Record{r}, &RunStats{})
	assert.False(t, holidaysApplied)
	assert.False(t, fxApplied)
	assert.False(t, r.IsPublicHoliday)
	assert.Nil(t, r.FXRate)
}
