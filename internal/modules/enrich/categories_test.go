package enrich

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func netRecord(category string, net float64) *Record {
	d := decimal.NewFromFloat(net)
	return &Record{
		Category: category,
		Net:      decimal.NewNullDecimal(d),
		Abs:      decimal.NewNullDecimal(d.Abs()),
	}
}

func TestProfiler_MetadataJoin(t *testing.T) {
	p := NewProfiler(zerolog.Nop())
	stats := &RunStats{}

	health := netRecord("Health Care", -80)
	dining := netRecord("Dining", -12)
	unknown := netRecord("Cryptozoology", -5)

	p.Apply([]*Record{health, dining, unknown}, stats)

	assert.Equal(t, "healthcare", health.CategoryType)
	assert.Equal(t, PriorityHigh, health.CategoryPriority)
	assert.True(t, health.CategoryTaxDeduct)
	assert.False(t, health.IsDiscretionary)

	assert.Equal(t, "food_beverage", dining.CategoryType)
	assert.Equal(t, PriorityLow, dining.CategoryPriority)
	assert.True(t, dining.IsDiscretionary)

	// Unmatched categories fall back to unknown metadata, counted not failed.
	assert.Equal(t, "unknown", unknown.CategoryType)
	assert.Equal(t, PriorityLow, unknown.CategoryPriority)
	assert.False(t, unknown.CategoryTaxDeduct)
	assert.Equal(t, 1, stats.UnknownCategories)
}

func TestProfiler_PopulationBaseline(t *testing.T) {
	p := NewProfiler(zerolog.Nop())

	records := []*Record{
		netRecord("Dining", -10),
		netRecord("Dining", -20),
		netRecord("Dining", -30),
		netRecord("Dining", -40),
	}
	profiles := p.Apply(records, &RunStats{})

	profile, ok := profiles["Dining"]
	require.True(t, ok)
	assert.Equal(t, 4, profile.Count)
	assert.InDelta(t, -25.0, profile.MeanNet, 1e-9)
	// Population std of {-10,-20,-30,-40} around -25: sqrt(125).
	assert.InDelta(t, 11.180339887, profile.StdNet, 1e-6)

	for _, r := range records {
		assert.InDelta(t, -25.0, r.CategoryNetMean, 1e-9)
		assert.InDelta(t, 11.180339887, r.CategoryNetStd, 1e-6)
		assert.Equal(t, 4, r.CategoryTxnCount)
	}
}

func TestProfiler_SingleRowCategoryHasZeroStd(t *testing.T) {
	p := NewProfiler(zerolog.Nop())

	r := netRecord("Other", -99)
	profiles := p.Apply([]*Record{r}, &RunStats{})

	profile := profiles["Other"]
	assert.Equal(t, 1, profile.Count)
	assert.InDelta(t, -99.0, profile.MeanNet, 1e-9)
	assert.Equal(t, 0.0, profile.StdNet)
	assert.Equal(t, 0.0, r.CategoryNetStd)
}

func TestProfiler_NullNetExcludedFromBaseline(t *testing.T) {
	p := NewProfiler(zerolog.Nop())

	withNet := netRecord("Dining", -50)
	noNet := &Record{Category: "Dining"}

	profiles := p.Apply([]*Record{withNet, noNet}, &RunStats{})

	// Only the measurable row participates; both still get the metadata.
	assert.Equal(t, 1, profiles["Dining"].Count)
	assert.Equal(t, "food_beverage", noNet.CategoryType)
	assert.Equal(t, 1, noNet.CategoryTxnCount)
}
