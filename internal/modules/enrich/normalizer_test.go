package enrich

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_CanonicalFields(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	stats := &RunStats{}

	raw := []map[string]interface{}{
		{
			"id":              float64(7),
			"transactionDate": "2024-03-15",
			"description":     "  STARBUCKS COFFEE  ",
			"category":        "Dining",
			"credit":          "",
			"debit":           "$4.75",
			"currency":        "usd",
		},
	}

	records, err := n.Normalize(raw, stats)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "7", r.TransactionID)
	assert.Equal(t, "STARBUCKS COFFEE", r.Description)
	assert.Equal(t, "Dining", r.Category)
	assert.Equal(t, "USD", r.Currency)

	require.NotNil(t, r.Date)
	assert.Equal(t, "2024-03-15", r.Date.Format("2006-01-02"))

	assert.False(t, r.Credit.Valid)
	require.True(t, r.Debit.Valid)
	assert.True(t, r.Debit.Decimal.Equal(decimal.RequireFromString("4.75")))
	require.True(t, r.Net.Valid)
	assert.True(t, r.Net.Decimal.Equal(decimal.RequireFromString("-4.75")))
	assert.Equal(t, "debit", r.Direction)
	assert.True(t, r.IsExpense)
	assert.False(t, r.IsIncome)
}

func TestNormalize_DateFormats(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	tests := []struct {
		raw      string
		expected string
	}{
		{"2024-01-31", "2024-01-31"},
		{"2024-01-31T14:22:09Z", "2024-01-31"},
		{"2024/01/31", "2024-01-31"},
		{"01/31/2024", "2024-01-31"},
		{"Jan 31, 2024", "2024-01-31"},
		{"31 Jan 2024", "2024-01-31"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			stats := &RunStats{}
			records, err := n.Normalize([]map[string]interface{}{
				{"id": 1, "date": tt.raw, "debit": "1.00"},
			}, stats)
			require.NoError(t, err)
			require.NotNil(t, records[0].Date)
			assert.Equal(t, tt.expected, records[0].Date.Format("2006-01-02"))
			assert.Equal(t, 0, stats.UnparseableDates)
		})
	}
}

func TestNormalize_DefectsDegradeNotFail(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	stats := &RunStats{}

	raw := []map[string]interface{}{
		// Unparseable date and junk amount: row survives with nulls.
		{"id": 1, "date": "not a date", "debit": "oops", "description": "A"},
		// Missing both amounts: net stays null.
		{"id": 2, "date": "2024-02-01", "description": "B"},
		// Amounts that cancel out: neutral direction.
		{"id": 3, "date": "2024-02-02", "credit": "10.00", "debit": "10.00", "description": "C"},
	}

	records, err := n.Normalize(raw, stats)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Nil(t, records[0].Date)
	assert.False(t, records[0].Net.Valid)
	assert.Equal(t, "neutral", records[0].Direction)

	assert.False(t, records[1].Net.Valid)
	assert.False(t, records[1].IsIncome)
	assert.False(t, records[1].IsExpense)

	require.True(t, records[2].Net.Valid)
	assert.True(t, records[2].Net.Decimal.IsZero())
	assert.Equal(t, "neutral", records[2].Direction)

	assert.Equal(t, 1, stats.UnparseableDates)
	assert.Equal(t, 1, stats.UnparseableAmounts)
	assert.Equal(t, 1, stats.ZeroNetRows)
	assert.Equal(t, 3, stats.RowsIn)
}

func TestNormalize_MissingSideCountsAsZero(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	stats := &RunStats{}

	records, err := n.Normalize([]map[string]interface{}{
		{"id": 1, "date": "2024-02-01", "credit": "250.00"},
	}, stats)
	require.NoError(t, err)

	r := records[0]
	assert.False(t, r.Debit.Valid)
	require.True(t, r.Net.Valid)
	assert.True(t, r.Net.Decimal.Equal(decimal.RequireFromString("250")))
	assert.Equal(t, "credit", r.Direction)
	assert.True(t, r.IsIncome)
}

func TestNormalize_FatalBatches(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	_, err := n.Normalize(nil, &RunStats{})
	assert.Error(t, err)

	_, err = n.Normalize([]map[string]interface{}{
		{"foo": "bar"},
		{"baz": 12},
	}, &RunStats{})
	assert.Error(t, err)
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"transactionDate", "transaction_date"},
		{"TransactionDate", "transaction_date"},
		{"transaction-date", "transaction_date"},
		{"Transaction Date", "transaction_date"},
		{"  amountUSD ", "amount_usd"},
		{"already_snake", "already_snake"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, canonicalKey(tt.in), "input %q", tt.in)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
		ok       bool
		junk     bool
	}{
		{"$1,234.56", "1234.56", true, false},
		{"-42.10", "-42.10", true, false},
		{"€99.00", "99.00", true, false},
		{"", "", false, false},
		{"null", "", false, false},
		{"NaN", "", false, false},
		{"garbage", "", false, true},
		{"$", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, ok, junk := parseAmount(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.junk, junk)
			if tt.ok {
				assert.True(t, d.Equal(decimal.RequireFromString(tt.expected)))
			}
		})
	}
}
