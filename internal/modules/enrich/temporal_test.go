package enrich

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func dateRecord(value string) *Record {
	d, _ := time.Parse("2006-01-02", value)
	d = d.UTC()
	return &Record{Date: &d}
}

func TestApplyTemporalFeatures(t *testing.T) {
	tests := []struct {
		date       string
		year       int
		month      int
		yearMonth  string
		dayOfWeek  int
		quarter    int
		weekend    bool
		monthStart bool
		monthEnd   bool
	}{
		// Saturday, end of Q1.
		{"2024-03-30", 2024, 3, "2024-03", 6, 1, true, false, false},
		// Sunday.
		{"2024-06-02", 2024, 6, "2024-06", 0, 2, true, false, false},
		// First of the month, a Monday.
		{"2024-07-01", 2024, 7, "2024-07", 1, 3, false, true, false},
		// Leap-year February month end.
		{"2024-02-29", 2024, 2, "2024-02", 4, 1, false, false, true},
		// Year end.
		{"2024-12-31", 2024, 12, "2024-12", 2, 4, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			r := dateRecord(tt.date)
			ApplyTemporalFeatures([]*Record{r})

			assert.Equal(t, tt.year, r.Year)
			assert.Equal(t, tt.month, r.Month)
			assert.Equal(t, tt.yearMonth, r.YearMonth)
			assert.Equal(t, tt.dayOfWeek, r.DayOfWeek)
			assert.Equal(t, tt.quarter, r.Quarter)
			assert.Equal(t, tt.weekend, r.IsWeekend)
			assert.Equal(t, tt.monthStart, r.IsMonthStart)
			assert.Equal(t, tt.monthEnd, r.IsMonthEnd)
			assert.NotZero(t, r.WeekOfYear)
		})
	}
}

func TestApplyTemporalFeatures_NilDate(t *testing.T) {
	r := &Record{}
	ApplyTemporalFeatures([]*Record{r})

	assert.Zero(t, r.Year)
	assert.Zero(t, r.Month)
	assert.Empty(t, r.YearMonth)
	assert.False(t, r.IsWeekend)
}
