package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Mean([]float64{}))
	assert.Equal(t, 5.0, Mean([]float64{5}))
	assert.InDelta(t, 100.0, Mean([]float64{100, 102, 98, 100}), 1e-9)
}

func TestPopStdDev(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"single value", []float64{42}, 0},
		{"identical values", []float64{7, 7, 7, 7}, 0},
		// Population std of {2, 4, 4, 4, 5, 5, 7, 9} is exactly 2.
		{"known population", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PopStdDev(tt.values), 1e-9)
		})
	}
}

func TestZScore(t *testing.T) {
	assert.InDelta(t, 2.0, ZScore(110, 100, 5), 1e-9)
	assert.InDelta(t, -1.5, ZScore(92.5, 100, 5), 1e-9)

	// A degenerate baseline pins the score to zero instead of dividing by it.
	assert.Equal(t, 0.0, ZScore(110, 100, 0))
	assert.Equal(t, 0.0, ZScore(110, 100, -1))
}
