package enrich

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgerlens/pkg/formulas"
)

// Rule is one independent anomaly signal. is_anomaly is the union of all
// enabled rules so each signal stays auditable and testable on its own.
type Rule interface {
	Name() string
	Flag(r *Record) bool
}

// zScoreRule flags statistical outliers against the category baseline.
type zScoreRule struct {
	threshold float64
}

func (z zScoreRule) Name() string { return "zscore" }

func (z zScoreRule) Flag(r *Record) bool {
	return math.Abs(r.NetZScore) >= z.threshold
}

// largeAmountRule flags transactions above an absolute magnitude cutoff,
// independent of category. A transaction can be large without being a
// statistical outlier, and vice versa.
type largeAmountRule struct {
	cutoff float64
}

func (l largeAmountRule) Name() string { return "large_amount" }

func (l largeAmountRule) Flag(r *Record) bool {
	if !r.Abs.Valid {
		return false
	}
	abs, _ := r.Abs.Decimal.Float64()
	return abs > l.cutoff
}

// rareCategoryRule flags rows in categories with very few occurrences.
type rareCategoryRule struct {
	maxCount int
}

func (c rareCategoryRule) Name() string { return "rare_category" }

func (c rareCategoryRule) Flag(r *Record) bool {
	return r.CategoryTxnCount > 0 && r.CategoryTxnCount <= c.maxCount
}

// Detector computes z-scores and applies the anomaly rule set.
type Detector struct {
	zThreshold float64
	cutoff     float64
	rules      []Rule
	log        zerolog.Logger
}

// NewDetector creates a detector with the baseline rules (z-score and
// large amount) plus the optional rare-category rule.
func NewDetector(settings Settings, log zerolog.Logger) *Detector {
	rules := []Rule{
		zScoreRule{threshold: settings.OutlierZThreshold},
		largeAmountRule{cutoff: settings.LargeAmountThreshold},
	}
	if settings.RareCategoryRule {
		rules = append(rules, rareCategoryRule{maxCount: settings.RareCategoryMaxCount})
	}

	return &Detector{
		zThreshold: settings.OutlierZThreshold,
		cutoff:     settings.LargeAmountThreshold,
		rules:      rules,
		log:        log.With().Str("stage", "anomaly").Logger(),
	}
}

// Apply computes per-row z-scores from the category baselines and raises
// the anomaly flags.
func (d *Detector) Apply(records []*Record, stats *RunStats) {
	for _, r := range records {
		if net, ok := r.NetFloat(); ok {
			r.NetZScore = formulas.ZScore(net, r.CategoryNetMean, r.CategoryNetStd)
			if r.CategoryNetMean != 0 {
				r.SpendVsCategoryMean = math.Abs(net) / math.Abs(r.CategoryNetMean)
			}
		}

		for _, rule := range d.rules {
			flagged := rule.Flag(r)
			switch rule.Name() {
			case "zscore":
				r.IsOutlier = flagged
			case "large_amount":
				r.IsLargeTransaction = flagged
			case "rare_category":
				r.IsRareCategory = flagged
			}
			if flagged {
				r.IsAnomaly = true
			}
		}

		r.SizeBucket = sizeBucket(r)

		if r.IsOutlier {
			stats.Outliers++
		}
		if r.IsLargeTransaction {
			stats.LargeTransactions++
		}
		if r.IsAnomaly {
			stats.Anomalies++
		}
	}

	d.log.Info().
		Int("outliers", stats.Outliers).
		Int("large_transactions", stats.LargeTransactions).
		Int("anomalies", stats.Anomalies).
		Msg("Anomaly detection completed")
}

// sizeBucket classifies the absolute transaction magnitude.
func sizeBucket(r *Record) string {
	if !r.Abs.Valid {
		return ""
	}
	abs, _ := r.Abs.Decimal.Float64()
	switch {
	case abs < 10:
		return "micro"
	case abs < 50:
		return "small"
	case abs < 200:
		return "medium"
	case abs < 1000:
		return "large"
	default:
		return "very_large"
	}
}
