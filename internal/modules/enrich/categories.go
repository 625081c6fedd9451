package enrich

import (
	"github.com/rs/zerolog"

	"github.com/aristath/ledgerlens/pkg/formulas"
)

// Category priorities, ordinal so reports can sort and filter on them.
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// CategoryMeta is the static business metadata attached to a category.
type CategoryMeta struct {
	Type          string
	TaxDeductible bool
	Priority      int
}

// unknownCategory is the default for categories missing from the lookup.
// An unmatched category is a data condition, not an error.
var unknownCategory = CategoryMeta{Type: "unknown", TaxDeductible: false, Priority: PriorityLow}

// categoryTable maps the category values seen in source data to business
// metadata. Keyed by exact category string.
var categoryTable = map[string]CategoryMeta{
	"Other Services":      {Type: "service", TaxDeductible: false, Priority: PriorityMedium},
	"Health Care":         {Type: "healthcare", TaxDeductible: true, Priority: PriorityHigh},
	"Payment/Credit":      {Type: "payment", TaxDeductible: false, Priority: PriorityHigh},
	"Merchandise":         {Type: "retail", TaxDeductible: false, Priority: PriorityLow},
	"Phone/Cable":         {Type: "utilities", TaxDeductible: false, Priority: PriorityMedium},
	"Fee/Interest Charge": {Type: "fee", TaxDeductible: false, Priority: PriorityHigh},
	"Other":               {Type: "miscellaneous", TaxDeductible: false, Priority: PriorityLow},
	"Dining":              {Type: "food_beverage", TaxDeductible: false, Priority: PriorityLow},
	"Gas/Automotive":      {Type: "transportation", TaxDeductible: true, Priority: PriorityMedium},
	"Other Travel":        {Type: "travel", TaxDeductible: true, Priority: PriorityMedium},
	"restaurants":         {Type: "food_beverage", TaxDeductible: false, Priority: PriorityLow},
	"beauty":              {Type: "personal_care", TaxDeductible: false, Priority: PriorityLow},
	"fuel":                {Type: "transportation", TaxDeductible: true, Priority: PriorityMedium},
	"air":                 {Type: "transportation", TaxDeductible: true, Priority: PriorityMedium},
	"gaz":                 {Type: "transportation", TaxDeductible: true, Priority: PriorityMedium},
	"food":                {Type: "food_beverage", TaxDeductible: false, Priority: PriorityLow},
	"taxi":                {Type: "transportation", TaxDeductible: true, Priority: PriorityMedium},
}

// discretionaryTypes are lifestyle spend types, flagged for budget reports.
var discretionaryTypes = map[string]bool{
	"food_beverage": true,
	"personal_care": true,
	"retail":        true,
	"miscellaneous": true,
}

// Profiler attaches category metadata and computes per-category statistical
// baselines over the whole batch.
type Profiler struct {
	log zerolog.Logger
}

// NewProfiler creates a new category profiler
func NewProfiler(log zerolog.Logger) *Profiler {
	return &Profiler{
		log: log.With().Str("stage", "profiler").Logger(),
	}
}

// Apply joins records against the category lookup, then computes the
// population mean and standard deviation of net amount per category. All
// rows participate in the baseline, outliers included: the baseline must
// reflect the true batch distribution. Categories with fewer than two
// measurable rows get std 0, which later pins their z-scores to 0.
func (p *Profiler) Apply(records []*Record, stats *RunStats) map[string]CategoryProfile {
	nets := make(map[string][]float64)

	for _, r := range records {
		meta, ok := categoryTable[r.Category]
		if !ok {
			meta = unknownCategory
			stats.UnknownCategories++
		}
		r.CategoryType = meta.Type
		r.CategoryPriority = meta.Priority
		r.CategoryTaxDeduct = meta.TaxDeductible
		r.IsDiscretionary = discretionaryTypes[meta.Type]

		if net, ok := r.NetFloat(); ok {
			nets[r.Category] = append(nets[r.Category], net)
		}
	}

	profiles := make(map[string]CategoryProfile, len(nets))
	for category, values := range nets {
		profile := CategoryProfile{
			Category: category,
			Count:    len(values),
			MeanNet:  formulas.Mean(values),
		}
		if len(values) >= 2 {
			profile.StdNet = formulas.PopStdDev(values)
		}
		profiles[category] = profile
	}

	for _, r := range records {
		profile, ok := profiles[r.Category]
		if !ok {
			continue
		}
		r.CategoryNetMean = profile.MeanNet
		r.CategoryNetStd = profile.StdNet
		r.CategoryTxnCount = profile.Count
	}

	p.log.Info().
		Int("categories", len(profiles)).
		Int("unknown_rows", stats.UnknownCategories).
		Msg("Category profiles computed")

	return profiles
}
