package enrich

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Keyword vocabularies for description features. Matched case-insensitively
// as substrings of the normalized description.
var (
	subscriptionVocabulary = []string{"subscription", "suscrip", "netflix", "spotify", "itunes", "prime", "membership"}
	transferVocabulary     = []string{"transfer", "transf", "zelle", "wire", "sepa"}
	refundVocabulary       = []string{"refund", "reversal", "chargeback", "reembolso"}

	atmWord = regexp.MustCompile(`\batm\b`)
)

// Analyzer groups transactions by normalized description to derive
// frequency, inter-occurrence gaps, recurrence and duplicate-candidate
// flags.
type Analyzer struct {
	minCount   int
	windowDays int
	epsilon    decimal.Decimal
	log        zerolog.Logger
}

// NewAnalyzer creates a new recurrence analyzer
func NewAnalyzer(settings Settings, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		minCount:   settings.RecurringMinCount,
		windowDays: settings.DuplicateWindowDays,
		epsilon:    decimal.NewFromFloat(settings.DuplicateAmountEpsilon),
		log:        log.With().Str("stage", "recurrence").Logger(),
	}
}

// Apply computes description features and per-group recurrence fields.
// Within a group, rows are ordered by date ascending; same-day rows keep
// their original batch order so gaps stay deterministic across runs.
func (a *Analyzer) Apply(records []*Record, stats *RunStats) {
	groups := make(map[string][]*Record)

	for _, r := range records {
		r.NormalizedDescription = normalizeDescription(r.Description)
		r.DescriptionLength = utf8.RuneCountInString(r.NormalizedDescription)
		r.HasSubscriptionKeyword = containsAny(r.NormalizedDescription, subscriptionVocabulary)
		r.HasTransferKeyword = containsAny(r.NormalizedDescription, transferVocabulary)
		r.HasRefundKeyword = containsAny(r.NormalizedDescription, refundVocabulary)
		r.HasATMKeyword = atmWord.MatchString(r.NormalizedDescription)

		category := strings.ToLower(r.Category)
		r.IsFeeTransaction = strings.Contains(category, "fee")
		r.IsPaymentTransaction = strings.Contains(category, "payment")
		r.IsRefund = r.HasRefundKeyword ||
			(strings.Contains(category, "payment/credit") && r.Net.Valid && r.Net.Decimal.IsPositive())

		r.TaxDeductibleAmount = decimal.Zero
		if r.CategoryTaxDeduct && r.Abs.Valid {
			r.TaxDeductibleAmount = r.Abs.Decimal
		}

		if r.NormalizedDescription != "" {
			groups[r.NormalizedDescription] = append(groups[r.NormalizedDescription], r)
		}
	}

	recurringGroups := 0
	for _, group := range groups {
		frequency := len(group)
		recurring := frequency >= a.minCount
		for _, r := range group {
			r.DescriptionTxnCount = frequency
			r.IsRecurringDescription = recurring || r.HasSubscriptionKeyword
		}
		if recurring {
			recurringGroups++
		}

		a.applyGaps(group, stats)
	}

	for _, r := range records {
		if r.IsRecurringDescription {
			stats.RecurringDescriptions++
		}
	}

	a.log.Info().
		Int("groups", len(groups)).
		Int("recurring_groups", recurringGroups).
		Int("duplicate_candidates", stats.DuplicateCandidates).
		Msg("Recurrence analysis completed")
}

// applyGaps orders one description group by date and fills
// days_since_prev_same_description and is_duplicate_candidate. Rows with
// no parsed date cannot be ordered and keep null gaps.
func (a *Analyzer) applyGaps(group []*Record, stats *RunStats) {
	dated := make([]*Record, 0, len(group))
	for _, r := range group {
		if r.Date != nil {
			dated = append(dated, r)
		}
	}
	if len(dated) < 2 {
		return
	}

	sort.SliceStable(dated, func(i, j int) bool {
		if dated[i].Date.Equal(*dated[j].Date) {
			return dated[i].rowIndex < dated[j].rowIndex
		}
		return dated[i].Date.Before(*dated[j].Date)
	})

	for i := 1; i < len(dated); i++ {
		prev, cur := dated[i-1], dated[i]

		gap := int(cur.Date.Sub(*prev.Date).Hours() / 24)
		g := gap
		cur.DaysSincePrevSameDesc = &g

		// A duplicate candidate repeats within the short window with a
		// near-equal amount: a likely double charge, not a subscription
		// (those repeat monthly, not daily).
		if gap <= a.windowDays && nearEqualAmount(prev, cur, a.epsilon) {
			cur.IsDuplicateCandidate = true
			stats.DuplicateCandidates++
		}
	}
}

func nearEqualAmount(a, b *Record, epsilon decimal.Decimal) bool {
	if !a.Net.Valid || !b.Net.Valid {
		return false
	}
	diff := a.Net.Decimal.Sub(b.Net.Decimal).Abs()
	return diff.LessThanOrEqual(epsilon)
}

// normalizeDescription case-folds, trims and collapses whitespace so that
// descriptions differing only in case or spacing share one group.
func normalizeDescription(description string) string {
	fields := strings.Fields(strings.ToLower(description))
	return strings.Join(fields, " ")
}

func containsAny(s string, vocabulary []string) bool {
	for _, word := range vocabulary {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}
