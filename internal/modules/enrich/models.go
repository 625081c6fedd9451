package enrich

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one enriched transaction row. The zero value of every derived
// field is a valid "not set" state so rows with missing inputs still carry a
// full, stable schema downstream.
type Record struct {
	// Identity / base fields (canonical names)
	TransactionID string `json:"transaction_id"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Currency      string `json:"currency,omitempty"`
	RawDate       string `json:"raw_date,omitempty"`

	// Date is nil when the raw value could not be parsed
	Date *time.Time `json:"date"`

	// Monetary fields. Credit and Debit are invalid when the raw value was
	// missing or unparseable; Net is invalid only when both sides are.
	Credit decimal.NullDecimal `json:"credit_amount"`
	Debit  decimal.NullDecimal `json:"debit_amount"`
	Net    decimal.NullDecimal `json:"net_amount"`
	Abs    decimal.NullDecimal `json:"abs_amount"`

	Direction string `json:"direction"` // credit, debit or neutral
	IsIncome  bool   `json:"is_income"`
	IsExpense bool   `json:"is_expense"`

	// Temporal features (zeroed when Date is nil)
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	YearMonth    string `json:"year_month"`
	DayOfWeek    int    `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	Quarter      int    `json:"quarter"`
	WeekOfYear   int    `json:"week_of_year"`
	IsWeekend    bool   `json:"is_weekend"`
	IsMonthStart bool   `json:"is_month_start"`
	IsMonthEnd   bool   `json:"is_month_end"`

	// Category metadata and baseline
	CategoryType         string  `json:"category_type"`
	CategoryPriority     int     `json:"category_priority"` // 1=low .. 3=high
	CategoryTaxDeduct    bool    `json:"category_tax_deductible"`
	CategoryNetMean      float64 `json:"category_net_mean"`
	CategoryNetStd       float64 `json:"category_net_std"`
	CategoryTxnCount     int     `json:"category_txn_count"`
	NetZScore            float64 `json:"net_zscore"`
	SpendVsCategoryMean  float64 `json:"spend_vs_category_mean"`

	// Anomaly flags
	IsOutlier          bool   `json:"is_outlier"`
	IsLargeTransaction bool   `json:"is_large_transaction"`
	IsRareCategory     bool   `json:"is_rare_category"`
	IsAnomaly          bool   `json:"is_anomaly"`
	SizeBucket         string `json:"size_bucket"`

	// Recurrence / description features
	NormalizedDescription  string `json:"normalized_description"`
	DescriptionLength      int    `json:"description_length"`
	DescriptionTxnCount    int    `json:"description_txn_count"`
	DaysSincePrevSameDesc  *int   `json:"days_since_prev_same_description"`
	IsRecurringDescription bool   `json:"is_recurring_description"`
	IsDuplicateCandidate   bool   `json:"is_duplicate_candidate"`
	HasSubscriptionKeyword bool   `json:"has_subscription_keyword"`
	HasATMKeyword          bool   `json:"has_atm_keyword"`
	HasTransferKeyword     bool   `json:"has_transfer_keyword"`
	HasRefundKeyword       bool   `json:"has_refund_keyword"`
	IsRefund               bool   `json:"is_refund"`
	IsFeeTransaction       bool   `json:"is_fee_transaction"`
	IsPaymentTransaction   bool   `json:"is_payment_transaction"`
	IsDiscretionary        bool   `json:"is_discretionary"`

	TaxDeductibleAmount decimal.Decimal `json:"tax_deductible_amount"`

	DataQualityScore float64 `json:"data_quality_score"`

	// External enrichment
	IsPublicHoliday bool                `json:"is_public_holiday"`
	FXRate          *float64            `json:"fx_rate,omitempty"`
	NetConverted    decimal.NullDecimal `json:"net_amount_converted,omitempty"`
	CreditConverted decimal.NullDecimal `json:"credit_amount_converted,omitempty"`
	DebitConverted  decimal.NullDecimal `json:"debit_amount_converted,omitempty"`

	// rowIndex preserves the original batch position. It is the tie-break
	// for same-description rows on the same date, which keeps
	// days_since_prev_same_description deterministic across runs.
	rowIndex int
}

// NetFloat returns the net amount as float64, with false when net is null.
func (r *Record) NetFloat() (float64, bool) {
	if !r.Net.Valid {
		return 0, false
	}
	f, _ := r.Net.Decimal.Float64()
	return f, true
}

// CategoryProfile holds the per-category statistical baseline for one batch.
// Profiles are recomputed from scratch on every run.
type CategoryProfile struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	MeanNet  float64 `json:"mean_net"`
	StdNet   float64 `json:"std_net"`
}

// RunStats counts non-fatal conditions observed during one pipeline run.
// Row-level defects never abort the batch; they surface here and in the
// per-row quality score.
type RunStats struct {
	RowsIn             int `json:"rows_in"`
	UnparseableDates   int `json:"unparseable_dates"`
	UnparseableAmounts int `json:"unparseable_amounts"`
	ZeroNetRows        int `json:"zero_net_rows"`
	UnknownCategories  int `json:"unknown_categories"`

	Outliers              int `json:"outliers"`
	LargeTransactions     int `json:"large_transactions"`
	Anomalies             int `json:"anomalies"`
	RecurringDescriptions int `json:"recurring_descriptions"`
	DuplicateCandidates   int `json:"duplicate_candidates"`

	HolidayKeysFetched int  `json:"holiday_keys_fetched"`
	HolidayKeysFailed  int  `json:"holiday_keys_failed"`
	FXKeysFetched      int  `json:"fx_keys_fetched"`
	FXKeysFailed       int  `json:"fx_keys_failed"`
	FXRowsUnresolved   int  `json:"fx_rows_unresolved"`
	FXSkippedNoCurrency bool `json:"fx_skipped_no_currency"`
}

// Result is the output of one engine run.
type Result struct {
	Records []*Record
	Profiles map[string]CategoryProfile
	Stats   RunStats

	// HolidaysApplied / FXApplied report whether the optional enrichment
	// columns are part of this batch's schema. A degraded fetch still
	// counts as applied: the columns exist, with default values.
	HolidaysApplied bool
	FXApplied       bool
	FXTarget        string

	ProcessedAt time.Time
}
