package reports

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgerlens/internal/database"
	"github.com/aristath/ledgerlens/internal/modules/warehouse"
)

// CategoryRow is one line of the category breakdown report.
type CategoryRow struct {
	Category     string  `json:"category"`
	CategoryType string  `json:"category_type"`
	TxnCount     int     `json:"txn_count"`
	TotalNet     float64 `json:"total_net"`
	MeanNet      float64 `json:"mean_net"`
	TotalDebit   float64 `json:"total_debit"`
	TotalCredit  float64 `json:"total_credit"`
	AnomalyCount int     `json:"anomaly_count"`
}

// MonthRow is one line of the monthly summary report.
type MonthRow struct {
	YearMonth   string  `json:"year_month"`
	TxnCount    int     `json:"txn_count"`
	Income      float64 `json:"income"`
	Expenses    float64 `json:"expenses"`
	Net         float64 `json:"net"`
	WeekendSpend float64 `json:"weekend_spend"`
}

// AnomalyRow is one flagged transaction.
type AnomalyRow struct {
	TransactionID string  `json:"transaction_id"`
	Date          *string `json:"date"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	NetAmount     *float64 `json:"net_amount"`
	NetZScore     float64 `json:"net_zscore"`
	IsOutlier     bool    `json:"is_outlier"`
	IsLarge       bool    `json:"is_large_transaction"`
	IsRare        bool    `json:"is_rare_category"`
	SizeBucket    string  `json:"size_bucket"`
}

// RecurringRow is one recurring description group.
type RecurringRow struct {
	NormalizedDescription string  `json:"normalized_description"`
	TxnCount              int     `json:"txn_count"`
	TotalNet              float64 `json:"total_net"`
	MeanNet               float64 `json:"mean_net"`
	DuplicateCandidates   int     `json:"duplicate_candidates"`
	HasSubscription       bool    `json:"has_subscription_keyword"`
}

// QualityOverview summarizes per-row data quality for the loaded batch.
type QualityOverview struct {
	TxnCount        int     `json:"txn_count"`
	MeanScore       float64 `json:"mean_score"`
	MinScore        float64 `json:"min_score"`
	PerfectRows     int     `json:"perfect_rows"`
	DegradedRows    int     `json:"degraded_rows"` // score < 1
	MissingDates    int     `json:"missing_dates"`
	MissingAmounts  int     `json:"missing_amounts"`
}

// Service answers report queries against the loaded warehouse batch.
type Service struct {
	db  *database.DB
	log zerolog.Logger
}

// NewService creates a new reports service
func NewService(db *database.DB, log zerolog.Logger) *Service {
	return &Service{
		db:  db,
		log: log.With().Str("component", "reports").Logger(),
	}
}

// hasBatch reports whether a batch has been loaded yet.
func (s *Service) hasBatch() (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		warehouse.TableName,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check for fact table: %w", err)
	}
	return n > 0, nil
}

// CategoryBreakdown aggregates the batch per category, largest spend first.
func (s *Service) CategoryBreakdown() ([]CategoryRow, error) {
	ok, err := s.hasBatch()
	if err != nil || !ok {
		return []CategoryRow{}, err
	}

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT category, category_type, COUNT(*),
			COALESCE(SUM(net_amount), 0),
			COALESCE(AVG(net_amount), 0),
			COALESCE(SUM(debit_amount), 0),
			COALESCE(SUM(credit_amount), 0),
			SUM(is_anomaly)
		FROM %s
		GROUP BY category, category_type
		ORDER BY SUM(COALESCE(debit_amount, 0)) DESC
	`, warehouse.TableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query category breakdown: %w", err)
	}
	defer rows.Close()

	out := []CategoryRow{}
	for rows.Next() {
		var r CategoryRow
		if err := rows.Scan(&r.Category, &r.CategoryType, &r.TxnCount,
			&r.TotalNet, &r.MeanNet, &r.TotalDebit, &r.TotalCredit, &r.AnomalyCount); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MonthlySummary aggregates the batch per calendar month in order.
func (s *Service) MonthlySummary() ([]MonthRow, error) {
	ok, err := s.hasBatch()
	if err != nil || !ok {
		return []MonthRow{}, err
	}

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT year_month, COUNT(*),
			COALESCE(SUM(CASE WHEN is_income = 1 THEN net_amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_expense = 1 THEN abs_amount ELSE 0 END), 0),
			COALESCE(SUM(net_amount), 0),
			COALESCE(SUM(CASE WHEN is_weekend = 1 AND is_expense = 1 THEN abs_amount ELSE 0 END), 0)
		FROM %s
		WHERE year_month != ''
		GROUP BY year_month
		ORDER BY year_month
	`, warehouse.TableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly summary: %w", err)
	}
	defer rows.Close()

	out := []MonthRow{}
	for rows.Next() {
		var r MonthRow
		if err := rows.Scan(&r.YearMonth, &r.TxnCount, &r.Income, &r.Expenses, &r.Net, &r.WeekendSpend); err != nil {
			return nil, fmt.Errorf("failed to scan month row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Anomalies lists flagged transactions, most extreme z-score first.
func (s *Service) Anomalies(limit int) ([]AnomalyRow, error) {
	ok, err := s.hasBatch()
	if err != nil || !ok {
		return []AnomalyRow{}, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT transaction_id, date, description, category, net_amount, net_zscore,
			is_outlier, is_large_transaction, is_rare_category, size_bucket
		FROM %s
		WHERE is_anomaly = 1
		ORDER BY ABS(net_zscore) DESC
		LIMIT ?
	`, warehouse.TableName), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	out := []AnomalyRow{}
	for rows.Next() {
		var r AnomalyRow
		var outlier, large, rare int
		if err := rows.Scan(&r.TransactionID, &r.Date, &r.Description, &r.Category,
			&r.NetAmount, &r.NetZScore, &outlier, &large, &rare, &r.SizeBucket); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly row: %w", err)
		}
		r.IsOutlier = outlier == 1
		r.IsLarge = large == 1
		r.IsRare = rare == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopRecurring lists recurring description groups by frequency.
func (s *Service) TopRecurring(limit int) ([]RecurringRow, error) {
	ok, err := s.hasBatch()
	if err != nil || !ok {
		return []RecurringRow{}, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT normalized_description, COUNT(*),
			COALESCE(SUM(net_amount), 0),
			COALESCE(AVG(net_amount), 0),
			SUM(is_duplicate_candidate),
			MAX(has_subscription_keyword)
		FROM %s
		WHERE is_recurring_description = 1
		GROUP BY normalized_description
		ORDER BY COUNT(*) DESC, normalized_description
		LIMIT ?
	`, warehouse.TableName), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring groups: %w", err)
	}
	defer rows.Close()

	out := []RecurringRow{}
	for rows.Next() {
		var r RecurringRow
		var sub int
		if err := rows.Scan(&r.NormalizedDescription, &r.TxnCount, &r.TotalNet,
			&r.MeanNet, &r.DuplicateCandidates, &sub); err != nil {
			return nil, fmt.Errorf("failed to scan recurring row: %w", err)
		}
		r.HasSubscription = sub == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// Quality summarizes the batch's data quality scores.
func (s *Service) Quality() (*QualityOverview, error) {
	ok, err := s.hasBatch()
	if err != nil {
		return nil, err
	}
	if !ok {
		return &QualityOverview{}, nil
	}

	var q QualityOverview
	err = s.db.QueryRow(fmt.Sprintf(`
		SELECT COUNT(*),
			COALESCE(AVG(data_quality_score), 0),
			COALESCE(MIN(data_quality_score), 0),
			SUM(CASE WHEN data_quality_score >= 1.0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN data_quality_score < 1.0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN date IS NULL THEN 1 ELSE 0 END),
			SUM(CASE WHEN net_amount IS NULL THEN 1 ELSE 0 END)
		FROM %s
	`, warehouse.TableName)).Scan(&q.TxnCount, &q.MeanScore, &q.MinScore,
		&q.PerfectRows, &q.DegradedRows, &q.MissingDates, &q.MissingAmounts)
	if err != nil {
		return nil, fmt.Errorf("failed to query quality overview: %w", err)
	}
	return &q, nil
}

// ExportCSV streams the full fact table as CSV, header row first.
func (s *Service) ExportCSV(w io.Writer) error {
	ok, err := s.hasBatch()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no batch loaded")
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT * FROM %s", warehouse.TableName))
	if err != nil {
		return fmt.Errorf("failed to read fact table: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		fields := make([]string, len(vals))
		for i, v := range vals {
			fields[i] = csvField(v)
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func csvField(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
