package warehouse

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/ledgerlens/internal/database"
	"github.com/aristath/ledgerlens/internal/modules/enrich"
)

// TableName is the enriched fact table. Each run replaces it wholesale;
// the warehouse is a projection of the latest batch, not an append log.
const TableName = "enriched_transactions"

// column pairs a column name with the expression that pulls its value out
// of a record. Optional enrichment columns are appended per run, so the
// table schema follows the batch rather than a fixed DDL file.
type column struct {
	name  string
	ddl   string
	value func(r *enrich.Record) interface{}
}

// Repository loads enriched batches into SQLite and records run audit rows.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a warehouse repository
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "warehouse").Logger(),
	}
}

// EnsureSchema creates the run audit table. The fact table is created per
// batch by ReplaceBatch.
func (r *Repository) EnsureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL,
			rows_in INTEGER NOT NULL DEFAULT 0,
			rows_out INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			stats_json TEXT NOT NULL DEFAULT '',
			snapshot_path TEXT NOT NULL DEFAULT '',
			dump_path TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create pipeline_runs table: %w", err)
	}
	return nil
}

// ReplaceBatch drops and recreates the fact table from one engine result.
// The whole load runs in a single transaction so readers never observe a
// half-written batch.
func (r *Repository) ReplaceBatch(result *enrich.Result) error {
	cols := batchColumns(result)

	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", c.name, c.ddl)
		names[i] = c.name
		marks[i] = "?"
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", TableName)); err != nil {
		return fmt.Errorf("failed to drop fact table: %w", err)
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", TableName, strings.Join(defs, ",\n\t"))
	if _, err := tx.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create fact table: %w", err)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		TableName, strings.Join(names, ", "), strings.Join(marks, ", "))
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range result.Records {
		args := make([]interface{}, len(cols))
		for i, c := range cols {
			args[i] = c.value(rec)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert row %s: %w", rec.TransactionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	r.log.Info().
		Int("rows", len(result.Records)).
		Int("columns", len(cols)).
		Bool("holidays", result.HolidaysApplied).
		Bool("fx", result.FXApplied).
		Msg("Batch loaded")
	return nil
}

// batchColumns builds the column set for one result. Holiday and FX columns
// only exist when that enrichment ran, and FX amount columns carry the
// target currency in their name (net_amount_usd, ...).
func batchColumns(result *enrich.Result) []column {
	processedAt := result.ProcessedAt.UTC().Format(time.RFC3339)

	cols := []column{
		{"transaction_id", "TEXT NOT NULL", func(r *enrich.Record) interface{} { return r.TransactionID }},
		{"description", "TEXT NOT NULL", func(r *enrich.Record) interface{} { return r.Description }},
		{"category", "TEXT NOT NULL", func(r *enrich.Record) interface{} { return r.Category }},
		{"currency", "TEXT", func(r *enrich.Record) interface{} { return r.Currency }},
		{"date", "TEXT", func(r *enrich.Record) interface{} { return nullDate(r.Date) }},
		{"year", "INTEGER", func(r *enrich.Record) interface{} { return r.Year }},
		{"month", "INTEGER", func(r *enrich.Record) interface{} { return r.Month }},
		{"year_month", "TEXT", func(r *enrich.Record) interface{} { return r.YearMonth }},
		{"day_of_week", "INTEGER", func(r *enrich.Record) interface{} { return r.DayOfWeek }},
		{"quarter", "INTEGER", func(r *enrich.Record) interface{} { return r.Quarter }},
		{"week_of_year", "INTEGER", func(r *enrich.Record) interface{} { return r.WeekOfYear }},
		{"is_weekend", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsWeekend) }},
		{"is_month_start", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsMonthStart) }},
		{"is_month_end", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsMonthEnd) }},
		{"credit_amount", "REAL", func(r *enrich.Record) interface{} { return nullDecimal(r.Credit) }},
		{"debit_amount", "REAL", func(r *enrich.Record) interface{} { return nullDecimal(r.Debit) }},
		{"net_amount", "REAL", func(r *enrich.Record) interface{} { return nullDecimal(r.Net) }},
		{"abs_amount", "REAL", func(r *enrich.Record) interface{} { return nullDecimal(r.Abs) }},
		{"direction", "TEXT NOT NULL", func(r *enrich.Record) interface{} { return r.Direction }},
		{"is_income", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsIncome) }},
		{"is_expense", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsExpense) }},
		{"category_type", "TEXT NOT NULL", func(r *enrich.Record) interface{} { return r.CategoryType }},
		{"category_priority", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return r.CategoryPriority }},
		{"category_tax_deductible", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.CategoryTaxDeduct) }},
		{"category_net_mean", "REAL NOT NULL", func(r *enrich.Record) interface{} { return r.CategoryNetMean }},
		{"category_net_std", "REAL NOT NULL", func(r *enrich.Record) interface{} { return r.CategoryNetStd }},
		{"category_txn_count", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return r.CategoryTxnCount }},
		{"net_zscore", "REAL NOT NULL", func(r *enrich.Record) interface{} { return r.NetZScore }},
		{"spend_vs_category_mean", "REAL NOT NULL", func(r *enrich.Record) interface{} { return r.SpendVsCategoryMean }},
		{"is_outlier", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsOutlier) }},
		{"is_large_transaction", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsLargeTransaction) }},
		{"is_rare_category", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsRareCategory) }},
		{"is_anomaly", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsAnomaly) }},
		{"size_bucket", "TEXT NOT NULL", func(r *enrich.Record) interface{} { return r.SizeBucket }},
		{"normalized_description", "TEXT NOT NULL", func(r *enrich.Record) interface{} { return r.NormalizedDescription }},
		{"description_length", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return r.DescriptionLength }},
		{"description_txn_count", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return r.DescriptionTxnCount }},
		{"days_since_prev_same_description", "INTEGER", func(r *enrich.Record) interface{} { return nullInt(r.DaysSincePrevSameDesc) }},
		{"is_recurring_description", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsRecurringDescription) }},
		{"is_duplicate_candidate", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsDuplicateCandidate) }},
		{"has_subscription_keyword", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.HasSubscriptionKeyword) }},
		{"has_atm_keyword", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.HasATMKeyword) }},
		{"has_transfer_keyword", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.HasTransferKeyword) }},
		{"has_refund_keyword", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.HasRefundKeyword) }},
		{"is_refund", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsRefund) }},
		{"is_fee_transaction", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsFeeTransaction) }},
		{"is_payment_transaction", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsPaymentTransaction) }},
		{"is_discretionary", "INTEGER NOT NULL", func(r *enrich.Record) interface{} { return boolInt(r.IsDiscretionary) }},
		{"tax_deductible_amount", "REAL NOT NULL", func(r *enrich.Record) interface{} { f, _ := r.TaxDeductibleAmount.Float64(); return f }},
		{"data_quality_score", "REAL NOT NULL", func(r *enrich.Record) interface{} { return r.DataQualityScore }},
	}

	if result.HolidaysApplied {
		cols = append(cols, column{
			"is_public_holiday", "INTEGER NOT NULL",
			func(r *enrich.Record) interface{} { return boolInt(r.IsPublicHoliday) },
		})
	}

	if result.FXApplied {
		target := strings.ToLower(result.FXTarget)
		cols = append(cols,
			column{"fx_rate", "REAL", func(r *enrich.Record) interface{} { return nullFloat(r.FXRate) }},
			column{"net_amount_" + target, "REAL", func(r *enrich.Record) interface{} { return nullDecimal(r.NetConverted) }},
			column{"credit_amount_" + target, "REAL", func(r *enrich.Record) interface{} { return nullDecimal(r.CreditConverted) }},
			column{"debit_amount_" + target, "REAL", func(r *enrich.Record) interface{} { return nullDecimal(r.DebitConverted) }},
		)
	}

	cols = append(cols, column{
		"processed_at", "TEXT NOT NULL",
		func(r *enrich.Record) interface{} { return processedAt },
	})

	return cols
}

// RecordRun upserts one run audit row.
func (r *Repository) RecordRun(run *Run) error {
	var finished interface{}
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC().Format(time.RFC3339)
	}

	_, err := r.db.Exec(`
		INSERT INTO pipeline_runs (run_id, started_at, finished_at, status, rows_in, rows_out, error, stats_json, snapshot_path, dump_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			status = excluded.status,
			rows_in = excluded.rows_in,
			rows_out = excluded.rows_out,
			error = excluded.error,
			stats_json = excluded.stats_json,
			snapshot_path = excluded.snapshot_path,
			dump_path = excluded.dump_path
	`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		finished,
		run.Status,
		run.RowsIn,
		run.RowsOut,
		run.Error,
		run.StatsJSON,
		run.SnapshotPath,
		run.DumpPath,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *Repository) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT run_id, started_at, finished_at, status, rows_in, rows_out, error, stats_json, snapshot_path, dump_path
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var started string
		var finished *string
		if err := rows.Scan(&run.ID, &started, &finished, &run.Status, &run.RowsIn, &run.RowsOut,
			&run.Error, &run.StatsJSON, &run.SnapshotPath, &run.DumpPath); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != nil {
			t, err := time.Parse(time.RFC3339, *finished)
			if err == nil {
				run.FinishedAt = &t
			}
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func nullDecimal(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	f, _ := d.Decimal.Float64()
	return f
}

func nullInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
