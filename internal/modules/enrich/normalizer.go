package enrich

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Normalizer standardizes raw records into canonical Records: canonical
// field names, one calendar-date representation, fixed-precision amounts.
// Rows with unparseable values are kept with null fields, never dropped,
// so downstream statistics see the whole batch.
type Normalizer struct {
	log zerolog.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{
		log: log.With().Str("stage", "normalizer").Logger(),
	}
}

var (
	camelBoundary  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	amountJunk     = regexp.MustCompile(`[^0-9.\-]`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// standardKeys maps snake_cased source column names to canonical names.
// Anything not listed passes through unchanged.
var standardKeys = map[string]string{
	"id":               "transaction_id",
	"transaction_id":   "transaction_id",
	"transaction_date": "date",
	"date":             "date",
	"description":      "description",
	"category":         "category",
	"credit":           "credit_amount",
	"credit_amount":    "credit_amount",
	"debit":            "debit_amount",
	"debit_amount":     "debit_amount",
	"currency":         "currency",
}

// dateLayouts are tried in order when parsing raw date values.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"02 Jan 2006",
}

// Normalize converts a raw batch into canonical records. It fails only on
// an empty batch or a batch where no row carries any recognizable column;
// every other defect degrades to a null field plus a counter.
func (n *Normalizer) Normalize(raw []map[string]interface{}, stats *RunStats) ([]*Record, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty input batch")
	}

	records := make([]*Record, 0, len(raw))
	recognized := false

	for i, row := range raw {
		canonical := make(map[string]string, len(row))
		for key, value := range row {
			ck := canonicalKey(key)
			if _, known := standardKeys[ck]; known {
				recognized = true
			}
			canonical[standardKey(ck)] = valueToString(value)
		}

		rec := &Record{
			TransactionID: canonical["transaction_id"],
			Description:   canonical["description"],
			Category:      strings.TrimSpace(canonical["category"]),
			Currency:      strings.ToUpper(strings.TrimSpace(canonical["currency"])),
			RawDate:       canonical["date"],
			rowIndex:      i,
		}

		if rec.RawDate != "" {
			if d, ok := parseDate(rec.RawDate); ok {
				rec.Date = d
			} else {
				stats.UnparseableDates++
				n.log.Debug().Int("row", i).Str("value", rec.RawDate).Msg("Unparseable date")
			}
		} else {
			stats.UnparseableDates++
		}

		credit, creditOK, creditJunk := parseAmount(canonical["credit_amount"])
		debit, debitOK, debitJunk := parseAmount(canonical["debit_amount"])
		if creditJunk || debitJunk {
			stats.UnparseableAmounts++
		}

		if creditOK {
			rec.Credit = decimal.NewNullDecimal(credit.Abs().Round(2))
		}
		if debitOK {
			rec.Debit = decimal.NewNullDecimal(debit.Abs().Round(2))
		}

		// Net is defined when at least one side parsed; the missing side
		// counts as zero. Both sides missing leaves net null.
		if creditOK || debitOK {
			net := rec.Credit.Decimal.Sub(rec.Debit.Decimal)
			rec.Net = decimal.NewNullDecimal(net)
			rec.Abs = decimal.NewNullDecimal(net.Abs())

			switch {
			case net.IsPositive():
				rec.Direction = "credit"
				rec.IsIncome = true
			case net.IsNegative():
				rec.Direction = "debit"
				rec.IsExpense = true
			default:
				// Zero net is neither income nor expense. Logged, not an error.
				rec.Direction = "neutral"
				stats.ZeroNetRows++
				n.log.Debug().Int("row", i).Str("transaction_id", rec.TransactionID).Msg("Zero net amount")
			}
		} else {
			rec.Direction = "neutral"
		}

		records = append(records, rec)
	}

	if !recognized {
		return nil, fmt.Errorf("unrecognizable schema: no known columns in %d rows", len(raw))
	}

	stats.RowsIn = len(records)
	n.log.Info().
		Int("rows", len(records)).
		Int("unparseable_dates", stats.UnparseableDates).
		Int("unparseable_amounts", stats.UnparseableAmounts).
		Msg("Batch normalized")

	return records, nil
}

// canonicalKey converts a source column name to snake_case.
func canonicalKey(key string) string {
	s := camelBoundary.ReplaceAllString(strings.TrimSpace(key), "${1}_${2}")
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func standardKey(ck string) string {
	if std, ok := standardKeys[ck]; ok {
		return std
	}
	return ck
}

// valueToString renders a raw JSON value as a string. Whole-number floats
// lose their trailing ".0" so numeric IDs survive the JSON round trip.
func valueToString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// parseDate tries the known layouts and truncates to a UTC calendar date.
func parseDate(raw string) (*time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, true
		}
	}
	return nil, false
}

// parseAmount cleans currency symbols and separators and parses a decimal.
// ok reports a usable value; junk reports a non-empty value that failed to
// parse (counted as a data defect, unlike a simply absent value).
func parseAmount(raw string) (dec decimal.Decimal, ok bool, junk bool) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "null", "none", "nan":
		return decimal.Zero, false, false
	}

	cleaned := amountJunk.ReplaceAllString(s, "")
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero, false, true
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false, true
	}
	return d, true, false
}
