package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
)

// defaultBatchSize is the dev-mode batch size.
const defaultBatchSize = 250

// merchant pairs a description template with the source category it shows
// up under.
type merchant struct {
	description string
	category    string
}

// merchantPool mirrors the category values the accounts API emits.
var merchantPool = []merchant{
	{"STARBUCKS COFFEE", "Dining"},
	{"MCDONALDS", "Dining"},
	{"CHIPOTLE MEXICAN GRILL", "Dining"},
	{"SHELL OIL", "Gas/Automotive"},
	{"CHEVRON GAS STATION", "Gas/Automotive"},
	{"CVS PHARMACY", "Health Care"},
	{"WALGREENS", "Health Care"},
	{"AMAZON MARKETPLACE", "Merchandise"},
	{"TARGET STORE", "Merchandise"},
	{"BEST BUY", "Merchandise"},
	{"COMCAST CABLE", "Phone/Cable"},
	{"VERIZON WIRELESS", "Phone/Cable"},
	{"DELTA AIR LINES", "Other Travel"},
	{"UBER TRIP", "taxi"},
	{"DRY CLEANING SVC", "Other Services"},
	{"ATM WITHDRAWAL", "Other"},
	{"WIRE TRANSFER OUT", "Other"},
}

// Generator produces synthetic raw batches for dev mode, shaped exactly
// like the accounts API payload (camelCase keys, amounts as strings with
// currency symbols, mixed date formats).
type Generator struct {
	faker *gofakeit.Faker
	log   zerolog.Logger
}

// NewGenerator creates a generator. The same seed produces the same batch.
func NewGenerator(seed uint64, log zerolog.Logger) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		log:   log.With().Str("component", "generator").Logger(),
	}
}

// Batch generates n raw records across the last 12 months, including a
// monthly subscription series and one same-day duplicate pair so the
// recurrence analyzer always has something to find.
func (g *Generator) Batch(n int) []map[string]interface{} {
	if n < 10 {
		n = 10
	}

	end := time.Date(time.Now().Year(), time.Now().Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(-1, 0, 0)

	batch := make([]map[string]interface{}, 0, n)
	id := 1

	// Monthly subscription charges, one per month.
	for m := 0; m < 12 && len(batch) < n; m++ {
		day := start.AddDate(0, m, 14)
		batch = append(batch, g.record(id, day, "NETFLIX.COM SUBSCRIPTION", "Phone/Cable", 0, 15.49))
		id++
	}

	// A likely double charge: same description and amount, one day apart.
	if len(batch)+2 <= n {
		day := start.AddDate(0, 6, 2)
		batch = append(batch, g.record(id, day, "GYM MEMBERSHIP FEE", "Other Services", 0, 49.99))
		id++
		batch = append(batch, g.record(id, day.AddDate(0, 0, 1), "GYM MEMBERSHIP FEE", "Other Services", 0, 49.99))
		id++
	}

	// Monthly salary credits.
	for m := 0; m < 12 && len(batch) < n; m += 3 {
		day := start.AddDate(0, m, 0)
		batch = append(batch, g.record(id, day, "PAYROLL DIRECT DEPOSIT", "Payment/Credit", g.faker.Price(2000, 4000), 0))
		id++
	}

	// Everyday spend from the merchant pool.
	for len(batch) < n {
		m := merchantPool[g.faker.Number(0, len(merchantPool)-1)]
		day := g.faker.DateRange(start, end)
		amount := g.faker.Price(3, 250)
		batch = append(batch, g.record(id, day, m.description, m.category, 0, amount))
		id++
	}

	g.log.Info().Int("records", len(batch)).Msg("Synthetic batch generated")
	return batch
}

// FetchBatch makes the generator a drop-in batch source for dev mode.
func (g *Generator) FetchBatch(ctx context.Context) ([]map[string]interface{}, error) {
	return g.Batch(defaultBatchSize), nil
}

// record builds one raw row in the source API's shape.
func (g *Generator) record(id int, date time.Time, description, category string, credit, debit float64) map[string]interface{} {
	row := map[string]interface{}{
		"id":              id,
		"transactionDate": date.Format("2006-01-02"),
		"description":     description,
		"category":        category,
		"credit":          "",
		"debit":           "",
		"currency":        "USD",
	}
	if credit > 0 {
		row["credit"] = fmt.Sprintf("$%.2f", credit)
	}
	if debit > 0 {
		row["debit"] = fmt.Sprintf("$%.2f", debit)
	}
	return row
}
