package enrich

import "time"

// ApplyTemporalFeatures derives calendar fields from each record's date.
// Pure function of the date: rows without a parsed date keep zero values.
func ApplyTemporalFeatures(records []*Record) {
	for _, r := range records {
		if r.Date == nil {
			continue
		}
		d := *r.Date

		r.Year = d.Year()
		r.Month = int(d.Month())
		r.YearMonth = d.Format("2006-01")
		r.DayOfWeek = int(d.Weekday()) // 0=Sunday .. 6=Saturday
		r.Quarter = (int(d.Month())-1)/3 + 1
		_, r.WeekOfYear = d.ISOWeek()

		r.IsWeekend = d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
		r.IsMonthStart = d.Day() == 1
		r.IsMonthEnd = d.AddDate(0, 0, 1).Day() == 1
	}
}
