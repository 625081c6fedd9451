package enrich

// QualityWeights are the penalty weights for the composite data quality
// score. Each penalty is binary; the score is 1 minus the weighted sum,
// clamped to [0, 1].
type QualityWeights struct {
	MissingDate      float64
	MissingAmount    float64
	MissingCategory  float64
	ShortDescription float64
}

// DefaultQualityWeights weight the fields reports depend on most.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		MissingDate:      0.30,
		MissingAmount:    0.30,
		MissingCategory:  0.25,
		ShortDescription: 0.15,
	}
}

// Scorer computes the per-row data quality score. No row is ever dropped
// for a low score.
type Scorer struct {
	weights    QualityWeights
	minDescLen int
}

// NewScorer creates a new data quality scorer
func NewScorer(settings Settings) *Scorer {
	return &Scorer{
		weights:    settings.QualityWeights,
		minDescLen: settings.MinDescriptionLength,
	}
}

// Apply scores every record.
func (s *Scorer) Apply(records []*Record) {
	for _, r := range records {
		score := 1.0

		if r.Date == nil {
			score -= s.weights.MissingDate
		}
		if !r.Net.Valid {
			score -= s.weights.MissingAmount
		}
		if r.Category == "" {
			score -= s.weights.MissingCategory
		}
		if r.DescriptionLength < s.minDescLen {
			score -= s.weights.ShortDescription
		}

		if score < 0 {
			score = 0
		}
		r.DataQualityScore = score
	}
}
