package review

import "github.com/dagnyr/canvas-critic/internal/domain"

// Accumulator folds reviews into running sums. The zero value is ready to use.
type Accumulator struct {
	n              int64
	overall        float64
	difficulty     float64
	engaging       float64
	instruction    float64
	finalIntensity float64
	hoursSum       float64
	hoursN         int64
	recommended    int64
}

// Add folds a single review into the accumulator.
func (a *Accumulator) Add(r domain.Review) {
	a.n++
	a.overall += float64(r.Overall)
	a.difficulty += float64(r.Difficulty)
	a.engaging += float64(r.Engaging)
	a.instruction += float64(r.Instruction)
	a.finalIntensity += float64(r.FinalIntensity)
	if r.HoursPerWeek != nil {
		a.hoursSum += *r.HoursPerWeek
		a.hoursN++
	}
	if r.Recommend {
		a.recommended++
	}
}

// Count reports how many reviews have been added.
func (a *Accumulator) Count() int64 {
	return a.n
}

// Summary returns the averages over everything added so far. With no reviews
// only N is meaningful and both nullable fields are nil.
func (a *Accumulator) Summary() domain.Summary {
	if a.n == 0 {
		return domain.Summary{}
	}
	n := float64(a.n)
	s := domain.Summary{
		N:                 a.n,
		OverallAvg:        a.overall / n,
		DifficultyAvg:     a.difficulty / n,
		EngagingAvg:       a.engaging / n,
		InstructionAvg:    a.instruction / n,
		FinalIntensityAvg: a.finalIntensity / n,
	}
	if a.hoursN > 0 {
		avg := a.hoursSum / float64(a.hoursN)
		s.HoursPerWeekAvg = &avg
	}
	pct := 100 * float64(a.recommended) / n
	s.RecommendPct = &pct
	return s
}

// Summarize aggregates reviews, returning nil when there are none.
func Summarize(reviews []domain.Review) *domain.Summary {
	if len(reviews) == 0 {
		return nil
	}
	var acc Accumulator
	for _, r := range reviews {
		acc.Add(r)
	}
	s := acc.Summary()
	return &s
}
