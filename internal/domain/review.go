package domain

import "time"

// Score bounds shared by every review subscore.
const (
	MinScore = 1
	MaxScore = 5
)

// Review is one anonymous rating event for a class. Reviews are append-only.
type Review struct {
	ID             string
	ClassID        string
	Overall        int
	Difficulty     int
	Engaging       int
	Instruction    int
	FinalIntensity int
	HoursPerWeek   *float64
	Recommend      bool
	Comment        *string
	CreatedAt      time.Time
}

// Summary aggregates all reviews stored for a class at read time.
type Summary struct {
	N                 int64
	OverallAvg        float64
	DifficultyAvg     float64
	EngagingAvg       float64
	InstructionAvg    float64
	FinalIntensityAvg float64
	// HoursPerWeekAvg is nil when no review reported hours.
	HoursPerWeekAvg *float64
	// RecommendPct is nil iff N == 0.
	RecommendPct *float64
}
