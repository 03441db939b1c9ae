// Package reviewapi holds the JSON shapes of the review contract, shared by
// the HTTP server and the Go client.
package reviewapi

import (
	"time"

	"github.com/dagnyr/canvas-critic/internal/domain"
)

// SubmitRequest is the body of POST /reviews.
type SubmitRequest struct {
	ClassID        string   `json:"class_id"`
	Overall        int      `json:"overall"`
	Difficulty     int      `json:"difficulty"`
	Engaging       int      `json:"engaging"`
	Instruction    int      `json:"instruction"`
	FinalIntensity int      `json:"final_intensity"`
	HoursPerWeek   *float64 `json:"hours_per_week"`
	Recommend      Flag     `json:"recommend"`
	Comment        string   `json:"comment"`
}

// Review is a stored review as returned to clients.
type Review struct {
	ID             string    `json:"id"`
	ClassID        string    `json:"class_id"`
	Overall        int       `json:"overall"`
	Difficulty     int       `json:"difficulty"`
	Engaging       int       `json:"engaging"`
	Instruction    int       `json:"instruction"`
	FinalIntensity int       `json:"final_intensity"`
	HoursPerWeek   *float64  `json:"hours_per_week"`
	Recommend      Flag      `json:"recommend"`
	Comment        *string   `json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary is the per-class aggregate.
type Summary struct {
	N                 int64    `json:"n"`
	OverallAvg        float64  `json:"overall_avg"`
	DifficultyAvg     float64  `json:"difficulty_avg"`
	EngagingAvg       float64  `json:"engaging_avg"`
	InstructionAvg    float64  `json:"instruction_avg"`
	FinalIntensityAvg float64  `json:"final_intensity_avg"`
	HoursPerWeekAvg   *float64 `json:"hours_per_week_avg"`
	RecommendPct      *float64 `json:"recommend_pct"`
}

// ReviewsResponse is the body of GET /reviews. Summary is null when the class
// has no reviews; clients must treat a summary with n == 0 the same way.
type ReviewsResponse struct {
	Summary *Summary `json:"summary"`
	Reviews []Review `json:"reviews"`
}

// HasReviews reports whether the response carries at least one review.
func (r *ReviewsResponse) HasReviews() bool {
	return r != nil && r.Summary != nil && r.Summary.N > 0
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NewReview converts a stored review to its wire form.
func NewReview(r domain.Review) Review {
	return Review{
		ID:             r.ID,
		ClassID:        r.ClassID,
		Overall:        r.Overall,
		Difficulty:     r.Difficulty,
		Engaging:       r.Engaging,
		Instruction:    r.Instruction,
		FinalIntensity: r.FinalIntensity,
		HoursPerWeek:   r.HoursPerWeek,
		Recommend:      Flag(r.Recommend),
		Comment:        r.Comment,
		CreatedAt:      r.CreatedAt,
	}
}

// NewSummary converts an aggregate to its wire form; nil or empty maps to nil.
func NewSummary(s *domain.Summary) *Summary {
	if s == nil || s.N == 0 {
		return nil
	}
	return &Summary{
		N:                 s.N,
		OverallAvg:        s.OverallAvg,
		DifficultyAvg:     s.DifficultyAvg,
		EngagingAvg:       s.EngagingAvg,
		InstructionAvg:    s.InstructionAvg,
		FinalIntensityAvg: s.FinalIntensityAvg,
		HoursPerWeekAvg:   s.HoursPerWeekAvg,
		RecommendPct:      s.RecommendPct,
	}
}

// NewReviewsResponse builds the GET /reviews body.
func NewReviewsResponse(summary *domain.Summary, reviews []domain.Review) ReviewsResponse {
	out := ReviewsResponse{
		Summary: NewSummary(summary),
		Reviews: make([]Review, 0, len(reviews)),
	}
	for _, r := range reviews {
		out.Reviews = append(out.Reviews, NewReview(r))
	}
	return out
}
