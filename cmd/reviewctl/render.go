package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dagnyr/canvas-critic/internal/reviewapi"
)

// renderReviews prints one class's summary followed by its reviews. Every
// nullable field is guarded so a sparse response never panics.
func renderReviews(w io.Writer, classID string, resp *reviewapi.ReviewsResponse) {
	if !resp.HasReviews() {
		fmt.Fprintf(w, "%s: no reviews yet\n", classID)
		return
	}
	s := resp.Summary

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%d reviews\n", classID, s.N)
	fmt.Fprintf(tw, "overall\t%.2f\n", s.OverallAvg)
	fmt.Fprintf(tw, "difficulty\t%.2f\n", s.DifficultyAvg)
	fmt.Fprintf(tw, "engaging\t%.2f\n", s.EngagingAvg)
	fmt.Fprintf(tw, "instruction\t%.2f\n", s.InstructionAvg)
	fmt.Fprintf(tw, "final intensity\t%.2f\n", s.FinalIntensityAvg)
	fmt.Fprintf(tw, "hours/week\t%s\n", formatOptional(s.HoursPerWeekAvg, "%.1f"))
	fmt.Fprintf(tw, "recommend\t%s\n", formatOptional(s.RecommendPct, "%.0f%%"))
	_ = tw.Flush()

	for _, r := range resp.Reviews {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "[%s] overall %d, difficulty %d, engaging %d, instruction %d, final %d, hours %s, %s\n",
			r.CreatedAt.Format(time.DateOnly),
			r.Overall, r.Difficulty, r.Engaging, r.Instruction, r.FinalIntensity,
			formatOptional(r.HoursPerWeek, "%.1f"),
			recommendLabel(bool(r.Recommend)),
		)
		if r.Comment != nil && strings.TrimSpace(*r.Comment) != "" {
			fmt.Fprintf(w, "  %q\n", *r.Comment)
		}
	}
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func recommendLabel(rec bool) string {
	if rec {
		return "recommends"
	}
	return "does not recommend"
}
