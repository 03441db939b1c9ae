package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dagnyr/canvas-critic/internal/review"
	"github.com/dagnyr/canvas-critic/internal/reviewapi"
)

func (s *Server) handleGetReviews(w http.ResponseWriter, r *http.Request) {
	classID := strings.TrimSpace(r.URL.Query().Get("class_id"))
	if classID == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "class_id query parameter is required")
		return
	}

	res, err := s.reviews.Fetch(r.Context(), classID)
	if err != nil {
		s.logger.Error("fetch reviews failed", zap.String("class_id", classID), zap.Error(err))
		s.respondUnavailable(w, "Failed to load reviews")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	s.respondJSON(w, http.StatusOK, reviewapi.NewReviewsResponse(res.Summary, res.Reviews))
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var req reviewapi.SubmitRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		reviewSubmissions.WithLabelValues("rejected").Inc()
		s.respondDecodeError(w, err)
		return
	}

	stored, err := s.reviews.Submit(r.Context(), toSubmission(req))
	if err != nil {
		var verr *review.ValidationError
		if errors.As(err, &verr) {
			reviewSubmissions.WithLabelValues("rejected").Inc()
			s.respondValidation(w, verr.Error(), verr.Fields)
			return
		}
		reviewSubmissions.WithLabelValues("failed").Inc()
		s.logger.Error("submit review failed", zap.String("class_id", req.ClassID), zap.Error(err))
		s.respondUnavailable(w, "Failed to store review")
		return
	}

	reviewSubmissions.WithLabelValues("accepted").Inc()
	s.respondJSON(w, http.StatusCreated, reviewapi.NewReview(stored))
}

// respondUnavailable signals a storage failure the caller may retry.
func (s *Server) respondUnavailable(w http.ResponseWriter, message string) {
	w.Header().Set("Retry-After", "1")
	s.respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message)
}

func toSubmission(req reviewapi.SubmitRequest) review.Submission {
	return review.Submission{
		ClassID:        req.ClassID,
		Overall:        req.Overall,
		Difficulty:     req.Difficulty,
		Engaging:       req.Engaging,
		Instruction:    req.Instruction,
		FinalIntensity: req.FinalIntensity,
		HoursPerWeek:   req.HoursPerWeek,
		Recommend:      bool(req.Recommend),
		Comment:        req.Comment,
	}
}
