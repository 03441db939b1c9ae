package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dagnyr/canvas-critic/internal/domain"
)

// Store persists reviews. Insert must be atomic; ListByClass must return the
// rows of a single query, newest first.
type Store interface {
	Insert(ctx context.Context, r domain.Review) (domain.Review, error)
	ListByClass(ctx context.Context, classID string) ([]domain.Review, error)
}

// Catalog resolves class ids against the static catalog.
type Catalog interface {
	Class(id string) (domain.Class, bool)
}

// Publisher is notified after a review has been stored.
type Publisher interface {
	ReviewSubmitted(ctx context.Context, r domain.Review) error
}

// Options tunes a Service.
type Options struct {
	// MaxCommentLength bounds comments in runes; zero means unbounded.
	MaxCommentLength int
	Publisher        Publisher
	Logger           *zap.Logger
	Now              func() time.Time
	NewID            func() string
}

// Result is the read model for one class.
type Result struct {
	// Summary is nil when the class has no reviews.
	Summary *domain.Summary
	Reviews []domain.Review
}

// Service implements the submit and fetch operations of the review contract.
type Service struct {
	store      Store
	catalog    Catalog
	publisher  Publisher
	logger     *zap.Logger
	maxComment int
	now        func() time.Time
	newID      func() string
}

// NewService wires a Service. Zero-valued options fall back to defaults.
func NewService(store Store, catalog Catalog, opts Options) *Service {
	s := &Service{
		store:      store,
		catalog:    catalog,
		publisher:  opts.Publisher,
		logger:     opts.Logger,
		maxComment: opts.MaxCommentLength,
		now:        opts.Now,
		newID:      opts.NewID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// Submit validates and appends a review. Nothing is written on error.
func (s *Service) Submit(ctx context.Context, sub Submission) (domain.Review, error) {
	sub.ClassID = strings.TrimSpace(sub.ClassID)
	if err := Validate(sub, s.maxComment); err != nil {
		return domain.Review{}, err
	}
	if _, ok := s.catalog.Class(sub.ClassID); !ok {
		return domain.Review{}, newValidationError("class_id", "does not reference a known class")
	}

	rv := domain.Review{
		ID:             s.newID(),
		ClassID:        sub.ClassID,
		Overall:        sub.Overall,
		Difficulty:     sub.Difficulty,
		Engaging:       sub.Engaging,
		Instruction:    sub.Instruction,
		FinalIntensity: sub.FinalIntensity,
		HoursPerWeek:   sub.HoursPerWeek,
		Recommend:      sub.Recommend,
		CreatedAt:      s.now(),
	}
	if c := strings.TrimSpace(sub.Comment); c != "" {
		rv.Comment = &c
	}

	stored, err := s.store.Insert(ctx, rv)
	if err != nil {
		return domain.Review{}, fmt.Errorf("store review: %w", err)
	}

	s.logger.Info("review submitted",
		zap.String("review_id", stored.ID),
		zap.String("class_id", stored.ClassID),
		zap.Int("overall", stored.Overall),
	)

	if s.publisher != nil {
		if err := s.publisher.ReviewSubmitted(ctx, stored); err != nil {
			s.logger.Warn("publish review.submitted failed",
				zap.String("review_id", stored.ID),
				zap.Error(err),
			)
		}
	}
	return stored, nil
}

// Fetch returns every stored review for a class with its summary. An id
// missing from the catalog yields an empty result rather than an error.
func (s *Service) Fetch(ctx context.Context, classID string) (Result, error) {
	classID = strings.TrimSpace(classID)
	if _, ok := s.catalog.Class(classID); !ok {
		s.logger.Debug("fetch reviews for unknown class", zap.String("class_id", classID))
		return Result{Reviews: []domain.Review{}}, nil
	}

	reviews, err := s.store.ListByClass(ctx, classID)
	if err != nil {
		return Result{}, fmt.Errorf("load reviews for %s: %w", classID, err)
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return Result{Summary: Summarize(reviews), Reviews: reviews}, nil
}
