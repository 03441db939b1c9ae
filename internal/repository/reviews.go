package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dagnyr/canvas-critic/internal/domain"
)

// ReviewsRepository persists the append-only review log.
type ReviewsRepository struct {
	db DBTX
}

const reviewColumns = `
    id::text,
    class_id,
    overall,
    difficulty,
    engaging,
    instruction,
    final_intensity,
    hours_per_week,
    recommend,
    comment,
    created_at
`

// Insert appends a review in a single statement and returns the stored row.
func (r *ReviewsRepository) Insert(ctx context.Context, rv domain.Review) (domain.Review, error) {
	query := fmt.Sprintf(`
        INSERT INTO reviews (id, class_id, overall, difficulty, engaging, instruction, final_intensity,
                             hours_per_week, recommend, comment, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING %s
    `, reviewColumns)

	row := r.db.QueryRow(ctx, query,
		rv.ID,
		rv.ClassID,
		rv.Overall,
		rv.Difficulty,
		rv.Engaging,
		rv.Instruction,
		rv.FinalIntensity,
		rv.HoursPerWeek,
		rv.Recommend,
		rv.Comment,
		rv.CreatedAt,
	)
	stored, err := scanReview(row)
	if err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	return stored, nil
}

// ListByClass returns every review for a class, newest first. Rows sharing a
// timestamp are ordered by insertion, latest first.
func (r *ReviewsRepository) ListByClass(ctx context.Context, classID string) ([]domain.Review, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM reviews
        WHERE class_id = $1
        ORDER BY created_at DESC, seq DESC
    `, reviewColumns)

	rows, err := r.db.Query(ctx, query, classID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

// CountByClass returns the number of stored reviews for a class.
func (r *ReviewsRepository) CountByClass(ctx context.Context, classID string) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE class_id = $1`, classID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var (
		rv             domain.Review
		overall        int16
		difficulty     int16
		engaging       int16
		instruction    int16
		finalIntensity int16
	)
	err := row.Scan(
		&rv.ID,
		&rv.ClassID,
		&overall,
		&difficulty,
		&engaging,
		&instruction,
		&finalIntensity,
		&rv.HoursPerWeek,
		&rv.Recommend,
		&rv.Comment,
		&rv.CreatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}
	rv.Overall = int(overall)
	rv.Difficulty = int(difficulty)
	rv.Engaging = int(engaging)
	rv.Instruction = int(instruction)
	rv.FinalIntensity = int(finalIntensity)
	rv.CreatedAt = rv.CreatedAt.UTC()
	return rv, nil
}
