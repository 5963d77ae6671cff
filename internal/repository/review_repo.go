package repository

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"client-vetting/internal/domain"
)

type ReviewRepository interface {
	ListByClientID(ctx context.Context, clientID string) ([]domain.ClientReview, error)
	// SetSentiment solo escribe si la reseña aun no tiene sentimiento.
	SetSentiment(ctx context.Context, reviewID string, score float64) error
}

type PgReviewRepository struct {
	pool *pgxpool.Pool
}

func NewPgReviewRepository(pool *pgxpool.Pool) *PgReviewRepository {
	return &PgReviewRepository{pool: pool}
}

func (r *PgReviewRepository) ListByClientID(ctx context.Context, clientID string) ([]domain.ClientReview, error) {
	const query = `
		SELECT id, client_id, freelancer_name, rating, review_text, project_title, project_value,
			review_date, sentiment_score, created_at
		FROM client_reviews
		WHERE client_id = $1
		ORDER BY review_date DESC NULLS LAST, created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReviews(rows)
}

func (r *PgReviewRepository) SetSentiment(ctx context.Context, reviewID string, score float64) error {
	const query = `
		UPDATE client_reviews
		SET sentiment_score = $1
		WHERE id = $2 AND sentiment_score IS NULL
	`
	_, err := r.pool.Exec(ctx, query, score, reviewID)
	return err
}

func scanReviews(rows pgxRows) ([]domain.ClientReview, error) {
	var reviews []domain.ClientReview
	for rows.Next() {
		var rv domain.ClientReview
		var freelancer, text, projectTitle sql.NullString
		if err := rows.Scan(
			&rv.ID,
			&rv.ClientID,
			&freelancer,
			&rv.Rating,
			&text,
			&projectTitle,
			&rv.ProjectValue,
			&rv.ReviewDate,
			&rv.SentimentScore,
			&rv.CreatedAt,
		); err != nil {
			return nil, err
		}
		rv.FreelancerName = freelancer.String
		rv.ReviewText = text.String
		rv.ProjectTitle = projectTitle.String
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}
