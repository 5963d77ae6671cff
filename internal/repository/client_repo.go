package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"client-vetting/internal/domain"
)

// ClientRepository define el contrato de persistencia para clientes.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (domain.Client, error)
	UpdateTrustScore(ctx context.Context, id string, score int, updatedAt time.Time) error
}

// PgClientRepository implementa ClientRepository usando pgxpool.
type PgClientRepository struct {
	pool *pgxpool.Pool
}

func NewPgClientRepository(pool *pgxpool.Pool) *PgClientRepository {
	return &PgClientRepository{pool: pool}
}

func (r *PgClientRepository) GetByID(ctx context.Context, id string) (domain.Client, error) {
	const query = `
		SELECT id, platform_id, external_client_id, name, company_name, profile_url, location,
			account_created_date, verified_payment, total_jobs_posted, total_hires, total_spent,
			hire_rate, average_rating, average_response_time, review_count,
			trust_score, trust_score_updated_at, is_flagged, flag_reason, created_at, last_updated
		FROM clients
		WHERE id = $1
	`
	var c domain.Client
	var platformID, externalID, name, company, profileURL, location, flagReason sql.NullString
	var trustScore sql.NullInt32
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&platformID,
		&externalID,
		&name,
		&company,
		&profileURL,
		&location,
		&c.AccountCreatedDate,
		&c.VerifiedPayment,
		&c.TotalJobsPosted,
		&c.TotalHires,
		&c.TotalSpent,
		&c.HireRate,
		&c.AverageRating,
		&c.AverageResponseTime,
		&c.ReviewCount,
		&trustScore,
		&c.TrustScoreUpdatedAt,
		&c.IsFlagged,
		&flagReason,
		&c.CreatedAt,
		&c.LastUpdated,
	)
	if err != nil {
		return domain.Client{}, mapNoRows(err)
	}
	c.PlatformID = platformID.String
	c.ExternalClientID = externalID.String
	c.Name = name.String
	c.CompanyName = company.String
	c.ProfileURL = profileURL.String
	c.Location = location.String
	c.FlagReason = flagReason.String
	if trustScore.Valid {
		score := int(trustScore.Int32)
		c.TrustScore = &score
	}
	return c, nil
}

func (r *PgClientRepository) UpdateTrustScore(ctx context.Context, id string, score int, updatedAt time.Time) error {
	const query = `
		UPDATE clients
		SET trust_score = $1, trust_score_updated_at = $2, last_updated = $2
		WHERE id = $3
	`
	tag, err := r.pool.Exec(ctx, query, score, updatedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
