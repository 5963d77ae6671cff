package repository

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"client-vetting/internal/domain"
)

type CompanyResearchRepository interface {
	GetByClientID(ctx context.Context, clientID string) (domain.CompanyResearch, error)
	Upsert(ctx context.Context, research domain.CompanyResearch) (domain.CompanyResearch, error)
}

type PgCompanyResearchRepository struct {
	pool *pgxpool.Pool
}

func NewPgCompanyResearchRepository(pool *pgxpool.Pool) *PgCompanyResearchRepository {
	return &PgCompanyResearchRepository{pool: pool}
}

const companyResearchColumns = `id, client_id, company_name, linkedin_url, linkedin_verified, linkedin_employee_count,
	website_url, website_verified, twitter_url, facebook_url, instagram_url, social_media_presence_score,
	business_registration_found, recent_news_count, digital_footprint_score, research_data, researched_at, last_updated`

func (r *PgCompanyResearchRepository) GetByClientID(ctx context.Context, clientID string) (domain.CompanyResearch, error) {
	query := `SELECT ` + companyResearchColumns + ` FROM company_research WHERE client_id = $1`
	return scanCompanyResearch(r.pool.QueryRow(ctx, query, clientID))
}

// Upsert crea o reemplaza la investigacion del cliente conservando id y researched_at originales.
func (r *PgCompanyResearchRepository) Upsert(ctx context.Context, research domain.CompanyResearch) (domain.CompanyResearch, error) {
	query := `
		INSERT INTO company_research (` + companyResearchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (client_id)
		DO UPDATE SET
			company_name = EXCLUDED.company_name,
			linkedin_url = EXCLUDED.linkedin_url,
			linkedin_verified = EXCLUDED.linkedin_verified,
			linkedin_employee_count = EXCLUDED.linkedin_employee_count,
			website_url = EXCLUDED.website_url,
			website_verified = EXCLUDED.website_verified,
			twitter_url = EXCLUDED.twitter_url,
			facebook_url = EXCLUDED.facebook_url,
			instagram_url = EXCLUDED.instagram_url,
			social_media_presence_score = EXCLUDED.social_media_presence_score,
			business_registration_found = EXCLUDED.business_registration_found,
			recent_news_count = EXCLUDED.recent_news_count,
			digital_footprint_score = EXCLUDED.digital_footprint_score,
			research_data = EXCLUDED.research_data,
			last_updated = EXCLUDED.last_updated
		RETURNING ` + companyResearchColumns

	var researchData interface{}
	if len(research.ResearchData) > 0 {
		researchData = string(research.ResearchData)
	}

	row := r.pool.QueryRow(ctx, query,
		research.ID,
		research.ClientID,
		research.CompanyName,
		nullString(research.LinkedInURL),
		research.LinkedInVerified,
		research.LinkedInEmployeeCount,
		nullString(research.WebsiteURL),
		research.WebsiteVerified,
		nullString(research.TwitterURL),
		nullString(research.FacebookURL),
		nullString(research.InstagramURL),
		research.SocialMediaPresenceScore,
		research.BusinessRegistrationFound,
		research.RecentNewsCount,
		research.DigitalFootprintScore,
		researchData,
		research.ResearchedAt,
		research.LastUpdated,
	)
	return scanCompanyResearch(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCompanyResearch(row rowScanner) (domain.CompanyResearch, error) {
	var cr domain.CompanyResearch
	var company, linkedin, website, twitter, facebook, insta sql.NullString
	var social, footprint sql.NullInt32
	var data []byte
	err := row.Scan(
		&cr.ID,
		&cr.ClientID,
		&company,
		&linkedin,
		&cr.LinkedInVerified,
		&cr.LinkedInEmployeeCount,
		&website,
		&cr.WebsiteVerified,
		&twitter,
		&facebook,
		&insta,
		&social,
		&cr.BusinessRegistrationFound,
		&cr.RecentNewsCount,
		&footprint,
		&data,
		&cr.ResearchedAt,
		&cr.LastUpdated,
	)
	if err != nil {
		return domain.CompanyResearch{}, mapNoRows(err)
	}
	cr.CompanyName = company.String
	cr.LinkedInURL = linkedin.String
	cr.WebsiteURL = website.String
	cr.TwitterURL = twitter.String
	cr.FacebookURL = facebook.String
	cr.InstagramURL = insta.String
	cr.SocialMediaPresenceScore = int(social.Int32)
	cr.DigitalFootprintScore = int(footprint.Int32)
	if len(data) > 0 {
		cr.ResearchData = data
	}
	return cr, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
