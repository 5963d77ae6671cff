package domain

import "time"

// Client es un empleador de una plataforma freelance con sus señales de comportamiento.
type Client struct {
	ID                  string     `json:"id"`
	PlatformID          string     `json:"platform_id,omitempty"`
	ExternalClientID    string     `json:"external_client_id,omitempty"`
	Name                string     `json:"name,omitempty"`
	CompanyName         string     `json:"company_name,omitempty"`
	ProfileURL          string     `json:"profile_url,omitempty"`
	Location            string     `json:"location,omitempty"`
	AccountCreatedDate  *time.Time `json:"account_created_date,omitempty"`
	VerifiedPayment     bool       `json:"verified_payment"`
	TotalJobsPosted     int        `json:"total_jobs_posted"`
	TotalHires          int        `json:"total_hires"`
	TotalSpent          float64    `json:"total_spent"`
	HireRate            *float64   `json:"hire_rate,omitempty"`
	AverageRating       *float64   `json:"average_rating,omitempty"`
	AverageResponseTime *float64   `json:"average_response_time,omitempty"` // horas
	ReviewCount         int        `json:"review_count"`
	TrustScore          *int       `json:"trust_score,omitempty"`
	TrustScoreUpdatedAt *time.Time `json:"trust_score_updated_at,omitempty"`
	IsFlagged           bool       `json:"is_flagged"`
	FlagReason          string     `json:"flag_reason,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	LastUpdated         time.Time  `json:"last_updated"`
}

// AccountAgeDays devuelve los dias completos desde la creacion de la cuenta.
// El segundo valor es false si la fecha no se conoce.
func (c *Client) AccountAgeDays(now time.Time) (int, bool) {
	if c.AccountCreatedDate == nil {
		return 0, false
	}
	return int(now.Sub(*c.AccountCreatedDate).Hours() / 24), true
}

// DisplayName usa el nombre de empresa y cae al nombre personal.
func (c *Client) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.Name
}

// ClientReview es una reseña escrita por un freelancer sobre el cliente.
// SentimentScore se calcula una sola vez y nunca se reescribe.
type ClientReview struct {
	ID             string     `json:"id"`
	ClientID       string     `json:"client_id"`
	FreelancerName string     `json:"freelancer_name,omitempty"`
	Rating         int        `json:"rating"`
	ReviewText     string     `json:"review_text,omitempty"`
	ProjectTitle   string     `json:"project_title,omitempty"`
	ProjectValue   *float64   `json:"project_value,omitempty"`
	ReviewDate     *time.Time `json:"review_date,omitempty"`
	SentimentScore *float64   `json:"sentiment_score,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ReviewsSummary agrega rating y sentimiento de las reseñas de un cliente.
type ReviewsSummary struct {
	TotalReviews     int     `json:"total_reviews"`
	AverageRating    float64 `json:"average_rating"`
	AverageSentiment float64 `json:"average_sentiment"`
	PositiveCount    int     `json:"positive_count"`
	NegativeCount    int     `json:"negative_count"`
	NeutralCount     int     `json:"neutral_count"`
}
