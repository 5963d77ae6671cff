package domain

import (
	"encoding/json"
	"time"
)

// CompanyResearch guarda la huella digital descubierta para un cliente (1:1).
type CompanyResearch struct {
	ID                        string          `json:"id"`
	ClientID                  string          `json:"client_id"`
	CompanyName               string          `json:"company_name"`
	LinkedInURL               string          `json:"linkedin_url,omitempty"`
	LinkedInVerified          bool            `json:"linkedin_verified"`
	LinkedInEmployeeCount     *int            `json:"linkedin_employee_count,omitempty"`
	WebsiteURL                string          `json:"website_url,omitempty"`
	WebsiteVerified           bool            `json:"website_verified"`
	TwitterURL                string          `json:"twitter_url,omitempty"`
	FacebookURL               string          `json:"facebook_url,omitempty"`
	InstagramURL              string          `json:"instagram_url,omitempty"`
	SocialMediaPresenceScore  int             `json:"social_media_presence_score"`
	BusinessRegistrationFound bool            `json:"business_registration_found"`
	RecentNewsCount           int             `json:"recent_news_count"`
	DigitalFootprintScore     int             `json:"digital_footprint_score"`
	ResearchData              json.RawMessage `json:"research_data,omitempty"`
	ResearchedAt              time.Time       `json:"researched_at"`
	LastUpdated               time.Time       `json:"last_updated"`
}

// ResearchFindings es la salida tipada del colaborador de investigacion profunda.
// Claves desconocidas se ignoran y las ausentes quedan en cero.
type ResearchFindings struct {
	LinkedInURL          string            `json:"linkedin_url"`
	WebsiteURL           string            `json:"website_url"`
	TwitterURL           string            `json:"twitter_url"`
	FacebookURL          string            `json:"facebook_url"`
	InstagramURL         string            `json:"instagram_url"`
	EmployeeCount        *int              `json:"employee_count"`
	NewsArticles         []json.RawMessage `json:"news_articles"`
	BusinessRegistration bool              `json:"business_registration"`
}
