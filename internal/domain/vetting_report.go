package domain

// VettingReport es el read-model compuesto que se arma en cada solicitud.
// No se persiste.
type VettingReport struct {
	Client              Client           `json:"client"`
	TrustScore          int              `json:"trust_score"`
	TrustLevel          TrustLevel       `json:"trust_level"`
	TrustScoreBreakdown TrustBreakdown   `json:"trust_score_breakdown"`
	Strengths           []string         `json:"strengths"`
	Concerns            []string         `json:"concerns"`
	RedFlags            []ClientRedFlag  `json:"red_flags"`
	ReviewsSummary      ReviewsSummary   `json:"reviews_summary"`
	CommonThemes        []string         `json:"common_themes"`
	CompanyResearch     *CompanyResearch `json:"company_research,omitempty"`
	Recommendation      string           `json:"recommendation"`
}

// RedFlagSignals es la foto normalizada que recibe el detector de red flags.
type RedFlagSignals struct {
	AccountAgeDays  int     `json:"account_age_days"`
	TotalJobsPosted int     `json:"total_jobs_posted"`
	TotalHires      int     `json:"total_hires"`
	HireRate        float64 `json:"hire_rate"`
	TotalSpent      float64 `json:"total_spent"`
	AverageRating   float64 `json:"average_rating"`
	VerifiedPayment bool    `json:"verified_payment"`
	ReviewCount     int     `json:"review_count"`
}

// DetectedRedFlag es un red flag propuesto por el detector, aun sin persistir.
type DetectedRedFlag struct {
	FlagType    string
	Severity    Severity
	Description string
}
