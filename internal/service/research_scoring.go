package service

import "client-vetting/internal/domain"

// SocialMediaPresenceScore suma puntos por cada perfil encontrado, tope 100.
func SocialMediaPresenceScore(f domain.ResearchFindings) int {
	score := 0
	if f.LinkedInURL != "" {
		score += 30
	}
	if f.TwitterURL != "" {
		score += 20
	}
	if f.FacebookURL != "" {
		score += 20
	}
	if f.InstagramURL != "" {
		score += 15
	}
	if f.WebsiteURL != "" {
		score += 15
	}
	return min(score, 100)
}

// DigitalFootprintScore pondera web, LinkedIn, redes, noticias y registro mercantil.
func DigitalFootprintScore(f domain.ResearchFindings) int {
	score := 0
	if f.WebsiteURL != "" {
		score += 25
	}
	if f.LinkedInURL != "" {
		score += 20
		if f.EmployeeCount != nil && *f.EmployeeCount > 10 {
			score += 10
		}
	}
	for _, url := range []string{f.TwitterURL, f.FacebookURL, f.InstagramURL} {
		if url != "" {
			score += 10
		}
	}
	score += min(len(f.NewsArticles)*5, 15)
	if f.BusinessRegistration {
		score += 10
	}
	return min(score, 100)
}

// buildCompanyResearch arma el registro a persistir a partir de los hallazgos.
func buildCompanyResearch(clientID, companyName string, f domain.ResearchFindings, raw []byte) domain.CompanyResearch {
	return domain.CompanyResearch{
		ClientID:                  clientID,
		CompanyName:               companyName,
		LinkedInURL:               f.LinkedInURL,
		LinkedInVerified:          f.LinkedInURL != "",
		LinkedInEmployeeCount:     f.EmployeeCount,
		WebsiteURL:                f.WebsiteURL,
		WebsiteVerified:           f.WebsiteURL != "",
		TwitterURL:                f.TwitterURL,
		FacebookURL:               f.FacebookURL,
		InstagramURL:              f.InstagramURL,
		SocialMediaPresenceScore:  SocialMediaPresenceScore(f),
		BusinessRegistrationFound: f.BusinessRegistration,
		RecentNewsCount:           len(f.NewsArticles),
		DigitalFootprintScore:     DigitalFootprintScore(f),
		ResearchData:              raw,
	}
}
