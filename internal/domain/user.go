package domain

import "strings"

// Tier es el plan de suscripcion del freelancer que consulta la API.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// ParseTier normaliza el tier; valores vacios o desconocidos caen a free.
func ParseTier(raw string) Tier {
	switch t := Tier(strings.ToLower(strings.TrimSpace(raw))); t {
	case TierPro, TierPremium:
		return t
	default:
		return TierFree
	}
}

// CanResearch indica si el plan incluye investigacion de empresas.
func (t Tier) CanResearch() bool {
	return t == TierPro || t == TierPremium
}

// HasUnlimitedReports indica si el plan esta exento del cupo mensual de reportes.
func (t Tier) HasUnlimitedReports() bool {
	return t == TierPro || t == TierPremium
}
