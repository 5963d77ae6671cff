package service

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"client-vetting/internal/domain"
)

// TrustScoreEngine calcula el trust score de un cliente a partir de siete
// señales discretizadas y un set de pesos fijado al arrancar el proceso.
// Es puro: no toca el store ni el reloj global.
type TrustScoreEngine struct {
	weights domain.TrustWeights
	now     func() time.Time
}

func NewTrustScoreEngine(weights domain.TrustWeights, now func() time.Time) *TrustScoreEngine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	copied := make(domain.TrustWeights, len(weights))
	for k, v := range weights {
		copied[k] = v
	}
	return &TrustScoreEngine{weights: copied, now: now}
}

// ComponentScores devuelve el puntaje crudo 0-100 de cada componente.
func (e *TrustScoreEngine) ComponentScores(c domain.Client) map[domain.TrustComponent]int {
	days, known := c.AccountAgeDays(e.now())
	return map[domain.TrustComponent]int{
		domain.ComponentAccountAge:          scoreAccountAge(days, known),
		domain.ComponentPaymentVerification: scorePaymentVerification(c.VerifiedPayment),
		domain.ComponentTotalSpent:          scoreTotalSpent(c.TotalSpent),
		domain.ComponentHireRate:            scoreHireRate(c.HireRate, c.TotalHires, c.TotalJobsPosted),
		domain.ComponentAverageRating:       scoreAverageRating(c.AverageRating),
		domain.ComponentResponseTime:        scoreResponseTime(c.AverageResponseTime),
		domain.ComponentCompletionRate:      scoreCompletionRate(c.TotalHires, c.TotalJobsPosted),
	}
}

// Compute devuelve round(Σ raw*peso / 100), acotado a [0,100], junto al breakdown.
func (e *TrustScoreEngine) Compute(c domain.Client) (int, domain.TrustBreakdown) {
	raws := e.ComponentScores(c)
	total := 0
	for _, component := range domain.TrustComponents {
		total += raws[component] * e.weights[component]
	}
	score := int(math.RoundToEven(float64(total) / 100))
	return clampScore(score), e.breakdownFrom(raws)
}

// Breakdown devuelve el detalle por componente. El valor ponderado se trunca.
func (e *TrustScoreEngine) Breakdown(c domain.Client) domain.TrustBreakdown {
	return e.breakdownFrom(e.ComponentScores(c))
}

func (e *TrustScoreEngine) breakdownFrom(raws map[domain.TrustComponent]int) domain.TrustBreakdown {
	out := make(domain.TrustBreakdown, len(domain.TrustComponents))
	for _, component := range domain.TrustComponents {
		raw := raws[component]
		weight := e.weights[component]
		out[component] = domain.ComponentScore{
			Raw:      raw,
			Weight:   weight,
			Weighted: raw * weight / 100,
		}
	}
	return out
}

// StrengthsAndConcerns aplica chequeos de umbral independientes por metrica.
func (e *TrustScoreEngine) StrengthsAndConcerns(c domain.Client) ([]string, []string) {
	strengths := []string{}
	concerns := []string{}

	if c.VerifiedPayment {
		strengths = append(strengths, "Verified payment method")
	} else {
		concerns = append(concerns, "Payment method not verified")
	}

	spent := int64(c.TotalSpent)
	switch {
	case c.TotalSpent >= 50000:
		strengths = append(strengths, fmt.Sprintf("$%s+ total spent", humanize.Comma(spent)))
	case c.TotalSpent >= 10000:
		strengths = append(strengths, fmt.Sprintf("$%s total spent", humanize.Comma(spent)))
	case c.TotalSpent < 500:
		concerns = append(concerns, "Low total spending on platform")
	}

	switch {
	case c.TotalHires >= 20:
		strengths = append(strengths, fmt.Sprintf("%d successful hires", c.TotalHires))
	case c.TotalHires < 5:
		concerns = append(concerns, "Few successful hires")
	}

	if c.AverageRating != nil && *c.AverageRating > 0 {
		rating := *c.AverageRating
		switch {
		case rating >= 4.5:
			strengths = append(strengths, fmt.Sprintf("%.1f/5 average rating", rating))
		case rating < 3.5:
			concerns = append(concerns, fmt.Sprintf("Low average rating (%.1f/5)", rating))
		}
	}

	if days, ok := c.AccountAgeDays(e.now()); ok {
		years := days / 365
		switch {
		case years >= 1:
			suffix := ""
			if years >= 2 {
				suffix = "s"
			}
			strengths = append(strengths, fmt.Sprintf("Active for %d year%s", years, suffix))
		case days < 30:
			concerns = append(concerns, "New account (less than 1 month)")
		}
	}

	if c.HireRate != nil && *c.HireRate > 0 {
		rate := int(*c.HireRate)
		switch {
		case *c.HireRate >= 70:
			strengths = append(strengths, fmt.Sprintf("%d%% hire rate", rate))
		case *c.HireRate < 30:
			concerns = append(concerns, fmt.Sprintf("Low hire rate (%d%%)", rate))
		}
	}

	if c.AverageResponseTime != nil {
		hours := *c.AverageResponseTime
		switch {
		case hours < 6:
			strengths = append(strengths, fmt.Sprintf("Fast response time (%sh avg)", humanize.Ftoa(hours)))
		case hours > 48:
			concerns = append(concerns, fmt.Sprintf("Slow response time (%sh avg)", humanize.Ftoa(hours)))
		}
	}

	return strengths, concerns
}

// TrustLevelLabel traduce el score a su etiqueta legible.
func TrustLevelLabel(score int) domain.TrustLevel {
	switch {
	case score >= 80:
		return domain.TrustExcellent
	case score >= 60:
		return domain.TrustGood
	case score >= 40:
		return domain.TrustFair
	case score >= 20:
		return domain.TrustPoor
	default:
		return domain.TrustVeryPoor
	}
}

func scoreAccountAge(days int, known bool) int {
	if !known {
		return 0
	}
	switch {
	case days < 30:
		return 20
	case days < 90:
		return 40
	case days < 180:
		return 60
	case days < 365:
		return 80
	default:
		return 100
	}
}

func scorePaymentVerification(verified bool) int {
	if verified {
		return 100
	}
	return 0
}

func scoreTotalSpent(spent float64) int {
	switch {
	case spent < 500:
		return 20
	case spent < 2000:
		return 40
	case spent < 10000:
		return 60
	case spent < 50000:
		return 80
	default:
		return 100
	}
}

// scoreHireRate usa el hire_rate guardado; si falta (o es 0) lo deriva de hires/posted.
func scoreHireRate(stored *float64, hires, posted int) int {
	var rate float64
	if stored != nil && *stored > 0 {
		rate = *stored
	} else {
		if posted <= 0 {
			return 0
		}
		rate = float64(hires) / float64(posted) * 100
	}
	switch {
	case rate < 20:
		return 20
	case rate < 40:
		return 40
	case rate < 60:
		return 60
	case rate < 80:
		return 80
	default:
		return 100
	}
}

func scoreAverageRating(rating *float64) int {
	if rating == nil || *rating <= 0 {
		return 0
	}
	return clampScore(int(math.RoundToEven(*rating / 5 * 100)))
}

// scoreResponseTime: sin dato devuelve 50 (neutral), distinto del tramo >48h.
func scoreResponseTime(hours *float64) int {
	if hours == nil {
		return 50
	}
	switch h := *hours; {
	case h < 1:
		return 100
	case h < 6:
		return 80
	case h < 24:
		return 60
	case h < 48:
		return 40
	default:
		return 20
	}
}

func scoreCompletionRate(hires, posted int) int {
	if posted <= 0 {
		return 0
	}
	rate := float64(hires) / float64(posted) * 100
	switch {
	case rate >= 90:
		return 100
	case rate >= 70:
		return 80
	case rate >= 50:
		return 60
	case rate >= 30:
		return 40
	default:
		return 20
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
