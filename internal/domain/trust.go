package domain

// TrustComponent identifica una de las siete señales del trust score.
type TrustComponent string

const (
	ComponentAccountAge          TrustComponent = "account_age"
	ComponentPaymentVerification TrustComponent = "payment_verification"
	ComponentTotalSpent          TrustComponent = "total_spent"
	ComponentHireRate            TrustComponent = "hire_rate"
	ComponentAverageRating       TrustComponent = "average_rating"
	ComponentResponseTime        TrustComponent = "response_time"
	ComponentCompletionRate      TrustComponent = "completion_rate"
)

// TrustComponents en orden estable de evaluacion.
var TrustComponents = []TrustComponent{
	ComponentAccountAge,
	ComponentPaymentVerification,
	ComponentTotalSpent,
	ComponentHireRate,
	ComponentAverageRating,
	ComponentResponseTime,
	ComponentCompletionRate,
}

// TrustWeights asigna un peso entero a cada componente; deberian sumar 100.
type TrustWeights map[TrustComponent]int

func (w TrustWeights) Sum() int {
	total := 0
	for _, v := range w {
		total += v
	}
	return total
}

// ComponentScore es el detalle de un componente dentro del breakdown.
type ComponentScore struct {
	Raw      int `json:"raw_score"`
	Weight   int `json:"weight"`
	Weighted int `json:"weighted_score"`
}

type TrustBreakdown map[TrustComponent]ComponentScore

// TrustLevel es la etiqueta legible del score.
type TrustLevel string

const (
	TrustExcellent TrustLevel = "Excellent"
	TrustGood      TrustLevel = "Good"
	TrustFair      TrustLevel = "Fair"
	TrustPoor      TrustLevel = "Poor"
	TrustVeryPoor  TrustLevel = "Very Poor"
)
