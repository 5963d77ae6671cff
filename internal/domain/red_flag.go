package domain

import (
	"strings"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity normaliza la severidad; valores desconocidos devuelven false.
func ParseSeverity(raw string) (Severity, bool) {
	switch s := Severity(strings.ToLower(strings.TrimSpace(raw))); s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return s, true
	default:
		return "", false
	}
}

// ClientRedFlag es un indicador de riesgo tipado. Solo puede existir un flag
// activo por (cliente, flag_type).
type ClientRedFlag struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	FlagType    string    `json:"flag_type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description,omitempty"`
	DetectedAt  time.Time `json:"detected_at"`
	IsActive    bool      `json:"is_active"`
}

// Summary es la forma compacta que consume el generador de recomendaciones.
func (f ClientRedFlag) Summary() string {
	return f.FlagType + ": " + f.Description
}
