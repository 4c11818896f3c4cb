package estimator

import (
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/model"
)

const secondsPerDay = 24 * 60 * 60

// Classify classifica a saúde do projeto a partir da diferença de dias em relação ao prazo,
// usando o limite AtRiskMaxDays dos parâmetros
func (p Params) Classify(daysDifference *int) model.ProjectStatus {
	switch {
	case daysDifference == nil || *daysDifference <= 0:
		return model.StatusOnTrack
	case *daysDifference <= p.AtRiskMaxDays:
		return model.StatusAtRisk
	default:
		return model.StatusBehind
	}
}

// DaysBetween retorna floor((a - b) / 24h). Positivo significa a depois de b.
// Calculado em segundos Unix para não saturar time.Duration em prazos distantes.
func DaysBetween(a, b time.Time) int {
	secs := a.Unix() - b.Unix()
	if a.Nanosecond() < b.Nanosecond() {
		secs--
	}
	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}
	return int(days)
}

// addDays soma uma quantidade fracionária de dias a t
func addDays(t time.Time, days float64) time.Time {
	whole := int(days)
	frac := days - float64(whole)
	return t.AddDate(0, 0, whole).Add(time.Duration(frac * float64(24*time.Hour)))
}
