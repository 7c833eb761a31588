package metrics

import "fmt"

// Alert levels.
const (
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Alert metric names.
const (
	MetricErrorRate         = "errorRate"
	MetricMatchRate         = "matchRate"
	MetricCostPerEnrichment = "avgCostPerEnrichment"
	MetricLowConfidenceRate = "lowConfidenceRate"
	MetricDailyCost         = "dailyCost"
)

// Thresholds configures CheckAlerts. Rates are percentages, costs are cents.
type Thresholds struct {
	MaxErrorRate         float64 `json:"max_error_rate"`
	MinMatchRate         float64 `json:"min_match_rate"`
	MaxCostPerEnrichment float64 `json:"max_cost_per_enrichment"`
	MaxLowConfidenceRate float64 `json:"max_low_confidence_rate"`
	MaxDailyCostCents    int     `json:"max_daily_cost_cents"`
}

// DefaultThresholds returns the stock alerting policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxErrorRate:         10,
		MinMatchRate:         50,
		MaxCostPerEnrichment: 300,
		MaxLowConfidenceRate: 20,
		MaxDailyCostCents:    5000,
	}
}

// Alert is a structured signal for dashboards or paging.
type Alert struct {
	Level     string  `json:"level"`
	Message   string  `json:"message"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// CheckAlerts evaluates m against t. Rate checks are skipped when their denominator is empty.
func CheckAlerts(m ParticipantMetrics, t Thresholds) []Alert {
	alerts := make([]Alert, 0)

	if m.TotalAttempts > 0 && m.ErrorRate > t.MaxErrorRate {
		alerts = append(alerts, Alert{
			Level:     LevelCritical,
			Message:   fmt.Sprintf("High enrichment error rate detected (%.1f%%)", m.ErrorRate),
			Metric:    MetricErrorRate,
			Value:     m.ErrorRate,
			Threshold: t.MaxErrorRate,
		})
	}

	if m.TotalParticipants > 0 && m.OverallMatchRate < t.MinMatchRate {
		alerts = append(alerts, Alert{
			Level:     LevelWarning,
			Message:   fmt.Sprintf("Low participant match rate (%.1f%%)", m.OverallMatchRate),
			Metric:    MetricMatchRate,
			Value:     m.OverallMatchRate,
			Threshold: t.MinMatchRate,
		})
	}

	if m.AverageCostPerEnrichment > t.MaxCostPerEnrichment {
		alerts = append(alerts, Alert{
			Level:     LevelWarning,
			Message:   fmt.Sprintf("High average enrichment cost (%.0f cents)", m.AverageCostPerEnrichment),
			Metric:    MetricCostPerEnrichment,
			Value:     m.AverageCostPerEnrichment,
			Threshold: t.MaxCostPerEnrichment,
		})
	}

	if rate := m.LowConfidenceRate(); rate > t.MaxLowConfidenceRate {
		alerts = append(alerts, Alert{
			Level:     LevelWarning,
			Message:   fmt.Sprintf("High rate of low confidence matches (%.1f%%)", rate),
			Metric:    MetricLowConfidenceRate,
			Value:     rate,
			Threshold: t.MaxLowConfidenceRate,
		})
	}

	if day, ok := m.LastDay(); ok && day.CostCents > t.MaxDailyCostCents {
		alerts = append(alerts, Alert{
			Level:     LevelCritical,
			Message:   fmt.Sprintf("Daily enrichment cost exceeded budget on %s", day.Date),
			Metric:    MetricDailyCost,
			Value:     float64(day.CostCents),
			Threshold: float64(t.MaxDailyCostCents),
		})
	}

	return alerts
}
