package riskengine

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/tender-risk/internal/procurement"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one execution of the full analysis over a scoped dataset.
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Country     string     `json:"country"`
	MinYear     int        `json:"min_year,omitempty"`
	MaxYear     int        `json:"max_year,omitempty"`
	Status      string     `json:"status"`
	RecordCount int        `json:"record_count"`
	BidderCount int        `json:"bidder_count"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ModuleSummaryRow is the storage shape of one module's supplier summary:
// the score and exposure as columns, the module-specific detail as a json
// document.
type ModuleSummaryRow struct {
	Module        string                `json:"module"`
	Bidder        procurement.BidderRef `json:"bidder"`
	RiskScore     float64               `json:"risk_score"`
	DollarsAtRisk float64               `json:"dollars_at_risk"`
	Metrics       interface{}           `json:"metrics"`
}

// flattenSummaries turns the typed detector outputs into uniform storage
// rows, preserving module order.
func flattenSummaries(results *Results) []ModuleSummaryRow {
	var rows []ModuleSummaryRow
	for _, s := range results.NonCompetitive.Summaries {
		rows = append(rows, ModuleSummaryRow{
			Module:        results.NonCompetitive.Name(),
			Bidder:        s.Bidder,
			RiskScore:     s.RiskScore,
			DollarsAtRisk: s.DollarsAtRisk,
			Metrics:       s,
		})
	}
	for _, s := range results.Concentration.Summaries {
		rows = append(rows, ModuleSummaryRow{
			Module:        results.Concentration.Name(),
			Bidder:        s.Bidder,
			RiskScore:     s.RiskScore,
			DollarsAtRisk: s.DollarsAtRisk,
			Metrics:       s,
		})
	}
	for _, s := range results.BidWindow.Summaries {
		rows = append(rows, ModuleSummaryRow{
			Module:        results.BidWindow.Name(),
			Bidder:        s.Bidder,
			RiskScore:     s.RiskScore,
			DollarsAtRisk: s.DollarsAtRisk,
			Metrics:       s,
		})
	}
	for _, s := range results.Splitting.Summaries {
		rows = append(rows, ModuleSummaryRow{
			Module:        results.Splitting.Name(),
			Bidder:        s.Bidder,
			RiskScore:     s.RiskScore,
			DollarsAtRisk: s.DollarsAtRisk,
			Metrics:       s,
		})
	}
	return rows
}

// ValidModule reports whether name is one of the risk modules.
func ValidModule(name string) bool {
	for _, m := range ModuleOrder {
		if m == name {
			return true
		}
	}
	return false
}
