package bidwindow

import (
	"time"

	"github.com/richxcame/tender-risk/internal/procurement"
)

// Case is one flagged tender whose bidding window fell below the dynamic
// cutoff. DeadlineImputed marks windows estimated from downstream milestone
// dates; those are lower-confidence but still scored.
type Case struct {
	TenderID      string                `json:"tender_id"`
	Title         string                `json:"title"`
	Bidder        procurement.BidderRef `json:"bidder"`
	Buyer         procurement.BuyerRef  `json:"buyer"`
	AwardValueUSD float64               `json:"award_value_usd"`

	PublishedAt     time.Time `json:"published_at"`
	BidDeadline     time.Time `json:"bid_deadline"`
	WindowDays      int       `json:"window_days"`
	DeadlineImputed bool      `json:"deadline_imputed"`
}

// Summary is the supplier-level rollup over flagged tenders.
type Summary struct {
	Bidder procurement.BidderRef `json:"bidder"`

	FlaggedCount  int     `json:"flagged_count"`
	AvgWindowDays float64 `json:"avg_window_days"`
	MinWindowDays int     `json:"min_window_days"`

	AvgAwardUSD   float64 `json:"avg_award_usd"`
	DollarsAtRisk float64 `json:"dollars_at_risk"`

	TopBuyer        procurement.BuyerRef `json:"top_buyer"`
	TopBuyerPaidUSD float64              `json:"top_buyer_paid_usd"`

	RiskScore float64 `json:"risk_score"`
}

// Result pairs the flagged tenders with the supplier summaries. ThresholdDays
// is the dynamically derived cutoff; RetainedWindows is the size of the
// distribution it was derived from.
type Result struct {
	ThresholdDays   float64   `json:"threshold_days"`
	RetainedWindows int       `json:"retained_windows"`
	Cases           []Case    `json:"cases"`
	Summaries       []Summary `json:"summaries"`
}

// Name returns the module identifier
func (r *Result) Name() string { return ModuleName }

// Scores returns the per-supplier scores for the aggregate combiner
func (r *Result) Scores() []procurement.BidderScore {
	scores := make([]procurement.BidderScore, 0, len(r.Summaries))
	for _, s := range r.Summaries {
		scores = append(scores, procurement.BidderScore{
			Bidder:        s.Bidder,
			Score:         s.RiskScore,
			DollarsAtRisk: s.DollarsAtRisk,
		})
	}
	return scores
}
