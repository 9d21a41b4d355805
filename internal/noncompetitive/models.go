package noncompetitive

import (
	"time"

	"github.com/richxcame/tender-risk/internal/procurement"
)

// Case is a single non-competitive award, kept for row-level review.
type Case struct {
	TenderID      string                `json:"tender_id"`
	Title         string                `json:"title"`
	Bidder        procurement.BidderRef `json:"bidder"`
	Buyer         procurement.BuyerRef  `json:"buyer"`
	AwardValueUSD float64               `json:"award_value_usd"`
	AwardedAt     time.Time             `json:"awarded_at,omitempty"`
}

// Summary is the supplier-level rollup for suppliers passing all minimum
// thresholds.
type Summary struct {
	Bidder procurement.BidderRef `json:"bidder"`

	NonCompetitiveCount int     `json:"non_competitive_count"`
	TotalAwards         int     `json:"total_awards"`
	CountShare          float64 `json:"count_share"`

	DollarsAtRisk    float64 `json:"dollars_at_risk"`
	TotalPaymentsUSD float64 `json:"total_payments_usd"`
	PaymentShare     float64 `json:"payment_share"`

	AvgAwardUSD float64 `json:"avg_award_usd"`
	MaxAwardUSD float64 `json:"max_award_usd"`

	TopBuyer        procurement.BuyerRef `json:"top_buyer"`
	TopBuyerPaidUSD float64              `json:"top_buyer_paid_usd"`

	RiskScore float64 `json:"risk_score"`
}

// Result pairs the row-level cases with the supplier summaries.
type Result struct {
	Cases     []Case    `json:"cases"`
	Summaries []Summary `json:"summaries"`
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
