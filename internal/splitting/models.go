package splitting

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/tender-risk/internal/procurement"
)

// Cluster is one suspected split: a group of sub-threshold awards to the same
// supplier, close in time and similar in title.
type Cluster struct {
	ID     uuid.UUID             `json:"id"`
	Bidder procurement.BidderRef `json:"bidder"`

	MemberCount   int     `json:"member_count"`
	TotalValueUSD float64 `json:"total_value_usd"`
	AvgValueUSD   float64 `json:"avg_value_usd"`

	TenderIDs []string  `json:"tender_ids"`
	Titles    []string  `json:"titles"`
	ValuesUSD []float64 `json:"values_usd"`

	Buyers     []string `json:"buyers"`
	BuyerCount int      `json:"buyer_count"`

	EarliestAward time.Time `json:"earliest_award"`
	LatestAward   time.Time `json:"latest_award"`
	SpanDays      int       `json:"span_days"`
}

// Summary is the supplier-level rollup over detected clusters.
type Summary struct {
	Bidder procurement.BidderRef `json:"bidder"`

	ClusterCount int     `json:"cluster_count"`
	AvgMembers   float64 `json:"avg_members"`
	MaxMembers   int     `json:"max_members"`

	AvgClusterValueUSD float64 `json:"avg_cluster_value_usd"`
	MaxClusterValueUSD float64 `json:"max_cluster_value_usd"`
	DollarsAtRisk      float64 `json:"dollars_at_risk"`

	RiskScore float64 `json:"risk_score"`
}

// Result pairs the detected clusters with the supplier summaries.
type Result struct {
	Clusters  []Cluster `json:"clusters"`
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
