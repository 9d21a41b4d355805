package concentration

import "github.com/richxcame/tender-risk/internal/procurement"

// Case is one flagged (buyer, supplier, year) triple: the supplier took an
// outsized share of that buyer's competitive awards in that calendar year.
type Case struct {
	Buyer  procurement.BuyerRef  `json:"buyer"`
	Bidder procurement.BidderRef `json:"bidder"`
	Year   int                   `json:"year"`

	BuyerYearAwards  int     `json:"buyer_year_awards"`
	BuyerYearDollars float64 `json:"buyer_year_dollars"`

	AwardsToBidder  int     `json:"awards_to_bidder"`
	DollarsToBidder float64 `json:"dollars_to_bidder"`

	CountShare  float64 `json:"count_share"`
	DollarShare float64 `json:"dollar_share"`
}

// Summary is the supplier-level rollup across all flagged buyer-years.
type Summary struct {
	Bidder procurement.BidderRef `json:"bidder"`

	CaseCount     int     `json:"case_count"`
	DollarsAtRisk float64 `json:"dollars_at_risk"`

	SumCountShare  float64 `json:"sum_count_share"`
	SumDollarShare float64 `json:"sum_dollar_share"`

	TopBuyer        procurement.BuyerRef `json:"top_buyer"`
	TopBuyerPaidUSD float64              `json:"top_buyer_paid_usd"`

	RiskScore float64 `json:"risk_score"`
}

// Result pairs the flagged triples with the supplier summaries.
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
