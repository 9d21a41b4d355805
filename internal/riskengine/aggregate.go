package riskengine

import (
	"sort"

	"github.com/richxcame/tender-risk/internal/bidwindow"
	"github.com/richxcame/tender-risk/internal/concentration"
	"github.com/richxcame/tender-risk/internal/noncompetitive"
	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/internal/splitting"
)

// ModuleCount is the number of risk modules feeding the composite score. The
// divisor is fixed: a supplier absent from a module contributes zero, it is
// never averaged over fewer modules.
const ModuleCount = 4

// ModuleOrder fixes the position of each module in the score vector.
var ModuleOrder = [ModuleCount]string{
	noncompetitive.ModuleName,
	concentration.ModuleName,
	bidwindow.ModuleName,
	splitting.ModuleName,
}

// AggregateScore is one supplier's row in the final risk table: the fixed
// module vector, the composite, and the supplier's overall footprint in the
// dataset for context.
type AggregateScore struct {
	Bidder procurement.BidderRef `json:"bidder"`

	ModuleScores   [ModuleCount]float64 `json:"module_scores"`
	CompositeScore float64              `json:"composite_score"`
	FlaggedModules int                  `json:"flagged_modules"`
	Rank           int                  `json:"rank"`

	// Largest single-module dollar exposure; modules overlap on the same
	// awards, so their dollar figures are not summed.
	DollarsAtRisk float64 `json:"dollars_at_risk"`

	TotalAwards      int                  `json:"total_awards"`
	TotalPaymentsUSD float64              `json:"total_payments_usd"`
	DistinctBuyers   int                  `json:"distinct_buyers"`
	TopBuyer         procurement.BuyerRef `json:"top_buyer"`
	TopBuyerPaidUSD  float64              `json:"top_buyer_paid_usd"`
}

type bidderFootprint struct {
	ref       procurement.BidderRef
	awards    int
	payments  float64
	buyerPaid map[string]float64
	buyerRefs map[string]procurement.BuyerRef
}

// Combine merges the per-module supplier scores into the final ranked risk
// table. Rows exist for every supplier at least one module scored; missing
// module entries count as zero and the composite always averages over all
// four modules.
func Combine(ds *procurement.Dataset, results *Results) []AggregateScore {
	footprints := make(map[string]*bidderFootprint)
	for i := range ds.Records {
		rec := &ds.Records[i]
		key := rec.Bidder().Key()
		fp, ok := footprints[key]
		if !ok {
			fp = &bidderFootprint{
				ref:       rec.Bidder(),
				buyerPaid: make(map[string]float64),
				buyerRefs: make(map[string]procurement.BuyerRef),
			}
			footprints[key] = fp
		}
		fp.awards++
		fp.payments += rec.AwardValueUSD
		buyerKey := rec.Buyer().Key()
		fp.buyerPaid[buyerKey] += rec.AwardValueUSD
		fp.buyerRefs[buyerKey] = rec.Buyer()
	}

	rows := make(map[string]*AggregateScore)
	for i, module := range results.Modules() {
		for _, score := range module.Scores() {
			key := score.Bidder.Key()
			row, ok := rows[key]
			if !ok {
				row = &AggregateScore{Bidder: score.Bidder}
				rows[key] = row
			}
			row.ModuleScores[i] = score.Score
			if score.DollarsAtRisk > row.DollarsAtRisk {
				row.DollarsAtRisk = score.DollarsAtRisk
			}
		}
	}

	scores := make([]AggregateScore, 0, len(rows))
	for key, row := range rows {
		var sum float64
		for _, s := range row.ModuleScores {
			sum += s
			if s > 0 {
				row.FlaggedModules++
			}
		}
		row.CompositeScore = sum / ModuleCount

		if fp, ok := footprints[key]; ok {
			row.TotalAwards = fp.awards
			row.TotalPaymentsUSD = fp.payments
			row.DistinctBuyers = len(fp.buyerPaid)
			topKey, topPaid := topEntry(fp.buyerPaid)
			row.TopBuyer = fp.buyerRefs[topKey]
			row.TopBuyerPaidUSD = topPaid
		}
		scores = append(scores, *row)
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].CompositeScore != scores[j].CompositeScore {
			return scores[i].CompositeScore > scores[j].CompositeScore
		}
		return scores[i].Bidder.Key() < scores[j].Bidder.Key()
	})

	// Min-method ranks: ties share the smallest position.
	for i := range scores {
		if i > 0 && scores[i].CompositeScore == scores[i-1].CompositeScore {
			scores[i].Rank = scores[i-1].Rank
			continue
		}
		scores[i].Rank = i + 1
	}

	return scores
}

// topEntry returns the key with the largest value, breaking ties toward the
// lexicographically smaller key.
func topEntry(m map[string]float64) (string, float64) {
	var bestKey string
	var bestVal float64
	first := true
	for k, v := range m {
		if first || v > bestVal || (v == bestVal && k < bestKey) {
			bestKey, bestVal = k, v
			first = false
		}
	}
	return bestKey, bestVal
}
