package riskengine

import (
	"sort"

	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/internal/stats"
)

// BuyerSummary is the per-authority rollup: how much a buyer awarded, how
// much of it was non-competitive, and how concentrated it is on its top
// supplier.
type BuyerSummary struct {
	Buyer procurement.BuyerRef `json:"buyer"`

	TotalAwards   int     `json:"total_awards"`
	TotalSpendUSD float64 `json:"total_spend_usd"`
	AvgAwardUSD   float64 `json:"avg_award_usd"`

	NonCompetitiveCount    int     `json:"non_competitive_count"`
	NonCompetitiveSpendUSD float64 `json:"non_competitive_spend_usd"`
	NonCompetitiveShare    float64 `json:"non_competitive_share"`

	DistinctBidders  int                   `json:"distinct_bidders"`
	TopBidder        procurement.BidderRef `json:"top_bidder"`
	TopBidderPaidUSD float64               `json:"top_bidder_paid_usd"`
	TopBidderShare   float64               `json:"top_bidder_share"`
}

type buyerAccum struct {
	ref        procurement.BuyerRef
	awards     int
	spend      float64
	ncCount    int
	ncSpend    float64
	bidderPaid map[string]float64
	bidderRefs map[string]procurement.BidderRef
}

// BuildBuyerSummaries rolls the dataset up per contracting authority, ordered
// by total spend descending.
func BuildBuyerSummaries(ds *procurement.Dataset) []BuyerSummary {
	accums := make(map[string]*buyerAccum)
	for i := range ds.Records {
		rec := &ds.Records[i]
		key := rec.Buyer().Key()
		acc, ok := accums[key]
		if !ok {
			acc = &buyerAccum{
				ref:        rec.Buyer(),
				bidderPaid: make(map[string]float64),
				bidderRefs: make(map[string]procurement.BidderRef),
			}
			accums[key] = acc
		}
		acc.awards++
		acc.spend += rec.AwardValueUSD
		if rec.NonCompetitive {
			acc.ncCount++
			acc.ncSpend += rec.AwardValueUSD
		}
		bidderKey := rec.Bidder().Key()
		acc.bidderPaid[bidderKey] += rec.AwardValueUSD
		acc.bidderRefs[bidderKey] = rec.Bidder()
	}

	summaries := make([]BuyerSummary, 0, len(accums))
	for _, acc := range accums {
		topKey, topPaid := topEntry(acc.bidderPaid)
		summaries = append(summaries, BuyerSummary{
			Buyer:                  acc.ref,
			TotalAwards:            acc.awards,
			TotalSpendUSD:          acc.spend,
			AvgAwardUSD:            stats.SafeShare(acc.spend, float64(acc.awards)),
			NonCompetitiveCount:    acc.ncCount,
			NonCompetitiveSpendUSD: acc.ncSpend,
			NonCompetitiveShare:    stats.SafeShare(float64(acc.ncCount), float64(acc.awards)),
			DistinctBidders:        len(acc.bidderPaid),
			TopBidder:              acc.bidderRefs[topKey],
			TopBidderPaidUSD:       topPaid,
			TopBidderShare:         stats.SafeShare(topPaid, acc.spend),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].TotalSpendUSD != summaries[j].TotalSpendUSD {
			return summaries[i].TotalSpendUSD > summaries[j].TotalSpendUSD
		}
		return summaries[i].Buyer.Key() < summaries[j].Buyer.Key()
	})

	return summaries
}
