// Package noncompetitive flags suppliers reliant on awards that bypassed an
// open competitive procedure.
package noncompetitive

import (
	"context"
	"sort"

	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/internal/stats"
	"github.com/richxcame/tender-risk/pkg/config"
	"github.com/richxcame/tender-risk/pkg/logger"
	"go.uber.org/zap"
)

// ModuleName identifies this detector in summaries and metrics
const ModuleName = "non_competitive"

// Detector scores suppliers by their reliance on non-competitive awards
type Detector struct {
	cfg config.NonCompetitiveThresholds
}

// NewDetector creates a new non-competitive detector
func NewDetector(cfg config.NonCompetitiveThresholds) *Detector {
	return &Detector{cfg: cfg}
}

// Name returns the module identifier
func (d *Detector) Name() string { return ModuleName }

type bidderStats struct {
	bidder procurement.BidderRef

	totalAwards   int
	totalPayments float64

	nonCompCount   int
	nonCompDollars float64
	maxAward       float64
	paidByBuyer    map[string]float64
	buyers         map[string]procurement.BuyerRef
}

// Detect builds the supplier-level non-competitive summary. A supplier is
// summarized only when all three minimums hold: at least MinAwards
// non-competitive wins, a non-competitive dollar total of at least
// MinDollarTotal, and at least one single award of at least MinSingleAward.
// Risk score = percentile rank of the non-competitive win count across
// qualifying suppliers x the supplier's non-competitive count share x 100.
func (d *Detector) Detect(ctx context.Context, ds *procurement.Dataset) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byBidder := make(map[string]*bidderStats)
	var cases []Case

	for i := range ds.Records {
		rec := &ds.Records[i]
		key := rec.Bidder().Key()
		bs, ok := byBidder[key]
		if !ok {
			bs = &bidderStats{
				bidder:      rec.Bidder(),
				paidByBuyer: make(map[string]float64),
				buyers:      make(map[string]procurement.BuyerRef),
			}
			byBidder[key] = bs
		}

		bs.totalAwards++
		bs.totalPayments += rec.AwardValueUSD

		if !rec.NonCompetitive {
			continue
		}

		bs.nonCompCount++
		bs.nonCompDollars += rec.AwardValueUSD
		if rec.AwardValueUSD > bs.maxAward {
			bs.maxAward = rec.AwardValueUSD
		}
		buyerKey := rec.Buyer().Key()
		bs.paidByBuyer[buyerKey] += rec.AwardValueUSD
		bs.buyers[buyerKey] = rec.Buyer()

		awarded, _ := rec.AwardDate()
		cases = append(cases, Case{
			TenderID:      rec.TenderID,
			Title:         rec.Title,
			Bidder:        rec.Bidder(),
			Buyer:         rec.Buyer(),
			AwardValueUSD: rec.AwardValueUSD,
			AwardedAt:     awarded,
		})
	}

	minAwards := d.cfg.MinAwards
	if minAwards < 1 {
		// A supplier with zero non-competitive wins is never summarized.
		minAwards = 1
	}

	var summaries []Summary
	for _, key := range sortedKeys(byBidder) {
		bs := byBidder[key]
		if bs.nonCompCount < minAwards {
			continue
		}
		if bs.nonCompDollars < d.cfg.MinDollarTotal {
			continue
		}
		if bs.maxAward < d.cfg.MinSingleAward {
			continue
		}

		topBuyerKey, topBuyerPaid := topEntry(bs.paidByBuyer)

		summaries = append(summaries, Summary{
			Bidder:              bs.bidder,
			NonCompetitiveCount: bs.nonCompCount,
			TotalAwards:         bs.totalAwards,
			CountShare:          stats.SafeShare(float64(bs.nonCompCount), float64(bs.totalAwards)),
			DollarsAtRisk:       bs.nonCompDollars,
			TotalPaymentsUSD:    bs.totalPayments,
			PaymentShare:        stats.SafeShare(bs.nonCompDollars, bs.totalPayments),
			AvgAwardUSD:         bs.nonCompDollars / float64(bs.nonCompCount),
			MaxAwardUSD:         bs.maxAward,
			TopBuyer:            bs.buyers[topBuyerKey],
			TopBuyerPaidUSD:     topBuyerPaid,
		})
	}

	// Score against the qualifying population only.
	counts := make([]float64, len(summaries))
	for i := range summaries {
		counts[i] = float64(summaries[i].NonCompetitiveCount)
	}
	ranks := stats.PercentileRank(counts)
	for i := range summaries {
		summaries[i].RiskScore = ranks[i] * summaries[i].CountShare * 100
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].RiskScore != summaries[j].RiskScore {
			return summaries[i].RiskScore > summaries[j].RiskScore
		}
		return summaries[i].Bidder.Key() < summaries[j].Bidder.Key()
	})
	sort.SliceStable(cases, func(i, j int) bool {
		if ki, kj := cases[i].Bidder.Key(), cases[j].Bidder.Key(); ki != kj {
			return ki < kj
		}
		return cases[i].TenderID < cases[j].TenderID
	})

	logger.Info("non-competitive detection complete",
		zap.Int("records", len(ds.Records)),
		zap.Int("cases", len(cases)),
		zap.Int("suppliers_flagged", len(summaries)),
	)

	return &Result{Cases: cases, Summaries: summaries}, nil
}

// sortedKeys returns the map keys in lexicographic order so scoring is
// independent of record order.
func sortedKeys(m map[string]*bidderStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// topEntry returns the key with the highest value; ties break toward the
// lexicographically smaller key.
func topEntry(m map[string]float64) (string, float64) {
	var bestKey string
	var bestVal float64
	for k, v := range m {
		if bestKey == "" || v > bestVal || (v == bestVal && k < bestKey) {
			bestKey, bestVal = k, v
		}
	}
	return bestKey, bestVal
}
