// Package concentration flags buyer-year-supplier triples where a single
// supplier captured an outsized share of a buyer's competitive spend.
package concentration

import (
	"context"
	"sort"
	"strconv"

	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/internal/stats"
	"github.com/richxcame/tender-risk/pkg/config"
	"github.com/richxcame/tender-risk/pkg/logger"
	"go.uber.org/zap"
)

// ModuleName identifies this detector in summaries and metrics
const ModuleName = "spending_concentration"

// Detector scores suppliers by buyer-spend concentration
type Detector struct {
	cfg config.ConcentrationThresholds
}

// NewDetector creates a new spending-concentration detector
func NewDetector(cfg config.ConcentrationThresholds) *Detector {
	return &Detector{cfg: cfg}
}

// Name returns the module identifier
func (d *Detector) Name() string { return ModuleName }

type buyerYear struct {
	buyer   procurement.BuyerRef
	year    int
	awards  int
	dollars float64
}

type pair struct {
	buyer   procurement.BuyerRef
	bidder  procurement.BidderRef
	year    int
	awards  int
	dollars float64
}

// Detect examines competitive awards only. Buyer-years with a single award
// are excluded outright: a lone award trivially yields a 100% share. A
// (buyer, supplier, year) triple is flagged when the supplier's share of the
// buyer-year's dollars or count exceeds ShareThreshold and the dollars paid
// reach MinAnnualDollars. Risk score = percentile rank of the summed count
// shares x percentile rank of the summed dollar shares x 100, so a supplier
// must rank high on both dimensions to score high.
func (d *Detector) Detect(ctx context.Context, ds *procurement.Dataset) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buyerYears := make(map[string]*buyerYear)
	pairs := make(map[string]*pair)

	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.NonCompetitive {
			continue
		}
		year := rec.Year()
		bk := byKey(rec.Buyer().Key(), year)

		by, ok := buyerYears[bk]
		if !ok {
			by = &buyerYear{buyer: rec.Buyer(), year: year}
			buyerYears[bk] = by
		}
		by.awards++
		by.dollars += rec.AwardValueUSD

		pKey := bk + "|" + rec.Bidder().Key()
		p, ok := pairs[pKey]
		if !ok {
			p = &pair{buyer: rec.Buyer(), bidder: rec.Bidder(), year: year}
			pairs[pKey] = p
		}
		p.awards++
		p.dollars += rec.AwardValueUSD
	}

	pairKeys := make([]string, 0, len(pairs))
	for k := range pairs {
		pairKeys = append(pairKeys, k)
	}
	sort.Strings(pairKeys)

	// Top buyer per supplier is computed across all multi-award buyer-years,
	// independent of which triples end up flagged.
	paidBySupplierBuyer := make(map[string]map[string]float64)
	buyerRefs := make(map[string]procurement.BuyerRef)

	var cases []Case
	for _, k := range pairKeys {
		p := pairs[k]
		by := buyerYears[byKey(p.buyer.Key(), p.year)]
		if by.awards <= 1 {
			continue
		}

		supplierKey := p.bidder.Key()
		if paidBySupplierBuyer[supplierKey] == nil {
			paidBySupplierBuyer[supplierKey] = make(map[string]float64)
		}
		paidBySupplierBuyer[supplierKey][p.buyer.Key()] += p.dollars
		buyerRefs[p.buyer.Key()] = p.buyer

		countShare := stats.SafeShare(float64(p.awards), float64(by.awards))
		dollarShare := stats.SafeShare(p.dollars, by.dollars)

		if (dollarShare <= d.cfg.ShareThreshold && countShare <= d.cfg.ShareThreshold) ||
			p.dollars < d.cfg.MinAnnualDollars {
			continue
		}

		cases = append(cases, Case{
			Buyer:            p.buyer,
			Bidder:           p.bidder,
			Year:             p.year,
			BuyerYearAwards:  by.awards,
			BuyerYearDollars: by.dollars,
			AwardsToBidder:   p.awards,
			DollarsToBidder:  p.dollars,
			CountShare:       countShare,
			DollarShare:      dollarShare,
		})
	}

	summaries := summarize(cases, paidBySupplierBuyer, buyerRefs)

	logger.Info("spending concentration detection complete",
		zap.Int("records", len(ds.Records)),
		zap.Int("buyer_years", len(buyerYears)),
		zap.Int("cases", len(cases)),
		zap.Int("suppliers_flagged", len(summaries)),
	)

	return &Result{Cases: cases, Summaries: summaries}, nil
}

func summarize(cases []Case, paidBySupplierBuyer map[string]map[string]float64, buyerRefs map[string]procurement.BuyerRef) []Summary {
	bySupplier := make(map[string]*Summary)
	var order []string

	for _, c := range cases {
		key := c.Bidder.Key()
		s, ok := bySupplier[key]
		if !ok {
			s = &Summary{Bidder: c.Bidder}
			bySupplier[key] = s
			order = append(order, key)
		}
		s.CaseCount++
		s.DollarsAtRisk += c.DollarsToBidder
		s.SumCountShare += c.CountShare
		s.SumDollarShare += c.DollarShare
	}
	sort.Strings(order)

	summaries := make([]Summary, 0, len(order))
	countShares := make([]float64, 0, len(order))
	dollarShares := make([]float64, 0, len(order))
	for _, key := range order {
		s := bySupplier[key]

		var topKey string
		var topPaid float64
		for bk, paid := range paidBySupplierBuyer[key] {
			if topKey == "" || paid > topPaid || (paid == topPaid && bk < topKey) {
				topKey, topPaid = bk, paid
			}
		}
		s.TopBuyer = buyerRefs[topKey]
		s.TopBuyerPaidUSD = topPaid

		summaries = append(summaries, *s)
		countShares = append(countShares, s.SumCountShare)
		dollarShares = append(dollarShares, s.SumDollarShare)
	}

	countRanks := stats.PercentileRank(countShares)
	dollarRanks := stats.PercentileRank(dollarShares)
	for i := range summaries {
		summaries[i].RiskScore = countRanks[i] * dollarRanks[i] * 100
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].RiskScore != summaries[j].RiskScore {
			return summaries[i].RiskScore > summaries[j].RiskScore
		}
		return summaries[i].Bidder.Key() < summaries[j].Bidder.Key()
	})
	return summaries
}

func byKey(buyerKey string, year int) string {
	return buyerKey + "|" + strconv.Itoa(year)
}
