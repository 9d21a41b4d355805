// Package bidwindow flags tenders whose bidding window was abnormally short
// for the dataset and scores the suppliers who keep winning them.
package bidwindow

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
const ModuleName = "short_bid_window"

const hoursPerDay = 24

// Detector scores suppliers by how often they win short-window tenders
type Detector struct {
	cfg config.BidWindowThresholds
}

// NewDetector creates a new short-bid-window detector
func NewDetector(cfg config.BidWindowThresholds) *Detector {
	return &Detector{cfg: cfg}
}

// Name returns the module identifier
func (d *Detector) Name() string { return ModuleName }

type window struct {
	rec     *procurement.Record
	days    int
	imputed bool
}

// Detect computes bidding windows for competitive tenders, derives the flag
// cutoff as the FlagQuantile (default 10th percentile) of the retained window
// distribution, and flags every tender strictly below it. Missing deadlines
// are imputed from the earliest downstream milestone and marked. Retained
// windows are strictly positive, at most MaxWindowDays long, and belong to
// tenders worth at least MinAwardValue. Risk score = percentile rank of the
// flagged count x (1 - percentile rank of the average window) x 100, so
// shorter average windows push the score up.
func (d *Detector) Detect(ctx context.Context, ds *procurement.Dataset) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var retained []window
	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.NonCompetitive || rec.PublishedAt.IsZero() {
			continue
		}
		deadline, imputed := rec.EffectiveDeadline()
		if deadline.IsZero() {
			continue
		}

		days := int(deadline.Sub(rec.PublishedAt).Hours() / hoursPerDay)
		if days <= 0 || days > d.cfg.MaxWindowDays {
			continue
		}
		if rec.AwardValueUSD < d.cfg.MinAwardValue {
			continue
		}
		retained = append(retained, window{rec: rec, days: days, imputed: imputed})
	}

	lengths := make([]float64, len(retained))
	for i, w := range retained {
		lengths[i] = float64(w.days)
	}
	threshold := stats.Quantile(lengths, d.cfg.FlagQuantile)

	var cases []Case
	for _, w := range retained {
		if float64(w.days) >= threshold {
			continue
		}
		deadline, _ := w.rec.EffectiveDeadline()
		cases = append(cases, Case{
			TenderID:        w.rec.TenderID,
			Title:           w.rec.Title,
			Bidder:          w.rec.Bidder(),
			Buyer:           w.rec.Buyer(),
			AwardValueUSD:   w.rec.AwardValueUSD,
			PublishedAt:     w.rec.PublishedAt,
			BidDeadline:     deadline,
			WindowDays:      w.days,
			DeadlineImputed: w.imputed,
		})
	}
	sort.SliceStable(cases, func(i, j int) bool {
		if ki, kj := cases[i].Bidder.Key(), cases[j].Bidder.Key(); ki != kj {
			return ki < kj
		}
		return cases[i].TenderID < cases[j].TenderID
	})

	summaries := summarize(cases)

	logger.Info("short bid window detection complete",
		zap.Int("records", len(ds.Records)),
		zap.Int("retained_windows", len(retained)),
		zap.Float64("threshold_days", threshold),
		zap.Int("cases", len(cases)),
		zap.Int("suppliers_flagged", len(summaries)),
	)

	return &Result{
		ThresholdDays:   threshold,
		RetainedWindows: len(retained),
		Cases:           cases,
		Summaries:       summaries,
	}, nil
}

func summarize(cases []Case) []Summary {
	type acc struct {
		summary     Summary
		windowTotal int
		paidByBuyer map[string]float64
		buyers      map[string]procurement.BuyerRef
	}

	bySupplier := make(map[string]*acc)
	var order []string
	for _, c := range cases {
		key := c.Bidder.Key()
		a, ok := bySupplier[key]
		if !ok {
			a = &acc{
				summary:     Summary{Bidder: c.Bidder, MinWindowDays: c.WindowDays},
				paidByBuyer: make(map[string]float64),
				buyers:      make(map[string]procurement.BuyerRef),
			}
			bySupplier[key] = a
			order = append(order, key)
		}
		a.summary.FlaggedCount++
		a.summary.DollarsAtRisk += c.AwardValueUSD
		a.windowTotal += c.WindowDays
		if c.WindowDays < a.summary.MinWindowDays {
			a.summary.MinWindowDays = c.WindowDays
		}
		buyerKey := c.Buyer.Key()
		a.paidByBuyer[buyerKey] += c.AwardValueUSD
		a.buyers[buyerKey] = c.Buyer
	}
	sort.Strings(order)

	summaries := make([]Summary, 0, len(order))
	counts := make([]float64, 0, len(order))
	avgWindows := make([]float64, 0, len(order))
	for _, key := range order {
		a := bySupplier[key]
		s := a.summary
		s.AvgWindowDays = float64(a.windowTotal) / float64(s.FlaggedCount)
		s.AvgAwardUSD = s.DollarsAtRisk / float64(s.FlaggedCount)

		var topKey string
		var topPaid float64
		for bk, paid := range a.paidByBuyer {
			if topKey == "" || paid > topPaid || (paid == topPaid && bk < topKey) {
				topKey, topPaid = bk, paid
			}
		}
		s.TopBuyer = a.buyers[topKey]
		s.TopBuyerPaidUSD = topPaid

		summaries = append(summaries, s)
		counts = append(counts, float64(s.FlaggedCount))
		avgWindows = append(avgWindows, s.AvgWindowDays)
	}

	countRanks := stats.PercentileRank(counts)
	windowRanks := stats.PercentileRank(avgWindows)
	for i := range summaries {
		// The window rank is inverted: short average windows raise the score.
		summaries[i].RiskScore = countRanks[i] * (1 - windowRanks[i]) * 100
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].RiskScore != summaries[j].RiskScore {
			return summaries[i].RiskScore > summaries[j].RiskScore
		}
		return summaries[i].Bidder.Key() < summaries[j].Bidder.Key()
	})
	return summaries
}
