// Package splitting detects potential contract splitting: several smaller
// awards to one supplier that, taken together, look like one procurement
// divided to stay under an approval threshold.
package splitting

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/internal/stats"
	"github.com/richxcame/tender-risk/pkg/config"
	"github.com/richxcame/tender-risk/pkg/logger"
	"go.uber.org/zap"
)

// ModuleName identifies this detector in summaries and metrics
const ModuleName = "contract_splitting"

// minClusterMembers is fixed: a single award is never a split.
const minClusterMembers = 2

// Detector clusters sub-threshold awards per supplier and scores the result
type Detector struct {
	cfg config.SplittingThresholds
}

// NewDetector creates a new contract-splitting detector
func NewDetector(cfg config.SplittingThresholds) *Detector {
	return &Detector{cfg: cfg}
}

// Name returns the module identifier
func (d *Detector) Name() string { return ModuleName }

// candidate is one sub-threshold award prepared for pairwise comparison.
type candidate struct {
	rec   *procurement.Record
	date  time.Time
	title string
}

// Detect scopes to suppliers whose dataset-wide award total reaches the
// approval threshold, pools their individual awards below that threshold, and
// builds a similarity graph per supplier: an edge joins two awards whose
// dates are within TimeWindowDays of each other and whose normalized titles
// reach SimilarityThreshold. Connected components become candidate clusters;
// components whose span exceeds the window are re-partitioned (see
// repairSpan). Clusters keep at least two members and MinClusterValue
// combined dollars. Risk score = percentile rank of the cluster count x
// percentile rank of the average cluster size x 100.
//
// Graph construction is O(n^2) in the per-supplier pool size, with an early
// break on the date-sorted pool. BlockByMonth pre-blocks comparisons by award
// month to cut the quadratic cost on large pools, at the price of missing
// pairs that straddle a month boundary. Suppliers are clustered in parallel.
func (d *Detector) Detect(ctx context.Context, ds *procurement.Dataset) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totals := make(map[string]float64)
	pools := make(map[string][]candidate)
	for i := range ds.Records {
		rec := &ds.Records[i]
		key := rec.Bidder().Key()
		totals[key] += rec.AwardValueUSD

		if rec.AwardValueUSD >= d.cfg.ApprovalThreshold {
			continue
		}
		date, ok := rec.AwardDate()
		if !ok {
			// No temporal evidence: the award cannot join any cluster.
			continue
		}
		pools[key] = append(pools[key], candidate{rec: rec, date: date, title: NormalizeTitle(rec.Title)})
	}

	var inScope []string
	for key, pool := range pools {
		if totals[key] >= d.cfg.ApprovalThreshold && len(pool) >= minClusterMembers {
			inScope = append(inScope, key)
		}
	}
	sort.Strings(inScope)

	clustersBySupplier := make([][]Cluster, len(inScope))

	workers := d.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				clustersBySupplier[idx] = d.clusterSupplier(pools[inScope[idx]])
			}
		}()
	}
	for idx := range inScope {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	var clusters []Cluster
	for _, cs := range clustersBySupplier {
		clusters = append(clusters, cs...)
	}

	summaries := summarize(clusters)

	logger.Info("contract splitting detection complete",
		zap.Int("records", len(ds.Records)),
		zap.Int("suppliers_in_scope", len(inScope)),
		zap.Int("clusters", len(clusters)),
		zap.Int("suppliers_flagged", len(summaries)),
	)

	return &Result{Clusters: clusters, Summaries: summaries}, nil
}

// clusterSupplier runs graph clustering over one supplier's sub-threshold
// pool and returns the retained clusters in (earliest date, tender id) order.
func (d *Detector) clusterSupplier(pool []candidate) []Cluster {
	sort.SliceStable(pool, func(i, j int) bool {
		if !pool[i].date.Equal(pool[j].date) {
			return pool[i].date.Before(pool[j].date)
		}
		return pool[i].rec.TenderID < pool[j].rec.TenderID
	})

	window := time.Duration(d.cfg.TimeWindowDays) * 24 * time.Hour

	graph := newDSU(len(pool))
	for _, block := range d.blocks(pool) {
		for bi := 0; bi < len(block); bi++ {
			i := block[bi]
			for bj := bi + 1; bj < len(block); bj++ {
				j := block[bj]
				if pool[j].date.Sub(pool[i].date) > window {
					// Pool is date-sorted; later members only get further away.
					break
				}
				if TitleSimilarity(pool[i].title, pool[j].title) >= d.cfg.SimilarityThreshold {
					graph.union(i, j)
				}
			}
		}
	}

	dates := make([]time.Time, len(pool))
	for i, c := range pool {
		dates[i] = c.date
	}

	var clusters []Cluster
	for _, comp := range graph.components() {
		if len(comp) < minClusterMembers {
			continue
		}
		for _, sub := range repairSpan(comp, dates, window) {
			if c, ok := d.buildCluster(pool, sub); ok {
				clusters = append(clusters, c)
			}
		}
	}
	return clusters
}

// blocks partitions pool indexes for pairwise comparison. Without blocking a
// single block covers the whole pool; with month blocking each award month is
// compared independently.
func (d *Detector) blocks(pool []candidate) [][]int {
	if !d.cfg.BlockByMonth {
		all := make([]int, len(pool))
		for i := range pool {
			all[i] = i
		}
		return [][]int{all}
	}

	byMonth := make(map[string][]int)
	var order []string
	for i, c := range pool {
		m := c.date.Format("2006-01")
		if _, ok := byMonth[m]; !ok {
			order = append(order, m)
		}
		byMonth[m] = append(byMonth[m], i)
	}
	sort.Strings(order)

	out := make([][]int, 0, len(order))
	for _, m := range order {
		out = append(out, byMonth[m])
	}
	return out
}

func (d *Detector) buildCluster(pool []candidate, members []int) (Cluster, bool) {
	if len(members) < minClusterMembers {
		return Cluster{}, false
	}

	var total float64
	for _, idx := range members {
		total += pool[idx].rec.AwardValueUSD
	}
	if total < d.cfg.MinClusterValue {
		return Cluster{}, false
	}

	first := pool[members[0]].rec
	c := Cluster{
		ID:            uuid.New(),
		Bidder:        first.Bidder(),
		MemberCount:   len(members),
		TotalValueUSD: total,
		AvgValueUSD:   total / float64(len(members)),
		EarliestAward: pool[members[0]].date,
		LatestAward:   pool[members[len(members)-1]].date,
	}
	c.SpanDays = int(c.LatestAward.Sub(c.EarliestAward).Hours() / 24)

	buyerSet := make(map[string]struct{})
	for _, idx := range members {
		rec := pool[idx].rec
		c.TenderIDs = append(c.TenderIDs, rec.TenderID)
		c.Titles = append(c.Titles, rec.Title)
		c.ValuesUSD = append(c.ValuesUSD, rec.AwardValueUSD)
		buyerSet[rec.BuyerName] = struct{}{}
	}
	for buyer := range buyerSet {
		c.Buyers = append(c.Buyers, buyer)
	}
	sort.Strings(c.Buyers)
	c.BuyerCount = len(c.Buyers)

	return c, true
}

func summarize(clusters []Cluster) []Summary {
	type acc struct {
		summary      Summary
		memberTotal  int
		clusterTotal float64
	}

	bySupplier := make(map[string]*acc)
	var order []string
	for _, c := range clusters {
		key := c.Bidder.Key()
		a, ok := bySupplier[key]
		if !ok {
			a = &acc{summary: Summary{Bidder: c.Bidder}}
			bySupplier[key] = a
			order = append(order, key)
		}
		a.summary.ClusterCount++
		a.summary.DollarsAtRisk += c.TotalValueUSD
		a.memberTotal += c.MemberCount
		a.clusterTotal += c.TotalValueUSD
		if c.MemberCount > a.summary.MaxMembers {
			a.summary.MaxMembers = c.MemberCount
		}
		if c.TotalValueUSD > a.summary.MaxClusterValueUSD {
			a.summary.MaxClusterValueUSD = c.TotalValueUSD
		}
	}
	sort.Strings(order)

	summaries := make([]Summary, 0, len(order))
	counts := make([]float64, 0, len(order))
	avgMembers := make([]float64, 0, len(order))
	for _, key := range order {
		a := bySupplier[key]
		s := a.summary
		s.AvgMembers = float64(a.memberTotal) / float64(s.ClusterCount)
		s.AvgClusterValueUSD = a.clusterTotal / float64(s.ClusterCount)

		summaries = append(summaries, s)
		counts = append(counts, float64(s.ClusterCount))
		avgMembers = append(avgMembers, s.AvgMembers)
	}

	countRanks := stats.PercentileRank(counts)
	sizeRanks := stats.PercentileRank(avgMembers)
	for i := range summaries {
		summaries[i].RiskScore = countRanks[i] * sizeRanks[i] * 100
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].RiskScore != summaries[j].RiskScore {
			return summaries[i].RiskScore > summaries[j].RiskScore
		}
		return summaries[i].Bidder.Key() < summaries[j].Bidder.Key()
	})
	return summaries
}
