package concentration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultThresholds() config.ConcentrationThresholds {
	return config.ConcentrationThresholds{
		ShareThreshold:   0.10,
		MinAnnualDollars: 1_000_000,
	}
}

func award(tenderID, bidder, buyer string, year int, value float64) procurement.Record {
	return procurement.Record{
		TenderID:      tenderID,
		Title:         "works " + tenderID,
		BuyerID:       buyer,
		BuyerName:     buyer,
		BuyerCountry:  "MX",
		BidderID:      bidder,
		BidderName:    bidder,
		BidderCountry: "MX",
		AwardedAt:     time.Date(year, 6, 15, 0, 0, 0, 0, time.UTC),
		AwardValueUSD: value,
	}
}

func dataset(t *testing.T, records []procurement.Record) *procurement.Dataset {
	t.Helper()
	ds, err := procurement.NewDataset("MX", records)
	require.NoError(t, err)
	return ds
}

func TestDetectSingleAwardBuyerYearNeverFlags(t *testing.T) {
	// One award is a 100% share by construction and carries no signal.
	records := []procurement.Record{
		award("t1", "S1", "B1", 2022, 50_000_000),
	}

	res, err := NewDetector(defaultThresholds()).Detect(context.Background(), dataset(t, records))
	require.NoError(t, err)

	assert.Empty(t, res.Cases)
	assert.Empty(t, res.Summaries)
}

func TestDetectIgnoresNonCompetitiveAwards(t *testing.T) {
	rec := award("t1", "S1", "B1", 2022, 5_000_000)
	rec.NonCompetitive = true
	records := []procurement.Record{
		rec,
		award("t2", "S1", "B1", 2022, 5_000_000),
	}

	res, err := NewDetector(defaultThresholds()).Detect(context.Background(), dataset(t, records))
	require.NoError(t, err)

	// Only one competitive award remains in the buyer-year, so it is excluded.
	assert.Empty(t, res.Cases)
}

func TestDetectFlagsHighShareWithMaterialDollars(t *testing.T) {
	records := []procurement.Record{
		// B1/2022: 10 awards, $10M total. S1 takes 3 awards / $4M.
		award("t1", "S1", "B1", 2022, 2_000_000),
		award("t2", "S1", "B1", 2022, 1_000_000),
		award("t3", "S1", "B1", 2022, 1_000_000),
	}
	for i := 0; i < 7; i++ {
		records = append(records, award(fmt.Sprintf("f%d", i), fmt.Sprintf("F%d", i), "B1", 2022, 6_000_000.0/7))
	}

	res, err := NewDetector(defaultThresholds()).Detect(context.Background(), dataset(t, records))
	require.NoError(t, err)

	require.Len(t, res.Cases, 1)
	c := res.Cases[0]
	assert.Equal(t, "S1", c.Bidder.ID)
	assert.Equal(t, 2022, c.Year)
	assert.Equal(t, 10, c.BuyerYearAwards)
	assert.Equal(t, 3, c.AwardsToBidder)
	assert.InDelta(t, 0.3, c.CountShare, 1e-9)
	assert.InDelta(t, 0.4, c.DollarShare, 1e-9)
}

func TestDetectRequiresDollarFloor(t *testing.T) {
	// S1 holds a 50% share but only $800k: share alone is not enough.
	records := []procurement.Record{
		award("t1", "S1", "B1", 2022, 800_000),
		award("t2", "S2", "B1", 2022, 800_000),
	}

	res, err := NewDetector(defaultThresholds()).Detect(context.Background(), dataset(t, records))
	require.NoError(t, err)

	assert.Empty(t, res.Cases)
}

func TestDetectScoreIsMultiplicativeAcrossBothRanks(t *testing.T) {
	var records []procurement.Record
	// Three buyers, each with many small filler awards plus one concentrated
	// supplier. S3 is concentrated in two buyer-years, S1 and S2 in one each.
	fill := func(buyer string, year, n int, total float64) {
		for i := 0; i < n; i++ {
			records = append(records, award(fmt.Sprintf("%s-%d-f%d", buyer, year, i), fmt.Sprintf("F-%s-%d-%d", buyer, year, i), buyer, year, total/float64(n)))
		}
	}

	// Fillers stay under both the share threshold and the dollar floor.
	records = append(records, award("a1", "S1", "B1", 2022, 1_500_000))
	fill("B1", 2022, 10, 5_000_000)

	records = append(records, award("a2", "S2", "B2", 2022, 2_000_000))
	fill("B2", 2022, 10, 5_000_000)

	records = append(records, award("a3", "S3", "B3", 2022, 3_000_000))
	fill("B3", 2022, 10, 5_000_000)
	records = append(records, award("a4", "S3", "B3", 2023, 3_000_000))
	fill("B3", 2023, 10, 5_000_000)

	res, err := NewDetector(defaultThresholds()).Detect(context.Background(), dataset(t, records))
	require.NoError(t, err)
	require.Len(t, res.Summaries, 3)

	// S3 accumulated shares over two flagged buyer-years and must rank first
	// on both dimensions.
	top := res.Summaries[0]
	assert.Equal(t, "S3", top.Bidder.ID)
	assert.Equal(t, 2, top.CaseCount)
	assert.Equal(t, 6_000_000.0, top.DollarsAtRisk)
	assert.Greater(t, top.RiskScore, res.Summaries[1].RiskScore)

	// Rank on both dimensions is 2/3 for S3.
	assert.InDelta(t, (2.0/3.0)*(2.0/3.0)*100, top.RiskScore, 1e-9)

	assert.Equal(t, "B3", top.TopBuyer.ID)
	assert.Equal(t, 6_000_000.0, top.TopBuyerPaidUSD)
}

func TestDetectTopBuyerIndependentOfFlags(t *testing.T) {
	records := []procurement.Record{
		// B1/2022 concentrated and flagged for S1.
		award("t1", "S1", "B1", 2022, 2_000_000),
		award("t2", "F1", "B1", 2022, 2_000_000),
		// B2 paid S1 more overall, but S1's share of each busy B2 year stays
		// under the threshold so no B2 triple flags.
		award("t3", "S1", "B2", 2021, 1_500_000),
		award("t4", "S1", "B2", 2022, 1_500_000),
	}
	for year := 2021; year <= 2022; year++ {
		for i := 0; i < 11; i++ {
			records = append(records, award(
				fmt.Sprintf("b2-%d-%d", year, i), fmt.Sprintf("F2-%d", i), "B2", year, 28_500_000.0/11))
		}
	}

	res, err := NewDetector(defaultThresholds()).Detect(context.Background(), dataset(t, records))
	require.NoError(t, err)

	var s1 *Summary
	for i := range res.Summaries {
		if res.Summaries[i].Bidder.ID == "S1" {
			s1 = &res.Summaries[i]
		}
	}
	require.NotNil(t, s1)
	assert.Equal(t, "B2", s1.TopBuyer.ID)
	assert.Equal(t, 3_000_000.0, s1.TopBuyerPaidUSD)
}
