package riskengine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/pkg/config"
)

func testThresholds() config.ThresholdConfig {
	return config.ThresholdConfig{
		DefaultCountry: "MX",
		NonCompetitive: config.NonCompetitiveThresholds{
			MinAwards:      1,
			MinDollarTotal: 1_000_000,
			MinSingleAward: 1_000_000,
		},
		Concentration: config.ConcentrationThresholds{
			ShareThreshold:   0.10,
			MinAnnualDollars: 1_000_000,
		},
		BidWindow: config.BidWindowThresholds{
			MinAwardValue: 1_000_000,
			MaxWindowDays: 365,
			FlagQuantile:  0.10,
		},
		Splitting: config.SplittingThresholds{
			ApprovalThreshold:   10_000_000,
			TimeWindowDays:      7,
			SimilarityThreshold: 0.5,
			MinClusterValue:     1_000_000,
			Workers:             4,
		},
	}
}

// worstOffenderDataset builds a dataset where supplier BAD trips every
// module: repeated non-competitive wins, a dominant share of one buyer's
// year, bidding windows far below the rest of the market, and clusters of
// similar sub-threshold awards. The MID suppliers each qualify for exactly
// one module below BAD, so BAD's percentile ranks are all positive.
func worstOffenderDataset(t *testing.T) *procurement.Dataset {
	t.Helper()

	day := func(month, d int) time.Time {
		return time.Date(2021, time.Month(month), d, 0, 0, 0, 0, time.UTC)
	}

	var records []procurement.Record
	add := func(rec procurement.Record) {
		rec.BuyerCountry = "MX"
		rec.BidderCountry = "MX"
		records = append(records, rec)
	}

	// BAD: three large outright awards.
	ncTitles := []string{"fleet fuel supply", "stationery annual order", "software licences"}
	for i, title := range ncTitles {
		add(procurement.Record{
			TenderID: fmt.Sprintf("bad-nc-%d", i), Title: title,
			BuyerID: "GOV-A", BuyerName: "GOV-A",
			BidderID: "BAD", BidderName: "BAD",
			AwardedAt:      day(i+1, 10),
			AwardValueUSD:  2_000_000,
			NonCompetitive: true,
		})
	}

	// BAD: three competitive wins from GOV-B published one day before the
	// deadline.
	winTitles := []string{"bridge inspection north", "water quality testing", "street sweeping service"}
	for i, title := range winTitles {
		published := day(i+4, 1)
		add(procurement.Record{
			TenderID: fmt.Sprintf("bad-win-%d", i), Title: title,
			BuyerID: "GOV-B", BuyerName: "GOV-B",
			BidderID: "BAD", BidderName: "BAD",
			PublishedAt: published, BidDeadline: published.AddDate(0, 0, 1),
			AwardedAt:     published.AddDate(0, 0, 30),
			AwardValueUSD: 2_000_000,
		})
	}

	// BAD: two splitting clusters, one pair and one triple.
	for i, title := range []string{"road repair phase one", "road repair phase two"} {
		add(procurement.Record{
			TenderID: fmt.Sprintf("bad-split-a-%d", i), Title: title,
			BuyerID: fmt.Sprintf("CB-%d", i), BuyerName: fmt.Sprintf("CB-%d", i),
			BidderID: "BAD", BidderName: "BAD",
			AwardedAt:     day(8, 1+2*i),
			AwardValueUSD: 1_500_000,
		})
	}
	for i, title := range []string{"server maintenance block a", "server maintenance block b", "server maintenance block c"} {
		add(procurement.Record{
			TenderID: fmt.Sprintf("bad-split-b-%d", i), Title: title,
			BuyerID: fmt.Sprintf("CB-%d", 2+i), BuyerName: fmt.Sprintf("CB-%d", 2+i),
			BidderID: "BAD", BidderName: "BAD",
			AwardedAt:     day(10, 1+2*i),
			AwardValueUSD: 1_500_000,
		})
	}

	// MID1: a single qualifying outright award.
	add(procurement.Record{
		TenderID: "mid1-nc", Title: "vehicle leasing",
		BuyerID: "GOV-A", BuyerName: "GOV-A",
		BidderID: "MID1", BidderName: "MID1",
		AwardedAt:      day(2, 20),
		AwardValueUSD:  1_000_000,
		NonCompetitive: true,
	})

	// MID2: a smaller concentration case at GOV-C, with comfortable windows.
	for i := 0; i < 2; i++ {
		published := day(i+2, 5)
		add(procurement.Record{
			TenderID: fmt.Sprintf("mid2-%d", i), Title: fmt.Sprintf("logistics contract %d", i),
			BuyerID: "GOV-C", BuyerName: "GOV-C",
			BidderID: "MID2", BidderName: "MID2",
			PublishedAt: published, BidDeadline: published.AddDate(0, 0, 60),
			AwardedAt:     published.AddDate(0, 0, 90),
			AwardValueUSD: 1_000_000,
		})
	}

	// MID3: two short-window wins, shorter than the market but longer than
	// BAD's.
	for i := 0; i < 2; i++ {
		published := day(i+6, 15)
		add(procurement.Record{
			TenderID: fmt.Sprintf("mid3-%d", i), Title: fmt.Sprintf("security guarding lot %d", i),
			BuyerID: fmt.Sprintf("MB-%d", i), BuyerName: fmt.Sprintf("MB-%d", i),
			BidderID: "MID3", BidderName: "MID3",
			PublishedAt: published, BidDeadline: published.AddDate(0, 0, 2),
			AwardedAt:     published.AddDate(0, 0, 25),
			AwardValueUSD: 1_500_000,
		})
	}

	// MID4: one splitting pair plus an approved bulk award that keeps it in
	// scope without entering the pool.
	for i, title := range []string{"catering services north", "catering services south"} {
		add(procurement.Record{
			TenderID: fmt.Sprintf("mid4-split-%d", i), Title: title,
			BuyerID: fmt.Sprintf("MC-%d", i), BuyerName: fmt.Sprintf("MC-%d", i),
			BidderID: "MID4", BidderName: "MID4",
			AwardedAt:     day(9, 10+i),
			AwardValueUSD: 1_500_000,
		})
	}
	add(procurement.Record{
		TenderID: "mid4-bulk", Title: "highway expansion program",
		BuyerID: "MC-9", BuyerName: "MC-9",
		BidderID: "MID4", BidderName: "MID4",
		AwardedAt:     day(12, 1),
		AwardValueUSD: 12_000_000,
	})

	// Small competitive fillers give GOV-B and GOV-C multi-award years while
	// staying under the concentration dollar floor and the window value floor.
	for i := 0; i < 5; i++ {
		add(procurement.Record{
			TenderID: fmt.Sprintf("fill-b-%d", i), Title: fmt.Sprintf("minor works b %d", i),
			BuyerID: "GOV-B", BuyerName: "GOV-B",
			BidderID: fmt.Sprintf("FB-%d", i), BidderName: fmt.Sprintf("FB-%d", i),
			AwardedAt:     day(i+1, 25),
			AwardValueUSD: 500_000,
		})
	}
	for i := 0; i < 6; i++ {
		add(procurement.Record{
			TenderID: fmt.Sprintf("fill-c-%d", i), Title: fmt.Sprintf("minor works c %d", i),
			BuyerID: "GOV-C", BuyerName: "GOV-C",
			BidderID: fmt.Sprintf("FC-%d", i), BidderName: fmt.Sprintf("FC-%d", i),
			AwardedAt:     day(i+1, 27),
			AwardValueUSD: 500_000,
		})
	}

	// The broad market: generous 90-day windows that anchor the dynamic
	// cutoff well above BAD's.
	for i := 0; i < 46; i++ {
		published := day(i%12+1, i%25+1)
		add(procurement.Record{
			TenderID: fmt.Sprintf("mkt-%d", i), Title: fmt.Sprintf("general procurement %d", i),
			BuyerID: fmt.Sprintf("MKT-B-%d", i), BuyerName: fmt.Sprintf("MKT-B-%d", i),
			BidderID: fmt.Sprintf("MKT-S-%d", i), BidderName: fmt.Sprintf("MKT-S-%d", i),
			PublishedAt: published, BidDeadline: published.AddDate(0, 0, 90),
			AwardedAt:     published.AddDate(0, 0, 120),
			AwardValueUSD: 1_500_000,
		})
	}

	ds, err := procurement.NewDataset("MX", records)
	require.NoError(t, err)
	return ds
}

func TestEngineWorstOffenderRanksFirst(t *testing.T) {
	ds := worstOffenderDataset(t)

	engine := NewEngine(testThresholds())
	results, err := engine.Run(context.Background(), ds)
	require.NoError(t, err)
	require.NotNil(t, results.NonCompetitive)
	require.NotNil(t, results.Concentration)
	require.NotNil(t, results.BidWindow)
	require.NotNil(t, results.Splitting)

	scores := Combine(ds, results)
	require.NotEmpty(t, scores)

	top := scores[0]
	assert.Equal(t, "BAD", top.Bidder.ID)
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, ModuleCount, top.FlaggedModules)
	for i, score := range top.ModuleScores {
		assert.Greater(t, score, 0.0, "module %s", ModuleOrder[i])
	}
	assert.Greater(t, top.CompositeScore, 0.0)
	assert.Equal(t, 11, top.TotalAwards)

	// Each MID supplier qualified for exactly one module, always behind BAD.
	for _, s := range scores[1:] {
		assert.Less(t, s.CompositeScore, top.CompositeScore)
		assert.LessOrEqual(t, s.FlaggedModules, 1)
	}
}

func TestEngineDeterministicAcrossRuns(t *testing.T) {
	ds := worstOffenderDataset(t)
	engine := NewEngine(testThresholds())

	first, err := engine.Run(context.Background(), ds)
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, Combine(ds, first), Combine(ds, second))
}

func TestEngineEmptyDataset(t *testing.T) {
	ds, err := procurement.NewDataset("MX", nil)
	require.NoError(t, err)

	engine := NewEngine(testThresholds())
	results, err := engine.Run(context.Background(), ds)
	require.NoError(t, err)

	scores := Combine(ds, results)
	assert.Empty(t, scores)
	assert.Empty(t, BuildBuyerSummaries(ds))
}
