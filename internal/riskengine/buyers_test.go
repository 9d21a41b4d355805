package riskengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/tender-risk/internal/procurement"
)

func TestBuildBuyerSummaries(t *testing.T) {
	awarded := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []procurement.Record{
		{TenderID: "t1", BuyerID: "B1", BuyerName: "Ministry of Works", BidderID: "S1", BidderName: "S1",
			AwardValueUSD: 4_000_000, AwardedAt: awarded, NonCompetitive: true},
		{TenderID: "t2", BuyerID: "B1", BuyerName: "Ministry of Works", BidderID: "S1", BidderName: "S1",
			AwardValueUSD: 2_000_000, AwardedAt: awarded},
		{TenderID: "t3", BuyerID: "B1", BuyerName: "Ministry of Works", BidderID: "S2", BidderName: "S2",
			AwardValueUSD: 2_000_000, AwardedAt: awarded},
		{TenderID: "t4", BuyerID: "B2", BuyerName: "City Council", BidderID: "S3", BidderName: "S3",
			AwardValueUSD: 1_000_000, AwardedAt: awarded},
	}
	ds, err := procurement.NewDataset("MX", records)
	require.NoError(t, err)

	summaries := BuildBuyerSummaries(ds)
	require.Len(t, summaries, 2)

	// Ordered by total spend.
	b1 := summaries[0]
	assert.Equal(t, "B1", b1.Buyer.ID)
	assert.Equal(t, 3, b1.TotalAwards)
	assert.Equal(t, 8_000_000.0, b1.TotalSpendUSD)
	assert.InDelta(t, 8_000_000.0/3, b1.AvgAwardUSD, 1e-6)
	assert.Equal(t, 1, b1.NonCompetitiveCount)
	assert.Equal(t, 4_000_000.0, b1.NonCompetitiveSpendUSD)
	assert.InDelta(t, 1.0/3, b1.NonCompetitiveShare, 1e-9)
	assert.Equal(t, 2, b1.DistinctBidders)
	assert.Equal(t, "S1", b1.TopBidder.ID)
	assert.Equal(t, 6_000_000.0, b1.TopBidderPaidUSD)
	assert.InDelta(t, 0.75, b1.TopBidderShare, 1e-9)

	b2 := summaries[1]
	assert.Equal(t, "B2", b2.Buyer.ID)
	assert.Equal(t, 1, b2.TotalAwards)
	assert.Zero(t, b2.NonCompetitiveCount)
	assert.InDelta(t, 1.0, b2.TopBidderShare, 1e-9)
}
