package procurement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagNonCompetitive(t *testing.T) {
	tests := []struct {
		name          string
		procedureType string
		recordedBids  int
		want          bool
	}{
		{"limited procedure", "limited", 5, true},
		{"outright award", "outright_award", 0, true},
		{"case and spacing normalized", "  Outright_Award ", 3, true},
		{"single recorded bid", "open", 1, true},
		{"open with competition", "open", 4, false},
		{"unknown procedure no bids recorded", "selective", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlagNonCompetitive(tt.procedureType, tt.recordedBids))
		})
	}
}

func TestNormalizeEntityName(t *testing.T) {
	assert.Equal(t, "constructora del norte sa", NormalizeEntityName("  Constructora del NORTE, S.A.  "))
	assert.Equal(t, "abc 123", NormalizeEntityName("A.B.C. - (123)"))
	assert.Equal(t, "", NormalizeEntityName("***"))
}

func TestBidderKeyPrefersSourceID(t *testing.T) {
	withID := BidderRef{ID: "MX-123", Name: "Constructora del Norte", Country: "MX"}
	assert.Equal(t, "MX-123|MX", withID.Key())

	byName := BidderRef{Name: "Constructora del Norte, S.A.", Country: "MX"}
	alias := BidderRef{Name: "CONSTRUCTORA DEL NORTE  S.A.", Country: "MX"}
	assert.Equal(t, byName.Key(), alias.Key())
}

func TestEffectiveDeadlineImputation(t *testing.T) {
	awarded := time.Date(2021, 5, 20, 0, 0, 0, 0, time.UTC)
	signed := time.Date(2021, 5, 12, 0, 0, 0, 0, time.UTC)

	r := Record{AwardedAt: awarded, ContractSignedAt: signed}
	deadline, imputed := r.EffectiveDeadline()
	assert.True(t, imputed)
	assert.Equal(t, signed, deadline)

	explicit := time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC)
	r.BidDeadline = explicit
	deadline, imputed = r.EffectiveDeadline()
	assert.False(t, imputed)
	assert.Equal(t, explicit, deadline)
}

func TestNewDatasetValidation(t *testing.T) {
	valid := Record{TenderID: "t1", BidderName: "S", BuyerName: "B"}

	_, err := NewDataset("MX", []Record{{BidderName: "S", BuyerName: "B"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing tender id")

	_, err = NewDataset("MX", []Record{{TenderID: "t1", BuyerName: "B"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing bidder identity")

	_, err = NewDataset("MX", []Record{{TenderID: "t1", BidderName: "S"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing buyer identity")

	// Negative values degrade to zero instead of failing the load.
	negative := valid
	negative.AwardValueUSD = -100
	ds, err := NewDataset("MX", []Record{negative})
	require.NoError(t, err)
	assert.Zero(t, ds.Records[0].AwardValueUSD)
}
