package procurement

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Non-competitive procedure types recognized by FlagNonCompetitive.
const (
	ProcedureLimited       = "limited"
	ProcedureOutrightAward = "outright_award"
)

// Record is a single normalized contract-award record. Records are immutable
// once loaded; detectors only ever read them.
type Record struct {
	TenderID string `json:"tender_id"`
	Title    string `json:"title"`

	BuyerID      string `json:"buyer_id"`
	BuyerName    string `json:"buyer_name"`
	BuyerCountry string `json:"buyer_country"`

	BidderID      string `json:"bidder_id"`
	BidderName    string `json:"bidder_name"`
	BidderCountry string `json:"bidder_country"`

	// Zero time values mean the date was absent from the source.
	PublishedAt      time.Time `json:"published_at"`
	BidDeadline      time.Time `json:"bid_deadline"`
	AwardedAt        time.Time `json:"awarded_at"`
	ContractSignedAt time.Time `json:"contract_signed_at"`

	AwardValueUSD  float64 `json:"award_value_usd"`
	ProcedureType  string  `json:"procedure_type"`
	RecordedBids   int     `json:"recorded_bids"`
	NonCompetitive bool    `json:"non_competitive"`
}

// BidderRef identifies a supplier across the dataset.
type BidderRef struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Key returns a stable identity key for grouping. The source id wins when
// present; otherwise the normalized name stands in for it.
func (b BidderRef) Key() string {
	if b.ID != "" {
		return b.ID + "|" + b.Country
	}
	return NormalizeEntityName(b.Name) + "|" + b.Country
}

// BuyerRef identifies a contracting authority.
type BuyerRef struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Key returns a stable identity key for grouping.
func (b BuyerRef) Key() string {
	if b.ID != "" {
		return b.ID + "|" + b.Country
	}
	return NormalizeEntityName(b.Name) + "|" + b.Country
}

// Bidder returns the record's supplier reference
func (r *Record) Bidder() BidderRef {
	return BidderRef{ID: r.BidderID, Name: r.BidderName, Country: r.BidderCountry}
}

// Buyer returns the record's buyer reference
func (r *Record) Buyer() BuyerRef {
	return BuyerRef{ID: r.BuyerID, Name: r.BuyerName, Country: r.BuyerCountry}
}

// AwardDate returns the best available award-time milestone: the award
// decision date, falling back to the bid deadline and then the contract
// signature date. The boolean reports whether any date was available.
func (r *Record) AwardDate() (time.Time, bool) {
	for _, t := range []time.Time{r.AwardedAt, r.BidDeadline, r.ContractSignedAt} {
		if !t.IsZero() {
			return t, true
		}
	}
	return time.Time{}, false
}

// EffectiveDeadline returns the bid deadline, imputing it from the earliest
// downstream milestone (award or contract date) when missing. The boolean
// reports whether the value was imputed.
func (r *Record) EffectiveDeadline() (time.Time, bool) {
	if !r.BidDeadline.IsZero() {
		return r.BidDeadline, false
	}
	var earliest time.Time
	for _, t := range []time.Time{r.AwardedAt, r.ContractSignedAt} {
		if t.IsZero() {
			continue
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	return earliest, true
}

// Year returns the calendar year the award belongs to, derived from the best
// available milestone date. Returns 0 when the record carries no dates.
func (r *Record) Year() int {
	if t, ok := r.AwardDate(); ok {
		return t.Year()
	}
	if !r.PublishedAt.IsZero() {
		return r.PublishedAt.Year()
	}
	return 0
}

// FlagNonCompetitive derives the competitive-procedure indicator from the raw
// procedure type and recorded bid count, for sources where the upstream
// pipeline did not resolve it: limited and outright-award procedures are
// non-competitive, as is any tender that attracted a single bid.
func FlagNonCompetitive(procedureType string, recordedBids int) bool {
	switch strings.ToLower(strings.TrimSpace(procedureType)) {
	case ProcedureLimited, ProcedureOutrightAward:
		return true
	}
	return recordedBids == 1
}

// NormalizeEntityName lowercases a name and strips everything except letters,
// numbers, and spaces, collapsing runs of whitespace. Used as the fallback
// grouping key when a source id is absent.
func NormalizeEntityName(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		if unicode.IsLetter(c) || unicode.IsNumber(c) || unicode.IsSpace(c) {
			b.WriteRune(c)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Dataset is the immutable normalized input every detector reads.
type Dataset struct {
	Country string
	Records []Record
}

// NewDataset validates the records and wraps them as an immutable dataset.
// Structural problems (missing identifiers) are the one fatal input condition;
// data-quality problems (implausible dates, negative values) degrade instead:
// negative award values are clamped to zero.
func NewDataset(country string, records []Record) (*Dataset, error) {
	for i := range records {
		r := &records[i]
		if r.TenderID == "" {
			return nil, fmt.Errorf("record %d: missing tender id", i)
		}
		if r.BidderID == "" && r.BidderName == "" {
			return nil, fmt.Errorf("record %d (tender %s): missing bidder identity", i, r.TenderID)
		}
		if r.BuyerID == "" && r.BuyerName == "" {
			return nil, fmt.Errorf("record %d (tender %s): missing buyer identity", i, r.TenderID)
		}
		if r.AwardValueUSD < 0 {
			r.AwardValueUSD = 0
		}
	}
	return &Dataset{Country: country, Records: records}, nil
}

// BidderScore is the uniform per-supplier output every risk module hands to
// the aggregate combiner.
type BidderScore struct {
	Bidder        BidderRef `json:"bidder"`
	Score         float64   `json:"score"`
	DollarsAtRisk float64   `json:"dollars_at_risk"`
}
