package procurement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads normalized contract-award records from Postgres
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new procurement repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Scope selects the slice of procurement_records an analysis run reads.
// MaxYear of zero means no upper bound.
type Scope struct {
	Country string
	MinYear int
	MaxYear int
}

// LoadDataset reads every award for the scoped country, derives the
// competitive-procedure indicator where the ingestion pipeline left it
// unresolved, applies the year bounds, and validates the result. Any
// unscannable row fails the whole load.
func (r *Repository) LoadDataset(ctx context.Context, scope Scope) (*Dataset, error) {
	query := `
		SELECT tender_id, title,
		       buyer_id, buyer_name, buyer_country,
		       bidder_id, bidder_name, bidder_country,
		       published_at, bid_deadline, awarded_at, contract_signed_at,
		       award_value_usd, procedure_type, recorded_bids, non_competitive
		FROM procurement_records
		WHERE buyer_country = $1
	`

	rows, err := r.db.Query(ctx, query, scope.Country)
	if err != nil {
		return nil, fmt.Errorf("query procurement records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		var title, buyerID, bidderID, procedureType sql.NullString
		var publishedAt, bidDeadline, awardedAt, contractSignedAt sql.NullTime
		var awardValue sql.NullFloat64
		var recordedBids sql.NullInt32
		var nonCompetitive sql.NullBool

		err := rows.Scan(
			&rec.TenderID,
			&title,
			&buyerID,
			&rec.BuyerName,
			&rec.BuyerCountry,
			&bidderID,
			&rec.BidderName,
			&rec.BidderCountry,
			&publishedAt,
			&bidDeadline,
			&awardedAt,
			&contractSignedAt,
			&awardValue,
			&procedureType,
			&recordedBids,
			&nonCompetitive,
		)
		if err != nil {
			return nil, fmt.Errorf("scan procurement record: %w", err)
		}

		rec.Title = title.String
		rec.BuyerID = buyerID.String
		rec.BidderID = bidderID.String
		rec.ProcedureType = procedureType.String
		rec.AwardValueUSD = awardValue.Float64
		rec.RecordedBids = int(recordedBids.Int32)
		if publishedAt.Valid {
			rec.PublishedAt = publishedAt.Time
		}
		if bidDeadline.Valid {
			rec.BidDeadline = bidDeadline.Time
		}
		if awardedAt.Valid {
			rec.AwardedAt = awardedAt.Time
		}
		if contractSignedAt.Valid {
			rec.ContractSignedAt = contractSignedAt.Time
		}
		if nonCompetitive.Valid {
			rec.NonCompetitive = nonCompetitive.Bool
		} else {
			rec.NonCompetitive = FlagNonCompetitive(rec.ProcedureType, rec.RecordedBids)
		}

		year := rec.Year()
		if scope.MinYear > 0 && year < scope.MinYear {
			continue
		}
		if scope.MaxYear > 0 && year > scope.MaxYear {
			continue
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read procurement records: %w", err)
	}

	return NewDataset(scope.Country, records)
}
