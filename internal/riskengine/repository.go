package riskengine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richxcame/tender-risk/internal/splitting"
)

// Repository persists analysis runs and their outputs
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ RunRepository = (*Repository)(nil)

// NewRepository creates a new risk-run repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateRun inserts a new run in the running state
func (r *Repository) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO risk_runs (id, country, min_year, max_year, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		run.ID, run.Country, run.MinYear, run.MaxYear, run.Status, run.StartedAt)
	return err
}

// FinishRun records the terminal status and dataset counts of a run
func (r *Repository) FinishRun(ctx context.Context, run *Run) error {
	query := `
		UPDATE risk_runs
		SET status = $2, record_count = $3, bidder_count = $4, completed_at = $5
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query,
		run.ID, run.Status, run.RecordCount, run.BidderCount, run.CompletedAt)
	return err
}

// GetRun retrieves a run by id
func (r *Repository) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	query := `
		SELECT id, country, min_year, max_year, status,
		       COALESCE(record_count, 0), COALESCE(bidder_count, 0),
		       started_at, completed_at
		FROM risk_runs
		WHERE id = $1
	`

	var run Run
	var completedAt sql.NullTime
	err := r.db.QueryRow(ctx, query, runID).Scan(
		&run.ID, &run.Country, &run.MinYear, &run.MaxYear, &run.Status,
		&run.RecordCount, &run.BidderCount, &run.StartedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

// SaveModuleSummaries writes every module's supplier summaries for a run.
// The module-specific detail travels as a json document next to the shared
// score columns.
func (r *Repository) SaveModuleSummaries(ctx context.Context, runID uuid.UUID, rows []ModuleSummaryRow) error {
	query := `
		INSERT INTO module_summaries (
			run_id, module, bidder_id, bidder_name, bidder_country,
			risk_score, dollars_at_risk, metrics
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, row := range rows {
		metricsJSON, err := json.Marshal(row.Metrics)
		if err != nil {
			return fmt.Errorf("marshal %s summary: %w", row.Module, err)
		}
		_, err = r.db.Exec(ctx, query,
			runID, row.Module,
			row.Bidder.ID, row.Bidder.Name, row.Bidder.Country,
			row.RiskScore, row.DollarsAtRisk, metricsJSON,
		)
		if err != nil {
			return fmt.Errorf("insert %s summary: %w", row.Module, err)
		}
	}
	return nil
}

// GetModuleSummaries retrieves one module's supplier summaries for a run,
// highest score first.
func (r *Repository) GetModuleSummaries(ctx context.Context, runID uuid.UUID, module string) ([]ModuleSummaryRow, error) {
	query := `
		SELECT module, bidder_id, bidder_name, bidder_country,
		       risk_score, dollars_at_risk, metrics
		FROM module_summaries
		WHERE run_id = $1 AND module = $2
		ORDER BY risk_score DESC, bidder_name ASC
	`

	rows, err := r.db.Query(ctx, query, runID, module)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]ModuleSummaryRow, 0)
	for rows.Next() {
		var row ModuleSummaryRow
		var bidderID sql.NullString
		var metricsJSON []byte

		err := rows.Scan(
			&row.Module,
			&bidderID, &row.Bidder.Name, &row.Bidder.Country,
			&row.RiskScore, &row.DollarsAtRisk, &metricsJSON,
		)
		if err != nil {
			return nil, err
		}
		row.Bidder.ID = bidderID.String

		var metrics map[string]interface{}
		if err := json.Unmarshal(metricsJSON, &metrics); err == nil {
			row.Metrics = metrics
		}
		summaries = append(summaries, row)
	}
	return summaries, rows.Err()
}

// SaveSplitClusters writes the detected splitting clusters for a run. The
// member lists are stored as json arrays.
func (r *Repository) SaveSplitClusters(ctx context.Context, runID uuid.UUID, clusters []splitting.Cluster) error {
	query := `
		INSERT INTO split_clusters (
			id, run_id, bidder_id, bidder_name, bidder_country,
			member_count, total_value_usd, avg_value_usd,
			tender_ids, titles, values_usd, buyers, buyer_count,
			earliest_award, latest_award, span_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	for _, c := range clusters {
		tenderIDs, err := json.Marshal(c.TenderIDs)
		if err != nil {
			return err
		}
		titles, err := json.Marshal(c.Titles)
		if err != nil {
			return err
		}
		values, err := json.Marshal(c.ValuesUSD)
		if err != nil {
			return err
		}
		buyers, err := json.Marshal(c.Buyers)
		if err != nil {
			return err
		}

		_, err = r.db.Exec(ctx, query,
			c.ID, runID,
			c.Bidder.ID, c.Bidder.Name, c.Bidder.Country,
			c.MemberCount, c.TotalValueUSD, c.AvgValueUSD,
			tenderIDs, titles, values, buyers, c.BuyerCount,
			c.EarliestAward, c.LatestAward, c.SpanDays,
		)
		if err != nil {
			return fmt.Errorf("insert split cluster %s: %w", c.ID, err)
		}
	}
	return nil
}

// SaveAggregateScores writes the final ranked risk table for a run
func (r *Repository) SaveAggregateScores(ctx context.Context, runID uuid.UUID, scores []AggregateScore) error {
	query := `
		INSERT INTO aggregate_scores (
			run_id, bidder_id, bidder_name, bidder_country,
			module_scores, composite_score, flagged_modules, rank, dollars_at_risk,
			total_awards, total_payments_usd, distinct_buyers,
			top_buyer_name, top_buyer_paid_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for _, s := range scores {
		moduleScores, err := json.Marshal(s.ModuleScores)
		if err != nil {
			return err
		}
		_, err = r.db.Exec(ctx, query,
			runID, s.Bidder.ID, s.Bidder.Name, s.Bidder.Country,
			moduleScores, s.CompositeScore, s.FlaggedModules, s.Rank, s.DollarsAtRisk,
			s.TotalAwards, s.TotalPaymentsUSD, s.DistinctBuyers,
			s.TopBuyer.Name, s.TopBuyerPaidUSD,
		)
		if err != nil {
			return fmt.Errorf("insert aggregate score for %s: %w", s.Bidder.Key(), err)
		}
	}
	return nil
}

// GetAggregateScores retrieves the ranked risk table for a run
func (r *Repository) GetAggregateScores(ctx context.Context, runID uuid.UUID) ([]AggregateScore, error) {
	query := `
		SELECT bidder_id, bidder_name, bidder_country,
		       module_scores, composite_score, flagged_modules, rank, dollars_at_risk,
		       total_awards, total_payments_usd, distinct_buyers,
		       top_buyer_name, top_buyer_paid_usd
		FROM aggregate_scores
		WHERE run_id = $1
		ORDER BY rank ASC, bidder_name ASC
	`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make([]AggregateScore, 0)
	for rows.Next() {
		var s AggregateScore
		var bidderID sql.NullString
		var moduleScores []byte

		err := rows.Scan(
			&bidderID, &s.Bidder.Name, &s.Bidder.Country,
			&moduleScores, &s.CompositeScore, &s.FlaggedModules, &s.Rank, &s.DollarsAtRisk,
			&s.TotalAwards, &s.TotalPaymentsUSD, &s.DistinctBuyers,
			&s.TopBuyer.Name, &s.TopBuyerPaidUSD,
		)
		if err != nil {
			return nil, err
		}
		s.Bidder.ID = bidderID.String
		if err := json.Unmarshal(moduleScores, &s.ModuleScores); err != nil {
			return nil, fmt.Errorf("unmarshal module scores: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// SaveBuyerSummaries writes the buyer rollup for a run
func (r *Repository) SaveBuyerSummaries(ctx context.Context, runID uuid.UUID, summaries []BuyerSummary) error {
	query := `
		INSERT INTO buyer_summaries (
			run_id, buyer_id, buyer_name, buyer_country,
			total_awards, total_spend_usd, avg_award_usd,
			non_competitive_count, non_competitive_spend_usd, non_competitive_share,
			distinct_bidders, top_bidder_name, top_bidder_paid_usd, top_bidder_share
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for _, s := range summaries {
		_, err := r.db.Exec(ctx, query,
			runID, s.Buyer.ID, s.Buyer.Name, s.Buyer.Country,
			s.TotalAwards, s.TotalSpendUSD, s.AvgAwardUSD,
			s.NonCompetitiveCount, s.NonCompetitiveSpendUSD, s.NonCompetitiveShare,
			s.DistinctBidders, s.TopBidder.Name, s.TopBidderPaidUSD, s.TopBidderShare,
		)
		if err != nil {
			return fmt.Errorf("insert buyer summary for %s: %w", s.Buyer.Key(), err)
		}
	}
	return nil
}

// GetBuyerSummaries retrieves the buyer rollup for a run, biggest spenders
// first.
func (r *Repository) GetBuyerSummaries(ctx context.Context, runID uuid.UUID) ([]BuyerSummary, error) {
	query := `
		SELECT buyer_id, buyer_name, buyer_country,
		       total_awards, total_spend_usd, avg_award_usd,
		       non_competitive_count, non_competitive_spend_usd, non_competitive_share,
		       distinct_bidders, top_bidder_name, top_bidder_paid_usd, top_bidder_share
		FROM buyer_summaries
		WHERE run_id = $1
		ORDER BY total_spend_usd DESC, buyer_name ASC
	`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]BuyerSummary, 0)
	for rows.Next() {
		var s BuyerSummary
		var buyerID sql.NullString

		err := rows.Scan(
			&buyerID, &s.Buyer.Name, &s.Buyer.Country,
			&s.TotalAwards, &s.TotalSpendUSD, &s.AvgAwardUSD,
			&s.NonCompetitiveCount, &s.NonCompetitiveSpendUSD, &s.NonCompetitiveShare,
			&s.DistinctBidders, &s.TopBidder.Name, &s.TopBidderPaidUSD, &s.TopBidderShare,
		)
		if err != nil {
			return nil, err
		}
		s.Buyer.ID = buyerID.String
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// IsNotFound reports whether err means the requested row does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
