package riskengine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/internal/splitting"
	"github.com/richxcame/tender-risk/pkg/common"
	"github.com/richxcame/tender-risk/pkg/config"
	"github.com/richxcame/tender-risk/pkg/logger"
)

// DatasetLoader loads the scoped dataset an analysis run reads.
type DatasetLoader interface {
	LoadDataset(ctx context.Context, scope procurement.Scope) (*procurement.Dataset, error)
}

// RunRepository persists runs and their outputs.
type RunRepository interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, runID uuid.UUID) (*Run, error)
	SaveModuleSummaries(ctx context.Context, runID uuid.UUID, rows []ModuleSummaryRow) error
	GetModuleSummaries(ctx context.Context, runID uuid.UUID, module string) ([]ModuleSummaryRow, error)
	SaveSplitClusters(ctx context.Context, runID uuid.UUID, clusters []splitting.Cluster) error
	SaveAggregateScores(ctx context.Context, runID uuid.UUID, scores []AggregateScore) error
	GetAggregateScores(ctx context.Context, runID uuid.UUID) ([]AggregateScore, error)
	SaveBuyerSummaries(ctx context.Context, runID uuid.UUID, summaries []BuyerSummary) error
	GetBuyerSummaries(ctx context.Context, runID uuid.UUID) ([]BuyerSummary, error)
}

// Service orchestrates analysis runs end to end
type Service struct {
	records DatasetLoader
	runs    RunRepository
	engine  *Engine
	cfg     config.ThresholdConfig
}

// NewService creates a new analysis service
func NewService(records DatasetLoader, runs RunRepository, cfg config.ThresholdConfig) *Service {
	return &Service{
		records: records,
		runs:    runs,
		engine:  NewEngine(cfg),
		cfg:     cfg,
	}
}

// ExecuteRun loads the scoped dataset, runs every detector, combines the
// scores, and persists the full output under a fresh run id. Zero scope
// fields fall back to the configured defaults.
func (s *Service) ExecuteRun(ctx context.Context, scope procurement.Scope) (*Run, []AggregateScore, error) {
	if scope.Country == "" {
		scope.Country = s.cfg.DefaultCountry
	}
	if scope.MinYear == 0 {
		scope.MinYear = s.cfg.MinYear
	}
	if scope.MaxYear == 0 {
		scope.MaxYear = s.cfg.MaxYear
	}

	run := &Run{
		ID:        uuid.New(),
		Country:   scope.Country,
		MinYear:   scope.MinYear,
		MaxYear:   scope.MaxYear,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("create run: %w", err)
	}

	scores, err := s.executeRun(ctx, run, scope)
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err != nil {
		run.Status = RunStatusFailed
		analysisRunsTotal.WithLabelValues(RunStatusFailed).Inc()
		if finishErr := s.runs.FinishRun(ctx, run); finishErr != nil {
			logger.Error("failed to mark run as failed",
				zap.String("run_id", run.ID.String()), zap.Error(finishErr))
		}
		return nil, nil, err
	}

	run.Status = RunStatusCompleted
	analysisRunsTotal.WithLabelValues(RunStatusCompleted).Inc()
	if err := s.runs.FinishRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("finish run: %w", err)
	}

	logger.Info("analysis run completed",
		zap.String("run_id", run.ID.String()),
		zap.String("country", run.Country),
		zap.Int("records", run.RecordCount),
		zap.Int("scored_bidders", run.BidderCount),
	)
	return run, scores, nil
}

func (s *Service) executeRun(ctx context.Context, run *Run, scope procurement.Scope) ([]AggregateScore, error) {
	ds, err := s.records.LoadDataset(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	run.RecordCount = len(ds.Records)

	results, err := s.engine.Run(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("run detectors: %w", err)
	}

	scores := Combine(ds, results)
	run.BidderCount = len(scores)
	buyers := BuildBuyerSummaries(ds)

	if err := s.runs.SaveModuleSummaries(ctx, run.ID, flattenSummaries(results)); err != nil {
		return nil, fmt.Errorf("save module summaries: %w", err)
	}
	if err := s.runs.SaveSplitClusters(ctx, run.ID, results.Splitting.Clusters); err != nil {
		return nil, fmt.Errorf("save split clusters: %w", err)
	}
	if err := s.runs.SaveAggregateScores(ctx, run.ID, scores); err != nil {
		return nil, fmt.Errorf("save aggregate scores: %w", err)
	}
	if err := s.runs.SaveBuyerSummaries(ctx, run.ID, buyers); err != nil {
		return nil, fmt.Errorf("save buyer summaries: %w", err)
	}
	return scores, nil
}

// GetRun retrieves a run by id
func (s *Service) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, runLookupError(runID, err)
	}
	return run, nil
}

// GetAggregateScores retrieves the ranked risk table for a run
func (s *Service) GetAggregateScores(ctx context.Context, runID uuid.UUID) ([]AggregateScore, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.runs.GetAggregateScores(ctx, runID)
}

// GetModuleSummaries retrieves one module's supplier summaries for a run
func (s *Service) GetModuleSummaries(ctx context.Context, runID uuid.UUID, module string) ([]ModuleSummaryRow, error) {
	if !ValidModule(module) {
		return nil, common.NewBadRequestError("unknown module "+module, nil)
	}
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.runs.GetModuleSummaries(ctx, runID, module)
}

// GetBuyerSummaries retrieves the buyer rollup for a run
func (s *Service) GetBuyerSummaries(ctx context.Context, runID uuid.UUID) ([]BuyerSummary, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.runs.GetBuyerSummaries(ctx, runID)
}

func runLookupError(runID uuid.UUID, err error) error {
	if IsNotFound(err) {
		return common.NewNotFoundError("run "+runID.String()+" not found", err)
	}
	return common.NewInternalError("load run", err)
}
