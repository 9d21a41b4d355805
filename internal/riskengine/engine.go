package riskengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/tender-risk/internal/bidwindow"
	"github.com/richxcame/tender-risk/internal/concentration"
	"github.com/richxcame/tender-risk/internal/noncompetitive"
	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/internal/splitting"
	"github.com/richxcame/tender-risk/pkg/config"
	"github.com/richxcame/tender-risk/pkg/logger"
)

// Module is the uniform view the combiner takes of a detector's output.
type Module interface {
	Name() string
	Scores() []procurement.BidderScore
}

// Results holds the typed output of every detector for one run.
type Results struct {
	NonCompetitive *noncompetitive.Result `json:"non_competitive"`
	Concentration  *concentration.Result  `json:"spending_concentration"`
	BidWindow      *bidwindow.Result      `json:"short_bid_window"`
	Splitting      *splitting.Result      `json:"contract_splitting"`
}

// Modules returns the detector outputs in the fixed combiner order.
func (r *Results) Modules() []Module {
	return []Module{r.NonCompetitive, r.Concentration, r.BidWindow, r.Splitting}
}

// Engine fans the four detectors out over a shared dataset.
type Engine struct {
	nonCompetitive *noncompetitive.Detector
	concentration  *concentration.Detector
	bidWindow      *bidwindow.Detector
	splitting      *splitting.Detector
}

// NewEngine creates an engine with the given detector thresholds
func NewEngine(cfg config.ThresholdConfig) *Engine {
	return &Engine{
		nonCompetitive: noncompetitive.NewDetector(cfg.NonCompetitive),
		concentration:  concentration.NewDetector(cfg.Concentration),
		bidWindow:      bidwindow.NewDetector(cfg.BidWindow),
		splitting:      splitting.NewDetector(cfg.Splitting),
	}
}

// Run executes all detectors in parallel against the dataset. The dataset is
// read-only from here on, so the goroutines share it without locking. Any
// detector error fails the whole run.
func (e *Engine) Run(ctx context.Context, ds *procurement.Dataset) (*Results, error) {
	results := &Results{}
	errs := make([]error, 4)

	var wg sync.WaitGroup
	run := func(name string, slot int, detect func() (int, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			flagged, err := detect()
			detectorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			if err != nil {
				errs[slot] = err
				return
			}
			detectorFlaggedBidders.WithLabelValues(name).Set(float64(flagged))
			logger.Info("detector finished",
				zap.String("module", name),
				zap.Int("flagged_bidders", flagged),
				zap.Duration("took", time.Since(start)),
			)
		}()
	}

	run(noncompetitive.ModuleName, 0, func() (int, error) {
		res, err := e.nonCompetitive.Detect(ctx, ds)
		if err != nil {
			return 0, err
		}
		results.NonCompetitive = res
		return len(res.Summaries), nil
	})
	run(concentration.ModuleName, 1, func() (int, error) {
		res, err := e.concentration.Detect(ctx, ds)
		if err != nil {
			return 0, err
		}
		results.Concentration = res
		return len(res.Summaries), nil
	})
	run(bidwindow.ModuleName, 2, func() (int, error) {
		res, err := e.bidWindow.Detect(ctx, ds)
		if err != nil {
			return 0, err
		}
		results.BidWindow = res
		return len(res.Summaries), nil
	})
	run(splitting.ModuleName, 3, func() (int, error) {
		res, err := e.splitting.Detect(ctx, ds)
		if err != nil {
			return 0, err
		}
		results.Splitting = res
		return len(res.Summaries), nil
	})

	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}
