package riskengine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	detectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "risk_detector_duration_seconds",
			Help:    "Wall-clock duration of each risk detector",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"module"},
	)

	detectorFlaggedBidders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_detector_flagged_bidders",
			Help: "Suppliers flagged by each risk detector in the latest run",
		},
		[]string{"module"},
	)

	analysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_analysis_runs_total",
			Help: "Total number of analysis runs by outcome",
		},
		[]string{"status"},
	)
)
