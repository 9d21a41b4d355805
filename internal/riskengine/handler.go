package riskengine

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/pkg/common"
)

// Handler handles HTTP requests for analysis runs
type Handler struct {
	service *Service
}

// NewHandler creates a new analysis handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the analysis endpoints on the given group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	runs := rg.Group("/analysis/runs")
	runs.POST("", h.CreateRun)
	runs.GET("/:run_id", h.GetRun)
	runs.GET("/:run_id/aggregate", h.GetAggregate)
	runs.GET("/:run_id/modules/:module", h.GetModuleSummaries)
	runs.GET("/:run_id/buyers", h.GetBuyerSummaries)
}

// CreateRun executes a full analysis over the scoped dataset and returns the
// ranked risk table.
func (h *Handler) CreateRun(c *gin.Context) {
	var scope procurement.Scope
	scope.Country = c.Query("country")

	var err error
	if scope.MinYear, err = yearParam(c, "min_year"); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid min_year")
		return
	}
	if scope.MaxYear, err = yearParam(c, "max_year"); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid max_year")
		return
	}
	if scope.MinYear > 0 && scope.MaxYear > 0 && scope.MaxYear < scope.MinYear {
		common.ErrorResponse(c, http.StatusBadRequest, "max_year before min_year")
		return
	}

	run, scores, err := h.service.ExecuteRun(c.Request.Context(), scope)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "analysis run failed")
		return
	}

	common.CreatedResponse(c, gin.H{
		"run":       run,
		"aggregate": scores,
	})
}

// GetRun returns a run's status and dataset counts
func (h *Handler) GetRun(c *gin.Context) {
	runID, ok := h.runID(c)
	if !ok {
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.lookupError(c, err)
		return
	}
	common.SuccessResponse(c, run)
}

// GetAggregate returns the ranked aggregate risk table for a run
func (h *Handler) GetAggregate(c *gin.Context) {
	runID, ok := h.runID(c)
	if !ok {
		return
	}

	scores, err := h.service.GetAggregateScores(c.Request.Context(), runID)
	if err != nil {
		h.lookupError(c, err)
		return
	}
	common.SuccessResponse(c, scores)
}

// GetModuleSummaries returns one module's supplier summaries for a run
func (h *Handler) GetModuleSummaries(c *gin.Context) {
	runID, ok := h.runID(c)
	if !ok {
		return
	}

	summaries, err := h.service.GetModuleSummaries(c.Request.Context(), runID, c.Param("module"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	common.SuccessResponse(c, summaries)
}

// GetBuyerSummaries returns the buyer rollup for a run
func (h *Handler) GetBuyerSummaries(c *gin.Context) {
	runID, ok := h.runID(c)
	if !ok {
		return
	}

	summaries, err := h.service.GetBuyerSummaries(c.Request.Context(), runID)
	if err != nil {
		h.lookupError(c, err)
		return
	}
	common.SuccessResponse(c, summaries)
}

func (h *Handler) runID(c *gin.Context) (uuid.UUID, bool) {
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid run id")
		return uuid.Nil, false
	}
	return runID, true
}

func (h *Handler) lookupError(c *gin.Context, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.ErrorResponse(c, appErr.Code, appErr.Message)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, "failed to load run results")
}

func yearParam(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
