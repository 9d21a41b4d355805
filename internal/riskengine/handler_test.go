package riskengine

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupRouter(repo RunRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	service := NewService(&stubLoader{}, repo, testThresholds())
	handler := NewHandler(service)

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestHandlerRejectsInvalidRunID(t *testing.T) {
	router := setupRouter(new(mockRunRepository))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/runs/not-a-uuid/aggregate", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerRejectsUnknownModule(t *testing.T) {
	router := setupRouter(new(mockRunRepository))

	w := httptest.NewRecorder()
	url := "/api/v1/analysis/runs/" + uuid.NewString() + "/modules/bribery"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerReturnsNotFoundForMissingRun(t *testing.T) {
	repo := new(mockRunRepository)
	repo.On("GetRun", mock.Anything, mock.Anything).Return(nil, pgx.ErrNoRows)
	router := setupRouter(repo)

	w := httptest.NewRecorder()
	url := "/api/v1/analysis/runs/" + uuid.NewString() + "/aggregate"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerRejectsInvertedYearRange(t *testing.T) {
	router := setupRouter(new(mockRunRepository))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/runs?min_year=2022&max_year=2020", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
