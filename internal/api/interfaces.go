// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/mlexplainer/backend/internal/models"
)

// Service is the ingestion surface the handlers depend on.
type Service interface {
	ProcessUpload(ctx context.Context, filename string, content []byte) (*models.UploadResponse, error)
	GetUploadDetail(ctx context.Context, id string) (*models.UploadDetail, error)
	ListUploads(ctx context.Context, limit int) ([]*models.UploadDetail, error)
	AnalyzeUpload(ctx context.Context, id string) (*models.AnalysisResult, error)
	GetAnalysis(ctx context.Context, id string) (*models.AnalysisResult, error)
	ListAnalyses(ctx context.Context, uploadID string) ([]*models.AnalysisResult, error)
}

// UploadHandler handles file upload operations
type UploadHandler interface {
	HandleUpload(c echo.Context) error
	HandleListUploads(c echo.Context) error
	HandleGetUpload(c echo.Context) error
}

// AnalysisHandler handles analysis operations
type AnalysisHandler interface {
	HandleAnalyze(c echo.Context) error
	HandleListAnalyses(c echo.Context) error
	HandleGetAnalysis(c echo.Context) error
	HandleGetAnalysisMsgpack(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleRoot(c echo.Context) error
	HandleHealth(c echo.Context) error
}
