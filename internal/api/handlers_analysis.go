// handlers_analysis.go - Analysis handlers
package api

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// AnalysisHandlerImpl implements the AnalysisHandler interface
type AnalysisHandlerImpl struct {
	svc Service
}

// NewAnalysisHandler creates a new analysis handler instance
func NewAnalysisHandler(svc Service) AnalysisHandler {
	return &AnalysisHandlerImpl{svc: svc}
}

// HandleAnalyze runs a new analysis of an upload
func (h *AnalysisHandlerImpl) HandleAnalyze(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	result, err := h.svc.AnalyzeUpload(c.Request().Context(), id)
	if err != nil {
		return serviceError(err, id, "analysis failed")
	}
	return c.JSON(http.StatusOK, result)
}

// HandleListAnalyses returns the analyses recorded for an upload
func (h *AnalysisHandlerImpl) HandleListAnalyses(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	results, err := h.svc.ListAnalyses(c.Request().Context(), id)
	if err != nil {
		return serviceError(err, id, "failed to list analyses")
	}
	return c.JSON(http.StatusOK, results)
}

// HandleGetAnalysis returns a stored analysis
func (h *AnalysisHandlerImpl) HandleGetAnalysis(c echo.Context) error {
	id := c.Param("id")
	result, err := h.svc.GetAnalysis(c.Request().Context(), id)
	if err != nil {
		return serviceError(err, id, "failed to load analysis")
	}
	return c.JSON(http.StatusOK, result)
}

// HandleGetAnalysisMsgpack returns a stored analysis encoded as msgpack
// with the same field names as the JSON representation.
func (h *AnalysisHandlerImpl) HandleGetAnalysisMsgpack(c echo.Context) error {
	id := c.Param("id")
	result, err := h.svc.GetAnalysis(c.Request().Context(), id)
	if err != nil {
		return serviceError(err, id, "failed to load analysis")
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(result); err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}
