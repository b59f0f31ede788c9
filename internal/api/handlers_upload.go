// handlers_upload.go - File upload operation handlers
package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultListLimit = 20

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	svc     Service
	maxSize int64
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(svc Service, maxSize int64) UploadHandler {
	return &UploadHandlerImpl{svc: svc, maxSize: maxSize}
}

// HandleUpload accepts a multipart CSV upload in the "file" field
func (h *UploadHandlerImpl) HandleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	if !strings.HasSuffix(strings.ToLower(file.Filename), ".csv") {
		return NewBadRequestError("Only CSV files accepted", nil)
	}
	if h.maxSize > 0 && file.Size > h.maxSize {
		return NewBadRequestError("File too large", nil)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	var r io.Reader = src
	if h.maxSize > 0 {
		r = io.LimitReader(src, h.maxSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}
	if h.maxSize > 0 && int64(len(content)) > h.maxSize {
		return NewBadRequestError("File too large", nil)
	}

	resp, err := h.svc.ProcessUpload(c.Request().Context(), file.Filename, content)
	if err != nil {
		return NewInternalError("failed to store upload", err)
	}
	if resp.Failed() {
		return NewUploadRejectedError(resp.Message)
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleListUploads returns the most recent uploads
func (h *UploadHandlerImpl) HandleListUploads(c echo.Context) error {
	limit := defaultListLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return NewValidationError("limit")
		}
		limit = n
	}

	uploads, err := h.svc.ListUploads(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to list uploads", err)
	}
	return c.JSON(http.StatusOK, uploads)
}

// HandleGetUpload returns the detail of one upload
func (h *UploadHandlerImpl) HandleGetUpload(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	detail, err := h.svc.GetUploadDetail(c.Request().Context(), id)
	if err != nil {
		return serviceError(err, id, "failed to load upload")
	}
	return c.JSON(http.StatusOK, detail)
}
