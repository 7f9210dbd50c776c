package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/internal/server/middleware"
	"github.com/loomkg/loom/internal/storage"
	"github.com/loomkg/loom/pkg/batch"
	"github.com/loomkg/loom/pkg/logger"
)

// BatchHeadersHandler reports the headers of a set of stored CSV files,
// including which headers all files share.
func BatchHeadersHandler(c echo.Context) error {
	type batchHeadersBody struct {
		FileIDs []string `json:"file_ids" validate:"required,min=1"`
	}

	type batchHeadersResponse struct {
		Message  string                `json:"message,omitempty"`
		Analysis *batch.HeaderAnalysis `json:"analysis,omitempty"`
	}

	data := new(batchHeadersBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, batchHeadersResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, batchHeadersResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	store := c.(*middleware.AppContext).App.Store

	files, err := loadBatchFiles(ctx, store, data.FileIDs)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, batchHeadersResponse{
				Message: "File not found",
			})
		}
		logger.Error("Failed to load batch files", "err", err)
		return c.JSON(http.StatusInternalServerError, batchHeadersResponse{
			Message: "Internal server error",
		})
	}

	analysis := batch.AnalyzeHeaders(ctx, files)
	return c.JSON(http.StatusOK, batchHeadersResponse{
		Analysis: &analysis,
	})
}
