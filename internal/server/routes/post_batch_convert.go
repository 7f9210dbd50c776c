package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/internal/server/middleware"
	"github.com/loomkg/loom/internal/storage"
	"github.com/loomkg/loom/pkg/batch"
	"github.com/loomkg/loom/pkg/logger"
)

// loadBatchFiles resolves stored file ids into batch inputs.
func loadBatchFiles(ctx context.Context, store storage.Store, ids []string) ([]batch.File, error) {
	files := make([]batch.File, 0, len(ids))
	for _, id := range ids {
		content, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		name := id
		if stat, err := store.Stat(ctx, id); err == nil {
			name = stat.Name
		}
		files = append(files, batch.File{
			ID:      id,
			Name:    name,
			Content: string(content),
		})
	}
	return files, nil
}

// BatchConvertHandler converts a set of stored CSV files into a single
// RDF document, entities first, relationships second.
func BatchConvertHandler(c echo.Context) error {
	type batchConvertBody struct {
		FileIDs    []string `json:"file_ids" validate:"required,min=1"`
		Template   string   `json:"template" validate:"required"`
		RawHeaders bool     `json:"raw_headers"`
	}

	type batchConvertResponse struct {
		Message string  `json:"message,omitempty"`
		RDF     *string `json:"rdf,omitempty"`
	}

	data := new(batchConvertBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, batchConvertResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, batchConvertResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	store := c.(*middleware.AppContext).App.Store

	files, err := loadBatchFiles(ctx, store, data.FileIDs)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, batchConvertResponse{
				Message: "File not found",
			})
		}
		logger.Error("Failed to load batch files", "err", err)
		return c.JSON(http.StatusInternalServerError, batchConvertResponse{
			Message: "Internal server error",
		})
	}

	result, err := batch.ProcessBatch(ctx, files, data.Template, batch.Options{
		RawHeaders: data.RawHeaders,
	})
	if err != nil {
		logger.Error("Failed to process batch", "err", err)
		return c.JSON(http.StatusBadRequest, batchConvertResponse{
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, batchConvertResponse{
		RDF: &result,
	})
}
