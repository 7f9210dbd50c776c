package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/internal/server/middleware"
	"github.com/loomkg/loom/internal/storage"
	"github.com/loomkg/loom/pkg/logger"
)

// DeleteFileHandler removes an uploaded file.
func DeleteFileHandler(c echo.Context) error {
	type deleteFileResponse struct {
		Message string `json:"message"`
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, deleteFileResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	store := c.(*middleware.AppContext).App.Store

	if err := store.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, deleteFileResponse{
				Message: "File not found",
			})
		}
		logger.Error("Failed to delete file", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteFileResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, deleteFileResponse{
		Message: "File deleted successfully",
	})
}
