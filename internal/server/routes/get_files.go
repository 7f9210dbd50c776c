package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/internal/server/middleware"
	"github.com/loomkg/loom/internal/storage"
	"github.com/loomkg/loom/pkg/logger"
)

// GetFilesHandler lists all uploaded files.
func GetFilesHandler(c echo.Context) error {
	type getFilesResponse struct {
		Message string          `json:"message,omitempty"`
		Files   *[]storage.File `json:"files,omitempty"`
	}

	ctx := c.Request().Context()
	store := c.(*middleware.AppContext).App.Store

	files, err := store.List(ctx)
	if err != nil {
		logger.Error("Failed to list files", "err", err)
		return c.JSON(http.StatusInternalServerError, getFilesResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getFilesResponse{
		Files: &files,
	})
}
