package routes

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/internal/server/middleware"
	"github.com/loomkg/loom/internal/storage"
	"github.com/loomkg/loom/pkg/logger"
)

// UploadFilesHandler stores CSV files uploaded as multipart/form-data.
func UploadFilesHandler(c echo.Context) error {
	type uploadFilesResponse struct {
		Message string          `json:"message"`
		Files   *[]storage.File `json:"files,omitempty"`
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadFilesResponse{
			Message: "Invalid request body",
		})
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		return c.JSON(http.StatusBadRequest, uploadFilesResponse{
			Message: "No files provided",
		})
	}

	ctx := c.Request().Context()
	store := c.(*middleware.AppContext).App.Store

	files := make([]storage.File, 0, len(uploads))
	for _, upload := range uploads {
		src, err := upload.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, uploadFilesResponse{
				Message: "Invalid request body",
			})
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			logger.Error("Failed to read uploaded file", "name", upload.Filename, "err", err)
			return c.JSON(http.StatusInternalServerError, uploadFilesResponse{
				Message: "Internal server error",
			})
		}

		file, err := store.Put(ctx, upload.Filename, content)
		if err != nil {
			logger.Error("Failed to store uploaded file", "name", upload.Filename, "err", err)
			return c.JSON(http.StatusInternalServerError, uploadFilesResponse{
				Message: "Internal server error",
			})
		}
		files = append(files, file)
	}

	return c.JSON(http.StatusOK, uploadFilesResponse{
		Message: "Files uploaded successfully",
		Files:   &files,
	})
}
