package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/internal/server/middleware"
	"github.com/loomkg/loom/internal/storage"
	"github.com/loomkg/loom/internal/util"
	"github.com/loomkg/loom/pkg/converter"
	"github.com/loomkg/loom/pkg/logger"
	"github.com/loomkg/loom/pkg/rdf"
)

// ConvertHandler converts a single CSV source to RDF using a template.
// The CSV can be passed inline or referenced by file id.
func ConvertHandler(c echo.Context) error {
	type convertBody struct {
		Template   string `json:"template" validate:"required"`
		FileID     string `json:"file_id"`
		CSV        string `json:"csv"`
		RawHeaders bool   `json:"raw_headers"`
	}

	type convertResponse struct {
		Message string   `json:"message,omitempty"`
		RDF     *string  `json:"rdf,omitempty"`
		Headers []string `json:"headers,omitempty"`
	}

	data := new(convertBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, convertResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, convertResponse{
			Message: "Invalid request body",
		})
	}
	if data.FileID == "" && data.CSV == "" {
		return c.JSON(http.StatusBadRequest, convertResponse{
			Message: "No CSV data provided",
		})
	}

	ctx := c.Request().Context()
	store := c.(*middleware.AppContext).App.Store

	csvData := data.CSV
	if data.FileID != "" {
		content, err := store.Get(ctx, data.FileID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.JSON(http.StatusNotFound, convertResponse{
					Message: "File not found",
				})
			}
			logger.Error("Failed to load file", "id", data.FileID, "err", err)
			return c.JSON(http.StatusInternalServerError, convertResponse{
				Message: "Internal server error",
			})
		}
		csvData = string(content)
	}

	conv, err := converter.New(converter.Params{
		Template:   data.Template,
		ChunkSize:  int(util.GetEnvNumeric("CONVERT_CHUNK_SIZE", converter.DefaultChunkSize)),
		RawHeaders: data.RawHeaders,
	})
	if err != nil {
		var templateErr *rdf.TemplateError
		if errors.As(err, &templateErr) {
			return c.JSON(http.StatusBadRequest, convertResponse{
				Message: templateErr.Error(),
			})
		}
		logger.Error("Failed to build converter", "err", err)
		return c.JSON(http.StatusInternalServerError, convertResponse{
			Message: "Internal server error",
		})
	}

	result, err := conv.ProcessString(ctx, csvData)
	if err != nil {
		var parseErr *converter.ParseError
		if errors.As(err, &parseErr) {
			return c.JSON(http.StatusBadRequest, convertResponse{
				Message: parseErr.Error(),
			})
		}
		logger.Error("Failed to convert CSV", "err", err)
		return c.JSON(http.StatusInternalServerError, convertResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, convertResponse{
		RDF:     &result,
		Headers: conv.NormalizedHeaders(),
	})
}
