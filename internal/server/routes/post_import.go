package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/internal/server/middleware"
	"github.com/loomkg/loom/internal/storage"
	"github.com/loomkg/loom/pkg/batch"
	"github.com/loomkg/loom/pkg/dgraph"
	"github.com/loomkg/loom/pkg/logger"
)

// ImportHandler imports RDF data into a Dgraph instance. The RDF can be
// passed inline or generated on the fly from stored CSV files and a
// template. Import failures come back as a failed result with status 200,
// only malformed requests produce an error status.
func ImportHandler(c echo.Context) error {
	type importBody struct {
		ConnectionString string   `json:"connection_string" validate:"required"`
		RDF              string   `json:"rdf"`
		FileIDs          []string `json:"file_ids"`
		Template         string   `json:"template"`
		RawHeaders       bool     `json:"raw_headers"`
	}

	type importResponse struct {
		Message string              `json:"message,omitempty"`
		Result  *dgraph.ImportResult `json:"result,omitempty"`
	}

	data := new(importBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, importResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, importResponse{
			Message: "Invalid request body",
		})
	}
	if data.RDF == "" && (len(data.FileIDs) == 0 || data.Template == "") {
		return c.JSON(http.StatusBadRequest, importResponse{
			Message: "No RDF data provided",
		})
	}

	conn, err := dgraph.Parse(data.ConnectionString)
	if err != nil {
		return c.JSON(http.StatusBadRequest, importResponse{
			Message: err.Error(),
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	rdfData := data.RDF
	if rdfData == "" {
		files, err := loadBatchFiles(ctx, app.Store, data.FileIDs)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.JSON(http.StatusNotFound, importResponse{
					Message: "File not found",
				})
			}
			logger.Error("Failed to load batch files", "err", err)
			return c.JSON(http.StatusInternalServerError, importResponse{
				Message: "Internal server error",
			})
		}
		rdfData, err = batch.ProcessBatch(ctx, files, data.Template, batch.Options{
			RawHeaders: data.RawHeaders,
		})
		if err != nil {
			logger.Error("Failed to process batch", "err", err)
			return c.JSON(http.StatusBadRequest, importResponse{
				Message: err.Error(),
			})
		}
	}

	if !app.ImportLock.TryAcquire(1) {
		return c.JSON(http.StatusOK, importResponse{
			Result: &dgraph.ImportResult{
				Success: false,
				Message: "import already in progress",
			},
		})
	}
	defer app.ImportLock.Release(1)

	client := dgraph.NewClient(dgraph.ClientParams{Connection: conn})
	importer := dgraph.NewImporter(client)
	result := importer.ImportRDF(ctx, rdfData, dgraph.ImportOptions{})

	return c.JSON(http.StatusOK, importResponse{Result: &result})
}
