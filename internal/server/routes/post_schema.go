package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/pkg/dgraph"
	"github.com/loomkg/loom/pkg/logger"
)

// FetchSchemaHandler returns the schema of a Dgraph instance in DQL
// notation. An unreachable instance yields an empty schema rather than
// an error so the UI can render a blank state.
func FetchSchemaHandler(c echo.Context) error {
	type fetchSchemaBody struct {
		ConnectionString string `json:"connection_string" validate:"required"`
	}

	type fetchSchemaResponse struct {
		Message string `json:"message,omitempty"`
		Schema  string `json:"schema"`
	}

	data := new(fetchSchemaBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, fetchSchemaResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, fetchSchemaResponse{
			Message: "Invalid request body",
		})
	}

	conn, err := dgraph.Parse(data.ConnectionString)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fetchSchemaResponse{
			Message: err.Error(),
		})
	}

	client := dgraph.NewClient(dgraph.ClientParams{Connection: conn})
	schema, err := client.FetchSchema(c.Request().Context())
	if err != nil {
		logger.Warn("Failed to fetch schema", "url", conn.URL, "err", err)
		return c.JSON(http.StatusOK, fetchSchemaResponse{Schema: ""})
	}

	return c.JSON(http.StatusOK, fetchSchemaResponse{Schema: schema})
}
