package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/pkg/dgraph"
	"github.com/loomkg/loom/pkg/logger"
)

// NodeTypesHandler counts nodes per dgraph.type in a Dgraph instance.
func NodeTypesHandler(c echo.Context) error {
	type nodeTypesBody struct {
		ConnectionString string `json:"connection_string" validate:"required"`
	}

	type nodeTypesResponse struct {
		Message string         `json:"message,omitempty"`
		Types   map[string]int `json:"types"`
	}

	data := new(nodeTypesBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, nodeTypesResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, nodeTypesResponse{
			Message: "Invalid request body",
		})
	}

	conn, err := dgraph.Parse(data.ConnectionString)
	if err != nil {
		return c.JSON(http.StatusBadRequest, nodeTypesResponse{
			Message: err.Error(),
		})
	}

	client := dgraph.NewClient(dgraph.ClientParams{Connection: conn})
	counts, err := client.NodeTypeCounts(c.Request().Context())
	if err != nil {
		logger.Warn("Failed to count node types", "url", conn.URL, "err", err)
		return c.JSON(http.StatusOK, nodeTypesResponse{Types: map[string]int{}})
	}

	return c.JSON(http.StatusOK, nodeTypesResponse{Types: counts})
}
