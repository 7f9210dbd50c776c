package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/pkg/dgraph"
)

// TestConnectionHandler probes a Dgraph endpoint described by a
// connection string.
func TestConnectionHandler(c echo.Context) error {
	type testConnectionBody struct {
		ConnectionString string `json:"connection_string" validate:"required"`
	}

	type testConnectionResponse struct {
		Message   string `json:"message,omitempty"`
		Connected bool   `json:"connected"`
		URL       string `json:"url,omitempty"`
		Flavor    string `json:"flavor,omitempty"`
	}

	data := new(testConnectionBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, testConnectionResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, testConnectionResponse{
			Message: "Invalid request body",
		})
	}

	conn, err := dgraph.Parse(data.ConnectionString)
	if err != nil {
		return c.JSON(http.StatusBadRequest, testConnectionResponse{
			Message: err.Error(),
		})
	}

	client := dgraph.NewClient(dgraph.ClientParams{Connection: conn})
	connected := client.TestConnection(c.Request().Context())

	return c.JSON(http.StatusOK, testConnectionResponse{
		Connected: connected,
		URL:       conn.URL,
		Flavor:    conn.Flavor.String(),
	})
}
