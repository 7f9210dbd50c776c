package server

import (
	"github.com/labstack/echo/v4"

	"github.com/loomkg/loom/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// File routes
	apiRoutes.POST("/files", routes.UploadFilesHandler)
	apiRoutes.GET("/files", routes.GetFilesHandler)
	apiRoutes.DELETE("/files/:id", routes.DeleteFileHandler)

	// Conversion routes
	apiRoutes.POST("/convert", routes.ConvertHandler)
	apiRoutes.POST("/batch/convert", routes.BatchConvertHandler)
	apiRoutes.POST("/batch/headers", routes.BatchHeadersHandler)

	// Dgraph routes
	apiRoutes.POST("/connection/test", routes.TestConnectionHandler)
	apiRoutes.POST("/schema", routes.FetchSchemaHandler)
	apiRoutes.POST("/node-types", routes.NodeTypesHandler)
	apiRoutes.POST("/import", routes.ImportHandler)
}
