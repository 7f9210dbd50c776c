package middleware

import (
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/loomkg/loom/internal/storage"
)

type App struct {
	Store storage.Store
	// ImportLock serializes graph imports across requests.
	ImportLock *semaphore.Weighted
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(store storage.Store) echo.MiddlewareFunc {
	app := &App{
		Store:      store,
		ImportLock: semaphore.NewWeighted(1),
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
