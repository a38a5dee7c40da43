package echoapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ablespace/ablespace/core"
	"github.com/ablespace/ablespace/realtime"
)

type realtimeApi struct {
	hub      *realtime.Hub
	logger   core.Logger
	upgrader websocket.Upgrader
}

func registerRealtimeAPI(app *echo.Echo, jwt echo.MiddlewareFunc, hub *realtime.Hub, logger core.Logger) {
	api := realtimeApi{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkWSOrigin,
		},
	}
	app.GET("/ws", api.serve, jwt)
}

func checkWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser client
	}
	for _, allowed := range core.Conf.AllowedOrigins {
		if origin == allowed || allowed == "*" {
			return true
		}
	}
	return false
}

func (api *realtimeApi) serve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// Upgrade has already replied to the client
		api.logger.Warn(fmt.Sprintf("realtime: upgrade failed: %v", err))
		return nil
	}

	// blocks until the connection drops
	api.hub.HandleConn(conn, claims.Subject)
	return nil
}
