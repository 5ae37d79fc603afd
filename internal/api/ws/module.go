package ws

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/abdoElHodaky/tradSys/internal/api"
)

// Module provides the trade-broadcast Hub and mounts its WebSocket
// endpoint on the shared gin server.
var Module = fx.Options(
	fx.Provide(Run),
	fx.Invoke(registerRoute),
)

func registerRoute(server *api.Server, hub *Hub) {
	server.Router.GET("/ws/trades", gin.WrapF(hub.HandleConnection))
}
