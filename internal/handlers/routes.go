package handlers

import (
	"github.com/gin-gonic/gin"

	"dice-offline/internal/middleware"
	"dice-offline/internal/services"
)

// API bundles the handlers behind /api. Both the origin server and the
// offline edge mount it, so rolling and combat tracking never need the origin.
type API struct {
	Tray      *TrayHandler
	Combat    *CombatHandler
	WebSocket *WebSocketHandler
	Hub       *WebSocketHub

	unsubscribe func()
}

// NewAPI wires the handlers to the services and starts the websocket hub.
func NewAPI(tray *services.TrayService, combat *services.CombatStore) *API {
	hub := NewWebSocketHub()
	go hub.Run()

	ws := NewWebSocketHandler(combat, hub)
	return &API{
		Tray:        NewTrayHandler(tray),
		Combat:      NewCombatHandler(combat),
		WebSocket:   ws,
		Hub:         hub,
		unsubscribe: combat.SubscribeBroadcaster(ws),
	}
}

func (a *API) Register(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(middleware.NoStore(), middleware.TableSession())
	{
		api.GET("/ws", a.WebSocket.HandleWebSocket)

		tray := api.Group("/tray")
		{
			tray.GET("", a.Tray.GetTray)
			tray.PUT("", a.Tray.UpdateTray)
			tray.POST("/roll", a.Tray.Roll)
			tray.POST("/repeat", a.Tray.Repeat)
			tray.POST("/cycle", a.Tray.CycleMode)
			tray.POST("/reset", a.Tray.Reset)
		}

		combat := api.Group("/combat")
		{
			combat.GET("", a.Combat.GetCombat)
			combat.PUT("/:field", a.Combat.SetField)
			combat.POST("/reset", a.Combat.Reset)
		}
	}
}

func (a *API) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.Hub.Stop()
}

// NewRouter builds a gin engine with the shared middleware.
func NewRouter(production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())
	router.GET("/healthz", Health)
	return router
}
