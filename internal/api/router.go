package api

import (
	"github.com/gin-gonic/gin"

	"github.com/openmed/ledgerd/internal/api/handlers"
	"github.com/openmed/ledgerd/internal/api/middleware"
	"github.com/openmed/ledgerd/internal/node"
)

// Router wraps the Gin router with handlers
type Router struct {
	engine        *gin.Engine
	ledgerHandler *handlers.LedgerHandler
	peerHandler   *handlers.PeerHandler
}

// NewRouter creates a new Router with all handlers
func NewRouter(n *node.Node) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:        gin.New(),
		ledgerHandler: handlers.NewLedgerHandler(n),
		peerHandler:   handlers.NewPeerHandler(n),
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// setupMiddleware configures middleware
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.CORS())
}

// setupRoutes configures API routes
func (r *Router) setupRoutes() {
	// Health check
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.engine.Group("/api/v1")
	{
		v1.POST("/records", r.ledgerHandler.SubmitRecord)
		v1.POST("/mine", r.ledgerHandler.Mine)
		v1.GET("/chain", r.ledgerHandler.GetChain)
		v1.GET("/difficulty", r.ledgerHandler.GetDifficulty)
		v1.PUT("/difficulty", r.ledgerHandler.SetDifficulty)
		v1.GET("/node/info", r.ledgerHandler.Info)

		v1.POST("/peers", r.peerHandler.Register)
		v1.GET("/peers", r.peerHandler.List)
		v1.POST("/consensus/resolve", r.peerHandler.Resolve)
	}
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
