package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"CryptoBacktest/internal/handlers"

	"github.com/gin-gonic/gin"
)

type Server struct {
	engine *gin.Engine
	server *http.Server
}

// NewServer builds the HTTP surface. priceHandler may be nil, which leaves
// the import route out.
func NewServer(backtests *handlers.BacktestHandler, priceHandler *handlers.PriceHandler, port int) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(loggerMiddleware())

	s := &Server{
		engine: engine,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	s.setupRoutes(NewHandler(backtests, priceHandler))
	return s
}

func (s *Server) setupRoutes(handler *Handler) {
	api := s.engine.Group("/api")
	{
		api.GET("/strategies", handler.GetStrategies)
		api.GET("/indicators", handler.GetIndicators)
		api.GET("/symbols", handler.GetSymbols)
		api.POST("/indicators/compute", handler.ComputeIndicator)

		api.POST("/backtest", handler.RunBacktest)
		api.GET("/backtests", handler.ListBacktests)
		api.GET("/backtests/:id", handler.GetBacktest)
		api.GET("/backtests/:id/trades", handler.GetTrades)
		api.GET("/backtests/:id/equity", handler.GetEquity)
		api.GET("/backtests/:id/trades.parquet", handler.ExportTrades)
		api.DELETE("/backtests/:id", handler.DeleteBacktest)

		if handler.prices != nil {
			api.POST("/prices/import", handler.ImportPrices)
		}
	}

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "crypto-backtest"})
	})
}

// Handler exposes the engine for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start() error {
	log.Printf("[API] listening on http://localhost%s", s.server.Addr)
	log.Println("[API] routes:")
	for _, r := range s.engine.Routes() {
		log.Printf("  %-6s %s", r.Method, r.Path)
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Printf("[API] %s %s %d %v", c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
