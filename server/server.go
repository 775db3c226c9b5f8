// Package server exposes the trading service and market data as a JSON API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MrBlankCoding/StockDashboard/quotes"
	"github.com/MrBlankCoding/StockDashboard/trading"
)

// MarketData is what the dashboard endpoints need from the quote gateway.
type MarketData interface {
	LastPrice(ctx context.Context, symbol string) (quotes.Quote, error)
	DailyHistory(ctx context.Context, symbol string, days int) ([]quotes.DailyClose, error)
	Search(ctx context.Context, keywords string) ([]quotes.SearchMatch, error)
	Overview(ctx context.Context, symbol string) (quotes.CompanyOverview, error)
}

type Server struct {
	R       *gin.Engine
	Trading *trading.Service
	Market  MarketData
	Logger  *zap.Logger
}

// New wires the router, middleware, and routes.
func New(svc *trading.Service, market MarketData, logger *zap.Logger, corsOrigin string) *Server {
	g := gin.New()

	// Request logging
	g.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	})

	g.Use(gin.Recovery())

	// CORS
	g.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if corsOrigin == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && origin == corsOrigin {
			c.Writer.Header().Set("Access-Control-Allow-Origin", corsOrigin)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s := &Server{R: g, Trading: svc, Market: market, Logger: logger}

	g.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	g.GET("/api/stock/:symbol", s.getStock)
	g.GET("/api/search", s.searchSymbols)

	g.POST("/api/accounts", s.createAccount)
	g.GET("/api/accounts/:id", s.getAccount)
	g.GET("/api/accounts/:id/portfolio", s.getPortfolio)
	g.POST("/api/accounts/:id/buy", s.buy)
	g.POST("/api/accounts/:id/sell", s.sell)
	g.GET("/api/accounts/:id/trades", s.getTrades)
	g.GET("/api/accounts/:id/watchlist", s.getWatchlist)
	g.POST("/api/accounts/:id/watchlist", s.addWatch)
	g.DELETE("/api/accounts/:id/watchlist/:symbol", s.removeWatch)

	return s
}

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.R,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
