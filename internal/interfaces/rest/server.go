// Package rest exposes the snapshot/subscribe API and the delayed quote
// proxy over HTTP.
package rest

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"folio/internal/application/port"
	"folio/internal/application/registry"
)

// Server wires the gin engine to the instrument registry and the quote
// fetcher.
type Server struct {
	engine   *gin.Engine
	registry *registry.Registry
	quotes   port.QuoteFetcher
}

func NewServer(reg *registry.Registry, quotes port.QuoteFetcher, corsOrigin string) *Server {
	s := &Server{
		engine:   gin.New(),
		registry: reg,
		quotes:   quotes,
	}

	s.engine.Use(requestLogger(), gin.Recovery())
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{corsOrigin},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	s.registerRoutes()
	return s
}

// Router returns the gin engine, for http.Server wiring and tests.
func (s *Server) Router() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)

	api := s.engine.Group("/api")
	{
		api.GET("/stock/quote", s.stockQuote)
		api.GET("/crypto/price", s.cryptoPrice)
		api.GET("/crypto/subscribe", s.cryptoSubscribe)
		api.GET("/crypto/prices", s.cryptoPrices)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	}
}
