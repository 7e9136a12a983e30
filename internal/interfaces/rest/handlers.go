package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"folio/internal/domain"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// cryptoPrice serves one snapshot. Reading a never-seen symbol is what
// starts its stream; the response never waits for the venue.
func (s *Server) cryptoPrice(c *gin.Context) {
	symbol := c.Query("symbol")
	if strings.TrimSpace(symbol) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	c.JSON(http.StatusOK, s.registry.Snapshot(symbol))
}

// cryptoSubscribe starts tracking each listed symbol and echoes the
// current snapshots. Duplicates are harmless; EnsureStream is idempotent.
func (s *Server) cryptoSubscribe(c *gin.Context) {
	raw := c.Query("symbols")
	if strings.TrimSpace(raw) == "" {
		raw = c.Query("symbol")
	}
	if strings.TrimSpace(raw) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required"})
		return
	}

	data := make([]domain.Snapshot, 0)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		state := s.registry.EnsureStream(part)
		data = append(data, state.Snapshot())
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (s *Server) cryptoPrices(c *gin.Context) {
	raw := c.Query("symbols")
	if strings.TrimSpace(raw) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required"})
		return
	}

	data := make([]domain.Snapshot, 0)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		data = append(data, s.registry.Snapshot(part))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (s *Server) stockQuote(c *gin.Context) {
	symbol := c.Query("symbol")
	if strings.TrimSpace(symbol) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	q, err := s.quotes.Fetch(c.Request.Context(), domain.NormalizeEquity(symbol))
	if err != nil {
		log.Error().Str("symbol", symbol).Err(err).Msg("quote fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch quote"})
		return
	}
	c.JSON(http.StatusOK, q)
}
