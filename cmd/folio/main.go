package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"folio/internal/application/registry"
	"folio/internal/infrastructure/config"
	"folio/internal/infrastructure/exchange/binance"
	"folio/internal/infrastructure/logger"
	"folio/internal/infrastructure/quote"
	"folio/internal/interfaces/rest"
)

func main() {
	_ = godotenv.Load()
	logger.Setup("info")

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	streams := binance.NewFactory(cfg.Binance.WsURL)
	reg := registry.New(registry.Deps{
		Factory:    streams,
		RetryDelay: cfg.ReconnectDelay(),
	})
	defer reg.Close()

	quotes := quote.NewClient(cfg.Quote.BaseURL, cfg.Quote.MarketSuffix)

	gin.SetMode(gin.ReleaseMode)
	srv := rest.NewServer(reg, quotes, cfg.Server.CORSOrigin)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}

	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Str("cors_origin", cfg.Server.CORSOrigin).
			Str("binance_ws", cfg.Binance.WsURL).
			Msg("folio backend started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server exited")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	log.Info().Msg("folio stopped")
}
