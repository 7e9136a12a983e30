package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server struct {
		Port       int    `toml:"port"`
		CORSOrigin string `toml:"cors_origin"`
	} `toml:"server"`

	Binance struct {
		WsURL            string `toml:"ws_url"`
		ReconnectDelayMS int    `toml:"reconnect_delay_ms"`
	} `toml:"binance"`

	Quote struct {
		BaseURL      string `toml:"base_url"`
		MarketSuffix string `toml:"market_suffix"`
	} `toml:"quote"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Load reads the TOML file at path, fills defaults, applies environment
// overrides (PORT, CORS_ORIGIN) and validates. A missing file is not an
// error: the defaults alone describe a working setup.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.CORSOrigin == "" {
		cfg.Server.CORSOrigin = "*"
	}
	if cfg.Binance.WsURL == "" {
		cfg.Binance.WsURL = "wss://fstream.binance.com"
	}
	if cfg.Binance.ReconnectDelayMS <= 0 {
		cfg.Binance.ReconnectDelayMS = 1500
	}
	if cfg.Quote.BaseURL == "" {
		cfg.Quote.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.Quote.MarketSuffix == "" {
		cfg.Quote.MarketSuffix = ".vn"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyEnv(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("PORT %q is not a number: %w", port, err)
		}
		cfg.Server.Port = n
	}
	if origin := strings.TrimSpace(os.Getenv("CORS_ORIGIN")); origin != "" {
		cfg.Server.CORSOrigin = origin
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if !strings.HasPrefix(cfg.Binance.WsURL, "ws://") && !strings.HasPrefix(cfg.Binance.WsURL, "wss://") {
		return fmt.Errorf("binance.ws_url %q is not a websocket url", cfg.Binance.WsURL)
	}
	if strings.TrimSpace(cfg.Quote.BaseURL) == "" {
		return errors.New("quote.base_url empty")
	}
	return nil
}

// ReconnectDelay returns the fixed pause between a stream dying and its
// reconnection attempt.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Binance.ReconnectDelayMS) * time.Millisecond
}
