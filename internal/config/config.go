package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL" default:"sqlite:./data/plotsim.db"`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`

	// Playback
	TickRate     time.Duration `envconfig:"TICK_RATE" default:"16ms"`
	DefaultSpeed float64       `envconfig:"DEFAULT_SPEED" default:"100"`

	// Preview surface
	SurfaceWidth  float64 `envconfig:"SURFACE_WIDTH" default:"800"`
	SurfaceHeight float64 `envconfig:"SURFACE_HEIGHT" default:"600"`
	ViewPadding   float64 `envconfig:"VIEW_PADDING" default:"20"`

	// DXF compilation
	FeedRate float64 `envconfig:"FEED_RATE" default:"1000"`
	SafeZ    float64 `envconfig:"SAFE_Z" default:"5"`
	DrawZ    float64 `envconfig:"DRAW_Z" default:"0"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("TICK_RATE must be positive, got %s", cfg.TickRate)
	}
	if cfg.SurfaceWidth <= 0 || cfg.SurfaceHeight <= 0 {
		return nil, fmt.Errorf("surface size must be positive, got %gx%g", cfg.SurfaceWidth, cfg.SurfaceHeight)
	}
	return &cfg, nil
}

// Origins splits ALLOWED_ORIGINS into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
