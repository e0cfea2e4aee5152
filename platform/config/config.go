// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SessionConfig provides settings for widget session tokens.
type SessionConfig interface {
	GetSessionSecret() string
	GetSessionTTL() time.Duration
}

// HostConfig provides settings for the spreadsheet host binding.
type HostConfig interface {
	GetHostBaseURL() string
	GetHostAPIKey() string
	GetHostDocID() string
	GetPOITableID() string
	GetRouteTableID() string
	GetHostTimeout() time.Duration
	GetHostRetryAttempts() int
	GetHostRetryBaseDelay() time.Duration
}

// WebhookConfig provides settings for inbound host push authentication.
type WebhookConfig interface {
	GetWebhookKey() string
}

// RedisConfig provides settings for the webhook dedup store.
type RedisConfig interface {
	GetRedisURL() string
	GetDedupTTL() time.Duration
	IsDedupEnabled() bool
}

// MapConfig provides the map view defaults and tile layer settings.
type MapConfig interface {
	GetInitialLat() float64
	GetInitialLng() float64
	GetInitialZoom() int
	GetMarkerZoom() int
	GetTileURL() string
	GetTileMinZoom() int
	GetTileMaxZoom() int
	GetTileAttribution() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	SessionSecret      string
	SessionTTL         time.Duration
	HostBaseURL        string
	HostAPIKey         string
	HostDocID          string
	POITableID         string
	RouteTableID       string
	HostTimeout        time.Duration
	HostRetryAttempts  int
	HostRetryBaseDelay time.Duration
	WebhookKey         string
	RedisURL           string
	DedupTTL           time.Duration
	InitialLat         float64
	InitialLng         float64
	InitialZoom        int
	MarkerZoom         int
	TileURL            string
	TileMinZoom        int
	TileMaxZoom        int
	TileAttribution    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SessionConfig implementation
func (c *Config) GetSessionSecret() string     { return c.SessionSecret }
func (c *Config) GetSessionTTL() time.Duration { return c.SessionTTL }

// HostConfig implementation
func (c *Config) GetHostBaseURL() string               { return c.HostBaseURL }
func (c *Config) GetHostAPIKey() string                { return c.HostAPIKey }
func (c *Config) GetHostDocID() string                 { return c.HostDocID }
func (c *Config) GetPOITableID() string                { return c.POITableID }
func (c *Config) GetRouteTableID() string              { return c.RouteTableID }
func (c *Config) GetHostTimeout() time.Duration        { return c.HostTimeout }
func (c *Config) GetHostRetryAttempts() int            { return c.HostRetryAttempts }
func (c *Config) GetHostRetryBaseDelay() time.Duration { return c.HostRetryBaseDelay }

// WebhookConfig implementation
func (c *Config) GetWebhookKey() string { return c.WebhookKey }

// RedisConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetDedupTTL() time.Duration { return c.DedupTTL }
func (c *Config) IsDedupEnabled() bool       { return c.RedisURL != "" }

// MapConfig implementation
func (c *Config) GetInitialLat() float64     { return c.InitialLat }
func (c *Config) GetInitialLng() float64     { return c.InitialLng }
func (c *Config) GetInitialZoom() int        { return c.InitialZoom }
func (c *Config) GetMarkerZoom() int         { return c.MarkerZoom }
func (c *Config) GetTileURL() string         { return c.TileURL }
func (c *Config) GetTileMinZoom() int        { return c.TileMinZoom }
func (c *Config) GetTileMaxZoom() int        { return c.TileMaxZoom }
func (c *Config) GetTileAttribution() string { return c.TileAttribution }

// Default tile layer: the Israel Hiking Map raster tiles. The attribution
// text is carried verbatim into the rendered layer, not reinterpreted.
const (
	defaultTileURL         = "https://israelhiking.osm.org.il/English/Tiles/{z}/{x}/{y}.png"
	defaultTileAttribution = `Tiles &copy; <a href="https://israelhiking.osm.org.il" target="_blank">Israel Hiking Map</a> CC BY-NC-SA 3.0 | Map data &copy; <a href="https://www.openstreetmap.org/copyright" target="_blank">OpenStreetMap</a> contributors`
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		SessionSecret:      getEnv("WIDGET_SESSION_SECRET", ""),
		SessionTTL:         mustDuration(getEnv("WIDGET_SESSION_TTL", "12h")),
		HostBaseURL:        getEnv("HOST_BASE_URL", ""),
		HostAPIKey:         getEnv("HOST_API_KEY", ""),
		HostDocID:          getEnv("HOST_DOC_ID", ""),
		POITableID:         getEnv("HOST_POI_TABLE_ID", ""),
		RouteTableID:       getEnv("HOST_ROUTE_TABLE_ID", "Routes"),
		HostTimeout:        mustDuration(getEnv("HOST_TIMEOUT", "10s")),
		HostRetryAttempts:  mustInt(getEnv("HOST_RETRY_ATTEMPTS", "5")),
		HostRetryBaseDelay: mustDuration(getEnv("HOST_RETRY_BASE_DELAY", "2s")),
		WebhookKey:         getEnv("HOST_WEBHOOK_KEY", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		DedupTTL:           mustDuration(getEnv("WEBHOOK_DEDUP_TTL", "24h")),
		InitialLat:         mustFloat(getEnv("MAP_INITIAL_LAT", "31.5")),
		InitialLng:         mustFloat(getEnv("MAP_INITIAL_LNG", "34.8")),
		InitialZoom:        mustInt(getEnv("MAP_INITIAL_ZOOM", "8")),
		MarkerZoom:         mustInt(getEnv("MAP_MARKER_ZOOM", "15")),
		TileURL:            getEnv("MAP_TILE_URL", defaultTileURL),
		TileMinZoom:        mustInt(getEnv("MAP_TILE_MIN_ZOOM", "7")),
		TileMaxZoom:        mustInt(getEnv("MAP_TILE_MAX_ZOOM", "16")),
		TileAttribution:    getEnv("MAP_TILE_ATTRIBUTION", defaultTileAttribution),
	}

	if cfg.HostBaseURL == "" {
		return nil, fmt.Errorf("HOST_BASE_URL is required")
	}
	if cfg.HostAPIKey == "" {
		return nil, fmt.Errorf("HOST_API_KEY is required")
	}
	if cfg.HostDocID == "" {
		return nil, fmt.Errorf("HOST_DOC_ID is required")
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("WIDGET_SESSION_SECRET is required")
	}
	if cfg.WebhookKey == "" {
		return nil, fmt.Errorf("HOST_WEBHOOK_KEY is required")
	}
	if cfg.HostRetryAttempts < 1 {
		return nil, fmt.Errorf("HOST_RETRY_ATTEMPTS must be at least 1")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
