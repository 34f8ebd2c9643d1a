// Package config loads Skythread settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config validation errors
var (
	// ErrInvalidPaging is returned when a page size is not positive
	ErrInvalidPaging = errors.New("page sizes must be positive")
	// ErrInvalidFetchTimeout is returned when FetchTimeout is not positive
	ErrInvalidFetchTimeout = errors.New("FetchTimeout must be positive")
	// ErrInvalidCacheSize is returned when CacheSize is not positive
	ErrInvalidCacheSize = errors.New("CacheSize must be positive")
	// ErrInvalidLocation is returned when Timezone is not a known zone
	ErrInvalidLocation = errors.New("unknown timezone")
)

// Config holds the configuration of the server and the CLI.
type Config struct {
	// Location is Timezone resolved; timestamps are rendered in it.
	Location *time.Location

	// Addr is the HTTP listen address.
	Addr string

	// DatabaseURL is the Postgres connection string. Empty keeps the thread
	// cache in memory.
	DatabaseURL string

	// APIBaseURL is the appview serving app.bsky.feed.getPostThread.
	APIBaseURL string

	// AppBaseURL is the web client permalinks point at.
	AppBaseURL string

	// PLCURL is the DID PLC directory used for handle resolution.
	PLCURL string

	// JetstreamURL enables cache invalidation from the firehose when set.
	JetstreamURL string

	// SessionSecret signs the preference cookie. Empty disables it.
	SessionSecret string

	// Timezone is the IANA zone name for rendered timestamps.
	Timezone string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFormat is "json" or "text".
	LogFormat string

	// CORSOrigins are the origins allowed to call the JSON API.
	CORSOrigins []string

	FetchTimeout time.Duration
	CacheTTL     time.Duration
	CacheSize    int
	ThreadDepth  int

	InitialPageSize int
	PageIncrement   int

	RateLimitRPS   float64
	RateLimitBurst int
	UpstreamRPS    float64

	// FilterLabeledComments drops replies labeled by someone other than
	// their author.
	FilterLabeledComments bool

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Location:        time.UTC,
		Addr:            ":8080",
		APIBaseURL:      "https://public.api.bsky.app",
		AppBaseURL:      "https://bsky.app",
		PLCURL:          "https://plc.directory",
		Timezone:        "UTC",
		LogLevel:        "info",
		LogFormat:       "text",
		CORSOrigins:     []string{"*"},
		FetchTimeout:    10 * time.Second,
		CacheTTL:        15 * time.Minute,
		CacheSize:       512,
		ThreadDepth:     1000,
		InitialPageSize: 20,
		PageIncrement:   30,
		RateLimitRPS:    5,
		RateLimitBurst:  20,
		UpstreamRPS:     10,
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.InitialPageSize <= 0 || c.PageIncrement <= 0 {
		return fmt.Errorf("%w: got %d/%d", ErrInvalidPaging, c.InitialPageSize, c.PageIncrement)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidFetchTimeout, c.FetchTimeout)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheSize, c.CacheSize)
	}
	if c.Location == nil {
		return fmt.Errorf("%w: %q", ErrInvalidLocation, c.Timezone)
	}
	return nil
}

// Load reads a .env file when present, then builds the configuration from
// environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("[CONFIG] failed to read .env file", "error", err)
	}

	cfg := FromEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from getenv, using defaults for anything missing
// or unparsable.
//
// Environment variables:
//   - SKYTHREAD_ADDR, DATABASE_URL, BSKY_API_BASE_URL, BSKY_APP_BASE_URL, PLC_URL
//   - THREAD_FETCH_TIMEOUT, THREAD_CACHE_TTL (durations, e.g. "10s", "15m")
//   - THREAD_CACHE_SIZE, THREAD_DEPTH, INITIAL_PAGE_SIZE, PAGE_INCREMENT
//   - FILTER_LABELED_COMMENTS, TRUST_PROXY_HEADERS ("true"/"1")
//   - JETSTREAM_URL, SESSION_SECRET, CORS_ORIGINS (comma separated)
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, UPSTREAM_RPS
//   - LOG_LEVEL, LOG_FORMAT, TIMEZONE
func FromEnv(getenv func(string) string) Config {
	cfg := DefaultConfig()
	e := envReader{getenv: getenv}

	e.str("SKYTHREAD_ADDR", &cfg.Addr)
	e.str("DATABASE_URL", &cfg.DatabaseURL)
	e.str("BSKY_API_BASE_URL", &cfg.APIBaseURL)
	e.str("BSKY_APP_BASE_URL", &cfg.AppBaseURL)
	e.str("PLC_URL", &cfg.PLCURL)
	e.str("JETSTREAM_URL", &cfg.JetstreamURL)
	e.str("SESSION_SECRET", &cfg.SessionSecret)
	e.str("LOG_LEVEL", &cfg.LogLevel)
	e.str("LOG_FORMAT", &cfg.LogFormat)

	e.duration("THREAD_FETCH_TIMEOUT", &cfg.FetchTimeout)
	e.duration("THREAD_CACHE_TTL", &cfg.CacheTTL)
	e.positiveInt("THREAD_CACHE_SIZE", &cfg.CacheSize)
	e.positiveInt("THREAD_DEPTH", &cfg.ThreadDepth)
	e.positiveInt("INITIAL_PAGE_SIZE", &cfg.InitialPageSize)
	e.positiveInt("PAGE_INCREMENT", &cfg.PageIncrement)
	e.positiveInt("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	e.float("RATE_LIMIT_RPS", &cfg.RateLimitRPS)
	e.float("UPSTREAM_RPS", &cfg.UpstreamRPS)

	e.boolean("FILTER_LABELED_COMMENTS", &cfg.FilterLabeledComments)
	e.boolean("TRUST_PROXY_HEADERS", &cfg.TrustProxyHeaders)

	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) > 0 {
			cfg.CORSOrigins = origins
		}
	}

	if v := getenv("TIMEZONE"); v != "" {
		cfg.Timezone = v
		loc, err := time.LoadLocation(v)
		if err != nil {
			slog.Warn("[CONFIG] invalid TIMEZONE value", "value", v, "error", err)
		}
		cfg.Location = loc
	}

	return cfg
}

// ParseLogLevel maps LOG_LEVEL to a slog level, defaulting to info
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

type envReader struct {
	getenv func(string) string
}

func (e envReader) str(key string, dst *string) {
	if v := e.getenv(key); v != "" {
		*dst = v
	}
}

func (e envReader) boolean(key string, dst *bool) {
	if v := e.getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func (e envReader) positiveInt(key string, dst *int) {
	v := e.getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
		return
	}
	slog.Warn("[CONFIG] invalid value, using default", "key", key, "value", v, "default", *dst)
}

func (e envReader) float(key string, dst *float64) {
	v := e.getenv(key)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
		*dst = f
		return
	}
	slog.Warn("[CONFIG] invalid value, using default", "key", key, "value", v, "default", *dst)
}

func (e envReader) duration(key string, dst *time.Duration) {
	v := e.getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
		return
	}
	slog.Warn("[CONFIG] invalid value, using default", "key", key, "value", v, "default", dst.String())
}
