// Package config reads the service configuration from the environment.
//
// Every setting has a default. A variable that is set but malformed (say
// RATE_RPS=fast) is an error rather than a silent fallback, and Load reports
// all such problems at once.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for images without /usr/share/zoneinfo
)

// DefaultSpecialCharsPattern matches any character outside letters, digits,
// whitespace and the punctuation commonly found in names, notes and dates.
const DefaultSpecialCharsPattern = `[^\p{L}\p{N}\s.,'\-/()&:;?!@#+]`

// CORSConfig lists the browser origins allowed to call the API. Empty means
// any origin.
type CORSConfig struct {
	AllowedOrigins []string // CORS_ALLOWED_ORIGINS, comma separated
}

// SecurityConfig controls Strict-Transport-Security.
type SecurityConfig struct {
	EnableHSTS bool          // ENABLE_HSTS
	HSTSMaxAge time.Duration // HSTS_MAX_AGE
}

// AuthConfig defines bearer-token verification. With an empty JWTSecret
// the service runs in development mode and trusts the X-User-ID header.
type AuthConfig struct {
	JWTSecret   string        // JWT_SECRET
	JWTIssuer   string        // JWT_ISSUER
	JWTAudience string        // JWT_AUDIENCE
	Leeway      time.Duration // JWT_LEEWAY
}

// FlashConfig selects where queued user notifications live. An empty
// RedisAddr keeps them in process memory.
type FlashConfig struct {
	RedisAddr string        // REDIS_ADDR, e.g. "redis:6379"
	TTL       time.Duration // FLASH_TTL
}

// OTELConfig defines trace export.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT, e.g. "otel:4317"
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0,1]
}

// Config is the resolved service configuration.
type Config struct {
	Port              string        // PORT
	ReadTimeout       time.Duration // READ_TIMEOUT
	ReadHeaderTimeout time.Duration // READ_HEADER_TIMEOUT
	WriteTimeout      time.Duration // WRITE_TIMEOUT
	IdleTimeout       time.Duration // IDLE_TIMEOUT
	MaxHeaderBytes    int           // MAX_HEADER_BYTES
	GinMode           string        // GIN_MODE: debug|release|test

	LogLevel       string // LOG_LEVEL
	LogPretty      bool   // LOG_PRETTY
	SwaggerEnabled bool   // SWAGGER_ENABLED
	APIBasePath    string // API_BASE_PATH

	DBPath              string         // DB_PATH
	TimeZone            string         // APP_TIMEZONE, decides what "this month" means
	Location            *time.Location // resolved TimeZone
	SpecialCharsPattern string         // SPECIAL_CHARS_PATTERN
	SeedTaxonomy        bool           // SEED_TAXONOMY

	RateRPS   float64 // RATE_RPS
	RateBurst int     // RATE_BURST

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration // IDEMPOTENCY_TTL

	Auth  AuthConfig
	Flash FlashConfig
	OTEL  OTELConfig
}

// MustLoad is Load for main; it panics on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads, normalizes and validates the configuration.
func Load() (Config, error) {
	var e env
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.int("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(e.str("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.bool("LOG_PRETTY", false),
		SwaggerEnabled: e.bool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api/v1")),

		DBPath:              e.str("DB_PATH", "contactlog.db"),
		TimeZone:            strings.TrimSpace(e.str("APP_TIMEZONE", "UTC")),
		SpecialCharsPattern: e.str("SPECIAL_CHARS_PATTERN", DefaultSpecialCharsPattern),
		SeedTaxonomy:        e.bool("SEED_TAXONOMY", true),

		RateRPS:   e.float("RATE_RPS", 5),
		RateBurst: e.int("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: e.bool("ENABLE_HSTS", false),
			HSTSMaxAge: e.dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: e.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		Auth: AuthConfig{
			JWTSecret:   e.str("JWT_SECRET", ""),
			JWTIssuer:   e.str("JWT_ISSUER", ""),
			JWTAudience: e.str("JWT_AUDIENCE", ""),
			Leeway:      e.dur("JWT_LEEWAY", 30*time.Second),
		},
		Flash: FlashConfig{
			RedisAddr: e.str("REDIS_ADDR", ""),
			TTL:       e.dur("FLASH_TTL", time.Hour),
		},
		OTEL: OTELConfig{
			Enabled:     e.bool("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "go-contactlog-backend"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	errs := append(e.errs, cfg.validate()...)
	if loc, err := time.LoadLocation(cfg.TimeZone); err == nil {
		cfg.Location = loc
	} else {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE: %q is not an IANA time zone", cfg.TimeZone))
	}
	return cfg, errors.Join(errs...)
}

func (cfg Config) validate() []error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, errors.New("LOG_LEVEL: must be one of debug, info, warn, error, fatal, panic"))
	}
	check(strings.TrimSpace(cfg.Port) != "", "PORT: must not be empty")
	check(cfg.ReadTimeout > 0 && cfg.ReadHeaderTimeout > 0 && cfg.WriteTimeout > 0 && cfg.IdleTimeout > 0,
		"READ_TIMEOUT, READ_HEADER_TIMEOUT, WRITE_TIMEOUT, IDLE_TIMEOUT: must be positive")
	check(cfg.MaxHeaderBytes > 0, "MAX_HEADER_BYTES: must be > 0")
	check(strings.TrimSpace(cfg.DBPath) != "", "DB_PATH: must not be empty")
	if _, err := regexp.Compile(cfg.SpecialCharsPattern); err != nil {
		errs = append(errs, fmt.Errorf("SPECIAL_CHARS_PATTERN: %w", err))
	}
	check(cfg.RateRPS >= 0, "RATE_RPS: must be >= 0")
	check(cfg.RateBurst >= 1, "RATE_BURST: must be >= 1")
	check(cfg.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE: must be >= 0")
	check(cfg.IdempotencyTTL > 0, "IDEMPOTENCY_TTL: must be > 0")
	check(cfg.Auth.Leeway >= 0, "JWT_LEEWAY: must be >= 0")
	check(cfg.Flash.TTL > 0, "FLASH_TTL: must be > 0")
	check(cfg.OTEL.SampleRatio >= 0 && cfg.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG: must be in [0,1]")
	return errs
}

// env reads typed variables, remembering every malformed value. Unset and
// empty variables take the default.
type env struct{ errs []error }

func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return v, ok && v != ""
}

func (e *env) bad(k, v, want string) {
	e.errs = append(e.errs, fmt.Errorf("%s: %q is not a valid %s", k, v, want))
}

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

func (e *env) int(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.bad(k, v, "integer")
		return def
	}
	return n
}

func (e *env) float(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.bad(k, v, "number")
		return def
	}
	return f
}

func (e *env) bool(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.bad(k, v, "boolean")
	return def
}

func (e *env) dur(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.bad(k, v, "duration")
		return def
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath returns p with one leading slash and no trailing one;
// empty becomes "/".
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
