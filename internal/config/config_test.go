package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
	"MAX_HEADER_BYTES", "GIN_MODE", "LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED",
	"API_BASE_PATH", "DB_PATH", "APP_TIMEZONE", "SPECIAL_CHARS_PATTERN", "SEED_TAXONOMY",
	"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
	"IDEMPOTENCY_TTL", "JWT_SECRET", "JWT_ISSUER", "JWT_AUDIENCE", "JWT_LEEWAY",
	"REDIS_ADDR", "FLASH_TTL", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
}

// cleanEnv blanks every variable Load reads; empty counts as unset.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		Port:                "8080",
		ReadTimeout:         15 * time.Second,
		ReadHeaderTimeout:   10 * time.Second,
		WriteTimeout:        20 * time.Second,
		IdleTimeout:         60 * time.Second,
		MaxHeaderBytes:      1 << 20,
		GinMode:             "release",
		LogLevel:            "info",
		APIBasePath:         "/api/v1",
		DBPath:              "contactlog.db",
		TimeZone:            "UTC",
		Location:            time.UTC,
		SpecialCharsPattern: DefaultSpecialCharsPattern,
		SeedTaxonomy:        true,
		RateRPS:             5,
		RateBurst:           10,
		Security:            SecurityConfig{HSTSMaxAge: 180 * 24 * time.Hour},
		IdempotencyTTL:      24 * time.Hour,
		Auth:                AuthConfig{Leeway: 30 * time.Second},
		Flash:               FlashConfig{TTL: time.Hour},
		OTEL: OTELConfig{
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "go-contactlog-backend",
			SampleRatio: 1,
		},
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("defaults:\n got %+v\nwant %+v", cfg, want)
	}
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	cleanEnv(t)
	set := map[string]string{
		"PORT":                        "8088",
		"READ_TIMEOUT":                " 2s ",
		"GIN_MODE":                    "Weird",
		"LOG_LEVEL":                   "WARNING",
		"LOG_PRETTY":                  "yes",
		"SWAGGER_ENABLED":             "on",
		"API_BASE_PATH":               "contacts-api/v2/",
		"APP_TIMEZONE":                " Australia/Sydney ",
		"SPECIAL_CHARS_PATTERN":       "[<>]",
		"SEED_TAXONOMY":               "off",
		"RATE_RPS":                    "0.5",
		"RATE_BURST":                  "3",
		"CORS_ALLOWED_ORIGINS":        " https://a.example , , http://b ",
		"ENABLE_HSTS":                 "TRUE",
		"IDEMPOTENCY_TTL":             "48h",
		"JWT_SECRET":                  "s3cret",
		"JWT_LEEWAY":                  "0s",
		"REDIS_ADDR":                  "redis:6379",
		"FLASH_TTL":                   "10m",
		"OTEL_ENABLED":                "1",
		"OTEL_EXPORTER_OTLP_INSECURE": "n",
		"OTEL_TRACES_SAMPLER_ARG":     "0.25",
	}
	for k, v := range set {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.GinMode != "release" || cfg.LogLevel != "warn" {
		t.Fatalf("server/logging: %+v", cfg)
	}
	if !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/contacts-api/v2" {
		t.Fatalf("docs: %+v", cfg)
	}
	if cfg.TimeZone != "Australia/Sydney" || cfg.Location.String() != "Australia/Sydney" {
		t.Fatalf("time zone: %q %v", cfg.TimeZone, cfg.Location)
	}
	if cfg.SpecialCharsPattern != "[<>]" || cfg.SeedTaxonomy {
		t.Fatalf("app: %+v", cfg)
	}
	if cfg.RateRPS != 0.5 || cfg.RateBurst != 3 {
		t.Fatalf("rate: %v %v", cfg.RateRPS, cfg.RateBurst)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.example", "http://b"}) {
		t.Fatalf("origins: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("security/idempotency: %+v", cfg)
	}
	if cfg.Auth.JWTSecret != "s3cret" || cfg.Auth.Leeway != 0 || cfg.Flash.RedisAddr != "redis:6379" || cfg.Flash.TTL != 10*time.Minute {
		t.Fatalf("auth/flash: %+v %+v", cfg.Auth, cfg.Flash)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Insecure || cfg.OTEL.SampleRatio != 0.25 {
		t.Fatalf("otel: %+v", cfg.OTEL)
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	cleanEnv(t)
	t.Setenv("RATE_RPS", "fast")
	t.Setenv("MAX_HEADER_BYTES", "1MB")
	t.Setenv("LOG_PRETTY", "sometimes")
	t.Setenv("FLASH_TTL", "an hour")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	t.Setenv("SPECIAL_CHARS_PATTERN", "[")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{
		`RATE_RPS: "fast" is not a valid number`,
		`MAX_HEADER_BYTES: "1MB" is not a valid integer`,
		`LOG_PRETTY: "sometimes" is not a valid boolean`,
		`FLASH_TTL: "an hour" is not a valid duration`,
		"LOG_LEVEL:",
		"APP_TIMEZONE:",
		"SPECIAL_CHARS_PATTERN:",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error lacks %q:\n%v", want, err)
		}
	}
}

func TestLoad_RangeChecks(t *testing.T) {
	cases := []struct{ key, val, want string }{
		{"PORT", " ", "PORT:"},
		{"READ_TIMEOUT", "0s", "READ_TIMEOUT"},
		{"IDLE_TIMEOUT", "-1s", "IDLE_TIMEOUT"},
		{"MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES:"},
		{"DB_PATH", "  ", "DB_PATH:"},
		{"RATE_RPS", "-1", "RATE_RPS:"},
		{"RATE_BURST", "0", "RATE_BURST:"},
		{"HSTS_MAX_AGE", "-1h", "HSTS_MAX_AGE:"},
		{"IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL:"},
		{"JWT_LEEWAY", "-5s", "JWT_LEEWAY:"},
		{"FLASH_TTL", "0s", "FLASH_TTL:"},
		{"OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG:"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			cleanEnv(t)
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("%s=%q: err = %v", tc.key, tc.val, err)
			}
		})
	}
}

func TestMustLoad(t *testing.T) {
	cleanEnv(t)
	if cfg := MustLoad(); cfg.Port != "8080" {
		t.Fatalf("MustLoad port = %q", cfg.Port)
	}

	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if recover() == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	MustLoad()
}

func TestHelpers(t *testing.T) {
	for in, want := range map[string]string{"": "/", "/": "/", "api": "/api", "//api/v1//": "/api/v1", " /x/ ": "/x"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
	if splitCSV("") != nil || len(splitCSV(" , ")) != 0 {
		t.Fatalf("splitCSV should drop blanks")
	}
}
