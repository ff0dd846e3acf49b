// Package config reads leadtap settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rendis/leadtap/internal/engine/browser"
)

// RateLimitConfig indicates how many events are allowed within an interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Enabled reports whether the limit is set.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && r.Interval > 0
}

// Limiter builds a token bucket for the limit, or nil when disabled.
func (r RateLimitConfig) Limiter() *rate.Limiter {
	if !r.Enabled() {
		return nil
	}
	per := r.Interval / time.Duration(r.Requests)
	if per <= 0 {
		per = time.Second
	}
	return rate.NewLimiter(rate.Every(per), 1)
}

func (r RateLimitConfig) String() string {
	if !r.Enabled() {
		return ""
	}
	return fmt.Sprintf("%d/%s", r.Requests, r.Interval)
}

// Config aggregates leadtap settings.
type Config struct {
	Headless    bool
	UserAgent   string
	Lang        string
	ProxyURL    string
	PhoneRegion string
	Analyzer    string

	NavTimeout     time.Duration
	WaitTimeout    time.Duration
	ScrollSettle   time.Duration
	DetailSettle   time.Duration
	ScrollAttempts int

	Throttle RateLimitConfig

	Port             string
	DBPath           string
	RateLimitCollect RateLimitConfig
	LogLevel         string
}

const (
	AnalyzerBrowser = "browser"
	AnalyzerStatic  = "static"
)

// Load reads configuration from environment variables and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		UserAgent:   getEnv("LEADTAP_USER_AGENT", browser.DefaultUserAgent),
		Lang:        getEnv("LEADTAP_LANG", "ja"),
		ProxyURL:    os.Getenv("LEADTAP_PROXY"),
		PhoneRegion: strings.ToUpper(getEnv("LEADTAP_PHONE_REGION", "JP")),
		Analyzer:    strings.ToLower(getEnv("LEADTAP_ANALYZER", AnalyzerBrowser)),
		Port:        getEnv("PORT", "8080"),
		DBPath:      getEnv("LEADTAP_DB", "leadtap.db"),
		LogLevel:    getEnv("LEADTAP_LOG_LEVEL", "info"),

		NavTimeout:   parseDuration(getEnv("LEADTAP_NAV_TIMEOUT", "15s"), 15*time.Second),
		WaitTimeout:  parseDuration(getEnv("LEADTAP_WAIT_TIMEOUT", "10s"), 10*time.Second),
		ScrollSettle: parseDuration(getEnv("LEADTAP_SCROLL_SETTLE", "2s"), 2*time.Second),
		DetailSettle: parseDuration(getEnv("LEADTAP_DETAIL_SETTLE", "1.5s"), 1500*time.Millisecond),
	}

	headless, err := strconv.ParseBool(getEnv("LEADTAP_HEADLESS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEADTAP_HEADLESS value: %w", err)
	}
	cfg.Headless = headless

	attempts, err := strconv.Atoi(getEnv("LEADTAP_SCROLL_ATTEMPTS", "15"))
	if err != nil || attempts < 0 {
		return nil, fmt.Errorf("invalid LEADTAP_SCROLL_ATTEMPTS value: %q", os.Getenv("LEADTAP_SCROLL_ATTEMPTS"))
	}
	cfg.ScrollAttempts = attempts

	if cfg.Analyzer != AnalyzerBrowser && cfg.Analyzer != AnalyzerStatic {
		return nil, fmt.Errorf("invalid LEADTAP_ANALYZER value: %q", cfg.Analyzer)
	}

	if v := os.Getenv("LEADTAP_THROTTLE"); v != "" {
		if cfg.Throttle, err = ParseRateLimit(v); err != nil {
			return nil, fmt.Errorf("invalid LEADTAP_THROTTLE value: %w", err)
		}
	}

	rl, err := ParseRateLimit(getEnv("RATE_LIMIT_COLLECT", "2/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_COLLECT value: %w", err)
	}
	cfg.RateLimitCollect = rl

	return cfg, nil
}

// ParseRateLimit parses "<requests>/<unit>", e.g. "10/min".
func ParseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(input string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
