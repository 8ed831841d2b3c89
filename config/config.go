// Package config holds run configuration for the searcher.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds searcher configuration.
type Config struct {
	Lang            string
	MaxResults      int
	TopCandidates   int
	Parallelism     int
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	Proxies         []string
	UserAgents      []string
	OutputFile      string
	OutputFormat    string // csv, json, or dual
	MetricsAddr     string
	Verbose         bool
}

// DefaultConfig returns the defaults matching the original search profile:
// eight in-flight operations, top three candidates per term, 30s request
// timeout and three bounded retry attempts.
func DefaultConfig() *Config {
	return &Config{
		Lang:            "es",
		MaxResults:      10,
		TopCandidates:   3,
		Parallelism:     8,
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    2 * time.Second,
		RetryBackoffMax: 10 * time.Second,
		UserAgents:      defaultUserAgents(),
		OutputFile:      "",
		OutputFormat:    "csv",
		MetricsAddr:     "",
		Verbose:         false,
	}
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/117.0",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Lang == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive")
	}
	if c.TopCandidates <= 0 {
		return fmt.Errorf("top candidates must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	for _, p := range c.Proxies {
		parsed, err := url.Parse(p)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("invalid proxy URL %q", p)
		}
	}
	if len(c.UserAgents) == 0 {
		return fmt.Errorf("at least one user agent is required")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	return nil
}

// EnvInt reads an integer environment variable. The second return reports
// whether the variable was set.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, true, nil
}

// EnvString reads a string environment variable. The second return reports
// whether the variable was set and non-empty.
func EnvString(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}
