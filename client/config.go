package client

import (
	"os"
	"strconv"
)

// ConfigFromEnv builds a Config from PRICEWATCH_* environment variables. This
// is a convenience for host applications; nothing in the client itself reads
// the environment.
//
//	PRICEWATCH_API_URL   backend base URL (required for a usable config)
//	PRICEWATCH_API_RPS   outbound requests per second
//	PRICEWATCH_API_BURST limiter bucket size
func ConfigFromEnv() Config {
	cfg := Config{BaseURL: os.Getenv("PRICEWATCH_API_URL")}
	if v, err := strconv.ParseFloat(os.Getenv("PRICEWATCH_API_RPS"), 64); err == nil && v > 0 {
		cfg.RequestsPerSecond = v
	}
	if v, err := strconv.Atoi(os.Getenv("PRICEWATCH_API_BURST")); err == nil && v > 0 {
		cfg.Burst = v
	}
	return cfg
}
