package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 2
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 15 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const SweepJobInterval = 10 * time.Minute

// Background/quit-state handlers run under an OS execution budget; every
// operation in that path must finish well inside this window.
const BackgroundBudget = 8 * time.Second

// Outbound HTTP timeouts for the device bridge and the consultation API.
const (
	BridgeRequestTimeout = 5 * time.Second
	NotifyRequestTimeout = 5 * time.Second
)

// Default rate limiting for the ingress surface
const DefaultIngressRatePerMin = 120
