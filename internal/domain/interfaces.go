package domain

import (
	"context"
	"time"
)

// Monitor defines the interface for watching speakers for playback changes
type Monitor interface {
	// Start begins monitoring.
	// It should block until context is cancelled or an error occurs
	Start(ctx context.Context) error

	// Stop gracefully stops the monitor
	Stop(ctx context.Context) error

	// Events returns a read-only channel that emits NowPlaying
	// when a speaker's state or track changes
	Events() <-chan NowPlaying
}

// Fetcher defines the interface for retrieving documents over HTTP
type Fetcher interface {
	// Fetch downloads the document at url
	// Returns the raw bytes or an error
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Config defines the interface for application configuration
type Config interface {
	// GetSearchBackend returns the seed search backend ("ssdp" or "mdns")
	GetSearchBackend() string

	// GetDiscoveryTimeout bounds the seed search
	GetDiscoveryTimeout() time.Duration

	// GetResolveTimeout bounds each peer resolution; zero disables the bound
	GetResolveTimeout() time.Duration

	// GetMaxConcurrentResolutions limits peer resolutions in flight; zero is unbounded
	GetMaxConcurrentResolutions() int

	// GetPollInterval is how often the monitor polls each speaker
	GetPollInterval() time.Duration

	// GetPollRate caps speaker queries per second across all speakers; zero is unlimited
	GetPollRate() float64

	// GetHTTPTimeout bounds a single HTTP exchange with a speaker
	GetHTTPTimeout() time.Duration

	// GetMetricsAddr is the listen address for /metrics; empty disables it
	GetMetricsAddr() string

	// GetLogLevel returns the zap level name
	GetLogLevel() string
}
