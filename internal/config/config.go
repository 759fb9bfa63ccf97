package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	// BackendSSDP searches with an SSDP M-SEARCH
	BackendSSDP = "ssdp"
	// BackendMDNS browses _sonos._tcp over multicast DNS
	BackendMDNS = "mdns"
)

const (
	defaultSearchBackend    = BackendSSDP
	defaultDiscoveryTimeout = 3 * time.Second
	defaultResolveTimeout   = 5 * time.Second
	defaultPollInterval     = 2 * time.Second
	defaultPollRate         = 10
	defaultHTTPTimeout      = 5 * time.Second
	defaultMetricsAddr      = ":9464"
	defaultLogLevel         = "info"
)

// Values is the raw configuration as read from file and environment
type Values struct {
	SearchBackend            string        `yaml:"searchBackend"`
	DiscoveryTimeout         time.Duration `yaml:"discoveryTimeout"`
	ResolveTimeout           time.Duration `yaml:"resolveTimeout"`
	MaxConcurrentResolutions int           `yaml:"maxConcurrentResolutions"`
	PollInterval             time.Duration `yaml:"pollInterval"`
	PollRate                 float64       `yaml:"pollRate"`
	HTTPTimeout              time.Duration `yaml:"httpTimeout"`
	MetricsAddr              string        `yaml:"metricsAddr"`
	LogLevel                 string        `yaml:"logLevel"`
}

// Defaults returns the built-in configuration
func Defaults() Values {
	return Values{
		SearchBackend:    defaultSearchBackend,
		DiscoveryTimeout: defaultDiscoveryTimeout,
		ResolveTimeout:   defaultResolveTimeout,
		PollInterval:     defaultPollInterval,
		PollRate:         defaultPollRate,
		HTTPTimeout:      defaultHTTPTimeout,
		MetricsAddr:      defaultMetricsAddr,
		LogLevel:         defaultLogLevel,
	}
}

// Validate reports every invalid value at once
func (v Values) Validate() error {
	var err error
	if v.SearchBackend != BackendSSDP && v.SearchBackend != BackendMDNS {
		err = multierr.Append(err, fmt.Errorf("search backend %q: want %s or %s", v.SearchBackend, BackendSSDP, BackendMDNS))
	}
	if v.DiscoveryTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("discovery timeout must be positive, got %s", v.DiscoveryTimeout))
	}
	if v.ResolveTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("resolve timeout must not be negative, got %s", v.ResolveTimeout))
	}
	if v.MaxConcurrentResolutions < 0 {
		err = multierr.Append(err, fmt.Errorf("max concurrent resolutions must not be negative, got %d", v.MaxConcurrentResolutions))
	}
	if v.PollInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("poll interval must be positive, got %s", v.PollInterval))
	}
	if v.PollRate < 0 {
		err = multierr.Append(err, fmt.Errorf("poll rate must not be negative, got %g", v.PollRate))
	}
	if v.HTTPTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("http timeout must be positive, got %s", v.HTTPTimeout))
	}
	if _, lerr := zapcore.ParseLevel(v.LogLevel); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log level: %w", lerr))
	}
	return err
}

// AppConfig holds application configuration
type AppConfig struct {
	logger *zap.Logger
	values Values
}

// NewAppConfig loads the defaults, then the YAML file named by SONOS_CONFIG
// if set, then SONOS_* environment variables, and validates the result.
func NewAppConfig(logger *zap.Logger) (*AppConfig, error) {
	v := Defaults()

	if path := os.Getenv("SONOS_CONFIG"); path != "" {
		if err := loadFile(expandPath(path), &v); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&v); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("Configuration loaded",
		zap.String("searchBackend", v.SearchBackend),
		zap.Duration("discoveryTimeout", v.DiscoveryTimeout),
		zap.Duration("resolveTimeout", v.ResolveTimeout),
		zap.Int("maxConcurrentResolutions", v.MaxConcurrentResolutions),
		zap.Duration("pollInterval", v.PollInterval),
		zap.Float64("pollRate", v.PollRate),
		zap.String("metricsAddr", v.MetricsAddr),
		zap.String("logLevel", v.LogLevel))

	return &AppConfig{logger: logger, values: v}, nil
}

// New wraps already validated values
func New(logger *zap.Logger, v Values) *AppConfig {
	return &AppConfig{logger: logger, values: v}
}

func loadFile(path string, v *Values) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	// keys absent from the file keep their current value
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// expandPath expands environment variables and a leading ~
func expandPath(path string) string {
	path = os.ExpandEnv(path)
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}

func applyEnv(v *Values) error {
	var err error
	if s := os.Getenv("SONOS_SEARCH_BACKEND"); s != "" {
		v.SearchBackend = strings.ToLower(s)
	}
	if s, ok := os.LookupEnv("SONOS_METRICS_ADDR"); ok {
		v.MetricsAddr = s
	}
	if s := os.Getenv("SONOS_LOG_LEVEL"); s != "" {
		v.LogLevel = s
	}
	err = multierr.Append(err, envDuration("SONOS_DISCOVERY_TIMEOUT", &v.DiscoveryTimeout))
	err = multierr.Append(err, envDuration("SONOS_RESOLVE_TIMEOUT", &v.ResolveTimeout))
	err = multierr.Append(err, envDuration("SONOS_POLL_INTERVAL", &v.PollInterval))
	err = multierr.Append(err, envDuration("SONOS_HTTP_TIMEOUT", &v.HTTPTimeout))
	err = multierr.Append(err, envInt("SONOS_MAX_CONCURRENT_RESOLUTIONS", &v.MaxConcurrentResolutions))
	err = multierr.Append(err, envFloat("SONOS_POLL_RATE", &v.PollRate))
	return err
}

func envDuration(name string, dst *time.Duration) error {
	s := os.Getenv(name)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func envInt(name string, dst *int) error {
	s := os.Getenv(name)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

func envFloat(name string, dst *float64) error {
	s := os.Getenv(name)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = f
	return nil
}

// GetSearchBackend returns ssdp or mdns
func (c *AppConfig) GetSearchBackend() string {
	return c.values.SearchBackend
}

// GetDiscoveryTimeout bounds the seed search
func (c *AppConfig) GetDiscoveryTimeout() time.Duration {
	return c.values.DiscoveryTimeout
}

// GetResolveTimeout bounds each peer resolution
func (c *AppConfig) GetResolveTimeout() time.Duration {
	return c.values.ResolveTimeout
}

// GetMaxConcurrentResolutions limits peer resolutions in flight
func (c *AppConfig) GetMaxConcurrentResolutions() int {
	return c.values.MaxConcurrentResolutions
}

// GetPollInterval is the delay between two polls of the household
func (c *AppConfig) GetPollInterval() time.Duration {
	return c.values.PollInterval
}

// GetPollRate caps speaker queries per second
func (c *AppConfig) GetPollRate() float64 {
	return c.values.PollRate
}

// GetHTTPTimeout bounds one HTTP exchange
func (c *AppConfig) GetHTTPTimeout() time.Duration {
	return c.values.HTTPTimeout
}

// GetMetricsAddr returns the metrics listen address
func (c *AppConfig) GetMetricsAddr() string {
	return c.values.MetricsAddr
}

// GetLogLevel returns the configured log level
func (c *AppConfig) GetLogLevel() string {
	return c.values.LogLevel
}
