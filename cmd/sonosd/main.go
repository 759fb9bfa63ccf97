package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/genricoloni/sonos/internal/config"
	"github.com/genricoloni/sonos/internal/domain"
	"github.com/genricoloni/sonos/internal/engine"
	"github.com/genricoloni/sonos/internal/fetcher"
	"github.com/genricoloni/sonos/internal/monitor"
	"github.com/genricoloni/sonos/internal/sonos"
	"github.com/genricoloni/sonos/internal/upnp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AppOptions is the complete dependency graph of the daemon
var AppOptions = fx.Options(
	fx.Provide(
		newLogger,
		fx.Annotate(config.NewAppConfig, fx.As(new(domain.Config))),
		newFetcher,
		newTransport,
		newClient,
		newResolver,
		newSearcher,
		newDiscoverer,
		newMonitor,
		newEngine,
	),

	fx.Invoke(applyLogLevel),
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		AppOptions,
	)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	<-ctx.Done()

	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates the production logger. The level starts at info and is
// adjusted once the configuration is loaded.
func newLogger() (*zap.Logger, zap.AtomicLevel, error) {
	cfg := zap.NewProductionConfig()
	logger, err := cfg.Build()
	if err != nil {
		return nil, cfg.Level, err
	}
	return logger, cfg.Level, nil
}

func applyLogLevel(cfg domain.Config, level zap.AtomicLevel) error {
	lvl, err := zapcore.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

func newFetcher(logger *zap.Logger, cfg domain.Config) domain.Fetcher {
	return fetcher.NewHTTPFetcher(logger, cfg.GetHTTPTimeout())
}

func newTransport(logger *zap.Logger, cfg domain.Config) upnp.Transport {
	return upnp.NewSOAPTransport(logger, cfg.GetHTTPTimeout())
}

func newClient(logger *zap.Logger, transport upnp.Transport) *upnp.Client {
	return upnp.NewClient(logger, transport, sonos.DefaultServices())
}

func newResolver(logger *zap.Logger, f domain.Fetcher) upnp.Resolver {
	return upnp.NewDescriptionResolver(logger, f)
}

// newSearcher picks the seed search backend
func newSearcher(logger *zap.Logger, cfg domain.Config, resolver upnp.Resolver) upnp.Searcher {
	if cfg.GetSearchBackend() == config.BackendMDNS {
		return upnp.NewMDNSSearcher(logger, sonos.MDNSService, resolver)
	}
	return upnp.NewSSDPSearcher(logger, resolver)
}

func newDiscoverer(logger *zap.Logger, cfg domain.Config, searcher upnp.Searcher, resolver upnp.Resolver, client *upnp.Client) *sonos.Discoverer {
	return sonos.NewDiscoverer(logger, searcher, resolver, client,
		sonos.WithResolveTimeout(cfg.GetResolveTimeout()),
		sonos.WithMaxConcurrentResolutions(cfg.GetMaxConcurrentResolutions()))
}

func newMonitor(logger *zap.Logger, cfg domain.Config) *monitor.PollMonitor {
	return monitor.NewPollMonitor(logger, cfg)
}

func newEngine(logger *zap.Logger, mon *monitor.PollMonitor) *engine.Engine {
	return engine.NewEngine(logger, mon)
}

// serveMetrics binds addr synchronously so a bad address fails startup
func serveMetrics(logger *zap.Logger, addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("Metrics endpoint listening", zap.String("addr", ln.Addr().String()))
	return srv, nil
}

// registerHooks sets up application lifecycle hooks
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	cfg domain.Config,
	disc *sonos.Discoverer,
	mon *monitor.PollMonitor,
	eng *engine.Engine,
) {
	// the start context expires with the start timeout, long-running work needs its own
	runCtx, cancel := context.WithCancel(context.Background())
	var metrics *http.Server

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			speakers, err := disc.Discover(ctx, cfg.GetDiscoveryTimeout())
			if err != nil {
				logger.Warn("Discovery failed, starting with no speakers", zap.Error(err))
			}
			for _, sp := range speakers {
				mon.Register(sp)
			}
			logger.Info("Household discovered", zap.Int("speakers", len(speakers)))

			go func() {
				if err := mon.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Monitor failed", zap.Error(err))
				}
			}()
			if err := eng.Start(runCtx); err != nil {
				return err
			}

			if addr := cfg.GetMetricsAddr(); addr != "" {
				if metrics, err = serveMetrics(logger, addr); err != nil {
					return err
				}
			}

			if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
				logger.Warn("Failed to notify systemd", zap.Error(err))
			} else if sent {
				logger.Debug("Readiness sent to systemd")
			}

			logger.Info("Sonos Daemon Started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

			cancel()
			var err error
			err = multierr.Append(err, eng.Stop(ctx))
			err = multierr.Append(err, mon.Stop(ctx))
			if metrics != nil {
				err = multierr.Append(err, metrics.Shutdown(ctx))
			}
			return err
		},
	})
}
