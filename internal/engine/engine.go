package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/sonos/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	nowPlayingGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sonos_now_playing",
			Help: "1 while the speaker is playing, 0 otherwise",
		},
		[]string{"speaker"},
	)
	trackChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonos_track_changes_total",
			Help: "Number of track changes observed per speaker",
		},
		[]string{"speaker"},
	)
)

const defaultDebounce = 500 * time.Millisecond

// Engine consumes monitor events and keeps the household's now-playing view.
type Engine struct {
	logger   *zap.Logger
	monitor  domain.Monitor
	debounce time.Duration

	mu      sync.RWMutex
	current map[string]domain.NowPlaying // keyed by lower-cased speaker UUID
}

// NewEngine creates a new engine reading from mon
func NewEngine(logger *zap.Logger, mon domain.Monitor) *Engine {
	return &Engine{
		logger:   logger,
		monitor:  mon,
		debounce: defaultDebounce,
		current:  make(map[string]domain.NowPlaying),
	}
}

// Start launches the event loop in a goroutine and returns immediately.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Engine starting...")
	go e.runLoop(ctx)
	return nil
}

// runLoop debounces events per speaker: skipping through a queue produces a
// burst of changes and only the last one of each speaker is kept.
func (e *Engine) runLoop(ctx context.Context) {
	events := e.monitor.Events()

	timer := time.NewTimer(e.debounce)
	timer.Stop()

	pending := make(map[string]domain.NowPlaying)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case event, ok := <-events:
			if !ok {
				e.logger.Info("Monitor events channel closed")
				return
			}
			e.logger.Debug("Event received, debouncing...",
				zap.String("speaker", event.SpeakerName),
				zap.String("state", string(event.State)))

			pending[strings.ToLower(event.SpeakerUUID)] = event
			timer.Reset(e.debounce)

		case <-timer.C:
			for key, event := range pending {
				e.process(event)
				delete(pending, key)
			}
		}
	}
}

func (e *Engine) process(event domain.NowPlaying) {
	key := strings.ToLower(event.SpeakerUUID)

	// only the loop goroutine writes current
	e.mu.RLock()
	prev, seen := e.current[key]
	e.mu.RUnlock()

	playing := 0.0
	if event.State == domain.StatePlaying {
		playing = 1
	}
	nowPlayingGauge.WithLabelValues(event.SpeakerName).Set(playing)

	if event.Track != nil && (!seen || prev.Track == nil || prev.Track.Track.URI != event.Track.Track.URI) {
		trackChanges.WithLabelValues(event.SpeakerName).Inc()
	}

	e.mu.Lock()
	e.current[key] = event
	e.mu.Unlock()

	if event.Track == nil {
		e.logger.Info("Nothing playing",
			zap.String("speaker", event.SpeakerName),
			zap.String("state", string(event.State)))
		return
	}

	e.logger.Info("Now playing",
		zap.String("speaker", event.SpeakerName),
		zap.String("state", string(event.State)),
		zap.String("track", event.Track.Track.String()),
		zap.Uint32("position", event.Track.TrackNumber),
		zap.Duration("elapsed", event.Track.Elapsed),
		zap.Duration("duration", event.Track.Duration))
}

// Current returns the latest known state of every speaker, sorted by name
func (e *Engine) Current() []domain.NowPlaying {
	e.mu.RLock()
	out := make([]domain.NowPlaying, 0, len(e.current))
	for _, np := range e.current {
		out = append(out, np)
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SpeakerName < out[j].SpeakerName })
	return out
}

// Stop logs shutdown. The loop exits on its own once its context is done or
// the monitor closes its channel.
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...",
		zap.Int("speakers", len(e.Current())))
	return nil
}
