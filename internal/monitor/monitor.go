package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/sonos/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const eventBuffer = 10

// PollMonitor watches speakers by polling their transport state and position.
// Sonos players only push changes over GENA subscriptions, which need a
// callback server reachable from every player; polling works from anywhere.
type PollMonitor struct {
	logger      *zap.Logger
	interval    time.Duration
	limiter     *rate.Limiter // Caps queries across all speakers
	dropWarning rate.Sometimes
	events      chan domain.NowPlaying
	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup               // Tracks the poll loop
	players     map[string]Player            // Keyed by lower-cased UUID
	names       map[string]string            // Room names, fetched once per speaker
	last        map[string]domain.NowPlaying // Last emitted state per speaker
}

// NewPollMonitor creates a monitor with no speakers registered
func NewPollMonitor(logger *zap.Logger, cfg domain.Config) *PollMonitor {
	limit := rate.Inf
	if r := cfg.GetPollRate(); r > 0 {
		limit = rate.Limit(r)
	}
	return &PollMonitor{
		logger:      logger,
		interval:    cfg.GetPollInterval(),
		limiter:     rate.NewLimiter(limit, 1),
		dropWarning: rate.Sometimes{Interval: 5 * time.Second},
		events:      make(chan domain.NowPlaying, eventBuffer),
		players:     make(map[string]Player),
		names:       make(map[string]string),
		last:        make(map[string]domain.NowPlaying),
	}
}

// Register adds a speaker to the polled set, replacing any speaker with the
// same UUID. Safe to call while running.
func (m *PollMonitor) Register(p Player) {
	key := strings.ToLower(p.UUID())
	m.mu.Lock()
	m.players[key] = p
	m.mu.Unlock()

	m.logger.Info("Speaker registered", zap.String("uuid", p.UUID()))
}

// Unregister stops polling a speaker and forgets its last state
func (m *PollMonitor) Unregister(uuid string) {
	key := strings.ToLower(uuid)
	m.mu.Lock()
	delete(m.players, key)
	delete(m.names, key)
	delete(m.last, key)
	m.mu.Unlock()
}

// Start begins polling and blocks until ctx is cancelled or Stop is called
func (m *PollMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true

	monitorCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	speakers := len(m.players)
	m.mu.Unlock()

	m.logger.Info("Poll monitor started",
		zap.Duration("interval", m.interval),
		zap.Int("speakers", speakers))

	go m.pollLoop(monitorCtx)

	<-monitorCtx.Done()

	m.logger.Info("Poll monitor stopped")
	return monitorCtx.Err()
}

// Stop cancels polling, waits for the loop to exit and closes the events channel
func (m *PollMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.mu.Unlock()

	// the loop is the only sender, close only once it is gone
	m.wg.Wait()
	close(m.events)

	m.logger.Info("Poll monitor shutdown complete")
	return nil
}

// Events returns a read-only channel that emits NowPlaying on every change
func (m *PollMonitor) Events() <-chan domain.NowPlaying {
	return m.events
}

func (m *PollMonitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollAll(ctx)
		}
	}
}

func (m *PollMonitor) pollAll(ctx context.Context) {
	m.mu.RLock()
	players := make([]Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.RUnlock()

	for _, p := range players {
		if err := m.limiter.Wait(ctx); err != nil {
			return
		}
		if err := m.poll(ctx, p); err != nil && ctx.Err() == nil {
			m.logger.Warn("Failed to poll speaker",
				zap.String("uuid", p.UUID()),
				zap.Error(err))
		}
	}
}

// poll reads one speaker and emits an event if it changed since the last poll
func (m *PollMonitor) poll(ctx context.Context, p Player) error {
	uuid := p.UUID()
	key := strings.ToLower(uuid)

	name, err := m.name(ctx, key, p)
	if err != nil {
		return fmt.Errorf("failed to get room name: %w", err)
	}
	state, err := p.TransportState(ctx)
	if err != nil {
		return fmt.Errorf("failed to get transport state: %w", err)
	}
	track, err := p.Track(ctx)
	if err != nil {
		return fmt.Errorf("failed to get track: %w", err)
	}

	event := domain.NowPlaying{
		SpeakerUUID: uuid,
		SpeakerName: name,
		State:       state,
		Track:       track,
	}

	m.mu.Lock()
	prev, seen := m.last[key]
	if seen && !changed(prev, event) {
		m.mu.Unlock()
		return nil
	}
	m.last[key] = event
	m.mu.Unlock()

	m.logger.Debug("Speaker changed",
		zap.String("speaker", name),
		zap.String("state", string(state)),
		zap.Bool("hasTrack", track != nil))

	m.emit(event)
	return nil
}

func (m *PollMonitor) name(ctx context.Context, key string, p Player) (string, error) {
	m.mu.RLock()
	name, ok := m.names[key]
	m.mu.RUnlock()
	if ok {
		return name, nil
	}

	name, err := p.Name(ctx)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.names[key] = name
	m.mu.Unlock()
	return name, nil
}

// changed ignores the elapsed time, which moves on every poll while playing
func changed(prev, next domain.NowPlaying) bool {
	if prev.State != next.State {
		return true
	}
	if (prev.Track == nil) != (next.Track == nil) {
		return true
	}
	if prev.Track == nil {
		return false
	}
	return prev.Track.TrackNumber != next.Track.TrackNumber ||
		prev.Track.Track.URI != next.Track.Track.URI ||
		prev.Track.Track.Title != next.Track.Track.Title
}

// emit never blocks the poll loop; a slow consumer loses events
func (m *PollMonitor) emit(event domain.NowPlaying) {
	select {
	case m.events <- event:
	default:
		m.dropWarning.Do(func() {
			m.logger.Warn("Events channel full, dropping update",
				zap.String("speaker", event.SpeakerName))
		})
	}
}
