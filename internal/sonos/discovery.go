package sonos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/sonos/internal/domain"
	"github.com/genricoloni/sonos/internal/upnp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is one resolved peer of a streaming discovery
type Result struct {
	Speaker *Speaker
	Err     error
}

// Discoverer finds every speaker of a household from a single seed: the
// seed's topology already lists all peers, so only the seed is searched for.
type Discoverer struct {
	logger         *zap.Logger
	searcher       upnp.Searcher
	resolver       upnp.Resolver
	invoker        Invoker
	resolveTimeout time.Duration
	maxConcurrent  int
}

// DiscovererOption configures a Discoverer
type DiscovererOption func(*Discoverer)

// WithResolveTimeout bounds every peer resolution. Zero leaves them unbounded.
func WithResolveTimeout(d time.Duration) DiscovererOption {
	return func(r *Discoverer) { r.resolveTimeout = d }
}

// WithMaxConcurrentResolutions limits resolutions in flight. Zero is unbounded.
func WithMaxConcurrentResolutions(n int) DiscovererOption {
	return func(r *Discoverer) { r.maxConcurrent = n }
}

// NewDiscoverer creates a discoverer
func NewDiscoverer(logger *zap.Logger, searcher upnp.Searcher, resolver upnp.Resolver, invoker Invoker, opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{
		logger:   logger,
		searcher: searcher,
		resolver: resolver,
		invoker:  invoker,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// peers runs the seed phase and returns the flattened topology, or nil when
// no speaker answered.
func (d *Discoverer) peers(ctx context.Context, timeout time.Duration) ([]domain.SpeakerInfo, error) {
	devices, err := d.searcher.Search(ctx, ZonePlayerURN, timeout)
	if err != nil {
		return nil, fmt.Errorf("seed search: %w", err)
	}
	if len(devices) == 0 {
		d.logger.Info("No speakers answered the search", zap.Duration("timeout", timeout))
		return nil, nil
	}

	seed, err := NewSpeaker(d.logger, devices[0], d.invoker)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	topology, err := seed.GroupTopology(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed topology: %w", err)
	}

	peers := topology.Speakers()
	d.logger.Info("Topology resolved from seed",
		zap.String("seed", seed.Device().Location()),
		zap.Int("groups", len(topology)),
		zap.Int("speakers", len(peers)))
	return peers, nil
}

func (d *Discoverer) resolvePeer(ctx context.Context, info domain.SpeakerInfo) (*Speaker, error) {
	if d.resolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.resolveTimeout)
		defer cancel()
	}
	dev, err := d.resolver.Resolve(ctx, info.Location)
	if err != nil {
		return nil, fmt.Errorf("resolve %s (%s): %w", info.Name, info.Location, err)
	}
	sp, err := NewSpeaker(d.logger, dev, d.invoker)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", info.Name, err)
	}
	return sp, nil
}

// Discover returns every speaker in the household. Speakers arrive in no
// particular order. The first failed peer resolution fails the whole call
// and cancels the others. No answer within timeout yields an empty result.
func (d *Discoverer) Discover(ctx context.Context, timeout time.Duration) ([]*Speaker, error) {
	peers, err := d.peers(ctx, timeout)
	if err != nil || len(peers) == 0 {
		return nil, err
	}

	var mu sync.Mutex
	speakers := make([]*Speaker, 0, len(peers))

	g, gctx := errgroup.WithContext(ctx)
	if d.maxConcurrent > 0 {
		g.SetLimit(d.maxConcurrent)
	}
	for _, p := range peers {
		g.Go(func() error {
			sp, err := d.resolvePeer(gctx, p)
			if err != nil {
				return err
			}
			mu.Lock()
			speakers = append(speakers, sp)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return speakers, nil
}

// DiscoverStream yields peers as they resolve. A failed resolution is
// yielded in place and the stream continues. Cancelling ctx stops further
// resolutions; the channel is closed once every started resolution has
// finished.
func (d *Discoverer) DiscoverStream(ctx context.Context, timeout time.Duration) (<-chan Result, error) {
	peers, err := d.peers(ctx, timeout)
	if err != nil {
		return nil, err
	}

	out := make(chan Result)
	go func() {
		defer close(out)

		var sem chan struct{}
		if d.maxConcurrent > 0 {
			sem = make(chan struct{}, d.maxConcurrent)
		}

		var wg sync.WaitGroup
	spawn:
		for _, p := range peers {
			if sem != nil {
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					break spawn
				}
			}
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if sem != nil {
					defer func() { <-sem }()
				}
				sp, err := d.resolvePeer(ctx, p)
				select {
				case out <- Result{Speaker: sp, Err: err}:
				case <-ctx.Done():
				}
			}()
		}
		wg.Wait()
	}()
	return out, nil
}

// Find discovers the household and returns the first speaker whose room name
// matches name ignoring case, or nil. A failed name query aborts the search.
func (d *Discoverer) Find(ctx context.Context, name string, timeout time.Duration) (*Speaker, error) {
	speakers, err := d.Discover(ctx, timeout)
	if err != nil {
		return nil, err
	}
	for _, sp := range speakers {
		n, err := sp.Name(ctx)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(n, name) {
			return sp, nil
		}
	}
	return nil, nil
}

// FromIP resolves the player at addr. It returns nil without error when the
// device answers but is not a Sonos player.
func (d *Discoverer) FromIP(ctx context.Context, addr string) (*Speaker, error) {
	dev, err := d.resolver.Resolve(ctx, upnp.DescriptionURL(addr))
	if err != nil {
		return nil, err
	}
	sp, err := NewSpeaker(d.logger, dev, d.invoker)
	if errors.Is(err, ErrNotZonePlayer) {
		return nil, nil
	}
	return sp, err
}
