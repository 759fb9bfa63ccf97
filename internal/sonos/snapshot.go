package sonos

import (
	"context"
	"strings"

	"github.com/genricoloni/sonos/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// vliScheme marks line-in and TV sources that cannot be re-selected from the outside
const vliScheme = "x-sonos-vli"

// Field selects a part of the speaker state to capture
type Field uint8

const (
	FieldVolume Field = 1 << iota
	FieldPlaying
	FieldTrack
	FieldTransportURI

	FieldAll = FieldVolume | FieldPlaying | FieldTrack | FieldTransportURI
)

// Snapshot is a captured subset of a speaker's transient state. Absent fields
// are left untouched by Apply.
type Snapshot struct {
	volume       *uint16
	isPlaying    *bool
	trackInfo    *domain.TrackInfo
	transportURI *string
}

// Volume returns the captured volume
func (s *Snapshot) Volume() (uint16, bool) {
	if s.volume == nil {
		return 0, false
	}
	return *s.volume, true
}

// IsPlaying returns the captured playing flag
func (s *Snapshot) IsPlaying() (bool, bool) {
	if s.isPlaying == nil {
		return false, false
	}
	return *s.isPlaying, true
}

// TrackInfo returns the captured track position; nil when absent or when
// the speaker had no current track.
func (s *Snapshot) TrackInfo() *domain.TrackInfo {
	return s.trackInfo
}

// TransportURI returns the captured source
func (s *Snapshot) TransportURI() (string, bool) {
	if s.transportURI == nil {
		return "", false
	}
	return *s.transportURI, true
}

// SnapshotBuilder assembles a snapshot from caller-provided values
type SnapshotBuilder struct {
	snap Snapshot
}

// NewSnapshotBuilder starts an empty snapshot
func NewSnapshotBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{}
}

// Volume sets the volume to restore
func (b *SnapshotBuilder) Volume(v uint16) *SnapshotBuilder {
	b.snap.volume = &v
	return b
}

// Playing sets the transport state to end in
func (b *SnapshotBuilder) Playing(playing bool) *SnapshotBuilder {
	b.snap.isPlaying = &playing
	return b
}

// TrackInfo sets the queue position and offset to seek to
func (b *SnapshotBuilder) TrackInfo(info domain.TrackInfo) *SnapshotBuilder {
	b.snap.trackInfo = &info
	return b
}

// TransportURI sets the source to select
func (b *SnapshotBuilder) TransportURI(uri string) *SnapshotBuilder {
	b.snap.transportURI = &uri
	return b
}

// Build returns the snapshot. The builder can be reused; later changes do
// not affect snapshots already built.
func (b *SnapshotBuilder) Build() *Snapshot {
	s := b.snap
	return &s
}

// Capture reads the selected fields concurrently. With no fields, everything
// is captured. Any failed read fails the capture.
func Capture(ctx context.Context, sp *Speaker, fields ...Field) (*Snapshot, error) {
	var want Field
	for _, f := range fields {
		want |= f
	}
	if want == 0 {
		want = FieldAll
	}

	// each goroutine writes its own field, so no locking is needed
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	if want&FieldVolume != 0 {
		g.Go(func() error {
			v, err := sp.Volume(gctx)
			if err != nil {
				return err
			}
			snap.volume = &v
			return nil
		})
	}
	if want&FieldTrack != 0 {
		g.Go(func() error {
			info, err := sp.Track(gctx)
			if err != nil {
				return err
			}
			snap.trackInfo = info
			return nil
		})
	}
	if want&FieldPlaying != 0 {
		g.Go(func() error {
			playing, err := sp.IsPlaying(gctx)
			if err != nil {
				return err
			}
			snap.isPlaying = &playing
			return nil
		})
	}
	if want&FieldTransportURI != 0 {
		g.Go(func() error {
			uri, err := sp.TransportURI(gctx)
			if err != nil {
				return err
			}
			snap.transportURI = &uri
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sp.logger.Debug("Snapshot captured",
		zap.Bool("volume", snap.volume != nil),
		zap.Bool("playing", snap.isPlaying != nil),
		zap.Bool("track", snap.trackInfo != nil),
		zap.Bool("transportURI", snap.transportURI != nil))
	return &snap, nil
}

// Apply restores the snapshot in a fixed order: volume, transport URI, track
// position, then play or pause so the speaker ends in the captured state.
// It is not transactional: the first failure aborts and steps already
// applied stay applied.
func (s *Snapshot) Apply(ctx context.Context, sp *Speaker) error {
	if s.volume != nil {
		if err := sp.SetVolume(ctx, *s.volume); err != nil {
			return err
		}
	}

	if s.transportURI != nil {
		if strings.HasPrefix(*s.transportURI, vliScheme) {
			sp.logger.Warn("Unsupported transport uri, not restoring it",
				zap.String("scheme", vliScheme))
		} else if err := sp.SetTransportURI(ctx, *s.transportURI, ""); err != nil {
			return err
		}
	}

	if s.trackInfo != nil {
		// queue position and offset are independent, seek both at once
		g, gctx := errgroup.WithContext(ctx)
		info := *s.trackInfo
		g.Go(func() error {
			return sp.SeekTrack(gctx, info.TrackNumber)
		})
		g.Go(func() error {
			return sp.SkipTo(gctx, info.Elapsed)
		})
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if s.isPlaying != nil {
		if *s.isPlaying {
			return sp.Play(ctx)
		}
		return sp.Pause(ctx)
	}
	return nil
}
