package monitor

import (
	"context"

	"github.com/genricoloni/sonos/internal/domain"
)

// Player is the part of a speaker the monitor reads.
// This abstraction allows us to mock speakers in tests.
//
//go:generate mockgen -destination=mocks/player_mock.go -package=mocks github.com/genricoloni/sonos/internal/monitor Player
type Player interface {
	// UUID identifies the speaker across polls
	UUID() string

	// Name returns the room name
	Name(ctx context.Context) (string, error)

	// TransportState returns PLAYING, PAUSED_PLAYBACK, STOPPED...
	TransportState(ctx context.Context) (domain.TransportState, error)

	// Track returns the current position, nil when nothing is loaded
	Track(ctx context.Context) (*domain.TrackInfo, error)
}
