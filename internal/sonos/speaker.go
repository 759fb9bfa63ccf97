package sonos

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/genricoloni/sonos/internal/domain"
	"github.com/genricoloni/sonos/internal/upnp"
	"go.uber.org/zap"
)

// ErrNotZonePlayer is returned when a resolved device is not a Sonos player
var ErrNotZonePlayer = errors.New("device is not a Sonos ZonePlayer")

const (
	notImplemented = "NOT_IMPLEMENTED"
	// faultTransitionNotAvailable is what players answer to Pause while stopped
	faultTransitionNotAvailable = 701
)

// Invoker executes actions on a device.
//
//go:generate mockgen -destination=mocks/invoker_mock.go -package=mocks github.com/genricoloni/sonos/internal/sonos Invoker
type Invoker interface {
	Invoke(ctx context.Context, dev *upnp.Device, svc upnp.ServiceID, action string, args upnp.Args) (upnp.Response, error)
}

// Speaker is a single Sonos player
type Speaker struct {
	logger  *zap.Logger
	device  *upnp.Device
	invoker Invoker
}

// NewSpeaker wraps a device handle. A device of another type fails with a
// KindCapabilityMissing error wrapping ErrNotZonePlayer.
func NewSpeaker(logger *zap.Logger, dev *upnp.Device, invoker Invoker) (*Speaker, error) {
	if dev.DeviceType() != ZonePlayerURN {
		return nil, &upnp.Error{
			Kind:    upnp.KindCapabilityMissing,
			Context: dev.Location() + " (" + dev.DeviceType() + ")",
			Element: ZonePlayerURN,
			Cause:   ErrNotZonePlayer,
		}
	}
	return &Speaker{
		logger:  logger.With(zap.String("speaker", dev.Location())),
		device:  dev,
		invoker: invoker,
	}, nil
}

// Device returns the underlying handle
func (s *Speaker) Device() *upnp.Device { return s.device }

// UUID returns the RINCON identifier used in topology documents
func (s *Speaker) UUID() string {
	return strings.TrimPrefix(s.device.UDN(), "uuid:")
}

func (s *Speaker) action(ctx context.Context, svc upnp.ServiceID, action string, args upnp.Args) (upnp.Response, error) {
	return s.invoker.Invoke(ctx, s.device, svc, action, args)
}

func (s *Speaker) exec(ctx context.Context, svc upnp.ServiceID, action string, args upnp.Args) error {
	_, err := s.action(ctx, svc, action, args)
	return err
}

func instance() upnp.Args {
	return upnp.NewArgs().Uint("InstanceID", 0)
}

func master() upnp.Args {
	return instance().String("Channel", "Master")
}

// Name returns the room name
func (s *Speaker) Name(ctx context.Context) (string, error) {
	resp, err := s.action(ctx, DeviceProperties, "GetZoneAttributes", upnp.NewArgs())
	if err != nil {
		return "", err
	}
	return resp.Extract("CurrentZoneName")
}

// Stop stops playback
func (s *Speaker) Stop(ctx context.Context) error {
	return s.exec(ctx, AVTransport, "Stop", instance())
}

// Play starts or resumes playback
func (s *Speaker) Play(ctx context.Context) error {
	return s.exec(ctx, AVTransport, "Play", instance().Uint("Speed", 1))
}

// Pause pauses playback. Players reject Pause while already stopped; that
// answer is treated as success since the speaker is already not playing.
func (s *Speaker) Pause(ctx context.Context) error {
	err := s.exec(ctx, AVTransport, "Pause", instance())
	if err == nil {
		return nil
	}
	if code, ok := upnp.FaultCode(err); ok && code == faultTransitionNotAvailable {
		s.logger.Debug("Pause ignored, speaker already stopped", zap.Int("code", code))
		return nil
	}
	if status, ok := upnp.HTTPStatus(err); ok && status == http.StatusInternalServerError {
		s.logger.Debug("Pause ignored, speaker already stopped", zap.Int("status", status))
		return nil
	}
	return err
}

// Next skips to the next track
func (s *Speaker) Next(ctx context.Context) error {
	return s.exec(ctx, AVTransport, "Next", instance())
}

// Previous goes back to the previous track
func (s *Speaker) Previous(ctx context.Context) error {
	return s.exec(ctx, AVTransport, "Previous", instance())
}

// SkipTo seeks to an absolute position in the current track
func (s *Speaker) SkipTo(ctx context.Context, position time.Duration) error {
	args := instance().String("Unit", "REL_TIME").Duration("Target", position)
	return s.exec(ctx, AVTransport, "Seek", args)
}

// SkipBy seeks relative to the current position; negative values rewind
func (s *Speaker) SkipBy(ctx context.Context, delta time.Duration) error {
	args := instance().String("Unit", "TIME_DELTA").Delta("Target", delta)
	return s.exec(ctx, AVTransport, "Seek", args)
}

// SeekTrack jumps to a 1-based queue position
func (s *Speaker) SeekTrack(ctx context.Context, trackNumber uint32) error {
	args := instance().String("Unit", "TRACK_NR").Uint("Target", uint64(trackNumber))
	return s.exec(ctx, AVTransport, "Seek", args)
}

var playModes = map[string]struct {
	repeat  domain.RepeatMode
	shuffle bool
}{
	"NORMAL":             {domain.RepeatNone, false},
	"REPEAT_ALL":         {domain.RepeatAll, false},
	"REPEAT_ONE":         {domain.RepeatOne, false},
	"SHUFFLE_NOREPEAT":   {domain.RepeatNone, true},
	"SHUFFLE":            {domain.RepeatAll, true},
	"SHUFFLE_REPEAT_ONE": {domain.RepeatOne, true},
}

func playModeName(repeat domain.RepeatMode, shuffle bool) string {
	for name, m := range playModes {
		if m.repeat == repeat && m.shuffle == shuffle {
			return name
		}
	}
	return "NORMAL"
}

func (s *Speaker) playbackMode(ctx context.Context) (domain.RepeatMode, bool, error) {
	resp, err := s.action(ctx, AVTransport, "GetTransportSettings", instance())
	if err != nil {
		return domain.RepeatNone, false, err
	}
	mode, err := resp.Extract("PlayMode")
	if err != nil {
		return domain.RepeatNone, false, err
	}
	m, ok := playModes[strings.ToUpper(mode)]
	if !ok {
		return domain.RepeatNone, false, upnp.ParseError("PlayMode", mode, nil)
	}
	return m.repeat, m.shuffle, nil
}

func (s *Speaker) setPlaybackMode(ctx context.Context, repeat domain.RepeatMode, shuffle bool) error {
	args := instance().String("NewPlayMode", playModeName(repeat, shuffle))
	return s.exec(ctx, AVTransport, "SetPlayMode", args)
}

// RepeatMode returns how the queue repeats
func (s *Speaker) RepeatMode(ctx context.Context) (domain.RepeatMode, error) {
	repeat, _, err := s.playbackMode(ctx)
	return repeat, err
}

// Shuffle reports whether the queue is shuffled
func (s *Speaker) Shuffle(ctx context.Context) (bool, error) {
	_, shuffle, err := s.playbackMode(ctx)
	return shuffle, err
}

// SetRepeatMode changes the repeat mode and keeps shuffle as it is
func (s *Speaker) SetRepeatMode(ctx context.Context, repeat domain.RepeatMode) error {
	shuffle, err := s.Shuffle(ctx)
	if err != nil {
		return err
	}
	return s.setPlaybackMode(ctx, repeat, shuffle)
}

// SetShuffle toggles shuffle and keeps the repeat mode as it is
func (s *Speaker) SetShuffle(ctx context.Context, shuffle bool) error {
	repeat, err := s.RepeatMode(ctx)
	if err != nil {
		return err
	}
	return s.setPlaybackMode(ctx, repeat, shuffle)
}

// Crossfade reports whether crossfading is enabled
func (s *Speaker) Crossfade(ctx context.Context) (bool, error) {
	resp, err := s.action(ctx, AVTransport, "GetCrossfadeMode", instance())
	if err != nil {
		return false, err
	}
	return resp.Bool("CrossfadeMode")
}

// SetCrossfade enables or disables crossfading
func (s *Speaker) SetCrossfade(ctx context.Context, crossfade bool) error {
	return s.exec(ctx, AVTransport, "SetCrossfadeMode", instance().Bool("CrossfadeMode", crossfade))
}

// TransportState returns the raw transport state
func (s *Speaker) TransportState(ctx context.Context) (domain.TransportState, error) {
	resp, err := s.action(ctx, AVTransport, "GetTransportInfo", instance())
	if err != nil {
		return "", err
	}
	state, err := resp.Extract("CurrentTransportState")
	if err != nil {
		return "", err
	}
	return domain.TransportState(strings.ToUpper(state)), nil
}

// IsPlaying reports whether the transport state is PLAYING
func (s *Speaker) IsPlaying(ctx context.Context) (bool, error) {
	state, err := s.TransportState(ctx)
	if err != nil {
		return false, err
	}
	return state == domain.StatePlaying, nil
}

// Track returns the current track, or nil when the speaker reports no
// position (empty queue, line-in, some radio streams).
func (s *Speaker) Track(ctx context.Context) (*domain.TrackInfo, error) {
	resp, err := s.action(ctx, AVTransport, "GetPositionInfo", instance())
	if err != nil {
		return nil, err
	}

	trackNo, err := resp.Uint("Track", 32)
	if err != nil {
		return nil, err
	}
	rawDuration, err := resp.Extract("TrackDuration")
	if err != nil {
		return nil, err
	}
	rawElapsed, err := resp.Extract("RelTime")
	if err != nil {
		return nil, err
	}
	if trackNo == 0 ||
		strings.EqualFold(rawDuration, notImplemented) ||
		strings.EqualFold(rawElapsed, notImplemented) {
		return nil, nil
	}

	metadata, err := resp.Extract("TrackMetaData")
	if err != nil {
		return nil, err
	}
	if metadata == "" || strings.EqualFold(metadata, notImplemented) {
		return nil, nil
	}

	duration, err := upnp.ParseDuration(rawDuration)
	if err != nil {
		return nil, err
	}
	elapsed, err := upnp.ParseDuration(rawElapsed)
	if err != nil {
		return nil, err
	}
	track, err := ParseTrack(metadata)
	if err != nil {
		return nil, err
	}

	return &domain.TrackInfo{
		Track:       track,
		TrackNumber: uint32(trackNo),
		Duration:    duration,
		Elapsed:     elapsed,
	}, nil
}

// TransportURI returns the currently selected source
func (s *Speaker) TransportURI(ctx context.Context) (string, error) {
	resp, err := s.action(ctx, AVTransport, "GetMediaInfo", instance())
	if err != nil {
		return "", err
	}
	return resp.Extract("CurrentURI")
}

// SetTransportURI selects a new source. metadata may be empty.
func (s *Speaker) SetTransportURI(ctx context.Context, uri, metadata string) error {
	args := instance().String("CurrentURI", uri).String("CurrentURIMetaData", metadata)
	return s.exec(ctx, AVTransport, "SetAVTransportURI", args)
}

// Volume returns the master volume, 0-100
func (s *Speaker) Volume(ctx context.Context) (uint16, error) {
	resp, err := s.action(ctx, RenderingControl, "GetVolume", master())
	if err != nil {
		return 0, err
	}
	v, err := resp.Uint("CurrentVolume", 16)
	return uint16(v), err
}

// SetVolume sets the master volume
func (s *Speaker) SetVolume(ctx context.Context, volume uint16) error {
	return s.exec(ctx, RenderingControl, "SetVolume", master().Uint("DesiredVolume", uint64(volume)))
}

// SetVolumeRelative adjusts the volume and returns the resulting level
func (s *Speaker) SetVolumeRelative(ctx context.Context, adjustment int32) (uint16, error) {
	resp, err := s.action(ctx, RenderingControl, "SetRelativeVolume", master().Int("Adjustment", int64(adjustment)))
	if err != nil {
		return 0, err
	}
	v, err := resp.Uint("NewVolume", 16)
	return uint16(v), err
}

// Mute reports whether the speaker is muted
func (s *Speaker) Mute(ctx context.Context) (bool, error) {
	resp, err := s.action(ctx, RenderingControl, "GetMute", master())
	if err != nil {
		return false, err
	}
	return resp.Bool("CurrentMute")
}

// SetMute mutes or unmutes
func (s *Speaker) SetMute(ctx context.Context, mute bool) error {
	return s.exec(ctx, RenderingControl, "SetMute", master().Bool("DesiredMute", mute))
}

// Bass returns the bass level, -10 to 10
func (s *Speaker) Bass(ctx context.Context) (int16, error) {
	resp, err := s.action(ctx, RenderingControl, "GetBass", instance())
	if err != nil {
		return 0, err
	}
	v, err := resp.Int("CurrentBass", 16)
	return int16(v), err
}

// SetBass sets the bass level
func (s *Speaker) SetBass(ctx context.Context, bass int16) error {
	return s.exec(ctx, RenderingControl, "SetBass", instance().Int("DesiredBass", int64(bass)))
}

// Treble returns the treble level, -10 to 10
func (s *Speaker) Treble(ctx context.Context) (int16, error) {
	resp, err := s.action(ctx, RenderingControl, "GetTreble", instance())
	if err != nil {
		return 0, err
	}
	v, err := resp.Int("CurrentTreble", 16)
	return int16(v), err
}

// SetTreble sets the treble level
func (s *Speaker) SetTreble(ctx context.Context, treble int16) error {
	return s.exec(ctx, RenderingControl, "SetTreble", instance().Int("DesiredTreble", int64(treble)))
}

// Loudness reports whether loudness compensation is on
func (s *Speaker) Loudness(ctx context.Context) (bool, error) {
	resp, err := s.action(ctx, RenderingControl, "GetLoudness", master())
	if err != nil {
		return false, err
	}
	return resp.Bool("CurrentLoudness")
}

// SetLoudness toggles loudness compensation
func (s *Speaker) SetLoudness(ctx context.Context, loudness bool) error {
	return s.exec(ctx, RenderingControl, "SetLoudness", master().Bool("DesiredLoudness", loudness))
}

// Queue returns every track in the queue
func (s *Speaker) Queue(ctx context.Context) ([]domain.Track, error) {
	args := upnp.NewArgs().
		Uint("QueueID", 0).
		Uint("StartingIndex", 0).
		Uint("RequestedCount", math.MaxUint32)
	resp, err := s.action(ctx, Queue, "Browse", args)
	if err != nil {
		return nil, err
	}
	result, err := resp.Extract("Result")
	if err != nil {
		return nil, err
	}
	return ParseQueue(result)
}

// ClearQueue removes every track from the queue
func (s *Speaker) ClearQueue(ctx context.Context) error {
	return s.exec(ctx, AVTransport, "RemoveAllTracksFromQueue", instance())
}

// GroupTopology returns every zone group known to this speaker, which is the
// whole household.
func (s *Speaker) GroupTopology(ctx context.Context) (domain.Topology, error) {
	resp, err := s.action(ctx, ZoneGroupTopology, "GetZoneGroupState", upnp.NewArgs())
	if err != nil {
		return nil, err
	}
	state, err := resp.Extract("ZoneGroupState")
	if err != nil {
		return nil, err
	}
	return ParseTopology(state)
}

// Join makes this speaker a member of the group coordinated by uuid.
// uuid is the bare RINCON identifier without the x-rincon: scheme.
func (s *Speaker) Join(ctx context.Context, uuid string) error {
	return s.SetTransportURI(ctx, "x-rincon:"+uuid, "")
}

// Leave takes this speaker out of its group
func (s *Speaker) Leave(ctx context.Context) error {
	return s.exec(ctx, AVTransport, "BecomeCoordinatorOfStandaloneGroup", instance())
}

// Snapshot captures the speaker's transient state
func (s *Speaker) Snapshot(ctx context.Context) (*Snapshot, error) {
	return Capture(ctx, s)
}

// Apply restores a snapshot. See Snapshot.Apply for failure semantics.
func (s *Speaker) Apply(ctx context.Context, snap *Snapshot) error {
	return snap.Apply(ctx, s)
}
