package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransportState is the AVTransport state reported by a speaker
type TransportState string

const (
	// StatePlaying indicates the speaker is playing
	StatePlaying TransportState = "PLAYING"
	// StatePaused indicates playback is paused
	StatePaused TransportState = "PAUSED_PLAYBACK"
	// StateStopped indicates playback is stopped
	StateStopped TransportState = "STOPPED"
	// StateTransitioning is reported while the speaker buffers or changes source
	StateTransitioning TransportState = "TRANSITIONING"
	// StateNoMedia is reported when nothing is loaded
	StateNoMedia TransportState = "NO_MEDIA_PRESENT"
)

// RepeatMode describes how a speaker repeats its queue
type RepeatMode int

const (
	// RepeatNone plays the queue once
	RepeatNone RepeatMode = iota
	// RepeatOne repeats the current track
	RepeatOne
	// RepeatAll repeats the whole queue
	RepeatAll
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatOne:
		return "One"
	case RepeatAll:
		return "All"
	default:
		return "None"
	}
}

// ParseRepeatMode accepts none, one or all in any case
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(s) {
	case "none":
		return RepeatNone, nil
	case "one":
		return RepeatOne, nil
	case "all":
		return RepeatAll, nil
	}
	return RepeatNone, fmt.Errorf("invalid repeat mode %q: want none, one or all", s)
}

// SpeakerInfo is the lightweight peer descriptor found in a zone group topology.
// Two records describe the same speaker when their UUIDs match ignoring case.
type SpeakerInfo struct {
	Name     string
	UUID     string
	Location string
}

// Equal reports whether both records refer to the same speaker
func (s SpeakerInfo) Equal(other SpeakerInfo) bool {
	return strings.EqualFold(s.UUID, other.UUID)
}

// Key is the identity of the speaker, usable as a map key
func (s SpeakerInfo) Key() string {
	return strings.ToLower(s.UUID)
}

// TopologyGroup is one zone group: its coordinator and every member, the
// coordinator included.
type TopologyGroup struct {
	Coordinator string
	Members     []SpeakerInfo
}

// Topology is the ordered list of zone groups reported by a speaker
type Topology []TopologyGroup

// Lookup returns the group coordinated by uuid
func (t Topology) Lookup(uuid string) (TopologyGroup, bool) {
	for _, g := range t {
		if strings.EqualFold(g.Coordinator, uuid) {
			return g, true
		}
	}
	return TopologyGroup{}, false
}

// Speakers flattens every group into one list without duplicates, keeping
// the first occurrence of each speaker.
func (t Topology) Speakers() []SpeakerInfo {
	seen := make(map[string]struct{})
	var out []SpeakerInfo
	for _, g := range t {
		for _, m := range g.Members {
			if _, ok := seen[m.Key()]; ok {
				continue
			}
			seen[m.Key()] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// Track is a single playable item
type Track struct {
	Title       string
	Creator     *string
	Album       *string
	AlbumArtURI *string
	Duration    *time.Duration
	URI         string
}

func (t Track) String() string {
	var b strings.Builder
	b.WriteString(t.Title)
	if t.Creator != nil {
		b.WriteString(" - ")
		b.WriteString(*t.Creator)
	}
	if t.Album != nil {
		b.WriteString(" (")
		b.WriteString(*t.Album)
		b.WriteString(")")
	}
	return b.String()
}

// TrackInfo is the track a speaker is currently positioned on
type TrackInfo struct {
	Track Track
	// TrackNumber is the 1-based position in the queue
	TrackNumber uint32
	Duration    time.Duration
	Elapsed     time.Duration
}

// NowPlaying is emitted by a Monitor whenever a speaker changes state or track
type NowPlaying struct {
	SpeakerUUID string
	SpeakerName string
	State       TransportState
	// Track is nil when nothing is loaded
	Track *TrackInfo
}
