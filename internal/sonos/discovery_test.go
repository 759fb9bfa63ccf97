package sonos

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/genricoloni/sonos/internal/sonos/mocks"
	"github.com/genricoloni/sonos/internal/upnp"
	upnpmocks "github.com/genricoloni/sonos/internal/upnp/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type household struct {
	rooms   []string
	devices map[string]*upnp.Device
	doc     string
}

// newHousehold builds one group per room, each speaker at 10.0.0.<n>
func newHousehold(t *testing.T, rooms ...string) *household {
	t.Helper()
	h := &household{rooms: rooms, devices: make(map[string]*upnp.Device)}
	doc := "<ZoneGroupState><ZoneGroups>"
	for i, room := range rooms {
		uuid := fmt.Sprintf("RINCON_%02d", i+1)
		host := fmt.Sprintf("10.0.0.%d", i+1)
		dev := newTestDevice(t, uuid, host)
		h.devices[room] = dev
		doc += fmt.Sprintf(`<ZoneGroup Coordinator="%s"><ZoneGroupMember UUID="%s" Location="%s" ZoneName="%s"/></ZoneGroup>`,
			uuid, uuid, dev.Location(), room)
	}
	h.doc = doc + "</ZoneGroups></ZoneGroupState>"
	return h
}

type discoveryMocks struct {
	searcher *upnpmocks.MockSearcher
	resolver *upnpmocks.MockResolver
	invoker  *mocks.MockInvoker
}

func newDiscoveryMocks(ctrl *gomock.Controller) discoveryMocks {
	return discoveryMocks{
		searcher: upnpmocks.NewMockSearcher(ctrl),
		resolver: upnpmocks.NewMockResolver(ctrl),
		invoker:  mocks.NewMockInvoker(ctrl),
	}
}

func (m discoveryMocks) discoverer(opts ...DiscovererOption) *Discoverer {
	return NewDiscoverer(zap.NewNop(), m.searcher, m.resolver, m.invoker, opts...)
}

// expectSeed makes the first room the seed answering the search
func (m discoveryMocks) expectSeed(h *household) {
	seed := h.devices[h.rooms[0]]
	m.searcher.EXPECT().Search(gomock.Any(), ZonePlayerURN, 2*time.Second).Return([]*upnp.Device{seed}, nil)
	m.invoker.EXPECT().Invoke(gomock.Any(), seed, ZoneGroupTopology, "GetZoneGroupState", gomock.Any()).
		Return(upnp.Response{"ZoneGroupState": h.doc}, nil)
}

func (m discoveryMocks) expectNames(h *household) {
	for _, room := range h.rooms {
		m.invoker.EXPECT().Invoke(gomock.Any(), h.devices[room], DeviceProperties, "GetZoneAttributes", gomock.Any()).
			Return(upnp.Response{"CurrentZoneName": room}, nil).
			AnyTimes()
	}
}

func TestDiscover_NoSpeakers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newDiscoveryMocks(ctrl)
	m.searcher.EXPECT().Search(gomock.Any(), ZonePlayerURN, 2*time.Second).Return(nil, nil)

	speakers, err := m.discoverer().Discover(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Empty(t, speakers)
}

func TestDiscover_ResolvesWholeHousehold(t *testing.T) {
	tests := []struct {
		name string
		opts []DiscovererOption
	}{
		{name: "unbounded"},
		{name: "one at a time", opts: []DiscovererOption{WithMaxConcurrentResolutions(1)}},
		{name: "with resolve timeout", opts: []DiscovererOption{WithResolveTimeout(time.Second)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			h := newHousehold(t, "Office", "Kitchen", "Den")
			m := newDiscoveryMocks(ctrl)
			m.expectSeed(h)
			for _, dev := range h.devices {
				m.resolver.EXPECT().Resolve(gomock.Any(), dev.Location()).Return(dev, nil)
			}

			speakers, err := m.discoverer(tt.opts...).Discover(context.Background(), 2*time.Second)
			require.NoError(t, err)
			require.Len(t, speakers, 3)

			got := make(map[string]bool)
			for _, sp := range speakers {
				got[sp.UUID()] = true
			}
			assert.Equal(t, map[string]bool{"RINCON_01": true, "RINCON_02": true, "RINCON_03": true}, got)
		})
	}
}

func TestDiscover_FailsOnFirstResolutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHousehold(t, "Office", "Kitchen", "Den")
	m := newDiscoveryMocks(ctrl)
	m.expectSeed(h)

	failure := upnp.TransportError("device description", 0, errors.New("no route to host"))
	m.resolver.EXPECT().Resolve(gomock.Any(), h.devices["Kitchen"].Location()).Return(nil, failure)
	m.resolver.EXPECT().Resolve(gomock.Any(), h.devices["Office"].Location()).Return(h.devices["Office"], nil).AnyTimes()
	m.resolver.EXPECT().Resolve(gomock.Any(), h.devices["Den"].Location()).Return(h.devices["Den"], nil).AnyTimes()

	speakers, err := m.discoverer().Discover(context.Background(), 2*time.Second)
	assert.ErrorIs(t, err, failure)
	assert.Nil(t, speakers)
}

func TestDiscover_SeedTopologyFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHousehold(t, "Office")
	m := newDiscoveryMocks(ctrl)
	seed := h.devices["Office"]
	m.searcher.EXPECT().Search(gomock.Any(), ZonePlayerURN, gomock.Any()).Return([]*upnp.Device{seed}, nil)
	m.invoker.EXPECT().Invoke(gomock.Any(), seed, ZoneGroupTopology, "GetZoneGroupState", gomock.Any()).
		Return(upnp.Response{"ZoneGroupState": "<ZoneGroupState/>"}, nil)

	_, err := m.discoverer().Discover(context.Background(), 2*time.Second)
	assert.True(t, upnp.IsKind(err, upnp.KindMissingElement), "got %v", err)
}

func TestDiscover_PeerFailures(t *testing.T) {
	tests := []struct {
		name      string
		opts      []DiscovererOption
		setupMock func(m discoveryMocks, office *upnp.Device)
		check     func(t *testing.T, err error)
	}{
		{
			name: "peer is not a zone player",
			setupMock: func(m discoveryMocks, office *upnp.Device) {
				tv, err := upnp.NewDevice(office.Location(), "urn:schemas-upnp-org:device:MediaRenderer:1", "uuid:tv", "TV", nil)
				require.NoError(t, err)
				m.resolver.EXPECT().Resolve(gomock.Any(), office.Location()).Return(tv, nil)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, upnp.IsKind(err, upnp.KindCapabilityMissing), "got %v", err)
				assert.ErrorIs(t, err, ErrNotZonePlayer)
			},
		},
		{
			name: "resolve timeout bounds a hanging peer",
			opts: []DiscovererOption{WithResolveTimeout(20 * time.Millisecond)},
			setupMock: func(m discoveryMocks, office *upnp.Device) {
				m.resolver.EXPECT().Resolve(gomock.Any(), office.Location()).
					DoAndReturn(func(ctx context.Context, _ string) (*upnp.Device, error) {
						<-ctx.Done()
						return nil, ctx.Err()
					})
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			h := newHousehold(t, "Office")
			m := newDiscoveryMocks(ctrl)
			m.expectSeed(h)
			tt.setupMock(m, h.devices["Office"])

			done := make(chan struct{})
			var speakers []*Speaker
			var err error
			go func() {
				defer close(done)
				speakers, err = m.discoverer(tt.opts...).Discover(context.Background(), 2*time.Second)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("Discover did not return")
			}

			assert.Nil(t, speakers)
			tt.check(t, err)
		})
	}
}

func TestDiscoverStream_CancelStopsResolutions(t *testing.T) {
	tests := []struct {
		name                string
		opts                []DiscovererOption
		cancelDuringResolve bool
	}{
		{name: "cancelled before expansion"},
		{name: "cancelled before expansion, bounded", opts: []DiscovererOption{WithMaxConcurrentResolutions(1)}},
		{name: "cancelled during first resolution", opts: []DiscovererOption{WithMaxConcurrentResolutions(1)}, cancelDuringResolve: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			h := newHousehold(t, "Office", "Kitchen", "Den")
			m := newDiscoveryMocks(ctrl)
			m.expectSeed(h)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if tt.cancelDuringResolve {
				// one at a time: the remaining peers must never be started
				m.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, _ string) (*upnp.Device, error) {
						cancel()
						<-ctx.Done()
						return nil, ctx.Err()
					}).
					Times(1)
			} else {
				cancel()
			}

			stream, err := m.discoverer(tt.opts...).DiscoverStream(ctx, 2*time.Second)
			require.NoError(t, err)

			timeout := time.After(2 * time.Second)
			for {
				select {
				case r, open := <-stream:
					if !open {
						return
					}
					assert.Error(t, r.Err)
				case <-timeout:
					t.Fatal("stream was not closed after cancellation")
				}
			}
		})
	}
}

func TestDiscoverStream_ContinuesPastFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHousehold(t, "Office", "Kitchen", "Den")
	m := newDiscoveryMocks(ctrl)
	m.expectSeed(h)

	m.resolver.EXPECT().Resolve(gomock.Any(), h.devices["Office"].Location()).Return(h.devices["Office"], nil)
	m.resolver.EXPECT().Resolve(gomock.Any(), h.devices["Kitchen"].Location()).Return(nil, errors.New("timeout"))
	m.resolver.EXPECT().Resolve(gomock.Any(), h.devices["Den"].Location()).Return(h.devices["Den"], nil)

	stream, err := m.discoverer().DiscoverStream(context.Background(), 2*time.Second)
	require.NoError(t, err)

	var ok, failed int
	for r := range stream {
		if r.Err != nil {
			failed++
			assert.Nil(t, r.Speaker)
			continue
		}
		ok++
		assert.NotNil(t, r.Speaker)
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
}

func TestDiscoverStream_NoSpeakers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newDiscoveryMocks(ctrl)
	m.searcher.EXPECT().Search(gomock.Any(), ZonePlayerURN, gomock.Any()).Return(nil, nil)

	stream, err := m.discoverer().DiscoverStream(context.Background(), 2*time.Second)
	require.NoError(t, err)
	_, open := <-stream
	assert.False(t, open)
}

func TestFind(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantUUID string
	}{
		{name: "exact", query: "Kitchen", wantUUID: "RINCON_02"},
		{name: "ignores case", query: "kITCHEN", wantUUID: "RINCON_02"},
		{name: "no match", query: "Garage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			h := newHousehold(t, "Office", "Kitchen", "Den")
			m := newDiscoveryMocks(ctrl)
			m.expectSeed(h)
			m.expectNames(h)
			for _, dev := range h.devices {
				m.resolver.EXPECT().Resolve(gomock.Any(), dev.Location()).Return(dev, nil)
			}

			sp, err := m.discoverer().Find(context.Background(), tt.query, 2*time.Second)
			require.NoError(t, err)
			if tt.wantUUID == "" {
				assert.Nil(t, sp)
				return
			}
			require.NotNil(t, sp)
			assert.Equal(t, tt.wantUUID, sp.UUID())
		})
	}
}

func TestFind_NameErrorAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHousehold(t, "Office")
	m := newDiscoveryMocks(ctrl)
	m.expectSeed(h)
	m.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(h.devices["Office"], nil)
	m.invoker.EXPECT().Invoke(gomock.Any(), gomock.Any(), DeviceProperties, "GetZoneAttributes", gomock.Any()).
		Return(upnp.Response{}, nil)

	_, err := m.discoverer().Find(context.Background(), "Office", 2*time.Second)
	assert.True(t, upnp.IsKind(err, upnp.KindMissingElement), "got %v", err)
}

func TestFromIP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newDiscoveryMocks(ctrl)
	player := newTestDevice(t, "RINCON_09", "10.0.0.9")
	tv, err := upnp.NewDevice(upnp.DescriptionURL("10.0.0.50"), "urn:schemas-upnp-org:device:MediaRenderer:1", "uuid:tv", "TV", nil)
	require.NoError(t, err)

	m.resolver.EXPECT().Resolve(gomock.Any(), "http://10.0.0.9:1400/xml/device_description.xml").Return(player, nil)
	m.resolver.EXPECT().Resolve(gomock.Any(), "http://10.0.0.50:1400/xml/device_description.xml").Return(tv, nil)
	m.resolver.EXPECT().Resolve(gomock.Any(), "http://10.0.0.60:1400/xml/device_description.xml").
		Return(nil, upnp.TransportError("device description", 0, errors.New("connection refused")))

	d := m.discoverer()
	ctx := context.Background()

	sp, err := d.FromIP(ctx, "10.0.0.9")
	require.NoError(t, err)
	require.NotNil(t, sp)
	assert.Equal(t, "RINCON_09", sp.UUID())

	sp, err = d.FromIP(ctx, "10.0.0.50")
	require.NoError(t, err)
	assert.Nil(t, sp)

	_, err = d.FromIP(ctx, "10.0.0.60")
	assert.True(t, upnp.IsKind(err, upnp.KindTransport))
}
