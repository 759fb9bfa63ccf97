package upnp_test

import (
	"context"
	"testing"

	"github.com/genricoloni/sonos/internal/upnp"
	"github.com/genricoloni/sonos/internal/upnp/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const (
	location   = "http://10.0.0.5:1400/xml/device_description.xml"
	renderURN  = "urn:schemas-upnp-org:service:RenderingControl:1"
	queueURN   = "urn:schemas-sonos-com:service:Queue:1"
	volumeBody = `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>` +
		`<u:GetVolumeResponse xmlns:u="urn:schemas-upnp-org:service:RenderingControl:1"><CurrentVolume>17</CurrentVolume></u:GetVolumeResponse>` +
		`</s:Body></s:Envelope>`
)

func newDevice(t *testing.T) *upnp.Device {
	t.Helper()
	dev, err := upnp.NewDevice(location, "urn:schemas-upnp-org:device:ZonePlayer:1", "uuid:RINCON_1", "Den",
		map[string]string{renderURN: "/MediaRenderer/RenderingControl/Control"})
	require.NoError(t, err)
	return dev
}

func TestClient_Invoke(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().
		Call(gomock.Any(), "http://10.0.0.5:1400/MediaRenderer/RenderingControl/Control", renderURN, "GetVolume",
			[]byte("<InstanceID>0</InstanceID><Channel>Master</Channel>")).
		Return([]byte(volumeBody), nil)

	client := upnp.NewClient(zap.NewNop(), transport, upnp.ServiceTable{"RenderingControl": renderURN})
	args := upnp.NewArgs().Uint("InstanceID", 0).String("Channel", "Master")

	resp, err := client.Invoke(context.Background(), newDevice(t), "RenderingControl", "GetVolume", args)
	require.NoError(t, err)
	v, err := resp.Uint("CurrentVolume", 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), v)
}

func TestClient_CapabilityMissing(t *testing.T) {
	tests := []struct {
		name     string
		services upnp.ServiceTable
		svc      upnp.ServiceID
	}{
		{
			name:     "service not in table",
			services: upnp.ServiceTable{},
			svc:      "Queue",
		},
		{
			name:     "device lacks service",
			services: upnp.ServiceTable{"Queue": queueURN},
			svc:      "Queue",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// no call may reach the wire
			transport := mocks.NewMockTransport(ctrl)

			client := upnp.NewClient(zap.NewNop(), transport, tt.services)
			_, err := client.Invoke(context.Background(), newDevice(t), tt.svc, "Browse", upnp.NewArgs())
			require.Error(t, err)
			assert.True(t, upnp.IsKind(err, upnp.KindCapabilityMissing), "got %v", err)
		})
	}
}

func TestClient_PropagatesFault(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().
		Call(gomock.Any(), gomock.Any(), renderURN, "SetVolume", gomock.Any()).
		Return(nil, upnp.DeviceFault("SetVolume", 402, "Invalid Args"))

	client := upnp.NewClient(zap.NewNop(), transport, upnp.ServiceTable{"RenderingControl": renderURN})
	_, err := client.Invoke(context.Background(), newDevice(t), "RenderingControl", "SetVolume",
		upnp.NewArgs().Uint("DesiredVolume", 101))

	code, ok := upnp.FaultCode(err)
	assert.True(t, ok)
	assert.Equal(t, 402, code)
}
