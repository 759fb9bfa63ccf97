package upnp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const avTransport = "urn:schemas-upnp-org:service:AVTransport:1"

const faultBody = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
<s:Body><s:Fault><faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring>
<detail><UPnPError xmlns="urn:schemas-upnp-org:control-1-0"><errorCode>701</errorCode></UPnPError></detail>
</s:Fault></s:Body></s:Envelope>`

func TestEnvelope(t *testing.T) {
	got := string(Envelope(avTransport, "Play", NewArgs().Uint("InstanceID", 0).Uint("Speed", 1).Encode()))
	assert.True(t, strings.HasPrefix(got, `<?xml version="1.0" encoding="utf-8"?><s:Envelope`))
	assert.Contains(t, got, `<s:Body><u:Play xmlns:u="urn:schemas-upnp-org:service:AVTransport:1"><InstanceID>0</InstanceID><Speed>1</Speed></u:Play></s:Body>`)
	assert.True(t, strings.HasSuffix(got, `</s:Envelope>`))
}

func TestSOAPTransport_Call(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantKind   Kind
		wantCode   int
		wantStatus int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `<s:Envelope><s:Body><u:PlayResponse/></s:Body></s:Envelope>`,
		},
		{
			name:     "upnp fault",
			status:   http.StatusInternalServerError,
			body:     faultBody,
			wantErr:  true,
			wantKind: KindDeviceFault,
			wantCode: 701,
		},
		{
			name:       "bare 500",
			status:     http.StatusInternalServerError,
			body:       "",
			wantErr:    true,
			wantKind:   KindTransport,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       "nope",
			wantErr:    true,
			wantKind:   KindTransport,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAction, gotType, gotBody string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAction = r.Header.Get("SOAPACTION")
				gotType = r.Header.Get("Content-Type")
				b, _ := io.ReadAll(r.Body)
				gotBody = string(b)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			tr := NewSOAPTransport(zap.NewNop(), 5*time.Second)
			body, err := tr.Call(context.Background(), server.URL+"/MediaRenderer/AVTransport/Control", avTransport, "Play", NewArgs().Uint("InstanceID", 0).Encode())

			assert.Equal(t, `"urn:schemas-upnp-org:service:AVTransport:1#Play"`, gotAction)
			assert.Equal(t, `text/xml; charset="utf-8"`, gotType)
			assert.Contains(t, gotBody, "<InstanceID>0</InstanceID>")

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.body, string(body))
				return
			}
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.wantKind), "got %v", err)
			if tt.wantCode != 0 {
				code, ok := FaultCode(err)
				assert.True(t, ok)
				assert.Equal(t, tt.wantCode, code)
			}
			if tt.wantStatus != 0 {
				status, ok := HTTPStatus(err)
				assert.True(t, ok)
				assert.Equal(t, tt.wantStatus, status)
			}
		})
	}
}

func TestSOAPTransport_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	tr := NewSOAPTransport(zap.NewNop(), time.Second)
	_, err := tr.Call(context.Background(), url, avTransport, "Stop", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))
	_, ok := HTTPStatus(err)
	assert.False(t, ok)
}

func TestDecodeResponse(t *testing.T) {
	body := `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
<s:Body><u:GetPositionInfoResponse xmlns:u="urn:schemas-upnp-org:service:AVTransport:1">
<Track>3</Track><TrackDuration>0:04:12</TrackDuration>
<TrackMetaData>&lt;DIDL-Lite&gt;&lt;/DIDL-Lite&gt;</TrackMetaData>
<TrackURI></TrackURI>
</u:GetPositionInfoResponse></s:Body></s:Envelope>`

	resp, err := decodeResponse("GetPositionInfo", []byte(body))
	require.NoError(t, err)
	assert.Equal(t, "3", resp["Track"])
	assert.Equal(t, "0:04:12", resp["TrackDuration"])
	assert.Equal(t, "<DIDL-Lite></DIDL-Lite>", resp["TrackMetaData"])

	uri, err := resp.Extract("TrackURI")
	require.NoError(t, err)
	assert.Equal(t, "", uri)
}

func TestDecodeResponse_Malformed(t *testing.T) {
	_, err := decodeResponse("Play", []byte(`<s:Envelope><s:Body>`))
	assert.True(t, IsKind(err, KindParse), "got %v", err)

	_, err = decodeResponse("Play", []byte(`<s:Envelope><s:Header/></s:Envelope>`))
	assert.True(t, IsKind(err, KindMissingElement), "got %v", err)
}
