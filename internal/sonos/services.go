package sonos

import "github.com/genricoloni/sonos/internal/upnp"

// ZonePlayerURN is the device type every Sonos player announces
const ZonePlayerURN = "urn:schemas-upnp-org:device:ZonePlayer:1"

// MDNSService is the DNS-SD service type Sonos players announce
const MDNSService = "_sonos._tcp"

// Logical services used by Speaker
const (
	AVTransport       upnp.ServiceID = "AVTransport"
	DeviceProperties  upnp.ServiceID = "DeviceProperties"
	RenderingControl  upnp.ServiceID = "RenderingControl"
	ZoneGroupTopology upnp.ServiceID = "ZoneGroupTopology"
	Queue             upnp.ServiceID = "Queue"
)

// DefaultServices maps the logical services to the URNs Sonos firmware uses.
func DefaultServices() upnp.ServiceTable {
	return upnp.ServiceTable{
		AVTransport:       "urn:schemas-upnp-org:service:AVTransport:1",
		DeviceProperties:  "urn:schemas-upnp-org:service:DeviceProperties:1",
		RenderingControl:  "urn:schemas-upnp-org:service:RenderingControl:1",
		ZoneGroupTopology: "urn:schemas-upnp-org:service:ZoneGroupTopology:1",
		Queue:             "urn:schemas-sonos-com:service:Queue:1",
	}
}
