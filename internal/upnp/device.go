package upnp

import (
	"context"
	"net/url"
	"time"
)

// Device is an immutable handle on a UPnP root device bound to the location
// it was described at. It is safe to share between goroutines.
type Device struct {
	location     string
	deviceType   string
	udn          string
	friendlyName string
	// service type URN -> absolute control URL
	services map[string]string
}

// NewDevice builds a handle. Relative control URLs are resolved against location.
func NewDevice(location, deviceType, udn, friendlyName string, controlURLs map[string]string) (*Device, error) {
	base, err := url.Parse(location)
	if err != nil {
		return nil, ParseError("device location", location, err)
	}
	services := make(map[string]string, len(controlURLs))
	for urn, raw := range controlURLs {
		ref, err := url.Parse(raw)
		if err != nil {
			return nil, ParseError("controlURL", raw, err)
		}
		services[urn] = base.ResolveReference(ref).String()
	}
	return &Device{
		location:     location,
		deviceType:   deviceType,
		udn:          udn,
		friendlyName: friendlyName,
		services:     services,
	}, nil
}

// Location returns the description URL this device was resolved from
func (d *Device) Location() string { return d.location }

// DeviceType returns the device type URN
func (d *Device) DeviceType() string { return d.deviceType }

// UDN returns the unique device name, e.g. uuid:RINCON_000E58...
func (d *Device) UDN() string { return d.udn }

// FriendlyName returns the name from the device description
func (d *Device) FriendlyName() string { return d.friendlyName }

// HasService reports whether the device offers the service type
func (d *Device) HasService(serviceType string) bool {
	_, ok := d.services[serviceType]
	return ok
}

// ControlURL returns the absolute control URL of a service
func (d *Device) ControlURL(serviceType string) (string, bool) {
	u, ok := d.services[serviceType]
	return u, ok
}

// Searcher finds devices of a given type on the local network.
//
//go:generate mockgen -destination=mocks/searcher_mock.go -package=mocks github.com/genricoloni/sonos/internal/upnp Searcher
type Searcher interface {
	// Search returns devices of deviceType that answered within timeout.
	// Only a seed is needed, so implementations return the first device that
	// resolves. Zero devices is not an error.
	Search(ctx context.Context, deviceType string, timeout time.Duration) ([]*Device, error)
}

// Resolver turns a description URL into a device handle.
//
//go:generate mockgen -destination=mocks/resolver_mock.go -package=mocks github.com/genricoloni/sonos/internal/upnp Resolver
type Resolver interface {
	Resolve(ctx context.Context, location string) (*Device, error)
}

// Transport executes one SOAP action and returns the raw response body.
//
//go:generate mockgen -destination=mocks/transport_mock.go -package=mocks github.com/genricoloni/sonos/internal/upnp Transport
type Transport interface {
	Call(ctx context.Context, controlURL, serviceType, action string, payload []byte) ([]byte, error)
}
