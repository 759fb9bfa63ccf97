package upnp

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/url"

	"github.com/genricoloni/sonos/internal/domain"
	"github.com/huin/goupnp"
	"go.uber.org/zap"
)

// DescriptionResolver fetches and parses device description documents
type DescriptionResolver struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
}

// NewDescriptionResolver creates a resolver backed by fetcher
func NewDescriptionResolver(logger *zap.Logger, fetcher domain.Fetcher) *DescriptionResolver {
	return &DescriptionResolver{logger: logger, fetcher: fetcher}
}

// Resolve fetches the description at location and builds a device handle
// covering the services of the root and all embedded devices.
func (r *DescriptionResolver) Resolve(ctx context.Context, location string) (*Device, error) {
	body, err := r.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, TransportError("device description", 0, err)
	}
	dev, err := ParseDescription(location, body)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Device resolved",
		zap.String("location", location),
		zap.String("type", dev.DeviceType()),
		zap.String("name", dev.FriendlyName()))
	return dev, nil
}

// ParseDescription decodes a device description document fetched from location.
// Relative control URLs resolve against URLBase when present, else location.
func ParseDescription(location string, body []byte) (*Device, error) {
	root := new(goupnp.RootDevice)
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.DefaultSpace = goupnp.DeviceXMLNamespace
	dec.CharsetReader = goupnp.CharsetReaderDefault
	if err := dec.Decode(root); err != nil {
		return nil, ParseError("device description", location, err)
	}
	if root.Device.DeviceType == "" {
		return nil, MissingElement("device description", "deviceType")
	}

	base := location
	if root.URLBaseStr != "" {
		base = root.URLBaseStr
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, ParseError("URLBase", base, err)
	}
	root.SetURLBase(baseURL)

	return deviceFromRoot(location, root)
}
