package upnp

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ServiceID names a service independently of its URN
type ServiceID string

// ServiceTable binds logical service ids to the URNs a device family uses.
type ServiceTable map[ServiceID]string

// Client is the typed bridge between domain operations and the wire
type Client struct {
	logger    *zap.Logger
	transport Transport
	services  ServiceTable
}

// NewClient creates an action client bound to a service table
func NewClient(logger *zap.Logger, transport Transport, services ServiceTable) *Client {
	return &Client{
		logger:    logger,
		transport: transport,
		services:  services,
	}
}

// Invoke executes action on the device's service and decodes the output
// arguments. A service missing from the table or the device is reported as
// KindCapabilityMissing and must not be retried.
func (c *Client) Invoke(ctx context.Context, dev *Device, svc ServiceID, action string, args Args) (Response, error) {
	urn, ok := c.services[svc]
	if !ok {
		actionTotal.WithLabelValues(string(svc), action, "capability").Inc()
		return nil, CapabilityMissing(dev.Location(), string(svc))
	}
	controlURL, ok := dev.ControlURL(urn)
	if !ok {
		actionTotal.WithLabelValues(string(svc), action, "capability").Inc()
		return nil, CapabilityMissing(dev.Location(), urn)
	}

	start := time.Now()
	body, err := c.transport.Call(ctx, controlURL, urn, action, args.Encode())
	actionDuration.WithLabelValues(string(svc), action).Observe(time.Since(start).Seconds())
	if err != nil {
		status := "transport"
		if IsKind(err, KindDeviceFault) {
			status = "fault"
		}
		actionTotal.WithLabelValues(string(svc), action, status).Inc()
		c.logger.Debug("Action failed",
			zap.String("service", string(svc)),
			zap.String("action", action),
			zap.String("device", dev.Location()),
			zap.Error(err))
		return nil, err
	}

	resp, err := decodeResponse(action, body)
	if err != nil {
		actionTotal.WithLabelValues(string(svc), action, "decode").Inc()
		return nil, err
	}
	actionTotal.WithLabelValues(string(svc), action, "ok").Inc()

	c.logger.Debug("Action invoked",
		zap.String("service", string(svc)),
		zap.String("action", action),
		zap.Int("fields", len(resp)),
		zap.Duration("took", time.Since(start)))
	return resp, nil
}
