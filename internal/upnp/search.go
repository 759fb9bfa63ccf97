package upnp

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/huin/goupnp"
	"github.com/huin/goupnp/httpu"
	"github.com/huin/goupnp/ssdp"
	"go.uber.org/zap"
)

// ssdpWaitGrace keeps the whole-second MX of a raised wait from rounding down
const ssdpWaitGrace = 100 * time.Millisecond

// rawSearchFunc multicasts one search and returns the deduplicated answers
type rawSearchFunc func(ctx context.Context, searchTarget string) ([]*http.Response, error)

// SSDPSearcher discovers devices with an SSDP M-SEARCH
type SSDPSearcher struct {
	logger   *zap.Logger
	resolver Resolver
	search   rawSearchFunc
}

// NewSSDPSearcher creates an SSDP-backed searcher. Responder descriptions are
// fetched through resolver.
func NewSSDPSearcher(logger *zap.Logger, resolver Resolver) *SSDPSearcher {
	return &SSDPSearcher{logger: logger, resolver: resolver, search: multicastSearch}
}

func multicastSearch(ctx context.Context, searchTarget string) ([]*http.Response, error) {
	client, err := httpu.NewHTTPUClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return ssdp.RawSearch(ctx, client, searchTarget, 3)
}

// Search multicasts for deviceType and returns the first responder whose
// description resolves to a device of that type. SSDP waits in whole seconds,
// so timeouts under a second are raised to one. Descriptions are fetched on
// ctx after the wait, so a short timeout never starves them. Unresolvable
// responders are skipped; if every responder failed the first failure is
// returned.
func (s *SSDPSearcher) Search(ctx context.Context, deviceType string, timeout time.Duration) ([]*Device, error) {
	wait := max(timeout, time.Second) + ssdpWaitGrace
	searchCtx, cancel := context.WithTimeout(ctx, wait)
	responses, err := s.search(searchCtx, deviceType)
	cancel()
	if err != nil {
		return nil, TransportError("ssdp search", 0, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, TransportError("ssdp search", 0, err)
	}

	var firstErr error
	for _, resp := range responses {
		usn := resp.Header.Get("USN")
		loc, err := resp.Location()
		if err != nil {
			s.logger.Warn("Skipping responder without location", zap.String("usn", usn), zap.Error(err))
			if firstErr == nil {
				firstErr = TransportError("ssdp responder "+usn, 0, err)
			}
			continue
		}
		dev, err := s.resolver.Resolve(ctx, loc.String())
		if err != nil {
			s.logger.Warn("Skipping unreachable responder",
				zap.String("usn", usn),
				zap.String("location", loc.String()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if dev.DeviceType() != deviceType {
			continue
		}
		s.logger.Debug("SSDP search complete",
			zap.String("target", deviceType),
			zap.Int("responders", len(responses)),
			zap.String("device", dev.Location()))
		return []*Device{dev}, nil
	}

	if firstErr != nil {
		return nil, firstErr
	}
	s.logger.Debug("SSDP search found nothing",
		zap.String("target", deviceType),
		zap.Int("responders", len(responses)))
	return nil, nil
}

// deviceFromRoot converts a goupnp root device, whose control URLs have
// already been made absolute, into a handle.
func deviceFromRoot(location string, root *goupnp.RootDevice) (*Device, error) {
	controls := make(map[string]string)
	root.Device.VisitServices(func(svc *goupnp.Service) {
		if svc.ServiceType == "" || svc.ControlURL.Str == "" || !svc.ControlURL.Ok {
			return
		}
		if _, dup := controls[svc.ServiceType]; dup {
			return
		}
		controls[svc.ServiceType] = svc.ControlURL.URL.String()
	})
	return NewDevice(location, root.Device.DeviceType, root.Device.UDN, root.Device.FriendlyName, controls)
}

const (
	mdnsDomain       = "local."
	descriptionPort  = 1400
	descriptionPath  = "/xml/device_description.xml"
	locationTXTField = "location="
)

// MDNSSearcher browses a DNS-SD service and resolves each announced host's
// description. Sonos players announce themselves as _sonos._tcp.
type MDNSSearcher struct {
	logger   *zap.Logger
	service  string
	resolver Resolver
}

// NewMDNSSearcher creates a searcher browsing service
func NewMDNSSearcher(logger *zap.Logger, service string, resolver Resolver) *MDNSSearcher {
	return &MDNSSearcher{logger: logger, service: service, resolver: resolver}
}

// Search browses until timeout, then resolves the announced locations in
// arrival order and returns the first device of deviceType.
func (s *MDNSSearcher) Search(ctx context.Context, deviceType string, timeout time.Duration) ([]*Device, error) {
	res, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, TransportError("mdns resolver", 0, err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := res.Browse(browseCtx, s.service, mdnsDomain, entries); err != nil {
		return nil, TransportError("mdns browse", 0, err)
	}

	var locations []string
	seen := make(map[string]struct{})
collect:
	for {
		select {
		case <-browseCtx.Done():
			break collect
		case entry, ok := <-entries:
			if !ok {
				break collect
			}
			if entry == nil {
				continue
			}
			loc := entryLocation(entry)
			if loc == "" {
				continue
			}
			if _, dup := seen[loc]; dup {
				continue
			}
			seen[loc] = struct{}{}
			locations = append(locations, loc)
		}
	}

	for _, loc := range locations {
		dev, err := s.resolver.Resolve(ctx, loc)
		if err != nil {
			s.logger.Warn("Skipping unresolvable announcement", zap.String("location", loc), zap.Error(err))
			continue
		}
		if dev.DeviceType() != deviceType {
			continue
		}
		s.logger.Debug("mDNS search complete",
			zap.String("service", s.service),
			zap.Int("announcements", len(locations)),
			zap.String("device", dev.Location()))
		return []*Device{dev}, nil
	}
	s.logger.Debug("mDNS search found nothing",
		zap.String("service", s.service),
		zap.Int("announcements", len(locations)))
	return nil, nil
}

// entryLocation prefers the location TXT record and falls back to the
// well-known description URL on the first IPv4 address.
func entryLocation(entry *zeroconf.ServiceEntry) string {
	for _, txt := range entry.Text {
		if strings.HasPrefix(strings.ToLower(txt), locationTXTField) {
			return txt[len(locationTXTField):]
		}
	}
	if len(entry.AddrIPv4) == 0 {
		return ""
	}
	return DescriptionURL(entry.AddrIPv4[0].String())
}

// DescriptionURL is where a ZonePlayer at host serves its description
func DescriptionURL(host string) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(descriptionPort)) + descriptionPath
}
