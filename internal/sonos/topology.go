package sonos

import (
	"fmt"

	"github.com/genricoloni/sonos/internal/domain"
	"github.com/genricoloni/sonos/internal/upnp"
)

const topologyContext = "Zone Group Topology"

// ParseTopology decodes a ZoneGroupState document into its groups, in
// document order.
func ParseTopology(doc string) (domain.Topology, error) {
	tree, err := parseTree(topologyContext, doc)
	if err != nil {
		return nil, err
	}
	groups := tree.find("ZoneGroups")
	if groups == nil {
		return nil, upnp.MissingElement(topologyContext, "ZoneGroups")
	}

	var topology domain.Topology
	for _, g := range groups.elements("ZoneGroup") {
		coordinator, ok := g.attr("Coordinator")
		if !ok {
			return nil, upnp.MissingElement("ZoneGroup", "Coordinator")
		}

		members := make([]domain.SpeakerInfo, 0, len(g.children))
		hasCoordinator := false
		for _, m := range g.elements("ZoneGroupMember") {
			info, err := parseMember(m)
			if err != nil {
				return nil, err
			}
			if info.Equal(domain.SpeakerInfo{UUID: coordinator}) {
				hasCoordinator = true
			}
			members = append(members, info)
		}
		if !hasCoordinator {
			return nil, upnp.ParseError(topologyContext, coordinator,
				fmt.Errorf("coordinator is not a member of its own group"))
		}

		topology = append(topology, domain.TopologyGroup{
			Coordinator: coordinator,
			Members:     members,
		})
	}
	return topology, nil
}

func parseMember(n *node) (domain.SpeakerInfo, error) {
	var info domain.SpeakerInfo
	var ok bool
	if info.UUID, ok = n.attr("UUID"); !ok {
		return info, upnp.MissingElement("ZoneGroupMember", "UUID")
	}
	if info.Location, ok = n.attr("Location"); !ok {
		return info, upnp.MissingElement("ZoneGroupMember", "Location")
	}
	if info.Name, ok = n.attr("ZoneName"); !ok {
		return info, upnp.MissingElement("ZoneGroupMember", "ZoneName")
	}
	return info, nil
}
