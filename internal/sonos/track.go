package sonos

import (
	"github.com/genricoloni/sonos/internal/domain"
	"github.com/genricoloni/sonos/internal/upnp"
)

const trackContext = "Track Metadata"

// ParseTrack decodes the first item of a DIDL-Lite document.
func ParseTrack(doc string) (domain.Track, error) {
	tree, err := parseTree(trackContext, doc)
	if err != nil {
		return domain.Track{}, err
	}
	item := tree.find("item")
	if item == nil {
		return domain.Track{}, upnp.MissingElement(trackContext, "item")
	}
	return trackFromItem(item)
}

// ParseQueue decodes every element child of the document root as a track.
func ParseQueue(doc string) ([]domain.Track, error) {
	tree, err := parseTree("Queue", doc)
	if err != nil {
		return nil, err
	}
	root := tree.children[0]
	tracks := make([]domain.Track, 0, len(root.children))
	for _, item := range root.children {
		t, err := trackFromItem(item)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// trackFromItem scans the item's direct children once. title and res are
// required, everything else is optional.
func trackFromItem(item *node) (domain.Track, error) {
	var track domain.Track
	var title, res *node
	for _, c := range item.children {
		switch c.name {
		case "title":
			title = c
		case "creator":
			track.Creator = optionalText(c)
		case "album":
			track.Album = optionalText(c)
		case "albumArtURI":
			track.AlbumArtURI = optionalText(c)
		case "res":
			res = c
		}
	}

	if title == nil || title.content() == "" {
		return domain.Track{}, upnp.MissingElement(item.name, "title")
	}
	if res == nil || res.content() == "" {
		return domain.Track{}, upnp.MissingElement(item.name, "res")
	}
	track.Title = title.content()
	track.URI = res.content()

	if raw, ok := res.attr("duration"); ok {
		d, err := upnp.ParseDuration(raw)
		if err != nil {
			return domain.Track{}, err
		}
		track.Duration = &d
	}
	return track, nil
}

func optionalText(n *node) *string {
	s := n.content()
	if s == "" {
		return nil
	}
	return &s
}
