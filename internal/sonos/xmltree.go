package sonos

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/genricoloni/sonos/internal/upnp"
)

// node is a minimal element tree. The documents Sonos embeds in action
// responses vary in attribute casing between firmware versions, which rules
// out tag-driven xml.Unmarshal for them.
type node struct {
	name     string
	attrs    []xml.Attr
	children []*node
	text     strings.Builder
}

func parseTree(context, doc string) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	root := &node{}
	stack := []*node{root}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, upnp.ParseError(context, "", err)
		}
		top := stack[len(stack)-1]
		switch tk := tok.(type) {
		case xml.StartElement:
			n := &node{name: tk.Name.Local, attrs: tk.Attr}
			top.children = append(top.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			top.text.Write(tk)
		}
	}
	if len(root.children) == 0 {
		return nil, upnp.ParseError(context, doc, nil)
	}
	return root, nil
}

// find returns the first element named name (any case) in document order
func (n *node) find(name string) *node {
	for _, c := range n.children {
		if strings.EqualFold(c.name, name) {
			return c
		}
		if found := c.find(name); found != nil {
			return found
		}
	}
	return nil
}

// attr looks up an attribute by local name, ignoring case
func (n *node) attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

func (n *node) elements(name string) []*node {
	var out []*node
	for _, c := range n.children {
		if strings.EqualFold(c.name, name) {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) content() string {
	return n.text.String()
}
