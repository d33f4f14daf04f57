package filing

import (
	"encoding/xml"
	"io"
	"strings"
)

// node is a namespace-agnostic XML element. EDGAR documents come with and
// without namespace prefixes, and with varying case, so elements are matched by
// their lower-cased local name only.
type node struct {
	name     string
	text     string
	children []*node
}

func parseTree(r io.Reader) (*node, error) {
	d := xml.NewDecoder(r)
	d.Strict = false
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	root := &node{}
	stack := []*node{root}
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: strings.ToLower(t.Name.Local)}
			top.children = append(top.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			top.text += string(t)
		}
	}
	return root, nil
}

// find returns the first descendant named name, depth first.
func (n *node) find(name string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.name == name {
			return c
		}
		if f := c.find(name); f != nil {
			return f
		}
	}
	return nil
}

// findAll returns all descendants named name, not looking inside matches.
func (n *node) findAll(name string) []*node {
	if n == nil {
		return nil
	}
	var found []*node
	for _, c := range n.children {
		if c.name == name {
			found = append(found, c)
			continue
		}
		found = append(found, c.findAll(name)...)
	}
	return found
}

// value returns the trimmed text of the first descendant named name. Form 4
// wraps most values in a <value> element, which is unwrapped.
func (n *node) value(name string) string {
	f := n.find(name)
	if f == nil {
		return ""
	}
	if v := f.find("value"); v != nil {
		return strings.TrimSpace(v.text)
	}
	return strings.TrimSpace(f.text)
}

// first returns the value of the first name that is present.
func (n *node) first(names ...string) string {
	for _, name := range names {
		if v := n.value(name); v != "" {
			return v
		}
	}
	return ""
}
