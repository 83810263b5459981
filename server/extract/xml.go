package extract

import (
	"encoding/xml"
	"strings"

	"github.com/luno/jettison/errors"

	"github.com/meshadmin/topomapper/api"
)

// element is a lenient in-memory XML element. The decoder below is
// non-validating: it keeps whatever well-formed prefix it can read,
// so partial or sloppy vendor exports still yield results.
type element struct {
	tag      string
	attrs    map[string]string
	text     string
	children []*element
}

func parseLenientXML(content string) *element {
	dec := xml.NewDecoder(strings.NewReader(content))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose

	root := &element{}
	stack := []*element{root}
	for {
		tok, err := dec.Token()
		if err != nil {
			// EOF or a syntax error partway through. Keep what we have.
			return root
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{tag: strings.ToLower(t.Name.Local)}
			if len(t.Attr) > 0 {
				el.attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					el.attrs[strings.ToLower(a.Name.Local)] = a.Value
				}
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, el)
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			cur := stack[len(stack)-1]
			cur.text += string(t)
		}
	}
}

// findFirst returns the first element with the given tag in document
// order, or nil.
func findFirst(el *element, tag string) *element {
	for _, c := range el.children {
		if c.tag == tag {
			return c
		}
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findFirstOutsideInterfaces is findFirst that refuses to descend
// into interface-like subtrees, where a <name> child names the
// interface rather than the device.
func findFirstOutsideInterfaces(el *element, tag string) *element {
	for _, c := range el.children {
		if tagLooksLikeInterface(c.tag) {
			continue
		}
		if c.tag == tag {
			return c
		}
		if found := findFirstOutsideInterfaces(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func walkElements(el *element, fn func(*element)) {
	for _, c := range el.children {
		fn(c)
		walkElements(c, fn)
	}
}

// childText returns the trimmed text of the first direct child with
// the given tag.
func (e *element) childText(tag string) string {
	for _, c := range e.children {
		if c.tag == tag {
			return strings.TrimSpace(c.text)
		}
	}
	return ""
}

// hostnameTags are tried in order; the first non-empty match wins. A
// bare <name> is tried first but never taken from inside an interface
// element, where it names the interface rather than the device.
var hostnameTags = []string{"hostname", "device-name", "system-name"}

// interfaceTags are the element shapes that directly describe an
// interface. Every shape is tried and the results are concatenated, so
// a file mixing shapes yields interfaces from all of them.
var interfaceTags = []string{"interface", "port", "ethernet", "physical-interface", "intf"}

// ExtractXML pulls hostname and interface records out of an XML
// configuration fragment. The content may be partial or malformed;
// extraction keeps whatever the lenient decoder recovers.
func ExtractXML(content string) (Extraction, error) {
	if strings.TrimSpace(content) == "" {
		return Extraction{}, errors.Wrap(ErrEmptyInput, "")
	}
	if !strings.ContainsAny(content, "<>") {
		return Extraction{}, errors.Wrap(ErrUnrecognizedFormat, "no markup present")
	}

	root := parseLenientXML(content)
	ext := Extraction{Format: api.FormatXML, Hostname: UnknownDevice}

	if el := findFirstOutsideInterfaces(root, "name"); el != nil {
		if name := strings.TrimSpace(el.text); name != "" {
			ext.Hostname = name
			ext.HostnameFound = true
		}
	}
	if !ext.HostnameFound {
		for _, tag := range hostnameTags {
			el := findFirst(root, tag)
			if el == nil {
				continue
			}
			if name := strings.TrimSpace(el.text); name != "" {
				ext.Hostname = name
				ext.HostnameFound = true
				break
			}
		}
	}
	if !ext.HostnameFound {
		if dev := findFirst(root, "device"); dev != nil {
			if name := dev.childText("name"); name != "" {
				ext.Hostname = name
				ext.HostnameFound = true
			}
		}
	}

	matched := make(map[*element]bool)
	for _, tag := range interfaceTags {
		walkElements(root, func(el *element) {
			if el.tag != tag || matched[el] {
				return
			}
			if iface, ok := interfaceFromElement(el); ok {
				matched[el] = true
				ext.Interfaces = append(ext.Interfaces, iface)
			}
		})
	}

	// Fallback pass: any element whose tag merely contains an
	// interface-ish word, paired with a nested name.
	if len(ext.Interfaces) == 0 {
		walkElements(root, func(el *element) {
			if matched[el] || !tagLooksLikeInterface(el.tag) {
				return
			}
			if iface, ok := interfaceFromElement(el); ok {
				matched[el] = true
				ext.Interfaces = append(ext.Interfaces, iface)
			}
		})
	}
	return ext, nil
}

func tagLooksLikeInterface(tag string) bool {
	for _, frag := range []string{"interface", "port", "ethernet", "intf"} {
		if strings.Contains(tag, frag) {
			return true
		}
	}
	return false
}

func interfaceFromElement(el *element) (Interface, bool) {
	name := el.childText("name")
	if name == "" {
		name = strings.TrimSpace(el.attrs["name"])
	}
	if name == "" {
		return Interface{}, false
	}
	return Interface{
		Name:    name,
		Type:    el.childText("type"),
		Role:    el.childText("role"),
		Address: el.childText("ip"),
		VLAN:    el.childText("vlan"),
		Speed:   el.childText("speed"),
		Status:  el.childText("status"),
		Mode:    el.childText("mode"),
	}, true
}
