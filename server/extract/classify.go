package extract

import (
	"strings"

	"github.com/meshadmin/topomapper/api/visjs"
)

type Category string

const (
	CategoryWAN        Category = "wan"
	CategoryLAN        Category = "lan"
	CategoryDMZ        Category = "dmz"
	CategoryManagement Category = "management"
	CategoryVLAN       Category = "vlan"
	CategoryLoopback   Category = "loopback"
	CategoryTunnel     Category = "tunnel"
	CategoryUnknown    Category = "unknown"
)

// Classification drives the visual styling of an interface node.
type Classification struct {
	Category Category
	Color    string
	Shape    visjs.Shape
}

var styleTable = map[Category]Classification{
	CategoryWAN:        {CategoryWAN, "#FF4500", visjs.ShapeDiamond},
	CategoryLAN:        {CategoryLAN, "#32CD32", visjs.ShapeDot},
	CategoryDMZ:        {CategoryDMZ, "#FFD700", visjs.ShapeTriangle},
	CategoryManagement: {CategoryManagement, "#1E90FF", visjs.ShapeStar},
	CategoryVLAN:       {CategoryVLAN, "#800080", visjs.ShapeHexagon},
	CategoryLoopback:   {CategoryLoopback, "#008080", visjs.ShapeDot},
	CategoryTunnel:     {CategoryTunnel, "#FF8C00", visjs.ShapeDiamond},
	CategoryUnknown:    {CategoryUnknown, "#808080", visjs.ShapeDot},
}

// Classify maps an interface's name, declared type and role to a
// category and its style. The same table is used for every
// configuration format. First match wins; "vlan" is checked ahead of
// "lan" so the VLAN category isn't shadowed by the substring overlap.
func Classify(name, declaredType, role string) Classification {
	n := strings.ToLower(name)
	t := strings.ToLower(declaredType)
	r := strings.ToLower(role)

	has := func(sub string) bool {
		return strings.Contains(n, sub) || strings.Contains(t, sub) || strings.Contains(r, sub)
	}

	switch {
	case has("wan") || r == "external":
		return styleTable[CategoryWAN]
	case has("vlan"):
		return styleTable[CategoryVLAN]
	case has("lan") || r == "internal":
		return styleTable[CategoryLAN]
	case has("dmz"):
		return styleTable[CategoryDMZ]
	case has("mgmt") || has("admin") || has("management"):
		return styleTable[CategoryManagement]
	case has("loopback") || t == "virtual" || isLoopbackName(n):
		return styleTable[CategoryLoopback]
	case has("tunnel"):
		return styleTable[CategoryTunnel]
	default:
		return styleTable[CategoryUnknown]
	}
}

// isLoopbackName matches the short loopback naming convention: "lo"
// followed only by an optional unit number ("lo", "lo0", "lo10").
func isLoopbackName(name string) bool {
	if !strings.HasPrefix(name, "lo") {
		return false
	}
	for _, c := range name[2:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
