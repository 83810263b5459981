package extract

import (
	"bufio"
	"strings"

	"github.com/luno/jettison/errors"

	"github.com/meshadmin/topomapper/api"
)

// ExtractText scans line-oriented vendor configuration text in the
// router CLI style. Unlike the structured extractors, a missing
// hostname line means no device node is created at all.
func ExtractText(content string) (Extraction, error) {
	if strings.TrimSpace(content) == "" {
		return Extraction{}, errors.Wrap(ErrEmptyInput, "")
	}

	var lines []string
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}

	ext := Extraction{Format: api.FormatText, Hostname: UnknownDevice}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "hostname" {
			ext.Hostname = fields[1]
			ext.HostnameFound = true
			break
		}
	}

	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "interface" {
			continue
		}
		iface := Interface{Name: fields[1]}
		scanInterfaceBlock(&iface, lines[i+1:])
		iface.Type = inferTextType(iface)
		if peer, ok := peerFromDescription(iface.Description); ok && peer != ext.Hostname {
			iface.Peers = append(iface.Peers, peer)
		}
		ext.Interfaces = append(ext.Interfaces, iface)
	}
	return ext, nil
}

// scanInterfaceBlock captures the nearest-following attribute lines
// within one interface's block. The block ends at the next interface,
// a "!" separator, or any other top-level command.
func scanInterfaceBlock(iface *Interface, lines []string) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == "!" || strings.HasPrefix(trimmed, "interface ") {
			return
		}
		if line[0] != ' ' && line[0] != '\t' {
			return
		}

		fields := strings.Fields(trimmed)
		switch {
		case len(fields) >= 3 && fields[0] == "ip" && fields[1] == "address":
			if iface.Address == "" {
				iface.Address = fields[2]
			}
		case fields[0] == "description":
			if iface.Description == "" {
				iface.Description = strings.TrimSpace(strings.TrimPrefix(trimmed, "description"))
			}
		case len(fields) >= 4 && fields[0] == "switchport" && fields[1] == "access" && fields[2] == "vlan":
			if iface.VLAN == "" {
				iface.VLAN = fields[3]
			}
		case len(fields) >= 2 && fields[0] == "vlan-id":
			if iface.VLAN == "" {
				iface.VLAN = fields[1]
			}
		case trimmed == "switchport mode trunk":
			iface.Mode = "trunk"
		case trimmed == "shutdown":
			iface.Status = "down"
		}
	}
}

// inferTextType maps CLI interface naming conventions to a declared
// type. Ethernet-class names refine further on trunk mode and the
// presence of an address.
func inferTextType(iface Interface) string {
	name := strings.ToLower(iface.Name)
	switch {
	case hasAnyPrefix(name, "gi", "te", "eth"):
		if iface.Mode == "trunk" {
			return "trunk"
		}
		if iface.Address != "" {
			return "routed"
		}
		return "access"
	case hasAnyPrefix(name, "fa"):
		return "LAN"
	case hasAnyPrefix(name, "se", "cellular"):
		return "WAN"
	case hasAnyPrefix(name, "lo"):
		return "virtual"
	case hasAnyPrefix(name, "vl"):
		return "VLAN"
	case hasAnyPrefix(name, "tu"):
		return "tunnel"
	case hasAnyPrefix(name, "po"):
		return "aggregated"
	case hasAnyPrefix(name, "mgmt"):
		return "Management"
	default:
		return ""
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// peerFromDescription infers a remote device from a free-text
// description like "to core-sw" or "uplink to fw1".
func peerFromDescription(desc string) (string, bool) {
	fields := strings.Fields(desc)
	for i, f := range fields {
		if strings.EqualFold(f, "to") && i+1 < len(fields) {
			return fields[i+1], true
		}
	}
	return "", false
}
