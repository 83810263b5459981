package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/luno/jettison/errors"

	"github.com/meshadmin/topomapper/api"
)

// ExtractJSON pulls hostname and interface records out of a JSON
// configuration object. Malformed JSON fails with
// ErrMalformedDocument rather than silently yielding an empty result.
func ExtractJSON(content string) (Extraction, error) {
	if strings.TrimSpace(content) == "" {
		return Extraction{}, errors.Wrap(ErrEmptyInput, "")
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return Extraction{}, errors.Wrap(ErrMalformedDocument, err.Error())
	}

	ext := Extraction{Format: api.FormatJSON, Hostname: UnknownDevice}
	if name, ok := firstString(doc, "hostname", "name", "device"); ok {
		ext.Hostname = name
		ext.HostnameFound = true
	}

	for i, entry := range firstArray(doc, "interfaces", "ports") {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, ok := firstString(obj, "name", "id")
		if !ok {
			name = fmt.Sprintf("Interface %d", i)
		}
		iface := Interface{Name: name}
		iface.Type, _ = firstString(obj, "type", "interface_type")
		iface.Address, _ = firstString(obj, "ip", "ipAddress", "address")
		iface.VLAN, _ = firstString(obj, "vlan", "vlanId")
		iface.Role, _ = firstString(obj, "role")
		iface.Description, _ = firstString(obj, "description")
		iface.Status, _ = firstString(obj, "status")
		iface.Speed, _ = firstString(obj, "speed")

		for j, conn := range firstArray(obj, "connections", "peers") {
			peer := fmt.Sprintf("Peer %d", j)
			if cobj, ok := conn.(map[string]any); ok {
				if p, ok := firstString(cobj, "device", "hostname", "name"); ok {
					peer = p
				}
			} else if s, ok := stringValue(conn); ok {
				peer = s
			}
			iface.Peers = append(iface.Peers, peer)
		}
		ext.Interfaces = append(ext.Interfaces, iface)
	}
	return ext, nil
}

// firstString returns the first of the given keys present with a
// non-empty scalar value.
func firstString(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := stringValue(obj[k]); ok {
			return s, true
		}
	}
	return "", false
}

func firstArray(obj map[string]any, keys ...string) []any {
	for _, k := range keys {
		if arr, ok := obj[k].([]any); ok {
			return arr
		}
	}
	return nil
}

// stringValue renders scalar JSON values as strings. VLAN ids in
// particular appear both as numbers and strings in the wild.
func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
