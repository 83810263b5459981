// Package extract turns raw network-device configuration files into a
// provisional hostname + interface-record model. Each extractor is
// format specific and heuristic: it pulls whatever evidence the file
// offers without validating configuration correctness.
package extract

import (
	"github.com/meshadmin/topomapper/api"
)

// UnknownDevice is the hostname used when none is recoverable from
// the configuration. Its absence is not an error.
const UnknownDevice = "Unknown Device"

// Interface is one interface record recovered from a configuration.
// All fields except Name are optional.
type Interface struct {
	Name        string
	Type        string
	Role        string
	Address     string
	VLAN        string
	Description string
	Speed       string
	Status      string
	Mode        string

	// Peers are remote device names inferred from connection entries
	// or free-text descriptions.
	Peers []string
}

// Extraction is the output of a single extractor pass over one file.
type Extraction struct {
	Format   api.Format
	Hostname string
	// HostnameFound distinguishes a recovered hostname from the
	// UnknownDevice fallback. Text configurations without a hostname
	// line produce no device node at all.
	HostnameFound bool
	Interfaces    []Interface
}

// Extract detects the format of content and runs the matching
// extractor.
func Extract(filename string, content []byte) (Extraction, error) {
	switch DetectFormat(filename, content) {
	case api.FormatXML:
		return ExtractXML(string(content))
	case api.FormatJSON:
		return ExtractJSON(string(content))
	default:
		return ExtractText(string(content))
	}
}
