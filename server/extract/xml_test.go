package extract

import (
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshadmin/topomapper/api"
)

func TestExtractXML(t *testing.T) {
	content := `<?xml version="1.0"?>
<device>
  <name>fw1</name>
  <interfaces>
    <interface>
      <name>eth0</name>
      <type>wan</type>
      <ip>203.0.113.1</ip>
    </interface>
    <interface>
      <name>eth1</name>
      <role>internal</role>
    </interface>
  </interfaces>
</device>`

	ext, err := ExtractXML(content)
	jtest.RequireNil(t, err)

	assert.Equal(t, api.FormatXML, ext.Format)
	assert.Equal(t, "fw1", ext.Hostname)
	assert.True(t, ext.HostnameFound)
	require.Len(t, ext.Interfaces, 2)
	assert.Equal(t, Interface{Name: "eth0", Type: "wan", Address: "203.0.113.1"}, ext.Interfaces[0])
	assert.Equal(t, Interface{Name: "eth1", Role: "internal"}, ext.Interfaces[1])
}

func TestExtractXMLHostnameFallbacks(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		exp     string
		found   bool
	}{
		{
			name:    "hostname tag",
			content: `<config><hostname>core-sw</hostname></config>`,
			exp:     "core-sw",
			found:   true,
		},
		{
			name:    "system-name tag",
			content: `<config><system-name>edge1</system-name></config>`,
			exp:     "edge1",
			found:   true,
		},
		{
			name:    "nested device name",
			content: `<config><device><name>fw2</name></device></config>`,
			exp:     "fw2",
			found:   true,
		},
		{
			name:    "no hostname",
			content: `<config><something/></config>`,
			exp:     UnknownDevice,
			found:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ext, err := ExtractXML(tc.content)
			jtest.RequireNil(t, err)
			assert.Equal(t, tc.exp, ext.Hostname)
			assert.Equal(t, tc.found, ext.HostnameFound)
		})
	}
}

func TestExtractXMLHostnamePrecedence(t *testing.T) {
	// A bare <name> outranks <hostname>, first in the pattern order.
	ext, err := ExtractXML(`<config><name>sw-7</name><hostname>other</hostname></config>`)
	jtest.RequireNil(t, err)
	assert.Equal(t, "sw-7", ext.Hostname)
	assert.True(t, ext.HostnameFound)

	// A <name> inside an interface element names the interface, never
	// the device.
	ext, err = ExtractXML(`<interface><name>eth0</name></interface>`)
	jtest.RequireNil(t, err)
	assert.Equal(t, UnknownDevice, ext.Hostname)
	assert.False(t, ext.HostnameFound)
	require.Len(t, ext.Interfaces, 1)
	assert.Equal(t, "eth0", ext.Interfaces[0].Name)

	// Interface <name> children don't shadow a later <hostname>.
	ext, err = ExtractXML(`<config><interface><name>eth0</name></interface><hostname>fw3</hostname></config>`)
	jtest.RequireNil(t, err)
	assert.Equal(t, "fw3", ext.Hostname)
}

func TestExtractXMLAlternateShapes(t *testing.T) {
	content := `<switch>
  <hostname>sw1</hostname>
  <port name="ge-0/0/0"/>
  <physical-interface>
    <name>xe-0/0/1</name>
    <speed>10G</speed>
  </physical-interface>
</switch>`

	ext, err := ExtractXML(content)
	jtest.RequireNil(t, err)

	require.Len(t, ext.Interfaces, 2)
	assert.Equal(t, "ge-0/0/0", ext.Interfaces[0].Name)
	assert.Equal(t, "xe-0/0/1", ext.Interfaces[1].Name)
	assert.Equal(t, "10G", ext.Interfaces[1].Speed)
}

func TestExtractXMLFallbackTags(t *testing.T) {
	// Vendor-specific tags that only resemble interface elements are
	// used when no standard shape matched anything.
	content := `<config>
  <hostname>r9</hostname>
  <vendor-intf-entry name="mgmt0"/>
</config>`

	ext, err := ExtractXML(content)
	jtest.RequireNil(t, err)

	require.Len(t, ext.Interfaces, 1)
	assert.Equal(t, "mgmt0", ext.Interfaces[0].Name)
}

func TestExtractXMLTruncated(t *testing.T) {
	// Truncated document keeps the prefix it could read.
	content := `<device><name>fw1</name><interface><name>eth0</name>`

	ext, err := ExtractXML(content)
	jtest.RequireNil(t, err)

	assert.Equal(t, "fw1", ext.Hostname)
	require.Len(t, ext.Interfaces, 1)
	assert.Equal(t, "eth0", ext.Interfaces[0].Name)
}

func TestExtractXMLErrors(t *testing.T) {
	_, err := ExtractXML("   \n\t")
	jtest.Assert(t, ErrEmptyInput, err)

	_, err = ExtractXML("just some words")
	jtest.Assert(t, ErrUnrecognizedFormat, err)
}

func TestExtractXMLIdempotent(t *testing.T) {
	content := `<device><name>fw1</name><interface><name>eth0</name><type>wan</type></interface></device>`

	first, err := ExtractXML(content)
	jtest.RequireNil(t, err)
	second, err := ExtractXML(content)
	jtest.RequireNil(t, err)

	assert.Equal(t, first, second)
}
