package extract

import (
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshadmin/topomapper/api"
)

func TestExtractText(t *testing.T) {
	content := `hostname r1
!
interface GigabitEthernet0/1
 description to core-sw
 ip address 10.0.0.1 255.255.255.0
!
interface FastEthernet0/1
 switchport access vlan 30
 shutdown
!
interface Vlan10
 ip address 10.0.10.1 255.255.255.0
!
`

	ext, err := ExtractText(content)
	jtest.RequireNil(t, err)

	assert.Equal(t, api.FormatText, ext.Format)
	assert.Equal(t, "r1", ext.Hostname)
	assert.True(t, ext.HostnameFound)
	require.Len(t, ext.Interfaces, 3)

	gi := ext.Interfaces[0]
	assert.Equal(t, "GigabitEthernet0/1", gi.Name)
	assert.Equal(t, "routed", gi.Type)
	assert.Equal(t, "10.0.0.1", gi.Address)
	assert.Equal(t, "to core-sw", gi.Description)
	assert.Equal(t, []string{"core-sw"}, gi.Peers)

	fa := ext.Interfaces[1]
	assert.Equal(t, "FastEthernet0/1", fa.Name)
	assert.Equal(t, "LAN", fa.Type)
	assert.Equal(t, "30", fa.VLAN)
	assert.Equal(t, "down", fa.Status)

	vl := ext.Interfaces[2]
	assert.Equal(t, "Vlan10", vl.Name)
	assert.Equal(t, "VLAN", vl.Type)
}

func TestExtractTextTypeInference(t *testing.T) {
	testCases := []struct {
		name  string
		block string
		exp   string
	}{
		{
			name:  "trunk",
			block: "interface GigabitEthernet0/2\n switchport mode trunk\n",
			exp:   "trunk",
		},
		{
			name:  "routed",
			block: "interface TenGigE0/0/0\n ip address 10.1.1.1 255.255.255.252\n",
			exp:   "routed",
		},
		{
			name:  "access",
			block: "interface ethernet1/1\n",
			exp:   "access",
		},
		{
			name:  "serial is wan",
			block: "interface Serial0/0/0\n",
			exp:   "WAN",
		},
		{
			name:  "cellular is wan",
			block: "interface Cellular0\n",
			exp:   "WAN",
		},
		{
			name:  "loopback is virtual",
			block: "interface Loopback0\n",
			exp:   "virtual",
		},
		{
			name:  "tunnel",
			block: "interface Tunnel100\n",
			exp:   "tunnel",
		},
		{
			name:  "port channel",
			block: "interface Port-channel1\n",
			exp:   "aggregated",
		},
		{
			name:  "management",
			block: "interface mgmt0\n",
			exp:   "Management",
		},
		{
			name:  "unrecognised",
			block: "interface Dialer1\n",
			exp:   "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ext, err := ExtractText("hostname r1\n" + tc.block)
			jtest.RequireNil(t, err)
			require.Len(t, ext.Interfaces, 1)
			assert.Equal(t, tc.exp, ext.Interfaces[0].Type)
		})
	}
}

func TestExtractTextNoHostname(t *testing.T) {
	ext, err := ExtractText("interface GigabitEthernet0/1\n ip address 10.0.0.1 255.255.255.0\n")
	jtest.RequireNil(t, err)

	assert.Equal(t, UnknownDevice, ext.Hostname)
	assert.False(t, ext.HostnameFound)
	require.Len(t, ext.Interfaces, 1)
}

func TestExtractTextPeerSkipsSelf(t *testing.T) {
	content := `hostname r1
interface GigabitEthernet0/1
 description link to r1
`
	ext, err := ExtractText(content)
	jtest.RequireNil(t, err)

	require.Len(t, ext.Interfaces, 1)
	assert.Empty(t, ext.Interfaces[0].Peers)
}

func TestExtractTextBlockBoundaries(t *testing.T) {
	// The address under the second interface must not leak into the
	// first, and top-level commands end a block.
	content := `hostname r1
interface GigabitEthernet0/1
 description uplink
router ospf 1
 network 10.0.0.0 0.0.0.255 area 0
interface GigabitEthernet0/2
 ip address 10.0.2.1 255.255.255.0
`
	ext, err := ExtractText(content)
	jtest.RequireNil(t, err)

	require.Len(t, ext.Interfaces, 2)
	assert.Empty(t, ext.Interfaces[0].Address)
	assert.Equal(t, "10.0.2.1", ext.Interfaces[1].Address)
}

func TestExtractTextEmpty(t *testing.T) {
	_, err := ExtractText(" \n ")
	jtest.Assert(t, ErrEmptyInput, err)
}
