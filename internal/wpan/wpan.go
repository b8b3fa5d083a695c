// Package wpan models the 6LoWPAN side of a device under test: network
// credentials, node roles, association state and the store labels used
// to carry addresses and counters between queued commands.
package wpan

import "fmt"

// NetworkState tracks NCP association as reported by wpantund.
type NetworkState int

const (
	StateNoNetwork NetworkState = iota
	StateSaved
	StateJoining
	StateAttached
	StateAttachedNoParent
	StateAttaching
)

func (s NetworkState) String() string {
	switch s {
	case StateNoNetwork:
		return "no-network"
	case StateSaved:
		return "saved"
	case StateJoining:
		return "joining"
	case StateAttached:
		return "attached"
	case StateAttachedNoParent:
		return "attached-no-parent"
	case StateAttaching:
		return "attaching"
	}
	return fmt.Sprintf("NetworkState(%d)", int(s))
}

// Thread device roles and their wpanctl node-type codes.
const (
	RoleRouter          = "router"
	RoleEndNode         = "end-node"
	RoleSleepyEndDevice = "sleepy-end-device"
)

var roleCodes = map[string]int{
	RoleRouter:          2,
	RoleEndNode:         3,
	RoleSleepyEndDevice: 4,
}

// RoleCode maps a role name to its wpanctl node-type code. Unknown
// roles map to the router code.
func RoleCode(role string) int {
	if code, ok := roleCodes[role]; ok {
		return code
	}
	return roleCodes[RoleRouter]
}

// Store labels populated by queued wpanctl and ping commands.
const (
	LabelNetworkState  = "wpan_network_state"
	LabelNetworkName   = "network_name"
	LabelChannel       = "channel"
	LabelPanID         = "panid"
	LabelXPanID        = "xpanid"
	LabelPSK           = "psk"
	LabelRole          = "role"
	LabelMACAddr       = "wpan_mac_addr"
	LabelIP6LLA        = "ip6_lla"
	LabelIP6MLA        = "ip6_mla"
	LabelIP6ThreadULA  = "ip6_thread_ula"
	LabelPing6Sent     = "ping6_sent"
	LabelPing6Received = "ping6_received"
	LabelPing6RTT      = "ping6_round_trip_time"
	LabelFabricID      = "fabric-id"
)

// Output patterns for wpanctl address queries.
const (
	linkLocalPattern = "fe80[a-fA-F0-9:]+"
	meshLocalPattern = "[fF][dD][a-fA-F0-9:]+"
)

// Credentials holds everything needed to form or join one PAN.
type Credentials struct {
	Name     string
	PSK      string
	Channel  int
	FabricID string
	XPanID   string
	PanID    int
}

func (c Credentials) String() string {
	return fmt.Sprintf("Network Name: %s\nPSK: %s\nNCP:Channel: %d\nFabric ID: %s\nNetwork:PANID: %d\nNetwork:XPANID: %s",
		c.Name, c.PSK, c.Channel, c.FabricID, c.PanID, c.XPanID)
}
