package netns

import (
	"fmt"
	"strconv"
	"strings"
)

// AssembleIPv6 builds an IPv6 address string from a 48-bit prefix, a
// 16-bit subnet and a 64-bit interface identifier, all given as hex
// strings (colons allowed). The universal/local bit of the interface
// identifier is forced on.
func AssembleIPv6(prefix, subnet, iid string) (string, error) {
	prefix = normalizeHex(prefix)
	subnet = normalizeHex(subnet)
	iid = normalizeHex(iid)

	if len(prefix) != 12 {
		return "", fmt.Errorf("netns: prefix must be 12 hex chars, got %d", len(prefix))
	}
	if len(subnet) != 4 {
		return "", fmt.Errorf("netns: subnet must be 4 hex chars, got %d", len(subnet))
	}
	if len(iid) != 16 {
		return "", fmt.Errorf("netns: iid must be 16 hex chars, got %d", len(iid))
	}

	lower, err := strconv.ParseUint(iid, 16, 64)
	if err != nil {
		return "", fmt.Errorf("netns: bad iid %q: %w", iid, err)
	}
	lower |= 1 << 57

	raw := prefix + subnet + fmt.Sprintf("%016x", lower)

	groups := make([]string, 0, 8)
	for i := 0; i < len(raw); i += 4 {
		groups = append(groups, raw[i:i+4])
	}
	return strings.Join(groups, ":"), nil
}

// AssembleFabricIPv6 forms a mesh-local style address by prepending the
// "fd" ULA marker to a 40-bit fabric identifier.
func AssembleFabricIPv6(fabricID, subnet, iid string) (string, error) {
	return AssembleIPv6("fd"+normalizeHex(fabricID), subnet, iid)
}

func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ":", "")
	s = strings.TrimPrefix(s, "0x")
	return s
}
