// Package netns drives Linux network namespaces for isolated device
// stacks. Every device under test gets its own namespace so that
// multiple wpantund instances can coexist on one host. All namespace
// manipulation goes through a node's command queue and requires sudo.
package netns

import (
	"fmt"
	"time"

	"github.com/openthread/silk-go/internal/node"
)

// ConstructCommand formats a command so it executes inside the given
// network namespace.
func ConstructCommand(namespace, command string) string {
	return fmt.Sprintf("sudo ip netns exec %s %s", namespace, command)
}

// LinkPairCommand returns the command that creates a veth pair with the
// two given endpoint names.
func LinkPairCommand(interface1, interface2 string) string {
	return fmt.Sprintf("sudo ip link add name %s type veth peer name %s", interface1, interface2)
}

// Controller issues namespace lifecycle and addressing commands on
// behalf of one device. Commands are queued on the device's node and
// run in order with everything else the device does.
type Controller struct {
	name string
	n    *node.Node
}

// NewController binds a controller to a namespace name and the node
// whose queue will carry its commands.
func NewController(name string, n *node.Node) *Controller {
	return &Controller{name: name, n: n}
}

// Name returns the namespace name.
func (c *Controller) Name() string { return c.name }

// CreateNamespace queues creation of the namespace.
func (c *Controller) CreateNamespace() {
	c.n.ExecAsync(node.Command{
		Action:  "netns-add",
		Cmd:     fmt.Sprintf("sudo ip netns add %s", c.name),
		Timeout: 2 * time.Second,
	})
}

// DeleteNamespace queues removal of the namespace.
func (c *Controller) DeleteNamespace() {
	c.n.ExecAsync(node.Command{
		Action:  "netns-del",
		Cmd:     fmt.Sprintf("sudo ip netns del %s", c.name),
		Timeout: 2 * time.Second,
	})
}

// ExecAsync queues an arbitrary command wrapped to run inside the
// namespace.
func (c *Controller) ExecAsync(action, command, expect string, timeout time.Duration, field string) {
	c.n.ExecAsync(node.Command{
		Action:  action,
		Cmd:     ConstructCommand(c.name, command),
		Expect:  expect,
		Timeout: timeout,
		Field:   field,
	})
}

// LinkSet moves an interface into the namespace and brings both ends of
// the veth pair up.
func (c *Controller) LinkSet(interfaceName, vethPeer string) {
	c.n.ExecAsync(node.Command{
		Action:  "link-set",
		Cmd:     fmt.Sprintf("ip link set %s netns %s", interfaceName, c.name),
		Timeout: time.Second,
	})
	c.ExecAsync("link-set", fmt.Sprintf("ifconfig %s up", interfaceName), "", time.Second, "")
	c.n.ExecAsync(node.Command{
		Action:  "link-set",
		Cmd:     fmt.Sprintf("ip link set %s up", vethPeer),
		Timeout: time.Second,
	})
}

// AddIP6Addr assembles an address from the prefix, subnet and interface
// identifier, stores it under interfaceLabel, and queues the command
// that attaches it to the interface.
func (c *Controller) AddIP6Addr(prefix, subnet, iid, iface, interfaceLabel string) (string, error) {
	addr, err := AssembleIPv6(prefix, subnet, iid)
	if err != nil {
		return "", err
	}
	c.n.StoreData(addr, interfaceLabel)
	c.ExecAsync("addr-add", fmt.Sprintf("ip addr add %s/64 dev %s", addr, iface), "", time.Second, "")
	c.ExecAsync("addr-add", "ifconfig", "", time.Second, "")
	return addr, nil
}

// SetDefaultRoute queues installation of a default IPv6 route through
// the given interface.
func (c *Controller) SetDefaultRoute(iface string) {
	c.ExecAsync("route-add", fmt.Sprintf("ip -6 route add default dev %s", iface), "", time.Second, "")
}

// AddRoute queues installation of an IPv6 route to dest/destSubnetLen
// via the given next hop and interface.
func (c *Controller) AddRoute(dest string, destSubnetLen int, via, iface string) {
	c.ExecAsync("route-add",
		fmt.Sprintf("ip -6 route add %s/%d via %s dev %s", dest, destSubnetLen, via, iface),
		"", time.Second, "")
}

// EnableIPv6Forwarding queues the sysctl that turns on forwarding
// inside the namespace.
func (c *Controller) EnableIPv6Forwarding() {
	c.ExecAsync("sysctl", "sysctl -w net.ipv6.conf.all.forwarding=1", "", time.Second, "")
}

// DisableIPv6Forwarding queues the sysctl that turns forwarding off.
func (c *Controller) DisableIPv6Forwarding() {
	c.ExecAsync("sysctl", "sysctl -w net.ipv6.conf.all.forwarding=0", "", time.Second, "")
}

// ListPIDs queues a listing of every process running inside the
// namespace, storing the raw listing under field.
func (c *Controller) ListPIDs(field string) {
	c.n.ExecAsync(node.Command{
		Action:  "netns-pids",
		Cmd:     fmt.Sprintf("sudo ip netns pids %s", c.name),
		Timeout: 2 * time.Second,
		Field:   field,
		Expect:  `(?s).*`,
	})
}
