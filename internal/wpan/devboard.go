package wpan

import (
	"fmt"
	"time"

	"github.com/openthread/silk-go/internal/hardware"
	"github.com/openthread/silk-go/internal/netns"
	"github.com/openthread/silk-go/internal/node"
)

// DevBoard drives one development board running wpantund inside its own
// network namespace. Every operation is queued on the board's node;
// callers compose sequences and then wait for the queue to drain.
type DevBoard struct {
	*node.Node

	module  *hardware.Module
	ns      *netns.Controller
	wpanctl string

	// thread interface name inside the namespace, same as the namespace
	// name by convention.
	iface string
}

// NewDevBoard wires a claimed hardware module to a command runner. The
// namespace name doubles as the thread interface name.
func NewDevBoard(module *hardware.Module, runner node.CommandRunner) *DevBoard {
	n := node.New(module.Name, runner)
	b := &DevBoard{
		Node:    n,
		module:  module,
		ns:      netns.NewController(module.Name, n),
		wpanctl: "wpanctl",
		iface:   module.Name,
	}
	b.StoreData(node.NewLiveCell(LabelNetworkState), LabelNetworkState)
	b.StoreData(node.NewLiveCell(LabelIP6LLA), LabelIP6LLA)
	b.StoreData(node.NewLiveCell(LabelIP6MLA), LabelIP6MLA)
	return b
}

// Module returns the hardware module backing this board.
func (b *DevBoard) Module() *hardware.Module { return b.module }

// Netns returns the board's namespace controller.
func (b *DevBoard) Netns() *netns.Controller { return b.ns }

// SetWpanctlPath overrides the wpanctl binary used in queued commands.
func (b *DevBoard) SetWpanctlPath(path string) { b.wpanctl = path }

// wpanctlAsync queues a wpanctl invocation inside the board's namespace.
func (b *DevBoard) wpanctlAsync(action, command, expect string, timeout time.Duration, field string, fields []string) {
	full := fmt.Sprintf("%s -I %s %s", b.wpanctl, b.iface, command)
	b.ExecAsync(node.Command{
		Action:  action,
		Cmd:     netns.ConstructCommand(b.ns.Name(), full),
		Expect:  expect,
		Timeout: timeout,
		Field:   field,
		Fields:  fields,
	})
}

// netnsAsync queues a plain command inside the board's namespace.
func (b *DevBoard) netnsAsync(action, command, expect string, timeout time.Duration, fields []string) {
	b.ExecAsync(node.Command{
		Action:  action,
		Cmd:     netns.ConstructCommand(b.ns.Name(), command),
		Expect:  expect,
		Timeout: timeout,
		Fields:  fields,
	})
}

// SetUp queues creation of the board's namespace.
func (b *DevBoard) SetUp() {
	b.ns.CreateNamespace()
}

// TearDown queues namespace removal.
func (b *DevBoard) TearDown() {
	b.ns.DeleteNamespace()
}

// Form queues formation of the PAN described by the credentials, then
// queues extraction of the resulting network properties and addresses.
func (b *DevBoard) Form(network Credentials, role string) {
	b.StoreData(network.FabricID, LabelFabricID)
	b.wpanctlAsync("form", fmt.Sprintf("setprop Network:Key --data %s", network.PSK), "", time.Second, "", nil)

	b.StoreData(role, LabelRole)
	cmd := fmt.Sprintf("form %s -T %d -c %d", network.Name, RoleCode(role), network.Channel)
	if network.XPanID != "" {
		cmd += fmt.Sprintf(" -x %s", network.XPanID)
	}
	if network.PanID != 0 {
		cmd += fmt.Sprintf(" -p 0x%x", network.PanID)
	}
	b.wpanctlAsync("form", cmd, "Successfully formed!", 60*time.Second, "", nil)

	b.queryNetworkProperties("form")
}

// Join queues an attach to the PAN described by the credentials. The
// network key is always set before the join attempt.
func (b *DevBoard) Join(network Credentials, role string) {
	b.StoreData(network.FabricID, LabelFabricID)
	b.StoreData(network.XPanID, LabelXPanID)
	b.wpanctlAsync("join", fmt.Sprintf("setprop Network:Key --data %s", network.PSK), "", time.Second, "", nil)

	b.StoreData(role, LabelRole)
	cmd := fmt.Sprintf("join %s -T %d -c %d -x %s -p 0x%x",
		network.Name, RoleCode(role), network.Channel, network.XPanID, network.PanID)
	b.wpanctlAsync("join", cmd, "Successfully Joined!", 60*time.Second, "", nil)

	b.queryNetworkProperties("join")
}

// ProvisionalJoin queues an insecure join followed by the key update
// that completes it.
func (b *DevBoard) ProvisionalJoin(network Credentials, role string) {
	b.StoreData(network.FabricID, LabelFabricID)
	b.StoreData(network.XPanID, LabelXPanID)
	b.StoreData(role, LabelRole)

	cmd := fmt.Sprintf("join %s -T %d -c %d -x %s -p 0x%x",
		network.Name, RoleCode(role), network.Channel, network.XPanID, network.PanID)
	b.wpanctlAsync("join", cmd,
		`Partial \(insecure\) join. Credentials needed. Update key to continue.`, 30*time.Second, "", nil)

	b.wpanctlAsync("join", fmt.Sprintf("setprop Network:Key --data %s", network.PSK), "", time.Second, "", nil)
	b.QueryAssociationStateDelayed(5*time.Second, "associated")
	b.queryNetworkProperties("join")
}

// Leave queues departure from the current PAN and clears captured state.
func (b *DevBoard) Leave() {
	b.wpanctlAsync("leave", "leave", `Leaving current WPAN\. \. \.`, 60*time.Second, "", nil)
	b.CallAsync("leave", func() error {
		b.clearNetworkState()
		return nil
	})
}

// Resume queues reattachment to the previously saved PAN.
func (b *DevBoard) Resume() {
	b.wpanctlAsync("resume", "resume", `Resuming saved WPAN\. \. \.`, 10*time.Second, "", nil)
}

// PermitJoin queues commands allowing other devices to join through
// this node for the given period.
func (b *DevBoard) PermitJoin(period time.Duration) {
	if period <= 0 {
		period = 240 * time.Second
	}
	b.wpanctlAsync("permit-join", "setprop OpenThread:SteeringData:SetWhenJoinable true", "", 5*time.Second, "", nil)
	b.wpanctlAsync("permit-join", fmt.Sprintf("permit-join %d", int(period.Seconds())),
		"Permitting Joining on the current WPAN", 10*time.Second, "", nil)
}

// ResetThreadRadio queues an NCP soft reset and a settle delay.
func (b *DevBoard) ResetThreadRadio() {
	b.wpanctlAsync("reset", "reset", `Resetting NCP\. \. \.`, 5*time.Second, "", nil)
	b.ExecAsync(node.Command{
		Action:  "reset",
		Cmd:     "sleep 4; echo done",
		Expect:  "done",
		Timeout: 20 * time.Second,
	})
}

// QueryAssociationStateDelayed waits out the given delay and then
// checks that the NCP has reached the expected association state.
func (b *DevBoard) QueryAssociationStateDelayed(delay time.Duration, expectedState string) {
	b.ExecAsync(node.Command{
		Action:  "reset",
		Cmd:     fmt.Sprintf("sleep %d; echo done", int(delay.Seconds())),
		Expect:  "done",
		Timeout: delay + time.Second,
	})
	b.wpanctlAsync("join", "getprop AssociationState", expectedState, time.Second, "", nil)
}

// DataPoll queues a poll of the parent node.
func (b *DevBoard) DataPoll() {
	b.wpanctlAsync("data-poll", "poll", `Polling parent node for IP traffic\. \. \.`, 2*time.Second, "", nil)
}

// SetSleepPollInterval queues the sleepy poll interval property write.
func (b *DevBoard) SetSleepPollInterval(ms int) {
	b.wpanctlAsync("data-poll", fmt.Sprintf("setprop SleepPollInterval %d", ms), "", 2*time.Second, "", nil)
}

// ConfigGateway queues gateway configuration for the given prefix.
func (b *DevBoard) ConfigGateway(prefix string) {
	b.wpanctlAsync("config-gateway", fmt.Sprintf("config-gateway -d %s", prefix),
		"Gateway configured|Already", time.Second, "", nil)
}

// AddRoute assembles an address from prefix, subnet and interface
// identifier and queues a route prefix addition for it.
func (b *DevBoard) AddRoute(prefix, subnet, iid string, lengthBits int) error {
	addr, err := netns.AssembleIPv6(prefix, subnet, iid)
	if err != nil {
		return err
	}
	b.wpanctlAsync("add-route", fmt.Sprintf("add-route %s -l %d", addr, lengthBits/8),
		`Route prefix added\.`, 5*time.Second, "", nil)
	return nil
}

// Ping6 queues a ping of the target and captures the transmitted and
// received counts into the board's store.
func (b *DevBoard) Ping6(target string, count, payloadSize int) {
	cmd := fmt.Sprintf("ping6 -I %s %s -c %d -s %d -W 10", b.iface, target, count, payloadSize)
	pattern := fmt.Sprintf(`(?P<%s>[\d]+) packets transmitted, (?P<%s>[\d]+) received`,
		LabelPing6Sent, LabelPing6Received)
	timeout := time.Duration(count*2+1) * time.Second
	b.netnsAsync("ping6", cmd, pattern, timeout, []string{LabelPing6Sent, LabelPing6Received})
}

// TimedPing6 queues a ping of the target and captures the average round
// trip time into the board's store.
func (b *DevBoard) TimedPing6(target string, count, payloadSize int) {
	cmd := fmt.Sprintf("ping6 -I %s %s -c %d -s %d -W 2", b.iface, target, count, payloadSize)
	pattern := fmt.Sprintf(`rtt min/avg/max/mdev = \d+\.\d+/(?P<%s>\d+\.\d+)/\d+\.\d+/\d+\.\d+ ms`,
		LabelPing6RTT)
	timeout := time.Duration(count*2+1) * time.Second
	b.netnsAsync("ping6", cmd, pattern, timeout, []string{LabelPing6RTT})
}

// Ping6Sent returns the transmitted count from the latest ping.
func (b *DevBoard) Ping6Sent() int {
	return b.Data(LabelPing6Sent, node.Int, 0).(int)
}

// Ping6Received returns the received count from the latest ping.
func (b *DevBoard) Ping6Received() int {
	return b.Data(LabelPing6Received, node.Int, 0).(int)
}

// queryNetworkProperties queues extraction of channel, PANID, XPANID,
// network key, both addresses and the status check.
func (b *DevBoard) queryNetworkProperties(action string) {
	b.wpanctlAsync(action, "getprop channel", " [0-9]{1,2}$", 20*time.Second, LabelChannel, nil)
	b.wpanctlAsync(action, "getprop panid", "0x[0-9a-fA-F]{4}$", 20*time.Second, LabelPanID, nil)
	b.wpanctlAsync(action, "getprop xpanid", "0x[a-fA-F0-9]{16}$", 20*time.Second, LabelXPanID, nil)
	b.wpanctlAsync(action, "get IPv6:LinkLocalAddress", linkLocalPattern, 20*time.Second, LabelIP6LLA, nil)
	b.wpanctlAsync(action, "get IPv6:MeshLocalAddress", meshLocalPattern, 20*time.Second, LabelIP6MLA, nil)
	b.wpanctlAsync(action, "getprop Network:Key", `\[[0-9a-fA-F]{32}\]`, 20*time.Second, LabelPSK, nil)
	b.wpanctlAsync(action, "status", "AllowingJoin", 20*time.Second, "", nil)
}

// clearNetworkState drops the volatile fields captured during join.
func (b *DevBoard) clearNetworkState() {
	for _, label := range []string{LabelRole, LabelXPanID, LabelPanID, LabelChannel, LabelIP6ThreadULA, LabelPing6Sent, LabelPing6Received} {
		b.StoreData("", label)
	}
	b.StoreData(StateNoNetwork.String(), LabelNetworkState)
	b.StoreData("", LabelIP6LLA)
	b.StoreData("", LabelIP6MLA)
}

// WaitForNetworkState blocks until the network state cell reports the
// wanted state or the timeout elapses.
func (b *DevBoard) WaitForNetworkState(want NetworkState, timeout time.Duration) bool {
	cell := b.Cell(LabelNetworkState)
	if cell == nil {
		return false
	}
	return cell.WaitFor(func(v string) bool { return v == want.String() }, timeout)
}
