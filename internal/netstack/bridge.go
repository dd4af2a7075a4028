package netstack

import "sync"

// bridgeTable is the MAC forwarding table for one bridge interface:
// source-address learning plus flood-on-unknown-destination, the same
// switching behavior minimega gets from openvswitch but implemented here
// as a plain in-process map instead of shelling out to ovs-vsctl.
type bridgeTable struct {
	mu      sync.Mutex
	ports   []string          // member interface names, in attach order
	learned map[string]string // MAC -> port name
}

func newBridgeTable() *bridgeTable {
	return &bridgeTable{learned: make(map[string]string)}
}

func (b *bridgeTable) addPort(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.ports {
		if p == name {
			return
		}
	}
	b.ports = append(b.ports, name)
}

func (b *bridgeTable) removePort(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.ports {
		if p == name {
			b.ports = append(b.ports[:i], b.ports[i+1:]...)
			break
		}
	}
	for mac, port := range b.learned {
		if port == name {
			delete(b.learned, mac)
		}
	}
}

// learn records that srcMAC was last seen arriving on srcPort.
func (b *bridgeTable) learn(srcMAC, srcPort string) {
	if srcMAC == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.learned[srcMAC] = srcPort
}

// forward returns the ports a frame addressed to dstMAC should egress on,
// given it arrived on srcPort: the single learned port if known, or every
// other port (flood) if not.
func (b *bridgeTable) forward(srcPort, dstMAC string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if port, ok := b.learned[dstMAC]; ok {
		if port == srcPort {
			return nil
		}
		return []string{port}
	}

	out := make([]string, 0, len(b.ports))
	for _, p := range b.ports {
		if p != srcPort {
			out = append(out, p)
		}
	}
	return out
}

// Ports returns the bridge's current port list.
func (br *Interface) Ports() []string {
	if br.Kind != KindBridge || br.bridge == nil {
		return nil
	}
	br.bridge.mu.Lock()
	defer br.bridge.mu.Unlock()
	return append([]string(nil), br.bridge.ports...)
}

// Forward simulates one frame arriving on srcPort from srcMAC addressed
// to dstMAC, learning srcMAC's location and returning which ports it
// egresses on (nil if dropped, e.g. destination is the source port).
func (br *Interface) Forward(srcPort, srcMAC, dstMAC string) []string {
	if br.Kind != KindBridge || br.bridge == nil {
		return nil
	}
	br.bridge.learn(srcMAC, srcPort)
	return br.bridge.forward(srcPort, dstMAC)
}

// RemovePort detaches portName from this bridge, if attached.
func (br *Interface) RemovePort(portName string) {
	if br.Kind != KindBridge || br.bridge == nil {
		return
	}
	br.bridge.removePort(portName)
}
