package netstack

import (
	"fmt"
	"sync"
)

// InterfaceKind is the tagged-variant discriminant for an Interface, per
// spec section 9: no open interface hierarchy, dispatch by tag.
type InterfaceKind int

const (
	KindVeth InterfaceKind = iota
	KindBridge
	KindTunnel
)

func (k InterfaceKind) String() string {
	switch k {
	case KindVeth:
		return "veth"
	case KindBridge:
		return "bridge"
	case KindTunnel:
		return "tunnel"
	}
	return "unknown"
}

// Stats mirrors minimega's tapStat (bridge.go): counters snapshotted per
// interface, one increment per frame rather than per byte.
type Stats struct {
	RxPackets int64
	RxErrors  int64
	TxPackets int64
	TxErrors  int64
}

// Interface is one network interface: a veth endpoint, a bridge switch,
// or a tunnel endpoint. Fields outside an interface's own Kind are left
// zero, the same tagged-union shape ast.Command uses for shell commands.
type Interface struct {
	Name      string
	Kind      InterfaceKind
	Namespace string
	Up        bool
	MTU       int
	Addrs     []string
	MAC       string
	Stats     Stats

	// Veth fields.
	Peer string // name of the other half of the pair

	// Attachment to a bridge, valid for any kind: bridges hold port
	// *names*, never references (spec section 9's arena+index rule), so
	// the reverse link lives here instead, on the port.
	Master string

	// Bridge fields, valid only when Kind == KindBridge.
	bridge *bridgeTable

	// Tunnel fields, valid only when Kind == KindTunnel.
	tunnel *tunnelEnd
}

// Namespace owns an interface table and a routing table. Per spec section
// 9, the stack owns namespaces and namespaces own interfaces; nothing
// downstream holds a back-reference.
type Namespace struct {
	Name string

	mu         sync.Mutex
	interfaces map[string]*Interface
	routes     []Route
}

func newNamespace(name string) *Namespace {
	return &Namespace{Name: name, interfaces: make(map[string]*Interface)}
}

// AddVeth creates a connected veth pair, nameA<->nameB, in this namespace.
func (ns *Namespace) AddVeth(nameA, nameB string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, ok := ns.interfaces[nameA]; ok {
		return fmt.Errorf("netstack: interface %q already exists", nameA)
	}
	if _, ok := ns.interfaces[nameB]; ok {
		return fmt.Errorf("netstack: interface %q already exists", nameB)
	}
	a := &Interface{Name: nameA, Kind: KindVeth, Namespace: ns.Name, Peer: nameB, MTU: 1500}
	b := &Interface{Name: nameB, Kind: KindVeth, Namespace: ns.Name, Peer: nameA, MTU: 1500}
	ns.interfaces[nameA] = a
	ns.interfaces[nameB] = b
	return nil
}

// AddBridge creates an empty software switch named name in this namespace.
func (ns *Namespace) AddBridge(name string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, ok := ns.interfaces[name]; ok {
		return fmt.Errorf("netstack: interface %q already exists", name)
	}
	ns.interfaces[name] = &Interface{
		Name:      name,
		Kind:      KindBridge,
		Namespace: ns.Name,
		MTU:       1500,
		bridge:    newBridgeTable(),
	}
	return nil
}

// AttachPort attaches interface portName to bridge brName as a port
// ("link set NAME master BR"). Both must already exist in this namespace.
func (ns *Namespace) AttachPort(brName, portName string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	br, ok := ns.interfaces[brName]
	if !ok || br.Kind != KindBridge {
		return fmt.Errorf("netstack: %q is not a bridge", brName)
	}
	port, ok := ns.interfaces[portName]
	if !ok {
		return fmt.Errorf("netstack: interface %q not found", portName)
	}
	port.Master = brName
	br.bridge.addPort(portName)
	return nil
}

// Interface looks up a named interface in this namespace.
func (ns *Namespace) Interface(name string) (*Interface, bool) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	iface, ok := ns.interfaces[name]
	return iface, ok
}

// Interfaces lists every interface name owned by this namespace.
func (ns *Namespace) Interfaces() []string {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := make([]string, 0, len(ns.interfaces))
	for name := range ns.interfaces {
		out = append(out, name)
	}
	return out
}

// SetUp brings an interface up or down.
func (ns *Namespace) SetUp(name string, up bool) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	iface, ok := ns.interfaces[name]
	if !ok {
		return fmt.Errorf("netstack: interface %q not found", name)
	}
	iface.Up = up
	return nil
}

// SetMTU sets an interface's MTU.
func (ns *Namespace) SetMTU(name string, mtu int) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	iface, ok := ns.interfaces[name]
	if !ok {
		return fmt.Errorf("netstack: interface %q not found", name)
	}
	iface.MTU = mtu
	return nil
}

// AddAddr assigns an address (e.g. "10.0.0.1/24") to an interface.
func (ns *Namespace) AddAddr(name, addr string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	iface, ok := ns.interfaces[name]
	if !ok {
		return fmt.Errorf("netstack: interface %q not found", name)
	}
	iface.Addrs = append(iface.Addrs, addr)
	return nil
}
