package netstack

import (
	"net"
	"testing"
)

func TestDefaultNamespacePresentAndUndeletable(t *testing.T) {
	s := New()
	if _, ok := s.Namespace(DefaultNamespace); !ok {
		t.Fatal("default namespace missing")
	}
	if err := s.DelNamespace(DefaultNamespace); err == nil {
		t.Fatal("expected error deleting default namespace")
	}
}

func TestAddAndDeleteNamespace(t *testing.T) {
	s := New()
	if err := s.AddNamespace("ns1"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddNamespace("ns1"); err == nil {
		t.Fatal("expected error on duplicate namespace")
	}
	if err := s.DelNamespace("ns1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Namespace("ns1"); ok {
		t.Fatal("namespace should be gone")
	}
}

func TestVethPairAndMoveOnlyMovesOneHalf(t *testing.T) {
	s := New()
	s.AddNamespace("ns1")
	def, _ := s.Namespace(DefaultNamespace)
	if err := def.AddVeth("veth0", "veth1"); err != nil {
		t.Fatal(err)
	}

	if err := s.MoveInterface("veth0", DefaultNamespace, "ns1"); err != nil {
		t.Fatal(err)
	}

	if _, ok := def.Interface("veth0"); ok {
		t.Fatal("veth0 should have moved out of default")
	}
	if _, ok := def.Interface("veth1"); !ok {
		t.Fatal("veth1 (the peer) should stay in default")
	}
	ns1, _ := s.Namespace("ns1")
	moved, ok := ns1.Interface("veth0")
	if !ok {
		t.Fatal("veth0 should now be in ns1")
	}
	if moved.Namespace != "ns1" {
		t.Fatalf("moved interface namespace = %q, want ns1", moved.Namespace)
	}
}

func TestBridgeLearningAndFlood(t *testing.T) {
	s := New()
	def, _ := s.Namespace(DefaultNamespace)
	def.AddVeth("a0", "a1")
	def.AddVeth("b0", "b1")
	def.AddVeth("c0", "c1")
	if err := def.AddBridge("br0"); err != nil {
		t.Fatal(err)
	}
	def.AttachPort("br0", "a0")
	def.AttachPort("br0", "b0")
	def.AttachPort("br0", "c0")

	br, _ := def.Interface("br0")

	// Unknown destination: flood every port except the source.
	out := br.Forward("a0", "aa:aa:aa:aa:aa:aa", "ff:ff:ff:ff:ff:ff")
	if len(out) != 2 {
		t.Fatalf("expected flood to 2 ports, got %v", out)
	}

	// After b0 sources a frame from its MAC, traffic to that MAC should
	// go only to b0.
	br.Forward("b0", "bb:bb:bb:bb:bb:bb", "ff:ff:ff:ff:ff:ff")
	out = br.Forward("a0", "aa:aa:aa:aa:aa:aa", "bb:bb:bb:bb:bb:bb")
	if len(out) != 1 || out[0] != "b0" {
		t.Fatalf("expected forward to [b0], got %v", out)
	}
}

func TestRouteLookupLongestPrefixAndDefaultRoute(t *testing.T) {
	s := New()
	def, _ := s.Namespace(DefaultNamespace)
	def.AddRoute("10.0.0.0/8", "gw-broad", 10)
	def.AddRoute("10.0.1.0/24", "gw-narrow", 10)
	def.AddRoute("0.0.0.0/0", "gw-default", 0)

	r, err := def.Lookup(net.ParseIP("10.0.1.5"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Gateway != "gw-narrow" {
		t.Fatalf("expected longest-prefix match gw-narrow, got %s", r.Gateway)
	}

	r, err = def.Lookup(net.ParseIP("10.5.5.5"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Gateway != "gw-broad" {
		t.Fatalf("expected gw-broad, got %s", r.Gateway)
	}

	r, err = def.Lookup(net.ParseIP("8.8.8.8"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Gateway != "gw-default" {
		t.Fatalf("expected default route, got %s", r.Gateway)
	}
}

func TestRouteLookupNoMatchFails(t *testing.T) {
	s := New()
	def, _ := s.Namespace(DefaultNamespace)
	def.AddRoute("10.0.0.0/8", "gw", 0)
	if _, err := def.Lookup(net.ParseIP("8.8.8.8")); err == nil {
		t.Fatal("expected no route to host")
	}
}

func TestRouteMetricTiebreak(t *testing.T) {
	s := New()
	def, _ := s.Namespace(DefaultNamespace)
	def.AddRoute("10.0.0.0/24", "gw-high-metric", 20)
	def.AddRoute("10.0.0.0/24", "gw-low-metric", 5)

	r, err := def.Lookup(net.ParseIP("10.0.0.5"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Gateway != "gw-low-metric" {
		t.Fatalf("expected lowest metric to win tie, got %s", r.Gateway)
	}
}

func TestTunnelPairShuttlesBytes(t *testing.T) {
	s := New()
	def, _ := s.Namespace(DefaultNamespace)
	if err := def.AddTunnel("tun0", "tun1"); err != nil {
		t.Fatal(err)
	}
	tun0, _ := def.Interface("tun0")
	tun1, _ := def.Interface("tun1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 5)
		n, err := tun1.Read(buf)
		if err != nil {
			t.Errorf("read error: %v", err)
		}
		if string(buf[:n]) != "hello" {
			t.Errorf("got %q, want hello", buf[:n])
		}
	}()

	if _, err := tun0.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	<-done

	if tun0.Stats.TxPackets != 1 {
		t.Fatalf("tun0 TxPackets = %d, want 1", tun0.Stats.TxPackets)
	}
	if tun1.Stats.RxPackets != 1 {
		t.Fatalf("tun1 RxPackets = %d, want 1", tun1.Stats.RxPackets)
	}
}
