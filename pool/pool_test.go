package pool_test

import (
	"testing"

	"github.com/harmonia-audio/harmonia/pool"
)

type fakeNode struct {
	gain         float64
	connected    bool
	disconnected int
}

func (n *fakeNode) Disconnect() {
	n.connected = false
	n.disconnected++
}

func (n *fakeNode) Reset() { n.gain = 1 }

func newFake() *fakeNode { return &fakeNode{gain: 1} }

func TestReuseAtCapacityOne(t *testing.T) {
	p := pool.New(newFake, 1)
	a := p.Acquire()
	a.gain = 0.3
	a.connected = true
	p.Release(a)
	b := p.Acquire()
	if a != b {
		t.Fatalf("expected the released node to be reused")
	}
	if b.gain != 1 || b.connected {
		t.Fatalf("reused node was not reset: %+v", b)
	}
	if p.Created() != 1 {
		t.Fatalf("Created() = %v, want 1", p.Created())
	}
}

func TestReleaseBeyondCapacityDrops(t *testing.T) {
	p := pool.New(newFake, 2)
	nodes := []*fakeNode{p.Acquire(), p.Acquire(), p.Acquire()}
	for _, n := range nodes {
		p.Release(n)
	}
	if p.Len() != 2 {
		t.Fatalf("Len() = %v, want 2", p.Len())
	}
	if nodes[2].disconnected != 1 {
		t.Fatalf("dropped node should still be disconnected")
	}
	if p.Created() != 3 {
		t.Fatalf("Created() = %v, want 3", p.Created())
	}
}

func TestReleaseNil(t *testing.T) {
	p := pool.New(newFake, 1)
	p.Release(nil)
	if p.Len() != 0 {
		t.Fatalf("releasing nil added a node")
	}
}

func TestClear(t *testing.T) {
	p := pool.New(newFake, 5)
	a, b := p.Acquire(), p.Acquire()
	p.Release(a)
	p.Release(b)
	p.Clear()
	if p.Len() != 0 {
		t.Fatalf("Len() = %v after Clear", p.Len())
	}
	if a.disconnected != 2 {
		t.Fatalf("Clear should disconnect retained nodes, got %v disconnects", a.disconnected)
	}
	if c := p.Acquire(); c == a || c == b {
		t.Fatalf("Clear should forget retained nodes")
	}
}
