// Package pool implements a bounded free list of reusable audio nodes.
package pool

type (
	// Node is an audio node that can be pooled: Disconnect removes all of its
	// connections and Reset returns its parameters to their defaults and
	// clears their automation.
	Node interface {
		Disconnect()
		Reset()
	}

	// Pointer is a helper interface for type constraints: the nodes are
	// always handled through pointers, so the pool can detect nil nodes.
	Pointer[T any] interface {
		*T
		Node
	}

	// Pool is a free list of nodes. The number of nodes it creates is
	// unbounded, but it retains at most maxSize released nodes; the rest are
	// left for the garbage collector.
	//
	// Pool is not safe for concurrent use; the audio graph lock guards it.
	Pool[T any, P Pointer[T]] struct {
		factory func() P
		free    []P
		maxSize int
		created int
	}
)

// Default retention limits.
const (
	GainPoolSize   = 50
	FilterPoolSize = 30
	PannerPoolSize = 30
)

// New returns an empty pool constructing nodes with factory.
func New[T any, P Pointer[T]](factory func() P, maxSize int) *Pool[T, P] {
	return &Pool[T, P]{factory: factory, maxSize: max(maxSize, 0)}
}

// Acquire pops a node from the free list, or constructs a new one if the list
// is empty.
func (p *Pool[T, P]) Acquire() P {
	if l := len(p.free); l > 0 {
		node := p.free[l-1]
		p.free[l-1] = nil
		p.free = p.free[:l-1]
		return node
	}
	p.created++
	return p.factory()
}

// Release disconnects and resets the node and keeps it for reuse if the free
// list has room. Releasing nil is a no-op.
func (p *Pool[T, P]) Release(node P) {
	if node == nil {
		return
	}
	node.Disconnect()
	node.Reset()
	if len(p.free) < p.maxSize {
		p.free = append(p.free, node)
	}
}

// Clear disconnects every retained node and empties the free list.
func (p *Pool[T, P]) Clear() {
	for i, node := range p.free {
		node.Disconnect()
		p.free[i] = nil
	}
	p.free = p.free[:0]
}

// Len returns the number of nodes waiting in the free list.
func (p *Pool[T, P]) Len() int {
	return len(p.free)
}

// Created returns the number of nodes the factory has constructed.
func (p *Pool[T, P]) Created() int {
	return p.created
}
