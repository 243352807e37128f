package graph

import "slices"

type (
	// Node is a processing node of the graph. Connect adds the output of the
	// node to the input of dst; Disconnect removes every outgoing connection.
	Node interface {
		Connect(dst Node)
		Disconnect()
		base() *node
		process(frame int64) [2]float32
	}

	// node holds the connections and the per-frame output cache shared by
	// every node type.
	node struct {
		ctx     *Context
		self    Node
		inputs  []Node
		outputs []Node
		frame   int64
		out     [2]float32
	}

	// Destination sums its inputs; it is the node rendered by the context.
	Destination struct {
		node
	}

	// Gain multiplies its input by the Gain parameter.
	Gain struct {
		node
		Gain *Param
	}
)

func (n *node) init(ctx *Context, self Node) {
	n.ctx = ctx
	n.self = self
	n.frame = -1
}

func (n *node) base() *node { return n }

// Context returns the context the node belongs to.
func (n *node) Context() *Context { return n.ctx }

func (n *node) Connect(dst Node) {
	d := dst.base()
	d.inputs = append(d.inputs, n.self)
	n.outputs = append(n.outputs, dst)
}

// DisconnectFrom removes the connection to dst only.
func (n *node) DisconnectFrom(dst Node) {
	d := dst.base()
	if i := slices.Index(d.inputs, n.self); i >= 0 {
		d.inputs = slices.Delete(d.inputs, i, i+1)
	}
	if i := slices.Index(n.outputs, dst); i >= 0 {
		n.outputs = slices.Delete(n.outputs, i, i+1)
	}
}

func (n *node) Disconnect() {
	for _, dst := range n.outputs {
		d := dst.base()
		if i := slices.Index(d.inputs, n.self); i >= 0 {
			d.inputs = slices.Delete(d.inputs, i, i+1)
		}
	}
	n.outputs = n.outputs[:0]
}

// NumInputs returns the number of nodes connected to the node.
func (n *node) NumInputs() int { return len(n.inputs) }

func (n *node) clearInputs() {
	for _, src := range slices.Clone(n.inputs) {
		src.base().DisconnectFrom(n.self)
	}
}

// input sums the outputs of every connected node at frame.
func (n *node) input(frame int64) (ret [2]float32) {
	for _, in := range n.inputs {
		v := pull(in, frame)
		ret[0] += v[0]
		ret[1] += v[1]
	}
	return
}

// pull returns the output of n at frame, computing it at most once per
// frame. While n is being computed its output reads as silence, which breaks
// cycles that do not pass through a Delay.
func pull(n Node, frame int64) [2]float32 {
	b := n.base()
	if b.frame == frame {
		return b.out
	}
	b.frame = frame
	b.out = [2]float32{}
	b.out = n.process(frame)
	return b.out
}

func (d *Destination) process(frame int64) [2]float32 {
	return d.input(frame)
}

// NewGain returns a gain node with unity gain.
func (c *Context) NewGain() *Gain {
	g := &Gain{Gain: newParam(c, 1)}
	g.init(c, g)
	return g
}

// Reset restores unity gain and detaches every input.
func (g *Gain) Reset() {
	g.Gain.Reset()
	g.clearInputs()
}

func (g *Gain) process(frame int64) [2]float32 {
	in := g.input(frame)
	gain := float32(g.Gain.valueAt(g.ctx.time(frame)))
	return [2]float32{in[0] * gain, in[1] * gain}
}
