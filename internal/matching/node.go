package matching

import "math"

// Node is a market participant's desired price and volume. Ref is an opaque
// identity owned by the caller; the core copies it into results and never
// looks inside.
type Node struct {
	Price  float64
	Volume float64
	Ref    any
}

// ComputeNode decorates a Node with a mutable unusable sub-volume. The
// wrapped Node is a copy, so rationing and matching never touch caller data.
//
// Invariant: 0 <= unusable <= Volume.
type ComputeNode struct {
	node     Node
	unusable float64
}

// NewComputeNode wraps n with its whole volume usable.
func NewComputeNode(n Node) *ComputeNode {
	return &ComputeNode{node: n}
}

// Wrap creates one ComputeNode per input node, preserving order.
func Wrap(nodes []Node) []*ComputeNode {
	out := make([]*ComputeNode, len(nodes))
	for i, n := range nodes {
		out[i] = NewComputeNode(n)
	}
	return out
}

// Node returns the wrapped node.
func (c *ComputeNode) Node() Node { return c.node }

// Price returns the wrapped node's price per unit.
func (c *ComputeNode) Price() float64 { return c.node.Price }

// Volume returns the wrapped node's total volume.
func (c *ComputeNode) Volume() float64 { return c.node.Volume }

// Ref returns the wrapped node's opaque identity.
func (c *ComputeNode) Ref() any { return c.node.Ref }

// Unusable returns the volume currently set aside.
func (c *ComputeNode) Unusable() float64 { return c.unusable }

// Usable returns the volume still available for trading.
func (c *ComputeNode) Usable() float64 {
	return math.Max(c.node.Volume-c.unusable, 0)
}

// SetUnusable sets the unusable volume, clamped to [0, Volume].
func (c *ComputeNode) SetUnusable(x float64) {
	c.unusable = clamp(x, 0, c.volumeCap())
}

// IncrementUnusable grows the unusable volume by x, clamped to [0, Volume].
func (c *ComputeNode) IncrementUnusable(x float64) {
	c.SetUnusable(c.unusable + x)
}

// SetUnusableByFraction marks the fraction f of the total volume unusable.
// f is clamped to [0, 1]; NaN counts as 0.
func (c *ComputeNode) SetUnusableByFraction(f float64) {
	c.SetUnusable(clampFraction(f) * c.volumeCap())
}

// SetUsableByFraction leaves the fraction f of the total volume usable.
// f is clamped to [0, 1]; NaN counts as 0.
func (c *ComputeNode) SetUsableByFraction(f float64) {
	c.SetUnusable((1 - clampFraction(f)) * c.volumeCap())
}

// SetFullyUnusable removes the whole volume from trading.
func (c *ComputeNode) SetFullyUnusable() {
	c.unusable = c.volumeCap()
}

// SetFullyUsable makes the whole volume available again.
func (c *ComputeNode) SetFullyUsable() {
	c.unusable = 0
}

func (c *ComputeNode) volumeCap() float64 {
	if c.node.Volume > 0 {
		return c.node.Volume
	}
	return 0
}

// TotalUsable sums the usable volume of nodes.
func TotalUsable(nodes []*ComputeNode) float64 {
	var sum float64
	for _, n := range nodes {
		sum += n.Usable()
	}
	return sum
}

// TotalVolume sums the full volume of nodes.
func TotalVolume(nodes []*ComputeNode) float64 {
	var sum float64
	for _, n := range nodes {
		sum += n.Volume()
	}
	return sum
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clampFraction(f float64) float64 {
	return clamp(f, 0, 1)
}
