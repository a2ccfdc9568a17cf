package matching

import (
	"fmt"
	"math"
)

// residueTolerance absorbs floating-point noise in match amounts: negative
// amounts inside this band are stored as zero.
const residueTolerance = 1e-10

// OneToOneMatch is a single trade between a left (seller) node and a right
// (buyer) node.
type OneToOneMatch struct {
	Left   Node
	Right  Node
	Amount float64
	Price  float64
}

// NewOneToOneMatch validates and builds a match. Amounts within
// residueTolerance below zero are coerced to zero; more negative amounts,
// NaN, or amounts larger than either node's volume are rejected.
func NewOneToOneMatch(left, right Node, amount, price float64) (OneToOneMatch, error) {
	if math.IsNaN(amount) {
		return OneToOneMatch{}, fmt.Errorf("match amount is NaN: %w", ErrNegativeMatchAmount)
	}
	if amount < 0 {
		if amount <= -residueTolerance {
			return OneToOneMatch{}, fmt.Errorf("match amount %g: %w", amount, ErrNegativeMatchAmount)
		}
		amount = 0
	}
	if limit := math.Max(math.Min(left.Volume, right.Volume), 0); amount > limit {
		return OneToOneMatch{}, fmt.Errorf("match amount %g exceeds %g: %w", amount, limit, ErrMatchAmountTooLarge)
	}
	return OneToOneMatch{Left: left, Right: right, Amount: amount, Price: price}, nil
}

// UnmatchedNode records volume of a node that found no counterparty.
type UnmatchedNode struct {
	Node   Node
	Amount float64
}

// NewUnmatchedNode validates 0 <= amount <= node.Volume.
func NewUnmatchedNode(node Node, amount float64) (UnmatchedNode, error) {
	if math.IsNaN(amount) || amount < 0 || amount > node.Volume {
		return UnmatchedNode{}, fmt.Errorf("unmatched amount %g for volume %g: %w",
			amount, node.Volume, ErrUnmatchedAmountOutOfRange)
	}
	return UnmatchedNode{Node: node, Amount: amount}, nil
}

// Matching is the immutable outcome of a matching call. Use a Builder to
// create one.
type Matching struct {
	matches        []OneToOneMatch
	unmatchedLeft  []UnmatchedNode
	unmatchedRight []UnmatchedNode
}

// Matches returns the trades in the order they were made.
func (m *Matching) Matches() []OneToOneMatch {
	return append([]OneToOneMatch(nil), m.matches...)
}

// UnmatchedLeft returns the left-side residues.
func (m *Matching) UnmatchedLeft() []UnmatchedNode {
	return append([]UnmatchedNode(nil), m.unmatchedLeft...)
}

// UnmatchedRight returns the right-side residues.
func (m *Matching) UnmatchedRight() []UnmatchedNode {
	return append([]UnmatchedNode(nil), m.unmatchedRight...)
}

// Len returns the number of trades.
func (m *Matching) Len() int { return len(m.matches) }

// Empty reports whether the matching holds neither trades nor residues.
func (m *Matching) Empty() bool {
	return len(m.matches) == 0 && len(m.unmatchedLeft) == 0 && len(m.unmatchedRight) == 0
}

// TotalAmount sums the traded amount over all matches.
func (m *Matching) TotalAmount() float64 {
	var sum float64
	for _, t := range m.matches {
		sum += t.Amount
	}
	return sum
}

// Builder accumulates trades and residues. It is not safe for concurrent use.
type Builder struct {
	matches        []OneToOneMatch
	unmatchedLeft  []UnmatchedNode
	unmatchedRight []UnmatchedNode
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddMatch appends an already validated match.
func (b *Builder) AddMatch(m OneToOneMatch) {
	b.matches = append(b.matches, m)
}

// Match validates and appends a trade between left and right.
func (b *Builder) Match(left, right Node, amount, price float64) error {
	m, err := NewOneToOneMatch(left, right, amount, price)
	if err != nil {
		return err
	}
	b.AddMatch(m)
	return nil
}

// AddUnmatchedLeft records the whole volume of node as unmatched.
func (b *Builder) AddUnmatchedLeft(node Node) error {
	return b.AddUnmatchedLeftAmount(node, node.Volume)
}

// AddUnmatchedLeftAmount records amount of node as unmatched.
func (b *Builder) AddUnmatchedLeftAmount(node Node, amount float64) error {
	u, err := NewUnmatchedNode(node, amount)
	if err != nil {
		return err
	}
	b.unmatchedLeft = append(b.unmatchedLeft, u)
	return nil
}

// AddUnmatchedRight records the whole volume of node as unmatched.
func (b *Builder) AddUnmatchedRight(node Node) error {
	return b.AddUnmatchedRightAmount(node, node.Volume)
}

// AddUnmatchedRightAmount records amount of node as unmatched.
func (b *Builder) AddUnmatchedRightAmount(node Node, amount float64) error {
	u, err := NewUnmatchedNode(node, amount)
	if err != nil {
		return err
	}
	b.unmatchedRight = append(b.unmatchedRight, u)
	return nil
}

// Build freezes the accumulated state. The Builder may keep being used; later
// additions do not leak into matchings already built.
func (b *Builder) Build() *Matching {
	return &Matching{
		matches:        append([]OneToOneMatch(nil), b.matches...),
		unmatchedLeft:  append([]UnmatchedNode(nil), b.unmatchedLeft...),
		unmatchedRight: append([]UnmatchedNode(nil), b.unmatchedRight...),
	}
}
