package matching

import "fmt"

// CallAuctionGroup is one side of a call auction.
type CallAuctionGroup struct {
	nodes []*ComputeNode
}

// Division partitions a group's usable volume around a price threshold.
type Division struct {
	LowerThan   float64
	GreaterThan float64
	EqualTo     float64
	Threshold   float64
}

// LowerThanEqualTo returns the volume priced at or below the threshold.
func (d Division) LowerThanEqualTo() float64 { return d.LowerThan + d.EqualTo }

// GreaterThanEqualTo returns the volume priced at or above the threshold.
func (d Division) GreaterThanEqualTo() float64 { return d.GreaterThan + d.EqualTo }

// Total returns the whole volume of the division.
func (d Division) Total() float64 { return d.LowerThan + d.EqualTo + d.GreaterThan }

// NewCallAuctionGroup wraps nodes. It fails with ErrEmptyGroup for no nodes
// and ErrZeroVolume when the nodes offer nothing.
func NewCallAuctionGroup(nodes []Node) (*CallAuctionGroup, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyGroup
	}
	g := &CallAuctionGroup{nodes: Wrap(nodes)}
	if total := TotalVolume(g.nodes); !(total > 0) {
		return nil, fmt.Errorf("group volume %g: %w", total, ErrZeroVolume)
	}
	return g, nil
}

// Nodes returns the group's compute nodes in their original order. The
// returned slice aliases the group.
func (g *CallAuctionGroup) Nodes() []*ComputeNode { return g.nodes }

// Len returns the number of nodes in the group.
func (g *CallAuctionGroup) Len() int { return len(g.nodes) }

// SplitByPrice partitions the group's usable volume by comparing each node's
// price to threshold.
func (g *CallAuctionGroup) SplitByPrice(threshold float64) Division {
	d := Division{Threshold: threshold}
	for _, n := range g.nodes {
		switch p := n.Price(); {
		case p < threshold:
			d.LowerThan += n.Usable()
		case p > threshold:
			d.GreaterThan += n.Usable()
		default:
			d.EqualTo += n.Usable()
		}
	}
	return d
}
