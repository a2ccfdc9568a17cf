package matching

// MatchingAlgorithm pairs a left (seller) group with a right (buyer) group.
type MatchingAlgorithm interface {
	MatchNodes(left, right []Node) (*Matching, error)
}

// Rng is the randomness the core draws on. *math/rand.Rand satisfies it.
type Rng interface {
	Float64() float64
	Perm(n int) []int
}

// recordResidues adds the unfilled volume of every node to the builder as
// unmatched. Nodes flagged in skip were already recorded; a nil skip skips
// nothing.
func recordResidues(b *Builder, nodes []*ComputeNode, filled []float64, skip []bool, left bool) error {
	for i, n := range nodes {
		if skip != nil && skip[i] {
			continue
		}
		rest := n.Volume() - filled[i]
		if rest <= residueTolerance {
			continue
		}
		var err error
		if left {
			err = b.AddUnmatchedLeftAmount(n.Node(), rest)
		} else {
			err = b.AddUnmatchedRightAmount(n.Node(), rest)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
