package matching

import "fmt"

// RationingAlgorithm equalizes the aggregate usable volume of two node
// groups in place, before trades are committed. Implementations only ever
// reduce usable volume.
type RationingAlgorithm interface {
	RationNodes(left, right []*ComputeNode) error
}

// HomogeneousRationing scales every node on the larger side by the same
// factor. It never looks at prices and never touches the smaller side.
type HomogeneousRationing struct{}

// RationNodes implements RationingAlgorithm.
func (HomogeneousRationing) RationNodes(left, right []*ComputeNode) error {
	if err := checkNodes(left, right); err != nil {
		return err
	}
	usableLeft, usableRight := TotalUsable(left), TotalUsable(right)
	if usableLeft == usableRight {
		return nil
	}

	larger, lo, hi := right, usableLeft, usableRight
	if usableLeft > usableRight {
		larger, lo, hi = left, usableRight, usableLeft
	}

	// Each node keeps lo/hi of what it could offer, i.e. loses 1 - lo/hi.
	keep := lo / hi
	for _, n := range larger {
		n.SetUnusable(n.Volume() - n.Usable()*keep)
	}
	return nil
}

func (HomogeneousRationing) String() string { return "homogeneous" }

// checkNodes rejects groups holding nil entries.
func checkNodes(left, right []*ComputeNode) error {
	for i, n := range left {
		if n == nil {
			return fmt.Errorf("left node %d is nil: %w", i, ErrInvalidAlgorithmParameter)
		}
	}
	for i, n := range right {
		if n == nil {
			return fmt.Errorf("right node %d is nil: %w", i, ErrInvalidAlgorithmParameter)
		}
	}
	return nil
}
