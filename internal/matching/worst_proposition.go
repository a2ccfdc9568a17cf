package matching

import (
	"math"
	"sort"
)

// WorstPropositionRationing allocates the smaller side's volume to the larger
// side in merit order and denies the worst propositions. A governing seller
// side is served cheapest first; a governing buyer side is served highest
// bid first. The smaller side is never modified.
//
// With SellersLeft set, left is the seller group. Otherwise the demand side
// is guessed as the one with the higher usable-weighted mean price, and left
// is taken to be the sellers when the means are equal.
type WorstPropositionRationing struct {
	SellersLeft bool
}

// RationNodes implements RationingAlgorithm.
func (w WorstPropositionRationing) RationNodes(left, right []*ComputeNode) error {
	if err := checkNodes(left, right); err != nil {
		return err
	}
	usableLeft, usableRight := TotalUsable(left), TotalUsable(right)
	if usableLeft == usableRight {
		return nil
	}

	leftBuys := !w.SellersLeft && meanPrice(left) > meanPrice(right)

	governing, allocation, buyers := left, usableRight, leftBuys
	if usableRight > usableLeft {
		governing, allocation, buyers = right, usableLeft, !leftBuys
	}

	order := make([]int, len(governing))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := governing[order[a]].Price(), governing[order[b]].Price()
		if buyers {
			return pa > pb
		}
		return pa < pb
	})

	remaining := allocation
	for _, i := range order {
		n := governing[i]
		if remaining <= 0 {
			n.SetFullyUnusable()
			continue
		}
		requested := n.Usable()
		if requested <= remaining {
			remaining -= requested
			continue
		}
		n.IncrementUnusable(requested - remaining)
		remaining = 0
	}
	return nil
}

func (WorstPropositionRationing) String() string { return "worst_proposition" }

// SellersOnLeft returns r told that its left group sells, for rationings
// that would otherwise infer it. Matching algorithms always ration sellers
// on the left.
func SellersOnLeft(r RationingAlgorithm) RationingAlgorithm {
	switch w := r.(type) {
	case WorstPropositionRationing:
		w.SellersLeft = true
		return w
	case *WorstPropositionRationing:
		return WorstPropositionRationing{SellersLeft: true}
	}
	return r
}

// meanPrice is the usable-weighted mean price, NaN for a side with nothing
// to offer.
func meanPrice(nodes []*ComputeNode) float64 {
	var weighted, total float64
	for _, n := range nodes {
		u := n.Usable()
		weighted += n.Price() * u
		total += u
	}
	if total == 0 {
		return math.NaN()
	}
	return weighted / total
}
