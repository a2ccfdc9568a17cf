package matching

import (
	"math/rand"
)

// Forager matches buyers, visited in random order, against sellers swept in
// their original order. A buyer pays its own price when it bids at or below
// the seller's ask, and the mean of the two prices otherwise.
//
// The seller cursor only moves forward, so exhausted sellers are never
// revisited and a call costs O(sellers + buyers) after rationing.
type Forager struct {
	rationing RationingAlgorithm
	rng       Rng
}

// NewForager creates a Forager. A nil rationing defaults to
// HomogeneousRationing and a nil rng to a generator seeded with 1.
func NewForager(rationing RationingAlgorithm, rng Rng) *Forager {
	if rationing == nil {
		rationing = HomogeneousRationing{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Forager{rationing: SellersOnLeft(rationing), rng: rng}
}

// MatchNodes implements MatchingAlgorithm.
func (f *Forager) MatchNodes(left, right []Node) (*Matching, error) {
	b := NewBuilder()
	if len(left) == 0 || len(right) == 0 {
		return b.Build(), nil
	}

	sellers, buyers := Wrap(left), Wrap(right)
	if err := f.rationing.RationNodes(sellers, buyers); err != nil {
		return nil, err
	}

	sold, bought := make([]float64, len(sellers)), make([]float64, len(buyers))
	cursor := 0
	for _, bi := range f.rng.Perm(len(buyers)) {
		buyer := buyers[bi]
		if buyer.Usable() <= 0 {
			continue
		}
		j := cursor
		for ; j < len(sellers); j++ {
			seller := sellers[j]
			offered := seller.Usable()
			if offered <= 0 {
				continue
			}
			sought := buyer.Usable()
			amount := offered
			if sought < offered {
				amount = sought
			}
			if err := b.Match(seller.Node(), buyer.Node(), amount, negotiatedPrice(seller, buyer)); err != nil {
				return nil, err
			}
			sold[j] += amount
			bought[bi] += amount
			consume(seller, buyer, offered, sought)
			if buyer.Usable() <= 0 {
				break
			}
		}
		cursor = j
	}

	if err := recordResidues(b, sellers, sold, nil, true); err != nil {
		return nil, err
	}
	if err := recordResidues(b, buyers, bought, nil, false); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// negotiatedPrice is the buyer's price when it does not exceed the ask,
// otherwise the midpoint of bid and ask.
func negotiatedPrice(seller, buyer *ComputeNode) float64 {
	if buyer.Price() <= seller.Price() {
		return buyer.Price()
	}
	return 0.5 * (buyer.Price() + seller.Price())
}

func (f *Forager) String() string { return "forager" }
