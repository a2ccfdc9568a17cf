package matching

import (
	"errors"
	"math"
)

// TieBreak chooses between buyer prices that clear the same maximal volume.
type TieBreak int

const (
	// TieBreakLowestPrice picks the lowest of the tied prices.
	TieBreakLowestPrice TieBreak = iota
	// TieBreakFirstScanned keeps the first tied price in buyer order.
	TieBreakFirstScanned
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakFirstScanned:
		return "first_scanned"
	default:
		return "lowest_price"
	}
}

// CallAuction clears the market at a single price: the buyer price that
// maximizes traded volume. Sellers above and buyers below that price are
// priced out; the survivors are rationed and paired greedily in their
// original order.
//
// AuctionPrice and AuctionTotalTrade report the last call, so a CallAuction
// must not serve overlapping calls.
type CallAuction struct {
	rationing         RationingAlgorithm
	tieBreak          TieBreak
	auctionPrice      float64
	auctionTotalTrade float64
}

// NewCallAuction creates a CallAuction. A nil rationing defaults to
// HomogeneousRationing.
func NewCallAuction(rationing RationingAlgorithm, tieBreak TieBreak) *CallAuction {
	if rationing == nil {
		rationing = HomogeneousRationing{}
	}
	return &CallAuction{
		rationing:         SellersOnLeft(rationing),
		tieBreak:          tieBreak,
		auctionPrice:      math.Inf(-1),
		auctionTotalTrade: math.Inf(-1),
	}
}

// AuctionPrice returns the clearing price found by the last call, or -Inf
// when the last call had no market to clear.
func (a *CallAuction) AuctionPrice() float64 { return a.auctionPrice }

// AuctionTotalTrade returns the volume the last clearing price could trade.
func (a *CallAuction) AuctionTotalTrade() float64 { return a.auctionTotalTrade }

// MatchNodes implements MatchingAlgorithm. An empty or zero-volume side is
// not an error: it yields an empty Matching.
func (a *CallAuction) MatchNodes(left, right []Node) (*Matching, error) {
	a.auctionPrice, a.auctionTotalTrade = math.Inf(-1), math.Inf(-1)

	sellGroup, err := NewCallAuctionGroup(left)
	if err != nil {
		return emptyOnInvalidMarket(err)
	}
	buyGroup, err := NewCallAuctionGroup(right)
	if err != nil {
		return emptyOnInvalidMarket(err)
	}

	price, volume := a.searchPrice(sellGroup, buyGroup)
	a.auctionPrice, a.auctionTotalTrade = price, volume

	b := NewBuilder()
	sellers, buyers := sellGroup.Nodes(), buyGroup.Nodes()

	// Price out nodes that would not trade at the auction price.
	sellerOut, buyerOut := make([]bool, len(sellers)), make([]bool, len(buyers))
	for i, n := range sellers {
		if n.Price() > price {
			sellerOut[i] = true
			if err := b.AddUnmatchedLeft(n.Node()); err != nil {
				return nil, err
			}
			n.SetFullyUnusable()
		}
	}
	for j, n := range buyers {
		if n.Price() < price {
			buyerOut[j] = true
			if err := b.AddUnmatchedRight(n.Node()); err != nil {
				return nil, err
			}
			n.SetFullyUnusable()
		}
	}

	if err := a.rationing.RationNodes(sellers, buyers); err != nil {
		return nil, err
	}

	// Greedy sweep, demand == supply after rationing.
	sold, bought := make([]float64, len(sellers)), make([]float64, len(buyers))
	i, j := 0, 0
	for i < len(sellers) && j < len(buyers) {
		seller, buyer := sellers[i], buyers[j]
		supply, demand := seller.Usable(), buyer.Usable()
		if demand <= 0 {
			j++
			continue
		}
		if supply <= 0 {
			i++
			continue
		}
		amount := math.Min(supply, demand)
		if err := b.Match(seller.Node(), buyer.Node(), amount, price); err != nil {
			return nil, err
		}
		sold[i] += amount
		bought[j] += amount
		consume(seller, buyer, supply, demand)
	}

	if err := recordResidues(b, sellers, sold, sellerOut, true); err != nil {
		return nil, err
	}
	if err := recordResidues(b, buyers, bought, buyerOut, false); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// searchPrice scans every buyer price and returns the one maximizing
// min(supply at or below, demand at or above).
func (a *CallAuction) searchPrice(sellGroup, buyGroup *CallAuctionGroup) (float64, float64) {
	bestPrice, bestVolume := math.Inf(-1), -1.0
	for _, n := range buyGroup.Nodes() {
		p := n.Price()
		sellVolume := sellGroup.SplitByPrice(p).LowerThanEqualTo()
		buyVolume := buyGroup.SplitByPrice(p).GreaterThanEqualTo()
		volume := math.Min(sellVolume, buyVolume)

		switch {
		case volume > bestVolume:
		case volume == bestVolume && a.tieBreak == TieBreakLowestPrice && p < bestPrice:
		default:
			continue
		}
		bestPrice, bestVolume = p, volume
	}
	return bestPrice, bestVolume
}

// consume books a trade of min(supply, demand) against both nodes. The side
// that runs out is zeroed exactly so no float residue keeps the sweep alive.
func consume(seller, buyer *ComputeNode, supply, demand float64) {
	switch {
	case demand > supply:
		buyer.IncrementUnusable(supply)
		seller.SetFullyUnusable()
	case demand < supply:
		seller.IncrementUnusable(demand)
		buyer.SetFullyUnusable()
	default:
		seller.SetFullyUnusable()
		buyer.SetFullyUnusable()
	}
}

func emptyOnInvalidMarket(err error) (*Matching, error) {
	if errors.Is(err, ErrEmptyGroup) || errors.Is(err, ErrZeroVolume) {
		return NewBuilder().Build(), nil
	}
	return nil, err
}

func (a *CallAuction) String() string { return "call_auction" }
