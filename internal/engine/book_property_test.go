package engine

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/efreitasn/marketmatch/internal/domain"
)

func TestProperty_BookLevelsSortedAndArrivalPreserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := NewOrderBook("TEST", nil)
		n := rapid.IntRange(1, 40).Draw(t, "numOrders")

		var inserted []string
		for i := 0; i < n; i++ {
			side := domain.OrderSideBid
			if rapid.Bool().Draw(t, fmt.Sprintf("ask-%d", i)) {
				side = domain.OrderSideAsk
			}
			price := float64(rapid.IntRange(1, 20).Draw(t, fmt.Sprintf("price-%d", i))) / 4
			o := newBookOrder(fmt.Sprintf("o%d", i), fmt.Sprintf("p%d", i), side, price, 1)
			if err := book.Insert(o); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			inserted = append(inserted, o.OrderID)
		}

		bids := book.TopBids(n)
		for i := 1; i < len(bids); i++ {
			if bids[i].Price >= bids[i-1].Price {
				t.Fatalf("bid levels not descending: %v after %v", bids[i].Price, bids[i-1].Price)
			}
		}
		asks := book.TopAsks(n)
		for i := 1; i < len(asks); i++ {
			if asks[i].Price <= asks[i-1].Price {
				t.Fatalf("ask levels not ascending: %v after %v", asks[i].Price, asks[i-1].Price)
			}
		}

		// Merging both sides by arrival reproduces the insertion order.
		pos := make(map[string]int, len(inserted))
		for i, id := range inserted {
			pos[id] = i
		}
		for _, side := range [][]*domain.Order{book.Bids(), book.Asks()} {
			for i := 1; i < len(side); i++ {
				if pos[side[i].OrderID] < pos[side[i-1].OrderID] {
					t.Fatalf("arrival order broken: %s before %s", side[i-1].OrderID, side[i].OrderID)
				}
			}
		}
		if book.BidCount()+book.AskCount() != n {
			t.Fatalf("book holds %d orders, want %d", book.BidCount()+book.AskCount(), n)
		}
	})
}
