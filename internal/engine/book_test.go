package engine

import (
	"fmt"
	"testing"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/matching"
)

func newBookOrder(id, partyID string, side domain.OrderSide, price, size float64) *domain.Order {
	return &domain.Order{
		OrderID:  id,
		PartyID:  partyID,
		Side:     side,
		Symbol:   "LABOUR",
		Price:    price,
		Size:     size,
		OpenSize: size,
		Status:   domain.OrderStatusPending,
	}
}

func TestOrderBook_InsertKeepsArrivalOrder(t *testing.T) {
	book := NewOrderBook("LABOUR", matching.NewCallAuction(nil, matching.TieBreakLowestPrice))
	prices := []float64{3, 1, 2, 1}
	for i, p := range prices {
		o := newBookOrder(fmt.Sprintf("o%d", i), fmt.Sprintf("p%d", i), domain.OrderSideAsk, p, 1)
		if err := book.Insert(o); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	asks := book.Asks()
	if len(asks) != 4 {
		t.Fatalf("expected 4 asks, got %d", len(asks))
	}
	for i, o := range asks {
		if want := fmt.Sprintf("o%d", i); o.OrderID != want {
			t.Errorf("position %d: got %s, want %s", i, o.OrderID, want)
		}
	}
	if book.BidCount() != 0 || book.AskCount() != 4 {
		t.Errorf("counts = %d bids / %d asks", book.BidCount(), book.AskCount())
	}
}

func TestOrderBook_OneOpenOrderPerPartyAndSide(t *testing.T) {
	book := NewOrderBook("LABOUR", nil)

	if err := book.Insert(newBookOrder("o1", "h1", domain.OrderSideBid, 1, 1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := book.Insert(newBookOrder("o2", "h1", domain.OrderSideBid, 2, 1)); err != domain.ErrDuplicateOrder {
		t.Fatalf("expected ErrDuplicateOrder, got %v", err)
	}
	if err := book.Insert(newBookOrder("o3", "h1", domain.OrderSideAsk, 2, 1)); err != nil {
		t.Fatalf("opposite side should be accepted: %v", err)
	}

	book.Remove("o1")
	if book.Contains("o1") {
		t.Fatal("o1 still on book after Remove")
	}
	if err := book.Insert(newBookOrder("o4", "h1", domain.OrderSideBid, 2, 1)); err != nil {
		t.Fatalf("slot should be free after Remove: %v", err)
	}
	book.Remove("unknown")
}

func TestOrderBook_TopLevels(t *testing.T) {
	book := NewOrderBook("LABOUR", nil)
	bids := []struct {
		price, size float64
	}{{1.0, 5}, {2.0, 3}, {2.0, 4}, {1.5, 1}}
	for i, b := range bids {
		_ = book.Insert(newBookOrder(fmt.Sprintf("b%d", i), fmt.Sprintf("h%d", i), domain.OrderSideBid, b.price, b.size))
	}
	_ = book.Insert(newBookOrder("a0", "f0", domain.OrderSideAsk, 3, 2))
	_ = book.Insert(newBookOrder("a1", "f1", domain.OrderSideAsk, 2.5, 6))

	levels := book.TopBids(2)
	if len(levels) != 2 {
		t.Fatalf("expected 2 bid levels, got %d", len(levels))
	}
	if levels[0].Price != 2.0 || levels[0].TotalSize != 7 || levels[0].OrderCount != 2 {
		t.Errorf("best bid level = %+v", levels[0])
	}
	if levels[1].Price != 1.5 {
		t.Errorf("second bid level price = %v, want 1.5", levels[1].Price)
	}

	asks := book.TopAsks(10)
	if len(asks) != 2 || asks[0].Price != 2.5 || asks[1].Price != 3 {
		t.Errorf("ask levels = %+v", asks)
	}
	if book.TopAsks(0) != nil {
		t.Error("TopAsks(0) should be nil")
	}
}

func TestBookManager_OpenIsIdempotent(t *testing.T) {
	bm := NewBookManager()
	a := bm.Open("LABOUR", nil)
	b := bm.Open("LABOUR", nil)
	if a != b {
		t.Fatal("Open returned a different book for the same symbol")
	}
	if _, ok := bm.Get("GOODS"); ok {
		t.Fatal("Get(GOODS) found a book that was never opened")
	}
	if got, ok := bm.Get("LABOUR"); !ok || got.Symbol() != "LABOUR" {
		t.Fatalf("Get(LABOUR) = %v, %v", got, ok)
	}
}
