package engine

import (
	"sort"
	"sync"

	"github.com/google/btree"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/matching"
)

// OrderBookEntry represents a single open order resting on the book.
type OrderBookEntry struct {
	Price   float64
	Seq     uint64 // arrival sequence within the book
	OrderID string
	Order   *domain.Order
}

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price      float64
	TotalSize  float64
	OrderCount int
}

// bidLess orders bids by price descending, then arrival.
func bidLess(a, b OrderBookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	return a.Seq < b.Seq
}

// askLess orders asks by price ascending, then arrival.
func askLess(a, b OrderBookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.Seq < b.Seq
}

type partySide struct {
	partyID string
	side    domain.OrderSide
}

// OrderBook collects the open orders of one instrument between clearing
// sessions. Orders are indexed by price for depth snapshots and handed to
// the instrument's matching algorithm in arrival order.
//
// mu serializes clearing, submission and cancellation, so the algorithm
// never serves overlapping calls.
type OrderBook struct {
	symbol    string
	mu        sync.RWMutex
	algorithm matching.MatchingAlgorithm
	bids      *btree.BTreeG[OrderBookEntry]
	asks      *btree.BTreeG[OrderBookEntry]
	index     map[string]OrderBookEntry // order_id → entry
	byParty   map[partySide]string      // (party, side) → order_id
	seq       uint64
}

// NewOrderBook creates an order book for symbol cleared by algorithm.
func NewOrderBook(symbol string, algorithm matching.MatchingAlgorithm) *OrderBook {
	const degree = 32
	return &OrderBook{
		symbol:    symbol,
		algorithm: algorithm,
		bids:      btree.NewG[OrderBookEntry](degree, bidLess),
		asks:      btree.NewG[OrderBookEntry](degree, askLess),
		index:     make(map[string]OrderBookEntry),
		byParty:   make(map[partySide]string),
	}
}

// Symbol returns the instrument symbol.
func (ob *OrderBook) Symbol() string { return ob.symbol }

// Insert rests an open order on the book. A party holds at most one open
// order per side: a second one fails with domain.ErrDuplicateOrder.
func (ob *OrderBook) Insert(order *domain.Order) error {
	key := partySide{order.PartyID, order.Side}
	if _, taken := ob.byParty[key]; taken {
		return domain.ErrDuplicateOrder
	}

	ob.seq++
	entry := OrderBookEntry{
		Price:   order.Price,
		Seq:     ob.seq,
		OrderID: order.OrderID,
		Order:   order,
	}
	if order.Side == domain.OrderSideBid {
		ob.bids.ReplaceOrInsert(entry)
	} else {
		ob.asks.ReplaceOrInsert(entry)
	}
	ob.index[order.OrderID] = entry
	ob.byParty[key] = order.OrderID
	return nil
}

// Remove deletes an order from the book by order ID. Unknown IDs are
// ignored.
func (ob *OrderBook) Remove(orderID string) {
	entry, ok := ob.index[orderID]
	if !ok {
		return
	}
	delete(ob.index, orderID)
	delete(ob.byParty, partySide{entry.Order.PartyID, entry.Order.Side})
	if entry.Order.Side == domain.OrderSideBid {
		ob.bids.Delete(entry)
	} else {
		ob.asks.Delete(entry)
	}
}

// Contains reports whether orderID rests on the book.
func (ob *OrderBook) Contains(orderID string) bool {
	_, ok := ob.index[orderID]
	return ok
}

// Bids returns the open bids in arrival order.
func (ob *OrderBook) Bids() []*domain.Order { return arrivalOrder(ob.bids) }

// Asks returns the open asks in arrival order.
func (ob *OrderBook) Asks() []*domain.Order { return arrivalOrder(ob.asks) }

func arrivalOrder(tree *btree.BTreeG[OrderBookEntry]) []*domain.Order {
	entries := make([]OrderBookEntry, 0, tree.Len())
	tree.Ascend(func(e OrderBookEntry) bool {
		entries = append(entries, e)
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })

	orders := make([]*domain.Order, len(entries))
	for i, e := range entries {
		orders[i] = e.Order
	}
	return orders
}

// TopBids returns up to n aggregated price levels from the bid side,
// ordered by price descending.
func (ob *OrderBook) TopBids(n int) []PriceLevel {
	return topLevels(ob.bids, n)
}

// TopAsks returns up to n aggregated price levels from the ask side,
// ordered by price ascending.
func (ob *OrderBook) TopAsks(n int) []PriceLevel {
	return topLevels(ob.asks, n)
}

func topLevels(tree *btree.BTreeG[OrderBookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry OrderBookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price == entry.Price {
			levels[len(levels)-1].TotalSize += entry.Order.OpenSize
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:      entry.Price,
			TotalSize:  entry.Order.OpenSize,
			OrderCount: 1,
		})
		return true
	})
	return levels
}

// BidCount returns the number of open bids.
func (ob *OrderBook) BidCount() int { return ob.bids.Len() }

// AskCount returns the number of open asks.
func (ob *OrderBook) AskCount() int { return ob.asks.Len() }

// Lock acquires the book for a mutation outside the engine package.
func (ob *OrderBook) Lock() { ob.mu.Lock() }

// Unlock releases Lock.
func (ob *OrderBook) Unlock() { ob.mu.Unlock() }

// RLock acquires the read lock on the order book.
func (ob *OrderBook) RLock() { ob.mu.RLock() }

// RUnlock releases the read lock on the order book.
func (ob *OrderBook) RUnlock() { ob.mu.RUnlock() }

// BookManager is a thread-safe map of symbol → OrderBook.
type BookManager struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
}

// NewBookManager creates a new BookManager.
func NewBookManager() *BookManager {
	return &BookManager{
		books: make(map[string]*OrderBook),
	}
}

// Open creates the book for symbol. It returns the existing book when the
// symbol is already open.
func (bm *BookManager) Open(symbol string, algorithm matching.MatchingAlgorithm) *OrderBook {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if book, ok := bm.books[symbol]; ok {
		return book
	}
	book := NewOrderBook(symbol, algorithm)
	bm.books[symbol] = book
	return book
}

// Get returns the book for symbol.
func (bm *BookManager) Get(symbol string) (*OrderBook, bool) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	book, ok := bm.books[symbol]
	return book, ok
}
