package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/matching"
	"github.com/efreitasn/marketmatch/internal/store"
)

// EventDispatcher is an interface for dispatching notifications from the
// engine layer without depending on the service layer directly.
type EventDispatcher interface {
	DispatchTradeExecuted(partyID string, trade *domain.Trade, order *domain.Order)
	DispatchOrderCancelled(order *domain.Order)
	DispatchSessionCleared(partyID string, session *domain.Session)
}

// Clearer owns the order books and runs clearing sessions through each
// instrument's matching algorithm.
type Clearer struct {
	books        *BookManager
	instruments  *store.InstrumentStore
	orderStore   *store.OrderStore
	tradeStore   *store.TradeStore
	sessionStore *store.SessionStore
	metrics      *Metrics
	events       EventDispatcher
	logger       *slog.Logger
}

// NewClearer creates a Clearer. metrics and events may be nil.
func NewClearer(
	books *BookManager,
	instruments *store.InstrumentStore,
	orderStore *store.OrderStore,
	tradeStore *store.TradeStore,
	sessionStore *store.SessionStore,
	metrics *Metrics,
	events EventDispatcher,
	logger *slog.Logger,
) *Clearer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clearer{
		books:        books,
		instruments:  instruments,
		orderStore:   orderStore,
		tradeStore:   tradeStore,
		sessionStore: sessionStore,
		metrics:      metrics,
		events:       events,
		logger:       logger,
	}
}

// Submit rests a new order on its instrument's book until the next
// session. The caller provides PartyID, Side, Symbol, Price and Size; the
// clearer assigns OrderID and CreatedAt and initializes the sizes.
func (c *Clearer) Submit(order *domain.Order) error {
	book, ok := c.books.Get(order.Symbol)
	if !ok {
		return domain.ErrInstrumentNotFound
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	order.OrderID = uuid.New().String()
	order.CreatedAt = time.Now()
	order.OpenSize = order.Size
	order.FilledSize = 0
	order.CancelledSize = 0
	order.Status = domain.OrderStatusPending
	order.Trades = []*domain.Trade{}

	if err := book.Insert(order); err != nil {
		return err
	}
	c.orderStore.Create(order)
	c.metrics.ObserveBook(book)
	return nil
}

// Cancel withdraws an open order from its book.
//
// Returns domain.ErrOrderNotFound if the order does not exist and
// domain.ErrOrderNotCancellable if it already left the book.
func (c *Clearer) Cancel(orderID string) (*domain.Order, error) {
	order, err := c.orderStore.Get(orderID)
	if err != nil {
		return nil, err
	}

	book, ok := c.books.Get(order.Symbol)
	if !ok {
		return nil, domain.ErrInstrumentNotFound
	}
	book.mu.Lock()
	defer book.mu.Unlock()

	if !order.IsOpen() {
		return nil, domain.ErrOrderNotCancellable
	}
	book.Remove(order.OrderID)
	order.Cancel(time.Now())
	c.metrics.ObserveBook(book)
	return order.Snapshot(), nil
}

// Snapshot copies order while its book is locked, so the copy is safe to
// read while sessions keep clearing.
func (c *Clearer) Snapshot(order *domain.Order) *domain.Order {
	if book, ok := c.books.Get(order.Symbol); ok {
		book.mu.RLock()
		defer book.mu.RUnlock()
	}
	return order.Snapshot()
}

// Clear runs one clearing session for symbol: the open asks (left) and
// bids (right) go through the instrument's matching algorithm, every match
// becomes a Trade, filled orders leave the book and, unless the instrument
// retains open orders, everything left unmatched is cancelled.
//
// Clear returns a nil session when the book is empty. A matching error
// aborts the session and leaves the book untouched.
func (c *Clearer) Clear(symbol string) (*domain.Session, error) {
	book, ok := c.books.Get(symbol)
	if !ok {
		return nil, domain.ErrInstrumentNotFound
	}
	inst, err := c.instruments.Get(symbol)
	if err != nil {
		return nil, err
	}

	book.mu.Lock()
	asks, bids := book.Asks(), book.Bids()
	if len(asks) == 0 && len(bids) == 0 {
		book.mu.Unlock()
		return nil, nil
	}

	start := time.Now()
	result, err := book.algorithm.MatchNodes(toNodes(asks), toNodes(bids))
	if err == nil {
		err = checkRefs(result)
	}
	if err != nil {
		book.mu.Unlock()
		c.metrics.ObserveFailure(symbol)
		c.logger.Error("clearing failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("clear %s: %w", symbol, err)
	}

	session := newSession(inst, book.algorithm, asks, bids, start)
	trades := make([]*domain.Trade, 0, result.Len())
	for _, m := range result.Matches() {
		if m.Amount <= 0 {
			continue
		}
		ask, bid := m.Left.Ref.(*domain.Order), m.Right.Ref.(*domain.Order)
		trade := &domain.Trade{
			TradeID:     uuid.New().String(),
			SessionID:   session.SessionID,
			Symbol:      symbol,
			SellOrderID: ask.OrderID,
			BuyOrderID:  bid.OrderID,
			SellerID:    ask.PartyID,
			BuyerID:     bid.PartyID,
			Price:       m.Price,
			Volume:      m.Amount,
			ExecutedAt:  start,
		}
		ask.Fill(trade)
		bid.Fill(trade)
		trades = append(trades, trade)
	}
	session.TradeCount = len(trades)
	for _, t := range trades {
		session.TradedVolume += t.Volume
	}
	session.ClearingPrice = clearingPrice(book.algorithm, trades, session.TradedVolume)

	var cancelled []*domain.Order
	for _, side := range [][]*domain.Order{asks, bids} {
		for _, o := range side {
			switch {
			case !o.IsOpen():
				book.Remove(o.OrderID)
			case !inst.RetainOpenOrders:
				o.Cancel(start)
				book.Remove(o.OrderID)
				cancelled = append(cancelled, o)
			}
		}
	}

	c.tradeStore.Append(symbol, trades...)
	c.sessionStore.Append(session)
	c.metrics.ObserveSession(session, time.Since(start))
	c.metrics.ObserveBook(book)
	views := make(map[string]*domain.Order, len(asks)+len(bids))
	for _, side := range [][]*domain.Order{asks, bids} {
		for _, o := range side {
			views[o.OrderID] = o.Snapshot()
		}
	}
	book.mu.Unlock()

	c.logger.Debug("session cleared",
		slog.String("symbol", symbol),
		slog.String("session_id", session.SessionID),
		slog.Int("trades", session.TradeCount),
		slog.Float64("traded_volume", session.TradedVolume),
		slog.Int("cancelled", len(cancelled)),
	)

	c.dispatch(session, trades, cancelled, asks, bids, views)
	return session, nil
}

// dispatch fires notifications outside the book lock. Orders are read from
// views, the copies taken before the lock was released.
func (c *Clearer) dispatch(session *domain.Session, trades []*domain.Trade, cancelled, asks, bids []*domain.Order, views map[string]*domain.Order) {
	if c.events == nil {
		return
	}
	for _, t := range trades {
		c.events.DispatchTradeExecuted(t.SellerID, t, views[t.SellOrderID])
		c.events.DispatchTradeExecuted(t.BuyerID, t, views[t.BuyOrderID])
	}
	for _, o := range cancelled {
		c.events.DispatchOrderCancelled(views[o.OrderID])
	}
	notified := make(map[string]bool)
	for _, side := range [][]*domain.Order{asks, bids} {
		for _, o := range side {
			if !notified[o.PartyID] {
				notified[o.PartyID] = true
				c.events.DispatchSessionCleared(o.PartyID, session)
			}
		}
	}
}

func toNodes(orders []*domain.Order) []matching.Node {
	nodes := make([]matching.Node, len(orders))
	for i, o := range orders {
		nodes[i] = matching.Node{Price: o.Price, Volume: o.OpenSize, Ref: o}
	}
	return nodes
}

func checkRefs(m *matching.Matching) error {
	for _, x := range m.Matches() {
		if _, ok := x.Left.Ref.(*domain.Order); !ok {
			return fmt.Errorf("match references %T, want order", x.Left.Ref)
		}
		if _, ok := x.Right.Ref.(*domain.Order); !ok {
			return fmt.Errorf("match references %T, want order", x.Right.Ref)
		}
	}
	return nil
}

func newSession(inst *domain.Instrument, alg matching.MatchingAlgorithm, asks, bids []*domain.Order, at time.Time) *domain.Session {
	s := &domain.Session{
		SessionID: uuid.New().String(),
		Symbol:    inst.Symbol,
		Algorithm: algorithmName(alg),
		Rationing: inst.Rationing,
		ClearedAt: at,
	}
	s.TotalSupply, s.MeanAsk = weightedMean(asks)
	s.TotalDemand, s.MeanBid = weightedMean(bids)
	return s
}

// weightedMean returns the open volume of orders and their volume-weighted
// mean price (0 when there is no volume).
func weightedMean(orders []*domain.Order) (volume, mean float64) {
	var weighted float64
	for _, o := range orders {
		volume += o.OpenSize
		weighted += o.Price * o.OpenSize
	}
	if volume == 0 {
		return 0, 0
	}
	return volume, weighted / volume
}

// clearingPrice is the auction price for call auctions and the
// volume-weighted trade price otherwise; nil when nothing traded.
func clearingPrice(alg matching.MatchingAlgorithm, trades []*domain.Trade, traded float64) *float64 {
	if traded <= 0 {
		return nil
	}
	if ca, ok := alg.(*matching.CallAuction); ok {
		p := ca.AuctionPrice()
		return &p
	}
	var weighted float64
	for _, t := range trades {
		weighted += t.Price * t.Volume
	}
	p := weighted / traded
	return &p
}

func algorithmName(alg matching.MatchingAlgorithm) string {
	if s, ok := alg.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", alg)
}
