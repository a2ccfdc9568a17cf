package service

import (
	"fmt"
	"math"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/engine"
	"github.com/efreitasn/marketmatch/internal/store"
)

// ValidOrderStatuses lists all valid order status values for validation.
var ValidOrderStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusPending:         true,
	domain.OrderStatusPartiallyFilled: true,
	domain.OrderStatusFilled:          true,
	domain.OrderStatusCancelled:       true,
}

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	PartyID string
	Side    domain.OrderSide
	Symbol  string
	Price   float64
	Size    float64
}

// OrderService handles order submission, retrieval, cancellation, and listing.
type OrderService struct {
	clearer     *engine.Clearer
	parties     *store.PartyStore
	instruments *store.InstrumentStore
	orders      *store.OrderStore
	webhookSvc  *WebhookService
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(
	clearer *engine.Clearer,
	parties *store.PartyStore,
	instruments *store.InstrumentStore,
	orders *store.OrderStore,
	webhookSvc *WebhookService,
) *OrderService {
	return &OrderService{
		clearer:     clearer,
		parties:     parties,
		instruments: instruments,
		orders:      orders,
		webhookSvc:  webhookSvc,
	}
}

// SubmitOrder validates the request and rests the order on the book until
// the instrument's next session.
func (s *OrderService) SubmitOrder(req SubmitOrderRequest) (*domain.Order, error) {
	if !partyIDRegex.MatchString(req.PartyID) {
		return nil, &domain.ValidationError{Message: "party_id must match ^[a-zA-Z0-9_-]{1,64}$"}
	}
	if req.Side != domain.OrderSideBid && req.Side != domain.OrderSideAsk {
		return nil, &domain.ValidationError{Message: "side must be 'bid' or 'ask'"}
	}
	if !symbolRegex.MatchString(req.Symbol) {
		return nil, &domain.ValidationError{Message: "symbol must match ^[A-Z]{1,10}$"}
	}
	if !positive(req.Price) {
		return nil, &domain.ValidationError{Message: "price must be a finite number greater than 0"}
	}
	if !positive(req.Size) {
		return nil, &domain.ValidationError{Message: "size must be a finite number greater than 0"}
	}

	if !s.parties.Exists(req.PartyID) {
		return nil, domain.ErrPartyNotFound
	}
	if _, err := s.instruments.Get(req.Symbol); err != nil {
		return nil, err
	}

	order := &domain.Order{
		PartyID: req.PartyID,
		Side:    req.Side,
		Symbol:  req.Symbol,
		Price:   req.Price,
		Size:    req.Size,
	}
	if err := s.clearer.Submit(order); err != nil {
		return nil, err
	}
	return s.clearer.Snapshot(order), nil
}

// GetOrder retrieves a copy of an order with all its trades.
func (s *OrderService) GetOrder(orderID string) (*domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	return s.clearer.Snapshot(order), nil
}

// CancelOrder withdraws an open order from the book.
func (s *OrderService) CancelOrder(orderID string) (*domain.Order, error) {
	order, err := s.clearer.Cancel(orderID)
	if err != nil {
		return nil, err
	}
	if s.webhookSvc != nil {
		s.webhookSvc.DispatchOrderCancelled(order)
	}
	return order, nil
}

// ListOrders returns a paginated list of a party's orders with optional
// status filtering.
func (s *OrderService) ListOrders(partyID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int, error) {
	if !s.parties.Exists(partyID) {
		return nil, 0, domain.ErrPartyNotFound
	}
	if status != nil && !ValidOrderStatuses[*status] {
		return nil, 0, &domain.ValidationError{
			Message: fmt.Sprintf("Invalid status filter: '%s'. Must be one of: pending, partially_filled, filled, cancelled", *status),
		}
	}
	if err := validatePage(page, limit); err != nil {
		return nil, 0, err
	}

	orders, total := s.orders.ListByParty(partyID, status, page, limit, s.clearer.Snapshot)
	return orders, total, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
