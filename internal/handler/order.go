package handler

import (
	"errors"
	"net/http"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	PartyID string  `json:"party_id"`
	Side    string  `json:"side"`
	Symbol  string  `json:"symbol"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
}

// orderResponse is the JSON response for a single order.
// All fields are always present; nullable fields use pointers.
type orderResponse struct {
	OrderID       string          `json:"order_id"`
	PartyID       string          `json:"party_id"`
	Side          string          `json:"side"`
	Symbol        string          `json:"symbol"`
	Price         float64         `json:"price"`
	Size          float64         `json:"size"`
	FilledSize    float64         `json:"filled_size"`
	OpenSize      float64         `json:"open_size"`
	CancelledSize float64         `json:"cancelled_size"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
	CancelledAt   *string         `json:"cancelled_at"`
	AveragePrice  *float64        `json:"average_price"`
	Trades        []tradeResponse `json:"trades"`
}

// tradeResponse is a single trade in the order response.
type tradeResponse struct {
	TradeID     string  `json:"trade_id"`
	SessionID   string  `json:"session_id"`
	SellOrderID string  `json:"sell_order_id"`
	BuyOrderID  string  `json:"buy_order_id"`
	Price       float64 `json:"price"`
	Volume      float64 `json:"volume"`
	ExecutedAt  string  `json:"executed_at"`
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		writeInvalidRequest(w, err)
		return
	}

	order, err := h.orderSvc.SubmitOrder(service.SubmitOrderRequest{
		PartyID: req.PartyID,
		Side:    domain.OrderSide(req.Side),
		Symbol:  req.Symbol,
		Price:   req.Price,
		Size:    req.Size,
	})
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(order))
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	order, err := h.orderSvc.GetOrder(orderID)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// CancelOrder handles DELETE /orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	order, err := h.orderSvc.CancelOrder(orderID)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

func buildOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		OrderID:       o.OrderID,
		PartyID:       o.PartyID,
		Side:          string(o.Side),
		Symbol:        o.Symbol,
		Price:         o.Price,
		Size:          o.Size,
		FilledSize:    o.FilledSize,
		OpenSize:      o.OpenSize,
		CancelledSize: o.CancelledSize,
		Status:        string(o.Status),
		CreatedAt:     formatTime(o.CreatedAt),
		AveragePrice:  averagePrice(o),
		Trades:        buildTradeResponses(o.Trades),
	}
	if o.CancelledAt != nil {
		s := formatTime(*o.CancelledAt)
		resp.CancelledAt = &s
	}
	return resp
}

// buildTradeResponses converts domain trades to response trades.
func buildTradeResponses(trades []*domain.Trade) []tradeResponse {
	result := make([]tradeResponse, len(trades))
	for i, t := range trades {
		result[i] = tradeResponse{
			TradeID:     t.TradeID,
			SessionID:   t.SessionID,
			SellOrderID: t.SellOrderID,
			BuyOrderID:  t.BuyOrderID,
			Price:       t.Price,
			Volume:      t.Volume,
			ExecutedAt:  formatTime(t.ExecutedAt),
		}
	}
	return result
}

// averagePrice is null until the order has a fill.
func averagePrice(o *domain.Order) *float64 {
	avg, ok := o.AveragePrice()
	if !ok {
		return nil
	}
	return &avg
}

// mapOrderError maps domain errors to HTTP responses for order endpoints.
func mapOrderError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrPartyNotFound):
		WriteError(w, http.StatusNotFound, "party_not_found", err.Error())
	case errors.Is(err, domain.ErrInstrumentNotFound):
		WriteError(w, http.StatusNotFound, "instrument_not_found", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, domain.ErrOrderNotCancellable):
		WriteError(w, http.StatusConflict, "order_not_cancellable", err.Error())
	case errors.Is(err, domain.ErrDuplicateOrder):
		WriteError(w, http.StatusConflict, "duplicate_order", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
