package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/service"
	"github.com/go-chi/chi/v5"
)

// PartyHandler handles HTTP requests for party endpoints.
type PartyHandler struct {
	partySvc *service.PartyService
	orderSvc *service.OrderService
}

// NewPartyHandler creates a new PartyHandler.
func NewPartyHandler(partySvc *service.PartyService, orderSvc *service.OrderService) *PartyHandler {
	return &PartyHandler{
		partySvc: partySvc,
		orderSvc: orderSvc,
	}
}

// registerPartyRequest is the JSON request body for POST /parties.
type registerPartyRequest struct {
	PartyID string `json:"party_id"`
	Kind    string `json:"kind"`
}

// partyResponse is the JSON response for POST /parties (201 Created).
type partyResponse struct {
	PartyID   string `json:"party_id"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
}

// orderSummaryResponse is a single order in the order listing (summary view, no trades).
type orderSummaryResponse struct {
	OrderID       string   `json:"order_id"`
	Symbol        string   `json:"symbol"`
	Side          string   `json:"side"`
	Price         float64  `json:"price"`
	Size          float64  `json:"size"`
	FilledSize    float64  `json:"filled_size"`
	OpenSize      float64  `json:"open_size"`
	CancelledSize float64  `json:"cancelled_size"`
	Status        string   `json:"status"`
	AveragePrice  *float64 `json:"average_price"`
	CreatedAt     string   `json:"created_at"`
}

// orderListResponse is the JSON response for GET /parties/{party_id}/orders.
type orderListResponse struct {
	Orders []orderSummaryResponse `json:"orders"`
	Total  int                    `json:"total"`
	Page   int                    `json:"page"`
	Limit  int                    `json:"limit"`
}

// Register handles POST /parties.
func (h *PartyHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerPartyRequest
	if err := ParseJSON(r, &req); err != nil {
		writeInvalidRequest(w, err)
		return
	}

	party, err := h.partySvc.Register(service.RegisterPartyRequest{
		PartyID: req.PartyID,
		Kind:    domain.PartyKind(req.Kind),
	})
	if err != nil {
		mapPartyError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, partyResponse{
		PartyID:   party.PartyID,
		Kind:      string(party.Kind),
		CreatedAt: formatTime(party.CreatedAt),
	})
}

// ListOrders handles GET /parties/{party_id}/orders.
func (h *PartyHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	partyID := chi.URLParam(r, "party_id")

	var statusFilter *domain.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.OrderStatus(s)
		statusFilter = &status
	}

	page, limit, ok := parsePage(w, r)
	if !ok {
		return
	}

	orders, total, err := h.orderSvc.ListOrders(partyID, statusFilter, page, limit)
	if err != nil {
		mapPartyError(w, err)
		return
	}

	summaries := make([]orderSummaryResponse, len(orders))
	for i, o := range orders {
		summaries[i] = orderSummaryResponse{
			OrderID:       o.OrderID,
			Symbol:        o.Symbol,
			Side:          string(o.Side),
			Price:         o.Price,
			Size:          o.Size,
			FilledSize:    o.FilledSize,
			OpenSize:      o.OpenSize,
			CancelledSize: o.CancelledSize,
			Status:        string(o.Status),
			AveragePrice:  averagePrice(o),
			CreatedAt:     formatTime(o.CreatedAt),
		}
	}

	WriteJSON(w, http.StatusOK, orderListResponse{
		Orders: summaries,
		Total:  total,
		Page:   page,
		Limit:  limit,
	})
}

// parsePage reads the page and limit query params (defaults 1 and 20). It
// writes the error response itself and reports false on a malformed value.
func parsePage(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		var err error
		page, err = strconv.Atoi(p)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "page must be a valid integer")
			return 0, 0, false
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return 0, 0, false
		}
	}
	return page, limit, true
}

// mapPartyError maps domain errors to HTTP responses for party endpoints.
func mapPartyError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrPartyAlreadyExists):
		WriteError(w, http.StatusConflict, "party_already_exists", err.Error())
	case errors.Is(err, domain.ErrPartyNotFound):
		WriteError(w, http.StatusNotFound, "party_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
