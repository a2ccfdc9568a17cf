package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/engine"
	"github.com/efreitasn/marketmatch/internal/service"
	"github.com/go-chi/chi/v5"
)

// InstrumentHandler handles HTTP requests for instrument endpoints.
type InstrumentHandler struct {
	instrumentSvc *service.InstrumentService
}

// NewInstrumentHandler creates a new InstrumentHandler.
func NewInstrumentHandler(instrumentSvc *service.InstrumentService) *InstrumentHandler {
	return &InstrumentHandler{instrumentSvc: instrumentSvc}
}

// createInstrumentRequest is the JSON request body for POST /instruments.
type createInstrumentRequest struct {
	Symbol           string   `json:"symbol"`
	Algorithm        string   `json:"algorithm"`
	Rationing        string   `json:"rationing"`
	Inhomogeneity    *float64 `json:"inhomogeneity"`
	TieBreak         string   `json:"tie_break"`
	RetainOpenOrders bool     `json:"retain_open_orders"`
}

type instrumentResponse struct {
	Symbol           string  `json:"symbol"`
	Algorithm        string  `json:"algorithm"`
	Rationing        string  `json:"rationing"`
	Inhomogeneity    float64 `json:"inhomogeneity"`
	TieBreak         string  `json:"tie_break"`
	RetainOpenOrders bool    `json:"retain_open_orders"`
	CreatedAt        string  `json:"created_at"`
}

type instrumentListResponse struct {
	Instruments []instrumentResponse `json:"instruments"`
}

// bookLevelResponse is a single price level in the book response.
type bookLevelResponse struct {
	Price      float64 `json:"price"`
	TotalSize  float64 `json:"total_size"`
	OrderCount int     `json:"order_count"`
}

// bookResponse is the JSON response for GET /instruments/{symbol}/book.
type bookResponse struct {
	Symbol     string              `json:"symbol"`
	Bids       []bookLevelResponse `json:"bids"`
	Asks       []bookLevelResponse `json:"asks"`
	Spread     *float64            `json:"spread"`
	SnapshotAt string              `json:"snapshot_at"`
}

// sessionResponse reports one clearing run. clearing_price is null when
// nothing traded.
type sessionResponse struct {
	SessionID     string   `json:"session_id"`
	Symbol        string   `json:"symbol"`
	Algorithm     string   `json:"algorithm"`
	Rationing     string   `json:"rationing"`
	ClearingPrice *float64 `json:"clearing_price"`
	TotalSupply   float64  `json:"total_supply"`
	TotalDemand   float64  `json:"total_demand"`
	ExcessDemand  float64  `json:"excess_demand"`
	TradedVolume  float64  `json:"traded_volume"`
	MeanBid       float64  `json:"mean_bid"`
	MeanAsk       float64  `json:"mean_ask"`
	TradeCount    int      `json:"trade_count"`
	ClearedAt     string   `json:"cleared_at"`
}

type sessionListResponse struct {
	Sessions []sessionResponse `json:"sessions"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// Create handles POST /instruments.
func (h *InstrumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInstrumentRequest
	if err := ParseJSON(r, &req); err != nil {
		writeInvalidRequest(w, err)
		return
	}

	inst, err := h.instrumentSvc.Create(service.CreateInstrumentRequest{
		Symbol:           req.Symbol,
		Algorithm:        req.Algorithm,
		Rationing:        req.Rationing,
		Inhomogeneity:    req.Inhomogeneity,
		TieBreak:         req.TieBreak,
		RetainOpenOrders: req.RetainOpenOrders,
	})
	if err != nil {
		mapInstrumentError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildInstrumentResponse(inst))
}

// List handles GET /instruments.
func (h *InstrumentHandler) List(w http.ResponseWriter, r *http.Request) {
	instruments := h.instrumentSvc.List()
	resp := instrumentListResponse{Instruments: make([]instrumentResponse, len(instruments))}
	for i, inst := range instruments {
		resp.Instruments[i] = buildInstrumentResponse(inst)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /instruments/{symbol}.
func (h *InstrumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instrumentSvc.Get(chi.URLParam(r, "symbol"))
	if err != nil {
		mapInstrumentError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInstrumentResponse(inst))
}

// GetBook handles GET /instruments/{symbol}/book.
func (h *InstrumentHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	// Parse depth query param (default 10, max 50).
	depth := 10
	if d := r.URL.Query().Get("depth"); d != "" {
		var err error
		depth, err = strconv.Atoi(d)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be a valid integer")
			return
		}
	}

	book, err := h.instrumentSvc.GetBook(symbol, depth)
	if err != nil {
		mapInstrumentError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, bookResponse{
		Symbol:     book.Symbol,
		Bids:       buildLevels(book.Bids),
		Asks:       buildLevels(book.Asks),
		Spread:     book.Spread,
		SnapshotAt: formatTime(book.SnapshotAt),
	})
}

// Clear handles POST /instruments/{symbol}/clear. An empty book clears to
// 204 No Content.
func (h *InstrumentHandler) Clear(w http.ResponseWriter, r *http.Request) {
	session, err := h.instrumentSvc.Clear(chi.URLParam(r, "symbol"))
	if err != nil {
		mapInstrumentError(w, err)
		return
	}
	if session == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	WriteJSON(w, http.StatusOK, buildSessionResponse(session))
}

// ListSessions handles GET /instruments/{symbol}/sessions.
func (h *InstrumentHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := parsePage(w, r)
	if !ok {
		return
	}

	sessions, total, err := h.instrumentSvc.ListSessions(chi.URLParam(r, "symbol"), page, limit)
	if err != nil {
		mapInstrumentError(w, err)
		return
	}

	resp := sessionListResponse{
		Sessions: make([]sessionResponse, len(sessions)),
		Total:    total,
		Page:     page,
		Limit:    limit,
	}
	for i, s := range sessions {
		resp.Sessions[i] = buildSessionResponse(s)
	}
	WriteJSON(w, http.StatusOK, resp)
}

func buildInstrumentResponse(inst *domain.Instrument) instrumentResponse {
	return instrumentResponse{
		Symbol:           inst.Symbol,
		Algorithm:        inst.Algorithm,
		Rationing:        inst.Rationing,
		Inhomogeneity:    inst.Inhomogeneity,
		TieBreak:         inst.TieBreak,
		RetainOpenOrders: inst.RetainOpenOrders,
		CreatedAt:        formatTime(inst.CreatedAt),
	}
}

func buildLevels(levels []engine.PriceLevel) []bookLevelResponse {
	result := make([]bookLevelResponse, len(levels))
	for i, l := range levels {
		result[i] = bookLevelResponse{
			Price:      l.Price,
			TotalSize:  l.TotalSize,
			OrderCount: l.OrderCount,
		}
	}
	return result
}

func buildSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		SessionID:     s.SessionID,
		Symbol:        s.Symbol,
		Algorithm:     s.Algorithm,
		Rationing:     s.Rationing,
		ClearingPrice: s.ClearingPrice,
		TotalSupply:   s.TotalSupply,
		TotalDemand:   s.TotalDemand,
		ExcessDemand:  s.Excess(),
		TradedVolume:  s.TradedVolume,
		MeanBid:       s.MeanBid,
		MeanAsk:       s.MeanAsk,
		TradeCount:    s.TradeCount,
		ClearedAt:     formatTime(s.ClearedAt),
	}
}

// mapInstrumentError maps domain errors to HTTP responses for instrument endpoints.
func mapInstrumentError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInstrumentAlreadyExists):
		WriteError(w, http.StatusConflict, "instrument_already_exists", err.Error())
	case errors.Is(err, domain.ErrInstrumentNotFound):
		WriteError(w, http.StatusNotFound, "instrument_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
