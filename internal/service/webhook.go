package service

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/store"
)

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	PartyID string
	URL     string
	Events  []string
}

// WebhookService handles webhook CRUD and event dispatch. It satisfies
// engine.EventDispatcher.
type WebhookService struct {
	store   *store.WebhookStore
	parties *store.PartyStore
	client  *http.Client
	logger  *slog.Logger
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(
	webhookStore *store.WebhookStore,
	partyStore *store.PartyStore,
	webhookTimeout time.Duration,
	logger *slog.Logger,
) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		store:   webhookStore,
		parties: partyStore,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
		logger: logger,
	}
}

// Upsert validates the request and creates or updates one subscription per
// event. It returns the resulting webhooks and whether any was new.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	if !s.parties.Exists(req.PartyID) {
		return nil, false, domain.ErrPartyNotFound
	}

	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}
	seen := make(map[string]bool, len(req.Events))
	events := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !domain.ValidEvent(event) {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event + ". Must be one of: trade.executed, order.cancelled, session.cleared",
			}
		}
		if !seen[event] {
			seen[event] = true
			events = append(events, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(events))
	for _, event := range events {
		stored, created := s.store.Upsert(&domain.Webhook{
			WebhookID: uuid.New().String(),
			PartyID:   req.PartyID,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		})
		anyCreated = anyCreated || created
		webhooks = append(webhooks, stored)
	}
	return webhooks, anyCreated, nil
}

// List returns all webhook subscriptions of a party.
func (s *WebhookService) List(partyID string) ([]*domain.Webhook, error) {
	if !s.parties.Exists(partyID) {
		return nil, domain.ErrPartyNotFound
	}
	return s.store.ListByParty(partyID), nil
}

// Delete removes a webhook subscription by ID.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

type eventPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type tradeExecutedData struct {
	TradeID         string  `json:"trade_id"`
	SessionID       string  `json:"session_id"`
	PartyID         string  `json:"party_id"`
	OrderID         string  `json:"order_id"`
	Symbol          string  `json:"symbol"`
	Side            string  `json:"side"`
	TradePrice      float64 `json:"trade_price"`
	TradeVolume     float64 `json:"trade_volume"`
	OrderStatus     string  `json:"order_status"`
	OrderFilledSize float64 `json:"order_filled_size"`
	OrderOpenSize   float64 `json:"order_open_size"`
}

type orderCancelledData struct {
	PartyID       string  `json:"party_id"`
	OrderID       string  `json:"order_id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Price         float64 `json:"price"`
	Size          float64 `json:"size"`
	FilledSize    float64 `json:"filled_size"`
	CancelledSize float64 `json:"cancelled_size"`
	Status        string  `json:"status"`
}

type sessionClearedData struct {
	SessionID     string   `json:"session_id"`
	PartyID       string   `json:"party_id"`
	Symbol        string   `json:"symbol"`
	Algorithm     string   `json:"algorithm"`
	ClearingPrice *float64 `json:"clearing_price"`
	TradedVolume  float64  `json:"traded_volume"`
	TotalSupply   float64  `json:"total_supply"`
	TotalDemand   float64  `json:"total_demand"`
}

// DispatchTradeExecuted notifies partyID of a trade on one of its orders.
// Fire-and-forget.
func (s *WebhookService) DispatchTradeExecuted(partyID string, trade *domain.Trade, order *domain.Order) {
	wh := s.store.Lookup(partyID, domain.EventTradeExecuted)
	if wh == nil || order == nil {
		return
	}
	data := tradeExecutedData{
		TradeID:         trade.TradeID,
		SessionID:       trade.SessionID,
		PartyID:         partyID,
		OrderID:         order.OrderID,
		Symbol:          trade.Symbol,
		Side:            string(order.Side),
		TradePrice:      trade.Price,
		TradeVolume:     trade.Volume,
		OrderStatus:     string(order.Status),
		OrderFilledSize: order.FilledSize,
		OrderOpenSize:   order.OpenSize,
	}
	go s.deliver(wh, newPayload(domain.EventTradeExecuted, trade.ExecutedAt, data))
}

// DispatchOrderCancelled notifies the order's party. Fire-and-forget.
func (s *WebhookService) DispatchOrderCancelled(order *domain.Order) {
	wh := s.store.Lookup(order.PartyID, domain.EventOrderCancelled)
	if wh == nil {
		return
	}
	data := orderCancelledData{
		PartyID:       order.PartyID,
		OrderID:       order.OrderID,
		Symbol:        order.Symbol,
		Side:          string(order.Side),
		Price:         order.Price,
		Size:          order.Size,
		FilledSize:    order.FilledSize,
		CancelledSize: order.CancelledSize,
		Status:        string(order.Status),
	}
	go s.deliver(wh, newPayload(domain.EventOrderCancelled, time.Now(), data))
}

// DispatchSessionCleared notifies a party that took part in a session.
// Fire-and-forget.
func (s *WebhookService) DispatchSessionCleared(partyID string, session *domain.Session) {
	wh := s.store.Lookup(partyID, domain.EventSessionCleared)
	if wh == nil {
		return
	}
	data := sessionClearedData{
		SessionID:     session.SessionID,
		PartyID:       partyID,
		Symbol:        session.Symbol,
		Algorithm:     session.Algorithm,
		ClearingPrice: session.ClearingPrice,
		TradedVolume:  session.TradedVolume,
		TotalSupply:   session.TotalSupply,
		TotalDemand:   session.TotalDemand,
	}
	go s.deliver(wh, newPayload(domain.EventSessionCleared, session.ClearedAt, data))
}

func newPayload(event string, at time.Time, data any) eventPayload {
	return eventPayload{
		Event:     event,
		Timestamp: at.UTC().Truncate(time.Second).Format(time.RFC3339),
		Data:      data,
	}
}

// deliver POSTs the payload. Failures are logged and dropped.
func (s *WebhookService) deliver(wh *domain.Webhook, payload eventPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", payload.Event)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("webhook delivery failed",
			slog.String("webhook_id", wh.WebhookID),
			slog.String("error", err.Error()),
		)
		return
	}
	resp.Body.Close()
}
