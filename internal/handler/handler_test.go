package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/marketmatch/internal/engine"
	"github.com/efreitasn/marketmatch/internal/service"
	"github.com/efreitasn/marketmatch/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// testEnv bundles all dependencies for handler integration tests.
type testEnv struct {
	router http.Handler
}

func newTestEnv() *testEnv {
	ps := store.NewPartyStore()
	is := store.NewInstrumentStore()
	os := store.NewOrderStore()
	ts := store.NewTradeStore()
	ss := store.NewSessionStore()
	ws := store.NewWebhookStore()
	bm := engine.NewBookManager()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	webhookSvc := service.NewWebhookService(ws, ps, 5*time.Second, logger)
	clearer := engine.NewClearer(bm, is, os, ts, ss, metrics, webhookSvc, logger)
	partySvc := service.NewPartyService(ps)
	instrumentSvc := service.NewInstrumentService(is, ss, bm, clearer, service.InstrumentDefaults{
		Algorithm:     "call_auction",
		Rationing:     "homogeneous",
		Inhomogeneity: 0.05,
		Seed:          1,
	})
	orderSvc := service.NewOrderService(clearer, ps, is, os, webhookSvc)

	return &testEnv{
		router: NewRouter(partySvc, instrumentSvc, orderSvc, webhookSvc, reg, logger),
	}
}

// doJSON sends a JSON request and returns the recorder.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// doRaw sends a raw request with optional content-type override.
func (env *testEnv) doRaw(t *testing.T, method, path, contentType, rawBody string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// decodeJSON decodes the response body into v.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

func (env *testEnv) registerParty(t *testing.T, id, kind string) {
	t.Helper()
	rr := env.doJSON(t, "POST", "/parties", map[string]any{"party_id": id, "kind": kind})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register party %s: expected 201, got %d: %s", id, rr.Code, rr.Body.String())
	}
}

func (env *testEnv) createInstrument(t *testing.T, body map[string]any) {
	t.Helper()
	rr := env.doJSON(t, "POST", "/instruments", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create instrument: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

func (env *testEnv) submitOrder(t *testing.T, partyID, side, symbol string, price, size float64) map[string]any {
	t.Helper()
	rr := env.doJSON(t, "POST", "/orders", map[string]any{
		"party_id": partyID,
		"side":     side,
		"symbol":   symbol,
		"price":    price,
		"size":     size,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit order: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	return resp
}

// labourMarket sets up the three-seller, three-buyer market that clears at
// 2.5 for 15 units.
func labourMarket(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv()
	env.createInstrument(t, map[string]any{"symbol": "LABOUR"})
	for i, o := range []struct {
		side        string
		price, size float64
	}{
		{"ask", 1, 10}, {"ask", 2, 10}, {"ask", 3, 10},
		{"bid", 3, 5}, {"bid", 2.5, 10}, {"bid", 1.5, 10},
	} {
		id := fmt.Sprintf("p%d", i)
		env.registerParty(t, id, "household")
		env.submitOrder(t, id, o.side, "LABOUR", o.price, o.size)
	}
	return env
}

// --- Health / metrics ---

func TestHealthz(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "GET", "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %q", resp["status"])
	}
}

func TestMetrics_ExposesSessionCounters(t *testing.T) {
	env := labourMarket(t)
	if rr := env.doJSON(t, "POST", "/instruments/LABOUR/clear", nil); rr.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr := env.doJSON(t, "GET", "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{
		`marketmatch_clearing_sessions_total{algorithm="call_auction",symbol="LABOUR"} 1`,
		`marketmatch_clearing_price{symbol="LABOUR"} 2.5`,
		`marketmatch_clearing_trades_total{symbol="LABOUR"} 3`,
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}

// --- Parties ---

func TestParty_Register(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "POST", "/parties", map[string]any{"party_id": "bank-1", "kind": "bank"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["party_id"] != "bank-1" || resp["kind"] != "bank" {
		t.Fatalf("unexpected response: %v", resp)
	}

	rr = env.doJSON(t, "POST", "/parties", map[string]any{"party_id": "bank-1", "kind": "bank"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rr.Code)
	}

	rr = env.doJSON(t, "POST", "/parties", map[string]any{"party_id": "x", "kind": "broker"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", rr.Code)
	}
}

func TestParty_ListOrders(t *testing.T) {
	env := labourMarket(t)

	rr := env.doJSON(t, "GET", "/parties/p0/orders?status=pending", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["total"] != 1.0 || resp["page"] != 1.0 || resp["limit"] != 20.0 {
		t.Fatalf("unexpected paging: %v", resp)
	}
	order := resp["orders"].([]any)[0].(map[string]any)
	if order["average_price"] != nil {
		t.Errorf("average_price = %v, want null before any fill", order["average_price"])
	}

	if rr := env.doJSON(t, "GET", "/parties/ghost/orders", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown party, got %d", rr.Code)
	}
	if rr := env.doJSON(t, "GET", "/parties/p0/orders?page=x", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad page, got %d", rr.Code)
	}
	if rr := env.doJSON(t, "GET", "/parties/p0/orders?status=expired", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", rr.Code)
	}
}

// --- Instruments ---

func TestInstrument_CreateAndGet(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "POST", "/instruments", map[string]any{
		"symbol":             "GOODS",
		"algorithm":          "forager",
		"rationing":          "random_deny",
		"inhomogeneity":      0.3,
		"retain_open_orders": true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.doJSON(t, "GET", "/instruments/GOODS", nil)
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["algorithm"] != "forager" || resp["rationing"] != "random_deny" || resp["inhomogeneity"] != 0.3 {
		t.Fatalf("unexpected instrument: %v", resp)
	}
	if resp["tie_break"] != "lowest_price" || resp["retain_open_orders"] != true {
		t.Fatalf("unexpected instrument: %v", resp)
	}

	rr = env.doJSON(t, "GET", "/instruments", nil)
	var list map[string][]map[string]any
	decodeJSON(t, rr, &list)
	if len(list["instruments"]) != 1 {
		t.Fatalf("expected 1 instrument, got %d", len(list["instruments"]))
	}

	if rr := env.doJSON(t, "POST", "/instruments", map[string]any{"symbol": "GOODS"}); rr.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", rr.Code)
	}
	if rr := env.doJSON(t, "POST", "/instruments", map[string]any{"symbol": "X", "algorithm": "dutch"}); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown algorithm, got %d", rr.Code)
	}
	if rr := env.doJSON(t, "GET", "/instruments/NONE", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestInstrument_GetBook(t *testing.T) {
	env := labourMarket(t)

	rr := env.doJSON(t, "GET", "/instruments/LABOUR/book?depth=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Bids   []map[string]any `json:"bids"`
		Asks   []map[string]any `json:"asks"`
		Spread *float64         `json:"spread"`
	}
	decodeJSON(t, rr, &resp)
	if len(resp.Bids) != 2 || len(resp.Asks) != 2 {
		t.Fatalf("expected 2 levels per side, got %d bids / %d asks", len(resp.Bids), len(resp.Asks))
	}
	if resp.Bids[0]["price"] != 3.0 || resp.Asks[0]["price"] != 1.0 {
		t.Fatalf("unexpected top of book: %v / %v", resp.Bids[0], resp.Asks[0])
	}
	if resp.Spread == nil || *resp.Spread != -2 {
		t.Fatalf("expected spread -2 on a crossed book, got %v", resp.Spread)
	}

	for _, depth := range []string{"0", "51", "abc"} {
		rr := env.doJSON(t, "GET", "/instruments/LABOUR/book?depth="+depth, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("depth=%s: expected 400, got %d", depth, rr.Code)
		}
	}
}

func TestInstrument_ClearAndSessions(t *testing.T) {
	env := labourMarket(t)

	rr := env.doJSON(t, "POST", "/instruments/LABOUR/clear", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var session map[string]any
	decodeJSON(t, rr, &session)
	if session["clearing_price"] != 2.5 || session["traded_volume"] != 15.0 || session["trade_count"] != 3.0 {
		t.Fatalf("unexpected session: %v", session)
	}
	if session["total_supply"] != 30.0 || session["total_demand"] != 25.0 || session["excess_demand"] != -5.0 {
		t.Fatalf("unexpected session: %v", session)
	}

	// Nothing is retained, so the next clear finds an empty book.
	rr = env.doJSON(t, "POST", "/instruments/LABOUR/clear", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on an empty book, got %d", rr.Code)
	}

	rr = env.doJSON(t, "GET", "/instruments/LABOUR/sessions", nil)
	var list map[string]any
	decodeJSON(t, rr, &list)
	if list["total"] != 1.0 {
		t.Fatalf("expected 1 session, got %v", list["total"])
	}

	if rr := env.doJSON(t, "POST", "/instruments/NONE/clear", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

// --- Orders ---

func TestOrder_SubmitGetCancel(t *testing.T) {
	env := newTestEnv()
	env.createInstrument(t, map[string]any{"symbol": "LABOUR"})
	env.registerParty(t, "hh-1", "household")

	order := env.submitOrder(t, "hh-1", "bid", "LABOUR", 1.25, 40)
	if order["status"] != "pending" || order["open_size"] != 40.0 || order["cancelled_at"] != nil {
		t.Fatalf("unexpected order: %v", order)
	}
	if trades, ok := order["trades"].([]any); !ok || len(trades) != 0 {
		t.Fatalf("expected an empty trades array, got %v", order["trades"])
	}
	id := order["order_id"].(string)

	rr := env.doJSON(t, "GET", "/orders/"+id, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = env.doJSON(t, "DELETE", "/orders/"+id, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var cancelled map[string]any
	decodeJSON(t, rr, &cancelled)
	if cancelled["status"] != "cancelled" || cancelled["cancelled_size"] != 40.0 {
		t.Fatalf("unexpected cancelled order: %v", cancelled)
	}
	if _, err := time.Parse(time.RFC3339, cancelled["cancelled_at"].(string)); err != nil {
		t.Fatalf("cancelled_at not RFC 3339: %v", cancelled["cancelled_at"])
	}

	if rr := env.doJSON(t, "DELETE", "/orders/"+id, nil); rr.Code != http.StatusConflict {
		t.Errorf("expected 409 for second cancel, got %d", rr.Code)
	}
	if rr := env.doJSON(t, "GET", "/orders/missing", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestOrder_Submit_Errors(t *testing.T) {
	env := newTestEnv()
	env.createInstrument(t, map[string]any{"symbol": "LABOUR"})
	env.registerParty(t, "hh-1", "household")
	env.submitOrder(t, "hh-1", "bid", "LABOUR", 1, 1)

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{"bad side", map[string]any{"party_id": "hh-1", "side": "buy", "symbol": "LABOUR", "price": 1, "size": 1}, http.StatusBadRequest},
		{"zero size", map[string]any{"party_id": "hh-1", "side": "ask", "symbol": "LABOUR", "price": 1, "size": 0}, http.StatusBadRequest},
		{"unknown party", map[string]any{"party_id": "ghost", "side": "ask", "symbol": "LABOUR", "price": 1, "size": 1}, http.StatusNotFound},
		{"unknown instrument", map[string]any{"party_id": "hh-1", "side": "ask", "symbol": "GOODS", "price": 1, "size": 1}, http.StatusNotFound},
		{"second bid", map[string]any{"party_id": "hh-1", "side": "bid", "symbol": "LABOUR", "price": 2, "size": 1}, http.StatusConflict},
		{"unknown field", map[string]any{"party_id": "hh-1", "side": "ask", "symbol": "LABOUR", "price": 1, "size": 1, "type": "limit"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.doJSON(t, "POST", "/orders", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestOrder_FilledAfterClear(t *testing.T) {
	env := labourMarket(t)
	if rr := env.doJSON(t, "POST", "/instruments/LABOUR/clear", nil); rr.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d", rr.Code)
	}

	// p3 bid 5 @ 3 and is filled in full at the auction price.
	rr := env.doJSON(t, "GET", "/parties/p3/orders", nil)
	var list map[string]any
	decodeJSON(t, rr, &list)
	summary := list["orders"].([]any)[0].(map[string]any)
	if summary["status"] != "filled" || summary["average_price"] != 2.5 {
		t.Fatalf("unexpected buyer order: %v", summary)
	}

	rr = env.doJSON(t, "GET", "/orders/"+summary["order_id"].(string), nil)
	var order map[string]any
	decodeJSON(t, rr, &order)
	trades := order["trades"].([]any)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	trade := trades[0].(map[string]any)
	if trade["price"] != 2.5 || trade["volume"] != 5.0 || trade["session_id"] == "" {
		t.Fatalf("unexpected trade: %v", trade)
	}

	// p0 asked 10 @ 1, sold 7.5 and had the rest cancelled.
	rr = env.doJSON(t, "GET", "/parties/p0/orders", nil)
	decodeJSON(t, rr, &list)
	seller := list["orders"].([]any)[0].(map[string]any)
	if seller["status"] != "cancelled" || seller["filled_size"] != 7.5 || seller["cancelled_size"] != 2.5 {
		t.Fatalf("unexpected seller order: %v", seller)
	}
}

// --- Webhooks ---

func TestWebhook_UpsertListDelete(t *testing.T) {
	env := newTestEnv()
	env.registerParty(t, "firm-1", "firm")

	rr := env.doJSON(t, "POST", "/webhooks", map[string]any{
		"party_id": "firm-1",
		"url":      "https://example.com/hooks",
		"events":   []string{"session.cleared", "trade.executed"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created map[string][]map[string]any
	decodeJSON(t, rr, &created)
	if len(created["webhooks"]) != 2 {
		t.Fatalf("expected 2 webhooks, got %d", len(created["webhooks"]))
	}

	rr = env.doJSON(t, "POST", "/webhooks", map[string]any{
		"party_id": "firm-1",
		"url":      "https://example.com/hooks",
		"events":   []string{"session.cleared"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for an existing subscription, got %d", rr.Code)
	}

	rr = env.doJSON(t, "GET", "/webhooks?party_id=firm-1", nil)
	var listed map[string][]map[string]any
	decodeJSON(t, rr, &listed)
	if len(listed["webhooks"]) != 2 {
		t.Fatalf("expected 2 webhooks, got %d", len(listed["webhooks"]))
	}

	id := created["webhooks"][0]["webhook_id"].(string)
	if rr := env.doJSON(t, "DELETE", "/webhooks/"+id, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := env.doJSON(t, "DELETE", "/webhooks/"+id, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr := env.doJSON(t, "GET", "/webhooks", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without party_id, got %d", rr.Code)
	}
	if rr := env.doJSON(t, "GET", "/webhooks?party_id=ghost", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown party, got %d", rr.Code)
	}
}

// --- Content-Type Validation ---

func TestContentType_MissingOnPost(t *testing.T) {
	env := newTestEnv()
	rr := env.doRaw(t, "POST", "/parties", "", `{"party_id":"b1","kind":"bank"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing Content-Type, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestContentType_WrongOnPost(t *testing.T) {
	env := newTestEnv()
	rr := env.doRaw(t, "POST", "/parties", "text/plain", `{"party_id":"b1","kind":"bank"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong Content-Type, got %d: %s", rr.Code, rr.Body.String())
	}
}

// --- Response Format Validation ---

func TestResponseFormat_SnakeCaseFields(t *testing.T) {
	env := labourMarket(t)

	rr := env.doJSON(t, "POST", "/instruments/LABOUR/clear", nil)
	body := rr.Body.String()

	for _, field := range []string{"session_id", "clearing_price", "total_supply", "mean_bid", "cleared_at"} {
		if !strings.Contains(body, fmt.Sprintf(`"%s"`, field)) {
			t.Fatalf("response missing snake_case field %q: %s", field, body)
		}
	}
	for _, bad := range []string{"sessionId", "clearingPrice", "totalSupply", "meanBid"} {
		if strings.Contains(body, bad) {
			t.Fatalf("response contains camelCase field %q: %s", bad, body)
		}
	}
}

func TestResponseFormat_TimestampRFC3339(t *testing.T) {
	env := newTestEnv()
	env.createInstrument(t, map[string]any{"symbol": "LABOUR"})
	env.registerParty(t, "b1", "bank")
	order := env.submitOrder(t, "b1", "bid", "LABOUR", 100.0, 1)

	createdAt, ok := order["created_at"].(string)
	if !ok {
		t.Fatal("created_at should be a string")
	}
	if _, err := time.Parse(time.RFC3339, createdAt); err != nil {
		t.Fatalf("created_at not RFC 3339: %s", createdAt)
	}
}
