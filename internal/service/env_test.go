package service

import (
	"testing"
	"time"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/engine"
	"github.com/efreitasn/marketmatch/internal/store"
)

// testEnv bundles every service over fresh stores.
type testEnv struct {
	parties     *store.PartyStore
	instruments *store.InstrumentStore
	orders      *store.OrderStore
	trades      *store.TradeStore
	sessions    *store.SessionStore
	webhooks    *store.WebhookStore
	books       *engine.BookManager

	partySvc      *PartyService
	instrumentSvc *InstrumentService
	orderSvc      *OrderService
	webhookSvc    *WebhookService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		parties:     store.NewPartyStore(),
		instruments: store.NewInstrumentStore(),
		orders:      store.NewOrderStore(),
		trades:      store.NewTradeStore(),
		sessions:    store.NewSessionStore(),
		webhooks:    store.NewWebhookStore(),
		books:       engine.NewBookManager(),
	}
	env.webhookSvc = NewWebhookService(env.webhooks, env.parties, 5*time.Second, nil)
	clearer := engine.NewClearer(env.books, env.instruments, env.orders, env.trades, env.sessions, nil, env.webhookSvc, nil)
	env.partySvc = NewPartyService(env.parties)
	env.instrumentSvc = NewInstrumentService(env.instruments, env.sessions, env.books, clearer, InstrumentDefaults{
		Algorithm:     "call_auction",
		Rationing:     "homogeneous",
		Inhomogeneity: 0.05,
		Seed:          1,
	})
	env.orderSvc = NewOrderService(clearer, env.parties, env.instruments, env.orders, env.webhookSvc)
	return env
}

func (env *testEnv) registerParty(t *testing.T, id string, kind domain.PartyKind) {
	t.Helper()
	if _, err := env.partySvc.Register(RegisterPartyRequest{PartyID: id, Kind: kind}); err != nil {
		t.Fatalf("failed to register party %s: %v", id, err)
	}
}

func (env *testEnv) createInstrument(t *testing.T, req CreateInstrumentRequest) *domain.Instrument {
	t.Helper()
	inst, err := env.instrumentSvc.Create(req)
	if err != nil {
		t.Fatalf("failed to create instrument %s: %v", req.Symbol, err)
	}
	return inst
}

func (env *testEnv) submit(t *testing.T, partyID string, side domain.OrderSide, price, size float64) *domain.Order {
	t.Helper()
	o, err := env.orderSvc.SubmitOrder(SubmitOrderRequest{
		PartyID: partyID,
		Side:    side,
		Symbol:  "LABOUR",
		Price:   price,
		Size:    size,
	})
	if err != nil {
		t.Fatalf("failed to submit order for %s: %v", partyID, err)
	}
	return o
}
