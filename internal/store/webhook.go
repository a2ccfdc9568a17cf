package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/marketmatch/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for webhooks, indexed by
// webhook_id and by (party_id, event). A party holds at most one
// subscription per event.
type WebhookStore struct {
	mu       sync.RWMutex
	webhooks map[string]*domain.Webhook
	byParty  map[string]map[string]*domain.Webhook // party_id → event → webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks: make(map[string]*domain.Webhook),
		byParty:  make(map[string]map[string]*domain.Webhook),
	}
}

// Upsert stores w unless the party already subscribes to w.Event, in which
// case the existing subscription takes w's URL and keeps its ID. It returns
// the stored subscription and whether it was newly created.
func (s *WebhookStore) Upsert(w *domain.Webhook) (*domain.Webhook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.byParty[w.PartyID]
	if existing, ok := events[w.Event]; ok {
		if existing.URL != w.URL {
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
		}
		return existing, false
	}

	if events == nil {
		events = make(map[string]*domain.Webhook)
		s.byParty[w.PartyID] = events
	}
	events[w.Event] = w
	s.webhooks[w.WebhookID] = w
	return w, true
}

// Get retrieves a webhook by ID. It returns domain.ErrWebhookNotFound if the
// webhook does not exist.
func (s *WebhookStore) Get(id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.webhooks[id]
	if !ok {
		return nil, domain.ErrWebhookNotFound
	}
	return w, nil
}

// ListByParty returns the party's subscriptions ordered by event.
func (s *WebhookStore) ListByParty(partyID string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Webhook, 0, len(s.byParty[partyID]))
	for _, w := range s.byParty[partyID] {
		result = append(result, w)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Event < result[b].Event })
	return result
}

// Delete removes a webhook from both indexes. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, id)

	if events := s.byParty[w.PartyID]; events != nil {
		delete(events, w.Event)
		if len(events) == 0 {
			delete(s.byParty, w.PartyID)
		}
	}
	return nil
}

// Lookup returns the party's subscription to event, or nil.
func (s *WebhookStore) Lookup(partyID, event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.byParty[partyID][event]
}
