package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/marketmatch/internal/domain"
)

// InstrumentStore is a thread-safe in-memory store for instruments,
// keyed by symbol.
type InstrumentStore struct {
	mu          sync.RWMutex
	instruments map[string]*domain.Instrument
}

// NewInstrumentStore creates an empty InstrumentStore.
func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		instruments: make(map[string]*domain.Instrument),
	}
}

// Create adds an instrument. It returns domain.ErrInstrumentAlreadyExists
// if the symbol is taken.
func (s *InstrumentStore) Create(i *domain.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instruments[i.Symbol]; exists {
		return domain.ErrInstrumentAlreadyExists
	}
	s.instruments[i.Symbol] = i
	return nil
}

// Get retrieves an instrument by symbol. It returns
// domain.ErrInstrumentNotFound if the symbol is unknown.
func (s *InstrumentStore) Get(symbol string) (*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.instruments[symbol]
	if !ok {
		return nil, domain.ErrInstrumentNotFound
	}
	return i, nil
}

// List returns every instrument sorted by symbol.
func (s *InstrumentStore) List() []*domain.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Instrument, 0, len(s.instruments))
	for _, i := range s.instruments {
		result = append(result, i)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Symbol < result[b].Symbol })
	return result
}

// Symbols returns every registered symbol in sorted order.
func (s *InstrumentStore) Symbols() []string {
	list := s.List()
	symbols := make([]string, len(list))
	for i, inst := range list {
		symbols[i] = inst.Symbol
	}
	return symbols
}
