package store

import (
	"sync"

	"github.com/efreitasn/marketmatch/internal/domain"
)

// TradeStore is a thread-safe in-memory store for trades,
// keyed by symbol. Trades are append-only and chronological.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[string][]*domain.Trade // symbol → trades (chronological)
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades: make(map[string][]*domain.Trade),
	}
}

// Append adds the trades of one session to their symbol's history.
func (s *TradeStore) Append(symbol string, trades ...*domain.Trade) {
	if len(trades) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades[symbol] = append(s.trades[symbol], trades...)
}

// GetBySymbol returns a copy of the symbol's trades in chronological order.
func (s *TradeStore) GetBySymbol(symbol string) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, len(s.trades[symbol]))
	copy(result, s.trades[symbol])
	return result
}

// GetBySession returns the trades a session produced.
func (s *TradeStore) GetBySession(symbol, sessionID string) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.Trade{}
	for _, t := range s.trades[symbol] {
		if t.SessionID == sessionID {
			result = append(result, t)
		}
	}
	return result
}
