package service

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/engine"
	"github.com/efreitasn/marketmatch/internal/matching"
	"github.com/efreitasn/marketmatch/internal/store"
)

// InstrumentDefaults fill in whatever a CreateInstrumentRequest leaves out.
type InstrumentDefaults struct {
	Algorithm     string
	Rationing     string
	Inhomogeneity float64
	TieBreak      string
	// Seed is the base seed of every instrument's random stream.
	Seed int64
}

// CreateInstrumentRequest represents the input for instrument creation.
// Empty fields take the service defaults.
type CreateInstrumentRequest struct {
	Symbol           string
	Algorithm        string
	Rationing        string
	Inhomogeneity    *float64
	TieBreak         string
	RetainOpenOrders bool
}

// BookResponse represents the response for GET /instruments/{symbol}/book.
type BookResponse struct {
	Symbol     string
	Bids       []engine.PriceLevel
	Asks       []engine.PriceLevel
	Spread     *float64 // nil if either side empty
	SnapshotAt time.Time
}

// InstrumentService handles instrument setup, book snapshots and clearing.
type InstrumentService struct {
	store    *store.InstrumentStore
	sessions *store.SessionStore
	books    *engine.BookManager
	clearer  *engine.Clearer
	defaults InstrumentDefaults

	mu      sync.Mutex // guards streams
	streams int64

	createMu sync.Mutex // serializes opening a book with storing its instrument
}

// NewInstrumentService creates a new InstrumentService with the given dependencies.
func NewInstrumentService(
	instrumentStore *store.InstrumentStore,
	sessionStore *store.SessionStore,
	books *engine.BookManager,
	clearer *engine.Clearer,
	defaults InstrumentDefaults,
) *InstrumentService {
	return &InstrumentService{
		store:    instrumentStore,
		sessions: sessionStore,
		books:    books,
		clearer:  clearer,
		defaults: defaults,
	}
}

// Create validates the request, builds the instrument's matching algorithm
// and opens its book.
func (s *InstrumentService) Create(req CreateInstrumentRequest) (*domain.Instrument, error) {
	if !symbolRegex.MatchString(req.Symbol) {
		return nil, &domain.ValidationError{Message: "symbol must match ^[A-Z]{1,10}$"}
	}

	inst := &domain.Instrument{
		Symbol:           req.Symbol,
		Algorithm:        orDefault(req.Algorithm, s.defaults.Algorithm),
		Rationing:        orDefault(req.Rationing, s.defaults.Rationing),
		Inhomogeneity:    s.defaults.Inhomogeneity,
		TieBreak:         orDefault(req.TieBreak, s.defaults.TieBreak),
		RetainOpenOrders: req.RetainOpenOrders,
		CreatedAt:        time.Now(),
	}
	if req.Inhomogeneity != nil {
		inst.Inhomogeneity = *req.Inhomogeneity
	}

	if !matching.IsAlgorithm(inst.Algorithm) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown algorithm: %s. Must be one of: call_auction, forager", inst.Algorithm),
		}
	}
	if !matching.IsRationing(inst.Rationing) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown rationing: %s. Must be one of: homogeneous, random_deny, worst_proposition", inst.Rationing),
		}
	}
	if math.IsNaN(inst.Inhomogeneity) || inst.Inhomogeneity < 0 || inst.Inhomogeneity > 1 {
		return nil, &domain.ValidationError{Message: "inhomogeneity must be between 0 and 1"}
	}
	tieBreak, err := matching.ParseTieBreak(inst.TieBreak)
	if err != nil {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown tie_break: %s. Must be one of: lowest_price, first_scanned", inst.TieBreak),
		}
	}
	inst.TieBreak = tieBreak.String()

	rng := s.nextStream()
	rationing, err := matching.ParseRationing(inst.Rationing, inst.Inhomogeneity, rng)
	if err != nil {
		return nil, err
	}
	alg, err := matching.ParseAlgorithm(inst.Algorithm, rationing, tieBreak, rng)
	if err != nil {
		return nil, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()
	if _, err := s.store.Get(inst.Symbol); err == nil {
		return nil, domain.ErrInstrumentAlreadyExists
	}
	// The scheduler walks stored instruments, so the book must exist first.
	s.books.Open(inst.Symbol, alg)
	if err := s.store.Create(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// nextStream returns a generator for a new instrument. Instruments get
// consecutive seeds so a run is reproducible for a fixed creation order.
func (s *InstrumentService) nextStream() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	seed := s.defaults.Seed + s.streams
	s.streams++
	return rand.New(rand.NewSource(seed))
}

// Get retrieves an instrument by symbol.
func (s *InstrumentService) Get(symbol string) (*domain.Instrument, error) {
	return s.store.Get(symbol)
}

// List returns every instrument sorted by symbol.
func (s *InstrumentService) List() []*domain.Instrument {
	return s.store.List()
}

// GetBook returns up to depth price levels of each side of the book.
func (s *InstrumentService) GetBook(symbol string, depth int) (*BookResponse, error) {
	book, ok := s.books.Get(symbol)
	if !ok {
		return nil, domain.ErrInstrumentNotFound
	}
	if depth < 1 || depth > 50 {
		return nil, &domain.ValidationError{Message: "depth must be between 1 and 50"}
	}

	book.RLock()
	defer book.RUnlock()

	resp := &BookResponse{
		Symbol:     symbol,
		Bids:       book.TopBids(depth),
		Asks:       book.TopAsks(depth),
		SnapshotAt: time.Now(),
	}
	if len(resp.Bids) > 0 && len(resp.Asks) > 0 {
		spread := resp.Asks[0].Price - resp.Bids[0].Price
		resp.Spread = &spread
	}
	return resp, nil
}

// ListSessions returns a page of the instrument's sessions, newest first.
func (s *InstrumentService) ListSessions(symbol string, page, limit int) ([]*domain.Session, int, error) {
	if _, err := s.store.Get(symbol); err != nil {
		return nil, 0, err
	}
	if err := validatePage(page, limit); err != nil {
		return nil, 0, err
	}
	sessions, total := s.sessions.ListBySymbol(symbol, page, limit)
	return sessions, total, nil
}

// Clear runs a clearing session now. It returns a nil session when the
// book is empty.
func (s *InstrumentService) Clear(symbol string) (*domain.Session, error) {
	return s.clearer.Clear(symbol)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func validatePage(page, limit int) error {
	if page < 1 {
		return &domain.ValidationError{Message: "page must be >= 1"}
	}
	if limit < 1 || limit > 100 {
		return &domain.ValidationError{Message: "limit must be between 1 and 100"}
	}
	return nil
}
