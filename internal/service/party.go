package service

import (
	"fmt"
	"regexp"
	"time"

	"github.com/efreitasn/marketmatch/internal/domain"
	"github.com/efreitasn/marketmatch/internal/store"
)

var (
	partyIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	symbolRegex  = regexp.MustCompile(`^[A-Z]{1,10}$`)
)

// RegisterPartyRequest represents the input for party registration.
type RegisterPartyRequest struct {
	PartyID string
	Kind    domain.PartyKind
}

// PartyService handles party registration.
type PartyService struct {
	store *store.PartyStore
}

// NewPartyService creates a new PartyService.
func NewPartyService(store *store.PartyStore) *PartyService {
	return &PartyService{store: store}
}

// Register validates the request and creates the party.
func (s *PartyService) Register(req RegisterPartyRequest) (*domain.Party, error) {
	if !partyIDRegex.MatchString(req.PartyID) {
		return nil, &domain.ValidationError{
			Message: "party_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if !req.Kind.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown party kind: %s. Must be one of: bank, firm, household, fund, central_bank, government", req.Kind),
		}
	}

	party := &domain.Party{
		PartyID:   req.PartyID,
		Kind:      req.Kind,
		CreatedAt: time.Now(),
	}
	if err := s.store.Create(party); err != nil {
		return nil, err
	}
	return party, nil
}

// Get retrieves a party by ID.
func (s *PartyService) Get(partyID string) (*domain.Party, error) {
	return s.store.Get(partyID)
}
