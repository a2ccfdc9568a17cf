package domain

import "time"

// PartyKind is the role a participant plays in the simulated economy.
type PartyKind string

const (
	PartyKindBank        PartyKind = "bank"
	PartyKindFirm        PartyKind = "firm"
	PartyKindHousehold   PartyKind = "household"
	PartyKindFund        PartyKind = "fund"
	PartyKindCentralBank PartyKind = "central_bank"
	PartyKindGovernment  PartyKind = "government"
)

// Valid reports whether k is one of the known party kinds.
func (k PartyKind) Valid() bool {
	switch k {
	case PartyKindBank, PartyKindFirm, PartyKindHousehold,
		PartyKindFund, PartyKindCentralBank, PartyKindGovernment:
		return true
	}
	return false
}

// Party represents a participant registered with the market.
type Party struct {
	PartyID   string
	Kind      PartyKind
	CreatedAt time.Time
}
