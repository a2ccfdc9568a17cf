package domain

import "time"

// Session holds the statistics of one clearing run of an instrument.
type Session struct {
	SessionID string
	Symbol    string
	Algorithm string
	Rationing string
	// ClearingPrice is the auction price for call auctions and the
	// volume-weighted trade price otherwise. Nil when nothing traded.
	ClearingPrice *float64
	TotalSupply   float64
	TotalDemand   float64
	TradedVolume  float64
	MeanBid       float64 // demand-weighted
	MeanAsk       float64 // supply-weighted
	TradeCount    int
	ClearedAt     time.Time
}

// Excess returns demand minus supply offered in the session.
func (s *Session) Excess() float64 {
	return s.TotalDemand - s.TotalSupply
}
