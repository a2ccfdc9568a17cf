package domain

import "time"

// Instrument is a market in which parties trade a single good, labour or
// asset. Each instrument clears with its own matching configuration.
type Instrument struct {
	Symbol        string
	Algorithm     string
	Rationing     string
	Inhomogeneity float64
	TieBreak      string
	// RetainOpenOrders keeps unmatched volume on the book across sessions.
	// Otherwise every session cancels what it could not match.
	RetainOpenOrders bool
	CreatedAt        time.Time
}
