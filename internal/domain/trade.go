package domain

import "time"

// Trade records volume exchanged between an ask and a bid during a session.
type Trade struct {
	TradeID     string
	SessionID   string
	Symbol      string
	SellOrderID string
	BuyOrderID  string
	SellerID    string
	BuyerID     string
	Price       float64
	Volume      float64
	ExecutedAt  time.Time
}
