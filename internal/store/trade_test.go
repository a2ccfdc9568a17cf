package store

import (
	"testing"

	"github.com/efreitasn/marketmatch/internal/domain"
)

func TestTradeStore_AppendAndQuery(t *testing.T) {
	s := NewTradeStore()
	s.Append("LABOUR",
		&domain.Trade{TradeID: "t1", SessionID: "s1", Volume: 1},
		&domain.Trade{TradeID: "t2", SessionID: "s1", Volume: 2},
	)
	s.Append("LABOUR", &domain.Trade{TradeID: "t3", SessionID: "s2", Volume: 3})
	s.Append("GOODS")

	all := s.GetBySymbol("LABOUR")
	if len(all) != 3 || all[0].TradeID != "t1" || all[2].TradeID != "t3" {
		t.Fatalf("GetBySymbol = %+v", all)
	}
	if got := s.GetBySession("LABOUR", "s1"); len(got) != 2 {
		t.Errorf("GetBySession(s1) returned %d trades, want 2", len(got))
	}
	if got := s.GetBySymbol("GOODS"); got == nil || len(got) != 0 {
		t.Errorf("GetBySymbol(GOODS) = %v, want empty slice", got)
	}

	// The returned slice is a copy.
	all[0] = nil
	if s.GetBySymbol("LABOUR")[0] == nil {
		t.Error("GetBySymbol exposes internal storage")
	}
}
