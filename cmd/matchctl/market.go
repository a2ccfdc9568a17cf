package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/efreitasn/marketmatch/internal/matching"
)

type options struct {
	algorithm     string
	rationing     string
	inhomogeneity float64
	tieBreak      string
	seed          int64
}

// offer is one seller or buyer of the input market.
type offer struct {
	ID     string  `json:"id"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

type market struct {
	Sellers []offer `json:"sellers"`
	Buyers  []offer `json:"buyers"`
}

type matchOutput struct {
	Algorithm string `json:"algorithm"`
	Rationing string `json:"rationing"`
	// AuctionPrice is set by call auctions that found a market.
	AuctionPrice     *float64        `json:"auction_price,omitempty"`
	TotalTraded      float64         `json:"total_traded"`
	Matches          []matchLine     `json:"matches"`
	UnmatchedSellers []unmatchedLine `json:"unmatched_sellers"`
	UnmatchedBuyers  []unmatchedLine `json:"unmatched_buyers"`
}

type matchLine struct {
	Seller string  `json:"seller"`
	Buyer  string  `json:"buyer"`
	Amount float64 `json:"amount"`
	Price  float64 `json:"price"`
}

type unmatchedLine struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
}

type rationOutput struct {
	Rationing string          `json:"rationing"`
	Sellers   []unmatchedLine `json:"sellers"`
	Buyers    []unmatchedLine `json:"buyers"`
}

func readMarket(r io.Reader) (*market, error) {
	var m market
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode market: %w", err)
	}
	return &m, nil
}

func toNodes(offers []offer) []matching.Node {
	nodes := make([]matching.Node, len(offers))
	for i, o := range offers {
		id := o.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		nodes[i] = matching.Node{Price: o.Price, Volume: o.Volume, Ref: id}
	}
	return nodes
}

func newRationing(opts options, rng *rand.Rand) (matching.RationingAlgorithm, error) {
	return matching.ParseRationing(opts.rationing, opts.inhomogeneity, rng)
}

// doMatch clears the market read from r and writes the result to w.
func doMatch(r io.Reader, w io.Writer, opts options) error {
	m, err := readMarket(r)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(opts.seed))
	rationing, err := newRationing(opts, rng)
	if err != nil {
		return err
	}
	tieBreak, err := matching.ParseTieBreak(opts.tieBreak)
	if err != nil {
		return err
	}
	alg, err := matching.ParseAlgorithm(opts.algorithm, rationing, tieBreak, rng)
	if err != nil {
		return err
	}

	result, err := alg.MatchNodes(toNodes(m.Sellers), toNodes(m.Buyers))
	if err != nil {
		return err
	}

	out := matchOutput{
		Algorithm:        opts.algorithm,
		Rationing:        opts.rationing,
		TotalTraded:      result.TotalAmount(),
		Matches:          make([]matchLine, 0, result.Len()),
		UnmatchedSellers: unmatchedLines(result.UnmatchedLeft()),
		UnmatchedBuyers:  unmatchedLines(result.UnmatchedRight()),
	}
	if ca, ok := alg.(*matching.CallAuction); ok && !math.IsInf(ca.AuctionPrice(), -1) {
		p := ca.AuctionPrice()
		out.AuctionPrice = &p
	}
	for _, x := range result.Matches() {
		out.Matches = append(out.Matches, matchLine{
			Seller: x.Left.Ref.(string),
			Buyer:  x.Right.Ref.(string),
			Amount: x.Amount,
			Price:  x.Price,
		})
	}
	return writeJSON(w, out)
}

// doRation rations the full volumes of both sides and writes the usable
// volume left to each offer.
func doRation(r io.Reader, w io.Writer, opts options) error {
	m, err := readMarket(r)
	if err != nil {
		return err
	}

	rationing, err := newRationing(opts, rand.New(rand.NewSource(opts.seed)))
	if err != nil {
		return err
	}

	sellers, buyers := matching.Wrap(toNodes(m.Sellers)), matching.Wrap(toNodes(m.Buyers))
	if err := matching.SellersOnLeft(rationing).RationNodes(sellers, buyers); err != nil {
		return err
	}

	return writeJSON(w, rationOutput{
		Rationing: opts.rationing,
		Sellers:   usableLines(sellers),
		Buyers:    usableLines(buyers),
	})
}

func unmatchedLines(nodes []matching.UnmatchedNode) []unmatchedLine {
	lines := make([]unmatchedLine, len(nodes))
	for i, u := range nodes {
		lines[i] = unmatchedLine{ID: u.Node.Ref.(string), Amount: u.Amount}
	}
	return lines
}

func usableLines(nodes []*matching.ComputeNode) []unmatchedLine {
	lines := make([]unmatchedLine, len(nodes))
	for i, n := range nodes {
		lines[i] = unmatchedLine{ID: n.Ref().(string), Amount: n.Usable()}
	}
	return lines
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
