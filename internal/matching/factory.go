package matching

import "fmt"

// Algorithm and rationing names accepted by the Parse functions.
const (
	AlgorithmCallAuction = "call_auction"
	AlgorithmForager     = "forager"

	RationingHomogeneous      = "homogeneous"
	RationingRandomDeny       = "random_deny"
	RationingWorstProposition = "worst_proposition"
)

// ParseRationing builds the rationing algorithm called name. inhomogeneity
// and rng only matter for random_deny.
func ParseRationing(name string, inhomogeneity float64, rng Rng) (RationingAlgorithm, error) {
	switch name {
	case RationingHomogeneous:
		return HomogeneousRationing{}, nil
	case RationingRandomDeny:
		return NewRandomDenyRationing(inhomogeneity, rng)
	case RationingWorstProposition:
		return WorstPropositionRationing{}, nil
	}
	return nil, fmt.Errorf("rationing %q: %w", name, ErrUnknownAlgorithm)
}

// ParseAlgorithm builds the matching algorithm called name around rationing.
// tieBreak only matters for call_auction, rng only for forager.
func ParseAlgorithm(name string, rationing RationingAlgorithm, tieBreak TieBreak, rng Rng) (MatchingAlgorithm, error) {
	switch name {
	case AlgorithmCallAuction:
		return NewCallAuction(rationing, tieBreak), nil
	case AlgorithmForager:
		return NewForager(rationing, rng), nil
	}
	return nil, fmt.Errorf("algorithm %q: %w", name, ErrUnknownAlgorithm)
}

// ParseTieBreak maps "lowest_price" and "first_scanned" to a TieBreak. The
// empty string selects the default, TieBreakLowestPrice.
func ParseTieBreak(name string) (TieBreak, error) {
	switch name {
	case "", "lowest_price":
		return TieBreakLowestPrice, nil
	case "first_scanned":
		return TieBreakFirstScanned, nil
	}
	return 0, fmt.Errorf("tie break %q: %w", name, ErrUnknownAlgorithm)
}

// IsAlgorithm reports whether name is a known matching algorithm.
func IsAlgorithm(name string) bool {
	return name == AlgorithmCallAuction || name == AlgorithmForager
}

// IsRationing reports whether name is a known rationing algorithm.
func IsRationing(name string) bool {
	switch name {
	case RationingHomogeneous, RationingRandomDeny, RationingWorstProposition:
		return true
	}
	return false
}
