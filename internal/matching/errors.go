package matching

import "errors"

// Sentinel errors raised by the matching core. Construction-time failures
// (empty groups, out-of-range amounts) are distinct from malformed algorithm
// parameters so callers can tell "the market had nothing to match" apart
// from "my input was broken".
var (
	ErrEmptyGroup                = errors.New("empty_node_group")
	ErrZeroVolume                = errors.New("zero_group_volume")
	ErrNegativeMatchAmount       = errors.New("negative_match_amount")
	ErrMatchAmountTooLarge       = errors.New("match_amount_too_large")
	ErrUnmatchedAmountOutOfRange = errors.New("unmatched_amount_out_of_range")
	ErrInvalidAlgorithmParameter = errors.New("invalid_algorithm_parameter")
	ErrUnknownAlgorithm          = errors.New("unknown_algorithm")
)
