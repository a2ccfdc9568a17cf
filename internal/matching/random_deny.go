package matching

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultInhomogeneity is the rationing inhomogeneity used by
// NewDefaultRandomDenyRationing.
const DefaultInhomogeneity = 0.05

// RandomDenyRationing rations the larger side non-uniformly: each node keeps
// a random share of its volume at or above the homogeneous share, and the
// shares are then rescaled so the side hits its target exactly.
//
// The generator is owned by the instance, so one RandomDenyRationing must not
// be shared by concurrent callers.
type RandomDenyRationing struct {
	inhomogeneity float64
	rng           Rng
}

// NewRandomDenyRationing creates a RandomDenyRationing. inhomogeneity must lie
// in [0, 1]: 0 is homogeneous rationing, 1 can in principle exclude some
// participants entirely. A nil rng is replaced by a generator seeded with 1.
func NewRandomDenyRationing(inhomogeneity float64, rng Rng) (*RandomDenyRationing, error) {
	if math.IsNaN(inhomogeneity) || inhomogeneity < 0 || inhomogeneity > 1 {
		return nil, fmt.Errorf("inhomogeneity %g outside [0, 1]: %w", inhomogeneity, ErrInvalidAlgorithmParameter)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &RandomDenyRationing{inhomogeneity: inhomogeneity, rng: rng}, nil
}

// NewDefaultRandomDenyRationing uses DefaultInhomogeneity and seed 1.
func NewDefaultRandomDenyRationing() *RandomDenyRationing {
	r, _ := NewRandomDenyRationing(DefaultInhomogeneity, nil)
	return r
}

// Inhomogeneity returns the configured inhomogeneity.
func (r *RandomDenyRationing) Inhomogeneity() float64 { return r.inhomogeneity }

// RationNodes implements RationingAlgorithm.
func (r *RandomDenyRationing) RationNodes(left, right []*ComputeNode) error {
	if err := checkNodes(left, right); err != nil {
		return err
	}
	usableLeft, usableRight := TotalUsable(left), TotalUsable(right)

	switch {
	case usableLeft == 0 && usableRight == 0:
	case usableLeft > usableRight:
		r.apply(usableRight, left)
	case usableRight > usableLeft:
		r.apply(usableLeft, right)
	}
	return nil
}

// apply reduces the usable volume of nodes to target.
func (r *RandomDenyRationing) apply(target float64, nodes []*ComputeNode) {
	if target <= 0 {
		for _, n := range nodes {
			n.SetFullyUnusable()
		}
		return
	}
	maxOffering := TotalUsable(nodes)
	if maxOffering == 0 || target >= maxOffering {
		return
	}

	homogeneous := target / maxOffering
	spread := math.Max(0, 1-homogeneous)

	entry := make([]float64, len(nodes))
	fs := make([]float64, len(nodes))
	var offering float64
	for i, n := range nodes {
		entry[i] = n.Usable()
		fs[i] = clampFraction(homogeneous + r.inhomogeneity*r.rng.Float64()*spread)
		offering += entry[i] * fs[i]
	}

	// Every f is at least the homogeneous share, so offering >= target and
	// the rescale can only shrink.
	scale := 1.0
	if offering != target {
		scale = target / offering
	}
	for i, n := range nodes {
		n.SetUnusable(n.Volume() - entry[i]*clampFraction(scale*fs[i]))
	}
}

func (r *RandomDenyRationing) String() string { return "random_deny" }
