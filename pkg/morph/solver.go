package morph

import (
	"errors"
	"fmt"

	"github.com/SaladDais/sl-creation-utils/pkg/math"
)

// DefaultReferenceDistance is the travel, in meters, at which a control joint
// is fully morphed. It matches the companion rig's keyframes and the ±5 m
// position range of the SL animation format.
const DefaultReferenceDistance float32 = 5.0

// Solver errors.
var (
	ErrShapeMismatch        = errors.New("base and morphed vertex counts differ")
	ErrDisplacementTooLarge = errors.New("vertex displacement exceeds reference distance")
	ErrInvalidDistance      = errors.New("reference distance must be positive")
	ErrUnknownJoint         = errors.New("unknown control joint")
	ErrUnknownNullPolicy    = errors.New("unknown null policy")
	ErrNonFinite            = errors.New("vertex displacement is not finite")
)

// NullPolicy controls how the null joint is bound.
type NullPolicy int

const (
	// NullNone never binds the null joint.
	NullNone NullPolicy = iota
	// NullZero binds vertices without any control weight to the null joint
	// with weight 0.
	NullZero
	// NullRemainder gives every vertex a null weight of 1 minus its summed
	// control weight, clamped at 0.
	NullRemainder
)

var nullPolicyNames = map[NullPolicy]string{
	NullNone:      "none",
	NullZero:      "zero",
	NullRemainder: "remainder",
}

// String returns the policy's config name.
func (p NullPolicy) String() string {
	if n, ok := nullPolicyNames[p]; ok {
		return n
	}
	return fmt.Sprintf("NullPolicy(%d)", int(p))
}

// ParseNullPolicy parses "none", "zero" or "remainder".
func ParseNullPolicy(s string) (NullPolicy, error) {
	for p, n := range nullPolicyNames {
		if n == s {
			return p, nil
		}
	}
	return NullNone, fmt.Errorf("%w: %q", ErrUnknownNullPolicy, s)
}

// Options configures a solve.
type Options struct {
	ReferenceDistance float32
	NullPolicy        NullPolicy
	// Strict rejects vertices whose summed absolute displacement exceeds
	// ReferenceDistance instead of saturating them.
	Strict bool
}

// DefaultOptions returns the rig's reference distance with no null binding.
func DefaultOptions() Options {
	return Options{ReferenceDistance: DefaultReferenceDistance}
}

// Stats summarizes a solve.
type Stats struct {
	Vertices  int
	Moved     int // vertices with any non-zero displacement
	Saturated int // vertices with at least one weight clamped to 1
}

// Solve computes one weight record per vertex. base[i] and morphed[i] must be
// the same logical vertex. Neither input is modified.
func Solve(base, morphed []math.Vec3, opts Options) ([]Record, error) {
	records, _, err := SolveWithStats(base, morphed, opts)
	return records, err
}

// SolveWithStats is Solve that also reports how many vertices moved and how
// many saturated.
func SolveWithStats(base, morphed []math.Vec3, opts Options) ([]Record, Stats, error) {
	if len(base) != len(morphed) {
		return nil, Stats{}, fmt.Errorf("%w: base has %d, morphed has %d", ErrShapeMismatch, len(base), len(morphed))
	}
	if !(opts.ReferenceDistance > 0) {
		return nil, Stats{}, fmt.Errorf("%w: %v", ErrInvalidDistance, opts.ReferenceDistance)
	}
	if _, ok := nullPolicyNames[opts.NullPolicy]; !ok {
		return nil, Stats{}, fmt.Errorf("%w: %d", ErrUnknownNullPolicy, int(opts.NullPolicy))
	}

	stats := Stats{Vertices: len(base)}
	records := make([]Record, len(base))
	for i := range base {
		d := morphed[i].Sub(base[i])
		if !d.IsFinite() {
			return nil, Stats{}, fmt.Errorf("%w: vertex %d moved %v", ErrNonFinite, i, d)
		}
		if opts.Strict && d.ManhattanLength() > opts.ReferenceDistance {
			return nil, Stats{}, fmt.Errorf("%w: vertex %d moved %v", ErrDisplacementTooLarge, i, d)
		}

		rec, saturated := weigh(d, opts.ReferenceDistance)
		applyNullPolicy(&rec, opts.NullPolicy)
		records[i] = rec

		if !d.IsZero() {
			stats.Moved++
		}
		if saturated {
			stats.Saturated++
		}
	}
	return records, stats, nil
}

// weigh splits a displacement into per-axis joint weights.
func weigh(d math.Vec3, r float32) (Record, bool) {
	var rec Record
	saturated := false
	for _, axis := range math.Axes {
		c := d.Component(axis)
		if c == 0 {
			continue
		}
		sign := 1
		if c < 0 {
			sign = -1
			c = -c
		}
		w := c / r
		if w > 1 {
			w = 1
			saturated = true
		}
		rec.Control[JointFor(axis, sign)] = w
	}
	return rec, saturated
}

func applyNullPolicy(rec *Record, p NullPolicy) {
	switch p {
	case NullZero:
		if rec.IsZero() {
			rec.HasNull = true
			rec.Null = 0
		}
	case NullRemainder:
		rest := 1 - rec.Sum()
		if rest < 0 {
			rest = 0
		}
		rec.HasNull = true
		rec.Null = rest
	}
}
