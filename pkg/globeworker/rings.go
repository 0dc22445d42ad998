package globeworker

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInvalidRange is returned when a ring range cannot yield Count distinct indices.
var ErrInvalidRange = errors.New("invalid ring range")

// SampleRingIndices draws r.Count distinct integers from [r.Min, r.Max), redrawing on
// collision. A count larger than the range cannot be satisfied and is rejected.
func SampleRingIndices(rng *rand.Rand, r RingRange) ([]int, error) {
	if r.Min > r.Max || r.Count < 0 || r.Count > r.Max-r.Min {
		return nil, fmt.Errorf("%w: min=%d max=%d count=%d", ErrInvalidRange, r.Min, r.Max, r.Count)
	}

	out := make([]int, 0, r.Count)
	taken := make(map[int]struct{}, r.Count)
	span := r.Max - r.Min
	for len(out) < r.Count {
		v := rng.Intn(span) + r.Min
		if _, ok := taken[v]; ok {
			continue
		}
		taken[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
