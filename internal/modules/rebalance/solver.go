package rebalance

import "math"

// reductionForCap computes the minimum value to shave off one bucket of a
// taxonomy so the taxonomy's HHI returns to the cap, assuming sale
// proceeds leave the taxonomy (they become cash) and the remaining
// weights renormalize.
//
// With bucket values v_i summing to V, selling x out of bucket b gives
//
//	HHI'(x) = (R + (v_b - x)^2) / (V - x)^2,  R = sum of v_i^2 over i != b
//
// Setting HHI'(x) = cap yields the quadratic
//
//	(1-cap) x^2 - 2 (v_b - cap V) x + (R + v_b^2 - cap V^2) = 0
//
// and the smaller root in [0, v_b] is the minimum reduction. Closed form,
// no iterative search.
//
// Returns (0, true) when the bucket is already within the cap, and
// (0, false) when no reduction of bucket b alone can restore the cap.
func reductionForCap(bucketValues map[string]float64, bucket string, cap float64) (float64, bool) {
	vb, ok := bucketValues[bucket]
	if !ok || vb <= 0 {
		return 0, false
	}

	total := 0.0
	rest := 0.0
	for name, v := range bucketValues {
		total += v
		if name != bucket {
			rest += v * v
		}
	}
	if total <= 0 {
		return 0, false
	}

	current := (rest + vb*vb) / (total * total)
	if current <= cap || cap >= 1 {
		return 0, true
	}

	// A taxonomy with a single bucket keeps HHI = 1 no matter how much of
	// the bucket is sold; only diversification can fix it.
	if rest == 0 {
		return 0, false
	}

	a := 1 - cap
	b := -2 * (vb - cap*total)
	c := rest + vb*vb - cap*total*total

	disc := b*b - 4*a*c
	if disc < 0 {
		// Even emptying the bucket leaves the rest above the cap
		return 0, false
	}

	sqrtDisc := math.Sqrt(disc)
	x := (-b - sqrtDisc) / (2 * a)
	if x < 0 {
		x = (-b + sqrtDisc) / (2 * a)
	}
	if x < 0 || x > vb {
		return 0, false
	}
	return x, true
}
