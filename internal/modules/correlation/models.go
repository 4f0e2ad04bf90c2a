package correlation

import (
	"encoding/json"
	"fmt"
)

// pairKey identifies an unordered symbol pair. Symbols are stored in
// lexical order so (a,b) and (b,a) resolve to the same entry.
type pairKey struct {
	a, b string
}

func newPairKey(x, y string) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// Matrix is a symmetric symbol-by-symbol Pearson correlation matrix.
// Symbols without enough overlapping history are listed in Insufficient
// and have no entries; lookups for them report ok=false, never a silent 0.
type Matrix struct {
	Symbols      []string `json:"symbols"` // lexically sorted, sufficient history only
	Insufficient []string `json:"insufficient_history"`

	values       map[pairKey]float64
	observations map[pairKey]int
}

// Corr returns the correlation between two symbols and whether it is
// defined. The diagonal is exactly 1.0 for every included symbol.
func (m *Matrix) Corr(a, b string) (float64, bool) {
	if a == b {
		if m.contains(a) {
			return 1.0, true
		}
		return 0, false
	}
	v, ok := m.values[newPairKey(a, b)]
	return v, ok
}

// Observations returns the number of overlapping return observations
// behind a pair's correlation.
func (m *Matrix) Observations(a, b string) int {
	return m.observations[newPairKey(a, b)]
}

// MarshalJSON emits the matrix as nested symbol maps so API consumers
// get the values, not just the symbol lists.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	values := make(map[string]map[string]float64, len(m.Symbols))
	for _, a := range m.Symbols {
		row := make(map[string]float64, len(m.Symbols))
		for _, b := range m.Symbols {
			if v, ok := m.Corr(a, b); ok {
				row[b] = v
			}
		}
		values[a] = row
	}
	return json.Marshal(struct {
		Symbols      []string                      `json:"symbols"`
		Insufficient []string                      `json:"insufficient_history"`
		Values       map[string]map[string]float64 `json:"values"`
	}{
		Symbols:      m.Symbols,
		Insufficient: m.Insufficient,
		Values:       values,
	})
}

func (m *Matrix) contains(symbol string) bool {
	for _, s := range m.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Pair is one high-correlation symbol pair
type Pair struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Correlation float64 `json:"correlation"`
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s r=%.2f", p.A, p.B, p.Correlation)
}

// Cluster is a group of symbols whose pairwise returns co-move above the
// cluster threshold. Members are lexically sorted.
type Cluster struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
	Weight  float64  `json:"weight,omitempty"` // filled by callers that know weights
}

// Result bundles the matrix with its derived factor clusters
type Result struct {
	Matrix   *Matrix   `json:"matrix"`
	Clusters []Cluster `json:"clusters"`
	Pairs    []Pair    `json:"high_correlation_pairs"`
}
