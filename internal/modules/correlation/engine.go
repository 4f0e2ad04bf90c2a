package correlation

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
	"github.com/hozumi/portfolio-sentry/pkg/formulas"
)

const (
	// DefaultMinOverlap is the minimum number of overlapping daily return
	// observations required before a pair's correlation is trusted.
	DefaultMinOverlap = 20

	// DefaultClusterThreshold is the pairwise correlation above which two
	// symbols are considered members of the same factor cluster.
	DefaultClusterThreshold = 0.6

	// DefaultPairThreshold flags individual high-correlation pairs for the
	// rebalancer's concentration checks.
	DefaultPairThreshold = 0.7
)

// Engine builds correlation matrices and factor clusters from daily
// price histories.
type Engine struct {
	minOverlap       int
	clusterThreshold float64
	pairThreshold    float64
	log              zerolog.Logger
}

// Config holds engine parameters; zero values fall back to defaults
type Config struct {
	MinOverlap       int
	ClusterThreshold float64
	PairThreshold    float64
}

// NewEngine creates a new correlation engine
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	if cfg.MinOverlap <= 0 {
		cfg.MinOverlap = DefaultMinOverlap
	}
	if cfg.ClusterThreshold <= 0 {
		cfg.ClusterThreshold = DefaultClusterThreshold
	}
	if cfg.PairThreshold <= 0 {
		cfg.PairThreshold = DefaultPairThreshold
	}
	return &Engine{
		minOverlap:       cfg.MinOverlap,
		clusterThreshold: cfg.ClusterThreshold,
		pairThreshold:    cfg.PairThreshold,
		log:              log.With().Str("service", "correlation").Logger(),
	}
}

// Analyze computes the pairwise correlation matrix over the overlapping
// date range of each pair's histories, then derives factor clusters and
// high-correlation pairs. Symbols whose histories cannot support at least
// one sufficient pairing are reported in Matrix.Insufficient.
func (e *Engine) Analyze(histories map[string][]domain.PricePoint) *Result {
	symbols := make([]string, 0, len(histories))
	for symbol := range histories {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	// Daily simple returns keyed by date, per symbol
	returnsBySymbol := make(map[string]map[string]float64, len(symbols))
	for _, symbol := range symbols {
		returnsBySymbol[symbol] = dailyReturnsByDate(histories[symbol])
	}

	matrix := &Matrix{
		values:       make(map[pairKey]float64),
		observations: make(map[pairKey]int),
	}

	sufficient := make(map[string]bool, len(symbols))
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			a, b := symbols[i], symbols[j]
			x, y := alignReturns(returnsBySymbol[a], returnsBySymbol[b])
			key := newPairKey(a, b)
			matrix.observations[key] = len(x)
			if len(x) < e.minOverlap {
				continue
			}
			matrix.values[key] = formulas.Correlation(x, y)
			sufficient[a] = true
			sufficient[b] = true
		}
	}

	// A lone symbol with a long history has no pairs; it still counts as
	// analyzable so it appears on the matrix diagonal.
	if len(symbols) == 1 && len(returnsBySymbol[symbols[0]]) >= e.minOverlap {
		sufficient[symbols[0]] = true
	}

	for _, symbol := range symbols {
		if sufficient[symbol] {
			matrix.Symbols = append(matrix.Symbols, symbol)
		} else {
			matrix.Insufficient = append(matrix.Insufficient, symbol)
		}
	}

	result := &Result{
		Matrix:   matrix,
		Clusters: e.clusters(matrix),
		Pairs:    e.highPairs(matrix),
	}

	e.log.Debug().
		Int("symbols", len(matrix.Symbols)).
		Int("insufficient", len(matrix.Insufficient)).
		Int("clusters", len(result.Clusters)).
		Msg("Correlation analysis complete")

	return result
}

// clusters groups symbols via union-find over pairs whose correlation
// exceeds the cluster threshold. Deterministic: symbols are processed in
// lexical order and each cluster's root is its lexically smallest member.
func (e *Engine) clusters(m *Matrix) []Cluster {
	parent := make(map[string]string, len(m.Symbols))
	for _, s := range m.Symbols {
		parent[s] = s
	}

	var find func(string) string
	find = func(s string) string {
		if parent[s] != s {
			parent[s] = find(parent[s])
		}
		return parent[s]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Lexically smaller root wins the merge
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	for i := 0; i < len(m.Symbols); i++ {
		for j := i + 1; j < len(m.Symbols); j++ {
			corr, ok := m.Corr(m.Symbols[i], m.Symbols[j])
			if ok && corr > e.clusterThreshold {
				union(m.Symbols[i], m.Symbols[j])
			}
		}
	}

	groups := make(map[string][]string)
	for _, s := range m.Symbols {
		root := find(s)
		groups[root] = append(groups[root], s)
	}

	roots := make([]string, 0, len(groups))
	for root, members := range groups {
		if len(members) > 1 {
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)

	clusters := make([]Cluster, 0, len(roots))
	for i, root := range roots {
		members := groups[root]
		sort.Strings(members)
		clusters = append(clusters, Cluster{ID: i + 1, Members: members})
	}
	return clusters
}

// highPairs lists pairs whose correlation exceeds the pair threshold,
// ordered by descending correlation with a lexical tie-break.
func (e *Engine) highPairs(m *Matrix) []Pair {
	var pairs []Pair
	for i := 0; i < len(m.Symbols); i++ {
		for j := i + 1; j < len(m.Symbols); j++ {
			corr, ok := m.Corr(m.Symbols[i], m.Symbols[j])
			if ok && corr > e.pairThreshold {
				pairs = append(pairs, Pair{A: m.Symbols[i], B: m.Symbols[j], Correlation: corr})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Correlation != pairs[j].Correlation {
			return pairs[i].Correlation > pairs[j].Correlation
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// dailyReturnsByDate converts a price series into simple daily returns
// keyed by the date of the later close. Non-positive closes break the
// chain and produce no return for that day.
func dailyReturnsByDate(points []domain.PricePoint) map[string]float64 {
	sorted := make([]domain.PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	returns := make(map[string]float64, len(sorted))
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		if prev.Close <= 0 || curr.Close <= 0 {
			continue
		}
		returns[curr.Date] = (curr.Close - prev.Close) / prev.Close
	}
	return returns
}

// alignReturns intersects two dated return sets into parallel slices
// ordered by date.
func alignReturns(a, b map[string]float64) ([]float64, []float64) {
	dates := make([]string, 0, len(a))
	for date := range a {
		if _, ok := b[date]; ok {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)

	x := make([]float64, len(dates))
	y := make([]float64, len(dates))
	for i, date := range dates {
		x[i] = a[date]
		y[i] = b[date]
	}
	return x, y
}
