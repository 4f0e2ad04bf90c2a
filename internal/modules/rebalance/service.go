package rebalance

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
	"github.com/hozumi/portfolio-sentry/internal/modules/concentration"
)

// ErrEmptyPortfolio aborts an evaluation with no holdings; there is
// nothing to rebalance and no meaningful partial result.
var ErrEmptyPortfolio = errors.New("rebalance: empty portfolio")

const (
	// sellReturnFloor triggers a full exit when the base-case expected
	// return is below it.
	sellReturnFloor = -0.10

	// hintReduceRatio is the fraction shaved off positions matching a
	// caller-supplied sector/currency reduction hint.
	hintReduceRatio = 0.30

	// maxAllocPerPosition caps how much of the available cash a single
	// increase action may take.
	maxAllocPerPosition = 0.40

	// minAllocJPY is the smallest increase worth recommending
	minAllocJPY = 10_000
)

// Service generates constraint-respecting rebalancing proposals.
// Stateless across evaluations: every call runs the full
// DIAGNOSE -> GENERATE -> PROJECT pipeline over its own inputs.
type Service struct {
	analyzer *concentration.Analyzer
	log      zerolog.Logger
}

// NewService creates a new rebalancing service
func NewService(analyzer *concentration.Analyzer, log zerolog.Logger) *Service {
	return &Service{
		analyzer: analyzer,
		log:      log.With().Str("service", "rebalance").Logger(),
	}
}

// Propose runs one evaluation. Per-holding input gaps narrow the result
// and are reported; structural problems (no holdings, invalid caps)
// abort with an error.
func (s *Service) Propose(in Inputs, opts Options) (*Proposal, error) {
	constraints, err := BuildConstraints(opts.Strategy, opts.Overrides)
	if err != nil {
		return nil, err
	}
	if opts.AdditionalCash < 0 {
		return nil, fmt.Errorf("%w: additional_cash must be non-negative", ErrInvalidConstraint)
	}
	if opts.MinDividendYield != nil && *opts.MinDividendYield < 0 {
		return nil, fmt.Errorf("%w: min_dividend_yield must be non-negative", ErrInvalidConstraint)
	}
	if len(in.Holdings) == 0 {
		return nil, ErrEmptyPortfolio
	}
	if in.TotalValueJPY <= 0 {
		in.TotalValueJPY = totalValue(in.Holdings)
	}
	if in.TotalValueJPY <= 0 {
		return nil, ErrEmptyPortfolio
	}

	strategy := opts.Strategy
	if _, ok := profiles[strategy]; !ok {
		strategy = StrategyBalanced
	}

	proposal := &Proposal{
		Strategy:          strategy,
		Constraints:       constraints,
		AdditionalCashJPY: opts.AdditionalCash,
	}

	// DIAGNOSE
	before := in.Concentration
	if before == nil {
		before, err = s.analyzer.Analyze(in.Holdings, concentration.DefaultThresholds())
		if err != nil {
			return nil, err
		}
	}
	proposal.Before = s.metrics(in, before)
	proposal.DataGaps = collectGaps(in)

	// GENERATE_ACTIONS: sell, then reduce, then increase
	sells := s.sellActions(in)
	sold := symbolSet(sells)

	reduces, infeasible := s.reduceActions(in, constraints, opts, sold, before)
	reduced := symbolSet(reduces)
	proposal.Infeasible = infeasible

	freed := 0.0
	for _, a := range sells {
		freed += a.ValueJPY
	}
	for _, a := range reduces {
		freed += a.ValueJPY
	}
	proposal.FreedCashJPY = freed

	increases := s.increaseActions(in, constraints, opts, sold, reduced, freed)

	proposal.Actions = append(proposal.Actions, sells...)
	proposal.Actions = append(proposal.Actions, reduces...)
	proposal.Actions = append(proposal.Actions, increases...)
	sort.SliceStable(proposal.Actions, func(i, j int) bool {
		return proposal.Actions[i].Priority < proposal.Actions[j].Priority
	})

	// PROJECT: recompute concentration as if all actions executed at
	// current prices. Advisory arithmetic, not a guarantee.
	projected := projectHoldings(in.Holdings, proposal.Actions, opts.AdditionalCash)
	if after, err := s.analyzer.Analyze(projected, concentration.DefaultThresholds()); err == nil {
		proposal.AfterReport = after
		proposal.After = s.metricsProjected(in, projected, after, opts.AdditionalCash)
	} else {
		// Everything sold: report the terminal state explicitly
		proposal.After = Metrics{}
	}

	s.log.Info().
		Str("strategy", strategy).
		Int("actions", len(proposal.Actions)).
		Float64("freed_cash_jpy", proposal.FreedCashJPY).
		Msg("Rebalance proposal generated")

	return proposal, nil
}

// sellActions exits holdings flagged EXIT by the health collaborator or
// whose base-case expected return sits below the hard floor.
func (s *Service) sellActions(in Inputs) []Action {
	var actions []Action
	for _, h := range sortedHoldings(in.Holdings) {
		if h.IsCash() || h.ValueJPY <= 0 {
			continue
		}

		if status, ok := in.Health[h.Symbol]; ok && status.Level == domain.HealthExit {
			reason := "health check exit signal"
			if len(status.Reasons) > 0 {
				reason = "health check exit: " + strings.Join(status.Reasons, ", ")
			}
			actions = append(actions, Action{
				Type: ActionSell, Symbol: h.Symbol, Name: h.Name,
				Ratio: 1.0, ValueJPY: h.ValueJPY,
				Reason:     reason,
				Constraint: "health=exit",
				Priority:   priorityHealthExit,
			})
			continue
		}

		if est, ok := in.Estimates[h.Symbol]; ok && est.Base != nil && *est.Base < sellReturnFloor {
			actions = append(actions, Action{
				Type: ActionSell, Symbol: h.Symbol, Name: h.Name,
				Ratio: 1.0, ValueJPY: h.ValueJPY,
				Reason:     fmt.Sprintf("base expected return %.1f%% below the %.0f%% floor", *est.Base*100, sellReturnFloor*100),
				Constraint: "expected_return_floor",
				Priority:   priorityNegativeView,
			})
		}
	}
	return actions
}

// reduceActions trims overweight positions, over-cap taxonomy buckets and
// over-concentrated correlation clusters, plus caller-requested
// sector/currency reductions.
func (s *Service) reduceActions(
	in Inputs,
	c Constraints,
	opts Options,
	sold map[string]bool,
	report *concentration.Report,
) ([]Action, []CapInfeasibility) {
	var actions []Action
	var infeasible []CapInfeasibility
	reduced := make(map[string]bool)

	total := in.TotalValueJPY

	// Rule 1: single position over max_single_ratio. Sized against the
	// current total portfolio value, not re-normalized post-hoc.
	for _, h := range sortedHoldings(in.Holdings) {
		if sold[h.Symbol] || h.IsCash() || h.ValueJPY <= 0 {
			continue
		}
		w := h.ValueJPY / total
		if w <= c.MaxSingleRatio {
			continue
		}
		reduceValue := (w - c.MaxSingleRatio) * total
		actions = append(actions, Action{
			Type: ActionReduce, Symbol: h.Symbol, Name: h.Name,
			Ratio:    reduceValue / h.ValueJPY,
			ValueJPY: reduceValue,
			Reason: fmt.Sprintf("weight %.1f%% exceeds the %.0f%% single-position cap; trim to exactly %.0f%%",
				w*100, c.MaxSingleRatio*100, c.MaxSingleRatio*100),
			Constraint: "max_single_ratio",
			Priority:   prioritySingleRatio,
		})
		reduced[h.Symbol] = true
	}

	// Rule 2: taxonomy buckets whose HHI exceeds the strategy cap
	axes := []struct {
		axis      string
		cap       float64
		hhi       float64
		breakdown map[string]float64
		bucketOf  func(domain.HoldingSnapshot) string
	}{
		{"sector", c.MaxSectorHHI, report.SectorHHI, report.SectorBreakdown,
			func(h domain.HoldingSnapshot) string { return h.Sector }},
		{"region", c.MaxRegionHHI, report.RegionHHI, report.RegionBreakdown,
			func(h domain.HoldingSnapshot) string { return h.Region }},
		{"currency", c.MaxCurrencyHHI, report.CurrencyHHI, report.CurrencyBreakdown,
			func(h domain.HoldingSnapshot) string { return h.Currency }},
	}
	for _, ax := range axes {
		if ax.cap <= 0 || ax.hhi <= ax.cap {
			continue
		}
		bucketActions, inf := s.reduceBucket(in, ax.axis, ax.cap, ax.breakdown, ax.bucketOf, sold, reduced)
		actions = append(actions, bucketActions...)
		if inf != nil {
			infeasible = append(infeasible, *inf)
		}
	}

	// Rule 3: correlation clusters concentrating too much combined weight
	if in.Correlation != nil {
		for _, cluster := range in.Correlation.Clusters {
			combined := 0.0
			for _, symbol := range cluster.Members {
				if sold[symbol] {
					continue
				}
				if h, ok := findHolding(in.Holdings, symbol); ok {
					combined += h.ValueJPY / total
				}
			}
			if combined <= c.MaxCorrPairRatio {
				continue
			}
			excess := combined - c.MaxCorrPairRatio
			target, ok := lowestReturnMember(in, cluster.Members, sold, reduced)
			if !ok {
				continue
			}
			targetW := target.ValueJPY / total
			ratio := excess / targetW
			if ratio > 0.5 {
				ratio = 0.5 // never halve a position more than once per evaluation
			}
			actions = append(actions, Action{
				Type: ActionReduce, Symbol: target.Symbol, Name: target.Name,
				Ratio:    ratio,
				ValueJPY: target.ValueJPY * ratio,
				Reason: fmt.Sprintf("correlated cluster {%s} holds %.0f%% combined, above the %.0f%% cap",
					strings.Join(cluster.Members, ", "), combined*100, c.MaxCorrPairRatio*100),
				Constraint: "max_corr_pair_ratio",
				Priority:   priorityCorrCluster,
			})
			reduced[target.Symbol] = true
		}
	}

	// Rule 4: caller-requested sector/currency reductions
	hint := func(match func(domain.HoldingSnapshot) bool, label, constraint string) {
		for _, h := range sortedHoldings(in.Holdings) {
			if sold[h.Symbol] || reduced[h.Symbol] || h.IsCash() || h.ValueJPY <= 0 {
				continue
			}
			if !match(h) {
				continue
			}
			actions = append(actions, Action{
				Type: ActionReduce, Symbol: h.Symbol, Name: h.Name,
				Ratio:      hintReduceRatio,
				ValueJPY:   h.ValueJPY * hintReduceRatio,
				Reason:     label,
				Constraint: constraint,
				Priority:   priorityCallerHint,
			})
			reduced[h.Symbol] = true
		}
	}
	if opts.ReduceSector != "" {
		hint(func(h domain.HoldingSnapshot) bool {
			return strings.EqualFold(h.Sector, opts.ReduceSector)
		}, fmt.Sprintf("caller requested reducing the %s sector", opts.ReduceSector), "reduce_sector")
	}
	if opts.ReduceCurrency != "" {
		hint(func(h domain.HoldingSnapshot) bool {
			return strings.EqualFold(h.Currency, opts.ReduceCurrency)
		}, fmt.Sprintf("caller requested reducing %s exposure", strings.ToUpper(opts.ReduceCurrency)), "reduce_currency")
	}

	return actions, infeasible
}

// reduceBucket shaves the dominant bucket of an over-cap taxonomy by the
// analytically computed minimum, spreading the cut across the bucket's
// holdings largest-first.
func (s *Service) reduceBucket(
	in Inputs,
	axis string,
	hhiCap float64,
	breakdown map[string]float64,
	bucketOf func(domain.HoldingSnapshot) string,
	sold, reduced map[string]bool,
) ([]Action, *CapInfeasibility) {
	// Bucket values over the same holdings the taxonomy considered
	includeCash := axis == "currency"
	bucketValues := make(map[string]float64)
	for _, h := range in.Holdings {
		if h.ValueJPY <= 0 || (!includeCash && h.IsCash()) {
			continue
		}
		bucketValues[bucketOf(h)] += h.ValueJPY
	}

	// Dominant bucket gets the cut
	bucket := ""
	for name, w := range breakdown {
		if bucket == "" || w > breakdown[bucket] || (w == breakdown[bucket] && name < bucket) {
			bucket = name
		}
	}
	if bucket == "" {
		return nil, nil
	}

	reduceValue, feasible := reductionForCap(bucketValues, bucket, hhiCap)
	currentHHI := concentration.ComputeHHI(weightsOf(bucketValues))
	if !feasible {
		return nil, &CapInfeasibility{
			Axis: axis, Bucket: bucket, Cap: hhiCap, HHI: currentHHI,
			Reason: fmt.Sprintf("reducing %q alone cannot bring the %s HHI back under %.2f", bucket, axis, hhiCap),
		}
	}
	if reduceValue <= 0 {
		return nil, nil
	}

	// Largest positions in the bucket absorb the reduction first
	var members []domain.HoldingSnapshot
	for _, h := range in.Holdings {
		if h.ValueJPY <= 0 || sold[h.Symbol] || (!includeCash && h.IsCash()) {
			continue
		}
		if bucketOf(h) == bucket {
			members = append(members, h)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].ValueJPY != members[j].ValueJPY {
			return members[i].ValueJPY > members[j].ValueJPY
		}
		return members[i].Symbol < members[j].Symbol
	})

	var actions []Action
	remaining := reduceValue
	for _, h := range members {
		if remaining <= 0 {
			break
		}
		if reduced[h.Symbol] {
			continue
		}
		cut := remaining
		if cut > h.ValueJPY {
			cut = h.ValueJPY
		}
		actions = append(actions, Action{
			Type: ActionReduce, Symbol: h.Symbol, Name: h.Name,
			Ratio:    cut / h.ValueJPY,
			ValueJPY: cut,
			Reason: fmt.Sprintf("%s bucket %q HHI %.3f exceeds the %.2f cap; minimum analytic reduction",
				axis, bucket, currentHHI, hhiCap),
			Constraint: "max_" + axis + "_hhi",
			Priority:   priorityBucketHHI,
		})
		reduced[h.Symbol] = true
		remaining -= cut
	}

	if remaining > 1e-6 {
		return actions, &CapInfeasibility{
			Axis: axis, Bucket: bucket, Cap: hhiCap, HHI: currentHHI,
			Reason: fmt.Sprintf("bucket %q positions not already committed cover only part of the required reduction", bucket),
		}
	}
	return actions, nil
}

// increaseActions redeploys freed and additional cash into holdings with
// positive expected return that fit under the single-position cap.
func (s *Service) increaseActions(
	in Inputs,
	c Constraints,
	opts Options,
	sold, reduced map[string]bool,
	freedCash float64,
) []Action {
	available := freedCash + opts.AdditionalCash
	if available <= 0 {
		return nil
	}

	type candidate struct {
		holding domain.HoldingSnapshot
		base    float64
		score   float64
	}
	var candidates []candidate
	for _, h := range sortedHoldings(in.Holdings) {
		if sold[h.Symbol] || reduced[h.Symbol] || h.IsCash() || h.ValueJPY <= 0 {
			continue
		}
		est, ok := in.Estimates[h.Symbol]
		if !ok || est.Base == nil || *est.Base <= 0 {
			continue
		}
		if opts.MinDividendYield != nil && h.DividendYield < *opts.MinDividendYield {
			continue
		}
		score := *est.Base
		if opts.MinDividendYield != nil {
			// Composite: income counts alongside expected appreciation
			score += h.DividendYield
		}
		candidates = append(candidates, candidate{holding: h, base: *est.Base, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].holding.Symbol < candidates[j].holding.Symbol
	})

	var actions []Action
	allocated := 0.0
	newTotal := in.TotalValueJPY + opts.AdditionalCash
	for _, cand := range candidates {
		if allocated >= available {
			break
		}
		h := cand.holding

		// Room left under the single-position cap at the projected total
		maxAdd := c.MaxSingleRatio*newTotal - h.ValueJPY
		if maxAdd <= 0 {
			continue
		}

		alloc := available - allocated
		if alloc > maxAdd {
			alloc = maxAdd
		}
		if perPositionCap := available * maxAllocPerPosition; alloc > perPositionCap {
			alloc = perPositionCap
		}
		if alloc < minAllocJPY {
			continue
		}

		currentW := h.ValueJPY / in.TotalValueJPY
		projectedW := (h.ValueJPY + alloc) / newTotal
		actions = append(actions, Action{
			Type: ActionIncrease, Symbol: h.Symbol, Name: h.Name,
			AmountJPY: alloc,
			Reason: fmt.Sprintf("base expected return %+.1f%%; weight %.1f%% -> %.1f%% stays under the %.0f%% cap",
				cand.base*100, currentW*100, projectedW*100, c.MaxSingleRatio*100),
			Constraint: "expected_return",
			Priority:   priorityIncrease,
		})
		allocated += alloc
	}
	return actions
}

// metrics computes the value-weighted base return alongside the HHI axes
func (s *Service) metrics(in Inputs, report *concentration.Report) Metrics {
	baseReturn := 0.0
	for _, h := range in.Holdings {
		if est, ok := in.Estimates[h.Symbol]; ok && est.Base != nil {
			baseReturn += *est.Base * (h.ValueJPY / in.TotalValueJPY)
		}
	}
	return Metrics{
		BaseReturn:  baseReturn,
		SectorHHI:   report.SectorHHI,
		RegionHHI:   report.RegionHHI,
		CurrencyHHI: report.CurrencyHHI,
	}
}

func (s *Service) metricsProjected(
	in Inputs,
	projected []domain.HoldingSnapshot,
	report *concentration.Report,
	additionalCash float64,
) Metrics {
	newTotal := in.TotalValueJPY + additionalCash
	baseReturn := 0.0
	if newTotal > 0 {
		for _, h := range projected {
			if est, ok := in.Estimates[h.Symbol]; ok && est.Base != nil {
				baseReturn += *est.Base * (h.ValueJPY / newTotal)
			}
		}
	}
	return Metrics{
		BaseReturn:  baseReturn,
		SectorHHI:   report.SectorHHI,
		RegionHHI:   report.RegionHHI,
		CurrencyHHI: report.CurrencyHHI,
	}
}

// projectHoldings applies the action list to a copy of the holdings:
// sell/reduce proceeds become base-currency cash, increases consume it.
func projectHoldings(holdings []domain.HoldingSnapshot, actions []Action, additionalCash float64) []domain.HoldingSnapshot {
	bySymbol := make(map[string]*domain.HoldingSnapshot, len(holdings))
	projected := make([]domain.HoldingSnapshot, len(holdings))
	copy(projected, holdings)
	for i := range projected {
		bySymbol[projected[i].Symbol] = &projected[i]
	}

	cashDelta := additionalCash
	for _, a := range actions {
		h, ok := bySymbol[a.Symbol]
		if !ok {
			continue
		}
		switch a.Type {
		case ActionSell:
			cashDelta += h.ValueJPY
			h.ValueJPY = 0
		case ActionReduce:
			cashDelta += a.ValueJPY
			h.ValueJPY -= a.ValueJPY
			if h.ValueJPY < 0 {
				h.ValueJPY = 0
			}
		case ActionIncrease:
			h.ValueJPY += a.AmountJPY
			cashDelta -= a.AmountJPY
		}
	}

	var out []domain.HoldingSnapshot
	for _, h := range projected {
		if h.ValueJPY > 0 {
			out = append(out, h)
		}
	}
	if cashDelta > 0 {
		// Fold residual cash into (or create) the JPY cash line
		merged := false
		for i := range out {
			if out[i].Symbol == "JPY.CASH" {
				out[i].ValueJPY += cashDelta
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, domain.HoldingSnapshot{
				Symbol:     "JPY.CASH",
				Currency:   "JPY",
				AssetClass: domain.AssetClassCash,
				ValueJPY:   cashDelta,
			})
		}
	}
	return out
}

// collectGaps lists holdings missing the inputs that reduce/increase
// candidacy needs. They stay in the report; they just cannot trade.
func collectGaps(in Inputs) []domain.DataGap {
	var gaps []domain.DataGap
	for _, h := range sortedHoldings(in.Holdings) {
		if h.IsCash() {
			continue
		}
		if h.ValueJPY <= 0 {
			gaps = append(gaps, domain.DataGap{Symbol: h.Symbol, Reason: "no current price or value"})
			continue
		}
		if est, ok := in.Estimates[h.Symbol]; !ok || est.Base == nil {
			gaps = append(gaps, domain.DataGap{Symbol: h.Symbol, Reason: "no expected-return estimate"})
		}
	}
	return gaps
}

func totalValue(holdings []domain.HoldingSnapshot) float64 {
	total := 0.0
	for _, h := range holdings {
		total += h.ValueJPY
	}
	return total
}

func sortedHoldings(holdings []domain.HoldingSnapshot) []domain.HoldingSnapshot {
	out := make([]domain.HoldingSnapshot, len(holdings))
	copy(out, holdings)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func findHolding(holdings []domain.HoldingSnapshot, symbol string) (domain.HoldingSnapshot, bool) {
	for _, h := range holdings {
		if h.Symbol == symbol {
			return h, true
		}
	}
	return domain.HoldingSnapshot{}, false
}

// lowestReturnMember picks the cluster member with the weakest base
// expected return; members without an estimate are skipped (data gap).
func lowestReturnMember(in Inputs, members []string, sold, reduced map[string]bool) (domain.HoldingSnapshot, bool) {
	best := domain.HoldingSnapshot{}
	bestReturn := 0.0
	found := false
	for _, symbol := range members {
		if sold[symbol] || reduced[symbol] {
			continue
		}
		h, ok := findHolding(in.Holdings, symbol)
		if !ok || h.ValueJPY <= 0 {
			continue
		}
		est, ok := in.Estimates[symbol]
		base := 0.0
		if ok && est.Base != nil {
			base = *est.Base
		}
		if !found || base < bestReturn || (base == bestReturn && symbol < best.Symbol) {
			best, bestReturn, found = h, base, true
		}
	}
	return best, found
}

func symbolSet(actions []Action) map[string]bool {
	set := make(map[string]bool, len(actions))
	for _, a := range actions {
		set[a.Symbol] = true
	}
	return set
}

func weightsOf(values map[string]float64) []float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	weights := make([]float64, 0, len(values))
	if total <= 0 {
		return weights
	}
	for _, v := range values {
		weights = append(weights, v/total)
	}
	return weights
}
