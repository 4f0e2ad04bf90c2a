package scenario

import (
	"sort"
	"strings"
)

// The scenario catalog is fixed at compile time. Base currency is JPY:
// "domestic" means Japan-listed, "foreign" means anything priced in
// another currency.

var scenarios = map[string]Definition{
	"triple_decline": {
		Key:       "triple_decline",
		Name:      "Triple decline (equities, bonds and yen all fall)",
		Trigger:   "Loss of confidence in domestic fiscal policy",
		BaseShock: -0.20,
		Targets: []TargetShock{
			{Kind: TargetRegion, Value: "Japan", Shock: -0.22, Label: "Japan equities"},
			{Kind: TargetCurrency, Value: "USD", Shock: -0.10, Label: "USD assets (yen weakness offsets part of the fall)"},
			{Kind: TargetAssetClass, Value: string(ETFGold), Shock: 0.06, Label: "Gold ETFs"},
			{Kind: TargetAssetClass, Value: string(ETFLongBonds), Shock: -0.15, Label: "Long-duration bond ETFs"},
		},
		Aliases:       []string{"triple decline", "triple", "everything sells off"},
		OffsetFactors: []string{"Yen weakness lifts the JPY value of foreign assets", "Gold tends to catch safe-haven flows"},
		TimeHorizon:   "3-6 months",
	},
	"yen_depreciation": {
		Key:       "yen_depreciation",
		Name:      "Yen depreciation (dollar strength)",
		Trigger:   "Widening rate differential against the US",
		BaseShock: -0.10,
		Targets: []TargetShock{
			{Kind: TargetCurrency, Value: "USD", Shock: 0.09, Label: "USD assets gain in JPY terms"},
			{Kind: TargetTradeProfile, Value: "exporter", Shock: 0.08, Label: "Export-driven names"},
			{Kind: TargetTradeProfile, Value: "domestic", Shock: -0.06, Label: "Domestic-demand names (import costs rise)"},
		},
		Aliases:       []string{"yen depreciation", "weak yen", "dollar strength", "yen"},
		OffsetFactors: []string{"Exporters hedge part of their FX exposure"},
		TimeHorizon:   "6-12 months",
	},
	"us_recession": {
		Key:       "us_recession",
		Name:      "US recession",
		Trigger:   "Hard landing after prolonged tightening",
		BaseShock: -0.25,
		Targets: []TargetShock{
			{Kind: TargetRegion, Value: "US", Shock: -0.25, Label: "US-listed equities"},
			{Kind: TargetCurrency, Value: "USD", Shock: -0.18, Label: "USD-denominated assets"},
			{Kind: TargetTradeProfile, Value: "exporter", Shock: -0.15, Label: "Exporters exposed to US demand"},
			{Kind: TargetAssetClass, Value: string(ETFLongBonds), Shock: 0.08, Label: "Long-duration bonds rally on rate cuts"},
		},
		Aliases:       []string{"recession", "us recession", "hard landing"},
		OffsetFactors: []string{"Rate cuts support bond prices", "Defensive sectors hold up better"},
		TimeHorizon:   "12-18 months",
	},
	"rate_hike": {
		Key:       "rate_hike",
		Name:      "Domestic rate-hike shock",
		Trigger:   "Persistent inflation forces additional tightening",
		BaseShock: -0.05,
		Targets: []TargetShock{
			{Kind: TargetAssetClass, Value: string(ETFLongBonds), Shock: -0.12, Label: "Long-duration bond ETFs"},
			{Kind: TargetSector, Value: "Technology", Shock: -0.12, Label: "Growth / Technology names"},
			{Kind: TargetSector, Value: "Financial Services", Shock: 0.06, Label: "Banks benefit from wider margins"},
			{Kind: TargetSector, Value: "Real Estate", Shock: -0.10, Label: "REITs and property"},
		},
		Aliases:       []string{"rate hike", "tightening", "central bank hike", "boj"},
		OffsetFactors: []string{"Bank earnings improve with rates"},
		TimeHorizon:   "3-9 months",
	},
	"geopolitical_conflict": {
		Key:       "geopolitical_conflict",
		Name:      "Geopolitical conflict escalation",
		Trigger:   "Regional conflict disrupts trade routes and energy supply",
		BaseShock: -0.08,
		Targets: []TargetShock{
			{Kind: TargetAssetClass, Value: string(ETFGold), Shock: 0.05, Label: "Gold ETFs catch safe-haven flows"},
			{Kind: TargetSector, Value: "Energy", Shock: 0.04, Label: "Energy names gain on supply fears"},
			{Kind: TargetSector, Value: "Industrials", Shock: -0.10, Label: "Industrials hit by supply chains"},
		},
		Aliases:       []string{"geopolitical", "conflict", "war"},
		OffsetFactors: []string{"Gold and energy partially hedge the book"},
		TimeHorizon:   "1-6 months",
	},
	"inflation_resurgence": {
		Key:       "inflation_resurgence",
		Name:      "Inflation resurgence",
		Trigger:   "Second wave of goods and wage inflation",
		BaseShock: -0.06,
		Targets: []TargetShock{
			{Kind: TargetAssetClass, Value: string(ETFLongBonds), Shock: -0.12, Label: "Long-duration bonds reprice"},
			{Kind: TargetAssetClass, Value: string(ETFDividendEquity), Shock: -0.04, Label: "Dividend equity income ETFs"},
			{Kind: TargetSector, Value: "Consumer Defensive", Shock: 0.03, Label: "Staples pass costs through"},
			{Kind: TargetSector, Value: "Energy", Shock: 0.05, Label: "Energy rides the price level"},
		},
		Aliases:       []string{"inflation", "inflation resurgence", "cpi shock"},
		OffsetFactors: []string{"Real assets and pricing power soften the hit"},
		TimeHorizon:   "6-12 months",
	},
	"tech_crash": {
		Key:       "tech_crash",
		Name:      "Technology sector crash",
		Trigger:   "Growth multiple compression after an earnings bust",
		BaseShock: -0.04,
		Targets: []TargetShock{
			{Kind: TargetSectorExcept, Value: "Technology", Shock: -0.03, Label: "Spillover to non-technology holdings"},
			{Kind: TargetSector, Value: "Technology", Shock: -0.25, Label: "Technology names"},
		},
		Aliases:       []string{"tech crash", "tech bubble", "growth crash"},
		OffsetFactors: []string{"Value and defensive names largely sidestep the drawdown"},
		TimeHorizon:   "3-12 months",
	},
	"yen_appreciation": {
		Key:       "yen_appreciation",
		Name:      "Yen appreciation shock",
		Trigger:   "Risk-off repatriation and rate convergence",
		BaseShock: -0.03,
		Targets: []TargetShock{
			{Kind: TargetCurrency, Value: "USD", Shock: -0.08, Label: "USD assets lose in JPY terms"},
			{Kind: TargetTradeProfile, Value: "exporter", Shock: -0.10, Label: "Exporter earnings compress"},
			{Kind: TargetTradeProfile, Value: "domestic", Shock: 0.04, Label: "Domestic demand benefits from import costs"},
		},
		Aliases:       []string{"yen appreciation", "strong yen", "risk off yen"},
		OffsetFactors: []string{"Importers and domestic demand benefit"},
		TimeHorizon:   "3-9 months",
	},
}

// Keys returns all scenario keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(scenarios))
	for key := range scenarios {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// All returns the full catalog ordered by key
func All() []Definition {
	defs := make([]Definition, 0, len(scenarios))
	for _, key := range Keys() {
		defs = append(defs, scenarios[key])
	}
	return defs
}

// Get returns a scenario by exact key
func Get(key string) (Definition, bool) {
	def, ok := scenarios[strings.ToLower(strings.TrimSpace(key))]
	return def, ok
}

// Resolve finds a scenario by key or alias. Matching is case-insensitive;
// after exact key and exact alias lookup it falls back to substring
// containment in either direction, so "a us recession scenario" and
// "recess" both resolve.
func Resolve(query string) (Definition, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Definition{}, false
	}

	if def, ok := scenarios[q]; ok {
		return def, true
	}

	// Exact alias
	for _, key := range Keys() {
		for _, alias := range scenarios[key].Aliases {
			if strings.ToLower(alias) == q {
				return scenarios[key], true
			}
		}
	}

	// Fuzzy containment, deterministic via sorted key order
	for _, key := range Keys() {
		def := scenarios[key]
		candidates := append([]string{def.Key, def.Name}, def.Aliases...)
		for _, candidate := range candidates {
			c := strings.ToLower(candidate)
			if strings.Contains(c, q) || strings.Contains(q, c) {
				return def, true
			}
		}
	}

	return Definition{}, false
}
