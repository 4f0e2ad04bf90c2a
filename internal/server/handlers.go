package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hozumi/portfolio-sentry/internal/modules/portfolio"
	"github.com/hozumi/portfolio-sentry/internal/modules/rebalance"
	"github.com/hozumi/portfolio-sentry/internal/modules/scenario"
)

// handleHealth handles service health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "portfolio-sentry",
	})
}

// handleConcentration returns the portfolio HHI report
func (s *Server) handleConcentration(w http.ResponseWriter, r *http.Request) {
	report, err := s.analysis.Concentration()
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleCorrelation returns the pairwise correlation matrix and clusters
func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	result, err := s.analysis.Correlation()
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleHoldingsHealth returns per-symbol technical health reports
func (s *Server) handleHoldingsHealth(w http.ResponseWriter, r *http.Request) {
	reports, err := s.analysis.Health()
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reports)
}

// handleEstimates returns per-symbol expected return estimates
func (s *Server) handleEstimates(w http.ResponseWriter, r *http.Request) {
	estimates, gaps, err := s.analysis.Estimates()
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"estimates": estimates,
		"data_gaps": gaps,
	})
}

// handleScenarios lists the scenario library
func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, scenario.All())
}

// handleStressAll runs every scenario against the current portfolio
func (s *Server) handleStressAll(w http.ResponseWriter, r *http.Request) {
	impacts, err := s.analysis.StressAll()
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, impacts)
}

// handleStress runs one scenario, resolved by key, alias or fuzzy match
func (s *Server) handleStress(w http.ResponseWriter, r *http.Request) {
	impact, err := s.analysis.Stress(chi.URLParam(r, "scenario"))
	if err != nil {
		if errors.Is(err, portfolio.ErrEmptyLedger) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, impact)
}

// rebalanceRequest is the JSON body of a rebalance proposal request
type rebalanceRequest struct {
	Strategy         string   `json:"strategy"`
	MaxSingleRatio   *float64 `json:"max_single_ratio,omitempty"`
	MaxSectorHHI     *float64 `json:"max_sector_hhi,omitempty"`
	MaxRegionHHI     *float64 `json:"max_region_hhi,omitempty"`
	MaxCurrencyHHI   *float64 `json:"max_currency_hhi,omitempty"`
	MaxCorrPairRatio *float64 `json:"max_corr_pair_ratio,omitempty"`
	ReduceSector     string   `json:"reduce_sector,omitempty"`
	ReduceCurrency   string   `json:"reduce_currency,omitempty"`
	AdditionalCash   float64  `json:"additional_cash,omitempty"`
	MinDividendYield *float64 `json:"min_dividend_yield,omitempty"`
}

// handleRebalance generates a constrained rebalancing proposal
func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	var req rebalanceRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	proposal, err := s.analysis.Propose(rebalance.Options{
		Strategy: req.Strategy,
		Overrides: rebalance.Overrides{
			MaxSingleRatio:   req.MaxSingleRatio,
			MaxSectorHHI:     req.MaxSectorHHI,
			MaxRegionHHI:     req.MaxRegionHHI,
			MaxCurrencyHHI:   req.MaxCurrencyHHI,
			MaxCorrPairRatio: req.MaxCorrPairRatio,
		},
		ReduceSector:     req.ReduceSector,
		ReduceCurrency:   req.ReduceCurrency,
		AdditionalCash:   req.AdditionalCash,
		MinDividendYield: req.MinDividendYield,
	})
	if err != nil {
		if errors.Is(err, rebalance.ErrInvalidConstraint) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeAnalysisError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, proposal)
}

// writeAnalysisError maps analysis failures onto HTTP statuses
func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, portfolio.ErrEmptyLedger), errors.Is(err, rebalance.ErrEmptyPortfolio):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
