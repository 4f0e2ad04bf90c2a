package portfolio

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

// Handler handles position ledger and snapshot HTTP requests
type Handler struct {
	repo    *PositionRepository
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(repo *PositionRepository, service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		repo:    repo,
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPositions returns the raw ledger
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.repo.GetAll()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	h.writeJSON(w, http.StatusOK, positions)
}

// HandleAddPosition records a buy (or opens a cash line)
func (h *Handler) HandleAddPosition(w http.ResponseWriter, r *http.Request) {
	var pos domain.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if pos.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	if err := h.repo.Add(pos); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "ok", "symbol": pos.Symbol})
}

// HandleSellPosition removes shares from a position
func (h *Handler) HandleSellPosition(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var req struct {
		Shares int64 `json:"shares"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	err := h.repo.Sell(symbol, req.Shares)
	switch {
	case errors.Is(err, ErrPositionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientShares):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "symbol": symbol})
	}
}

// HandleDeletePosition removes a ledger row outright
func (h *Handler) HandleDeletePosition(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	err := h.repo.Delete(symbol)
	switch {
	case errors.Is(err, ErrPositionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "symbol": symbol})
	}
}

// HandleGetSnapshot returns the valued portfolio
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.BuildSnapshot()
	if errors.Is(err, ErrEmptyLedger) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
