package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/database"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/service"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds ingest request bodies
const maxBodyBytes = 10 << 20

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	financials *service.FinancialsService
	db         Pinger
	log        zerolog.Logger
}

// NewHandler creates a new Handler. db may be nil.
func NewHandler(financials *service.FinancialsService, db Pinger, log zerolog.Logger) *Handler {
	return &Handler{
		financials: financials,
		db:         db,
		log:        log.With().Str("component", "api").Logger(),
	}
}

// GetFinancials handles GET /financials/{symbol}
func (h *Handler) GetFinancials(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "refresh must be a boolean")
			return
		}
		refresh = parsed
	}

	report, err := h.financials.Get(r.Context(), symbol, refresh)
	if err != nil {
		h.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetValuation handles GET /financials/{symbol}/valuation
func (h *Handler) GetValuation(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	points, err := h.financials.Valuation(r.Context(), symbol)
	if err != nil {
		h.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"symbol":            strings.ToUpper(symbol),
		"valuation_history": points,
	})
}

// GetLatestSnapshot handles GET /companies/{symbol}/snapshots/latest
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	report, err := h.financials.LatestSnapshot(symbol)
	if err != nil {
		h.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// PutCompany handles PUT /companies/{symbol}
func (h *Handler) PutCompany(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var company models.CompanyInfo
	if err := decodeBody(w, r, &company); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.financials.UpdateCompany(r.Context(), symbol, &company); err != nil {
		h.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, company)
}

// PostStatements handles POST /companies/{symbol}/statements
func (h *Handler) PostStatements(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var req struct {
		Statements []models.StatementPayload `json:"statements"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := h.financials.AddStatements(r.Context(), symbol, req.Statements)
	if err != nil {
		h.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int{"line_items": n})
}

// PostPrices handles POST /companies/{symbol}/prices
func (h *Handler) PostPrices(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var req struct {
		Prices []models.PriceBar `json:"prices"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := h.financials.AddPrices(r.Context(), symbol, req.Prices)
	if err != nil {
		h.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int{"prices": n})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			h.log.Error().Err(err).Msg("database health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSymbol), errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
