package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Computed reports
	api.HandleFunc("/financials/{symbol}", handler.GetFinancials).Methods("GET")
	api.HandleFunc("/financials/{symbol}/valuation", handler.GetValuation).Methods("GET")

	// Ingestion
	api.HandleFunc("/companies/{symbol}", handler.PutCompany).Methods("PUT")
	api.HandleFunc("/companies/{symbol}/statements", handler.PostStatements).Methods("POST")
	api.HandleFunc("/companies/{symbol}/prices", handler.PostPrices).Methods("POST")
	api.HandleFunc("/companies/{symbol}/snapshots/latest", handler.GetLatestSnapshot).Methods("GET")

	return r
}
