package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/dealbook/forecast/pkg/config"
	"github.com/dealbook/forecast/pkg/forecast"
	"github.com/dealbook/forecast/pkg/ledger"
	"github.com/dealbook/forecast/pkg/models"
	"github.com/dealbook/forecast/pkg/schema"
	"github.com/dealbook/forecast/pkg/session"
	"github.com/dealbook/forecast/pkg/store"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Server holds the ledger instance.
type Server struct {
	ledger  *ledger.Ledger
	storage store.Storage
}

func NewServer(s store.Storage, schemas schema.Set) *Server {
	return &Server{
		ledger:  ledger.NewLedger(s, schemas),
		storage: s,
	}
}

// Close releases the server's storage.
func (s *Server) Close() error {
	return s.storage.Close()
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/calculate", s.calculateHandler).Methods("POST")
	router.HandleFunc("/schemas", s.schemasHandler).Methods("GET")
	router.HandleFunc("/tenants/{tenant}/settings", s.getSettingsHandler).Methods("GET")
	router.HandleFunc("/tenants/{tenant}/settings", s.saveSettingsHandler).Methods("PUT")
	router.HandleFunc("/tenants/{tenant}/calendar", s.calendarHandler).Methods("GET")
	router.HandleFunc("/tenants/{tenant}/forecast", s.tenantForecastHandler).Methods("GET")

	client := "/tenants/{tenant}/clients/{client}"
	router.HandleFunc(client+"/summary", s.clientSummaryHandler).Methods("GET")
	router.HandleFunc(client+"/forecast", s.clientForecastHandler).Methods("GET")
	router.HandleFunc(client+"/deals", s.addDealHandler).Methods("POST")
	router.HandleFunc(client+"/financials/{fy}/{line}", s.getFinancialHandler).Methods("GET")
	router.HandleFunc(client+"/financials/{fy}/{line}", s.saveFinancialHandler).Methods("PUT")
	router.HandleFunc(client+"/financials/{fy}/{line}", s.deleteFinancialHandler).Methods("DELETE")
	return router
}

// calculateHandler computes one deal without storing it. A deal posted
// without a certainty is taken as certain, as new deals are.
func (s *Server) calculateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID      string `json:"tenant_id"`
		FinancialYear string `json:"financial_year"`
		Deal          struct {
			models.Deal
			CertaintyPercentage *decimal.Decimal `json:"certainty_percentage"`
		} `json:"deal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	deal := req.Deal.Deal
	deal.CertaintyPercentage = session.DefaultCertainty
	if req.Deal.CertaintyPercentage != nil {
		deal.CertaintyPercentage = *req.Deal.CertaintyPercentage
	}

	result, err := s.ledger.Calculate(req.TenantID, req.FinancialYear, deal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) schemasHandler(w http.ResponseWriter, r *http.Request) {
	products := make([]schema.Product, 0, len(s.ledger.Schemas()))
	for _, pt := range models.ProductTypes() {
		if p, ok := s.ledger.Schemas()[pt]; ok {
			products = append(products, p)
		}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	fy, err := s.ledger.Settings(mux.Vars(r)["tenant"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fy)
}

func (s *Server) saveSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var fy models.FinancialYearSettings
	if err := json.NewDecoder(r.Body).Decode(&fy); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.ledger.SaveSettings(mux.Vars(r)["tenant"], fy); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fy)
}

func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	grid, err := s.ledger.Grid(mux.Vars(r)["tenant"], r.URL.Query().Get("fy"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (s *Server) tenantForecastHandler(w http.ResponseWriter, r *http.Request) {
	out, err := s.ledger.TenantForecast(mux.Vars(r)["tenant"], r.URL.Query().Get("fy"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) clientSummaryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := s.ledger.ClientSummary(vars["tenant"], vars["client"], r.URL.Query().Get("fy"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) clientForecastHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, err := s.ledger.ClientForecast(vars["tenant"], vars["client"], r.URL.Query().Get("fy"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// addDealHandler creates a deal from the product's defaults overlaid with the
// posted values and adds it to the client's saved forecast.
func (s *Server) addDealHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ProductType         models.ProductType         `json:"product_type"`
		DealName            string                     `json:"deal_name"`
		FieldValues         models.FieldValues         `json:"field_values"`
		CostItems           map[string]models.CostItem `json:"cost_items"`
		CertaintyPercentage *decimal.Decimal           `json:"certainty_percentage"`
		UserID              string                     `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.ProductType.Valid() {
		http.Error(w, fmt.Sprintf("Unknown product type %q", req.ProductType), http.StatusBadRequest)
		return
	}

	deal := session.NewDeal(req.ProductType, req.DealName, s.ledger.Schemas())
	for k, v := range req.FieldValues {
		deal.FieldValues[k] = v
	}
	for k, v := range req.CostItems {
		deal.CostItems[k] = v
	}
	if req.CertaintyPercentage != nil {
		deal.CertaintyPercentage = *req.CertaintyPercentage
	}

	view, err := s.ledger.AddDeal(vars["tenant"], vars["client"], r.URL.Query().Get("fy"), req.UserID, deal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		DealID uuid.UUID     `json:"deal_id"`
		View   *session.View `json:"view"`
	}{deal.ID, view})
}

func (s *Server) getFinancialHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := s.ledger.GetClientFinancial(vars["tenant"], vars["client"], vars["fy"], models.ProductLine(vars["line"]))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) saveFinancialHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req ledger.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// The path names the record.
	req.TenantID = vars["tenant"]
	req.ClientID = vars["client"]
	req.FinancialYear = vars["fy"]
	req.ProductLine = models.ProductLine(vars["line"])

	rec, err := s.ledger.SaveClientFinancial(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteFinancialHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.ledger.DeleteClientFinancial(vars["tenant"], vars["client"], vars["fy"], models.ProductLine(vars["line"])); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var verr *forecast.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   verr.Error(),
			"missing": verr.Missing,
		})
	default:
		log.Printf("[api] %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func openStore(cfg config.Config) (store.Storage, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return store.NewSQLiteStore(cfg.DBDSN)
	case config.DriverPostgres:
		return store.NewPostgresStore(cfg.DBDSN)
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
}

func main() {
	cfg := config.Load()

	schemas, err := schema.Load(cfg.SchemaFile)
	if err != nil {
		log.Fatalf("Failed to load product schemas: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.DBDriver, err)
	}
	server := NewServer(st, schemas)
	defer server.Close()

	log.Printf("Server starting on %s", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, server.routes()))
}
