// Package gate serves the payment-gated HTTP surface: free discovery
// endpoints, x402 challenges, and paid service invocation.
package gate

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/solvent-ai/solvent/pkg/catalog"
	"github.com/solvent-ai/solvent/pkg/models"
	"github.com/solvent-ai/solvent/pkg/payment"
	"github.com/solvent-ai/solvent/pkg/tracker"
)

// Header names of the challenge/response protocol.
const (
	HeaderPayment         = "X-Payment"
	HeaderPaymentRequired = "X-Payment-Required"
)

// Server is the revenue gate. It owns no persistent entity; it translates
// HTTP requests into catalog invocations and is the sole writer of ledger
// increments.
type Server struct {
	listen   string
	catalog  *catalog.Catalog
	verifier *payment.Verifier
	terms    payment.Terms
	revenue  *tracker.RevenueTracker
	mux      *http.ServeMux
}

// New creates a gate Server wired with its collaborators.
func New(listen string, cat *catalog.Catalog, v *payment.Verifier, terms payment.Terms, rev *tracker.RevenueTracker) *Server {
	s := &Server{
		listen:   listen,
		catalog:  cat,
		verifier: v,
		terms:    terms,
		revenue:  rev,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/services", s.handleServices)
	s.mux.HandleFunc("/", s.handleService)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the gate with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.listen,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("revenue gate listening on %s", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// handleHealth is always free, always served regardless of tier or payment.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"serviceCount": s.catalog.Len(),
	})
}

// handleServices advertises the catalog; free like /health.
func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ServiceList{
		Services:       s.catalog.List(),
		PaymentAddress: s.terms.PayToAddress,
		Network:        s.terms.Network,
	})
}

// handleService runs the per-request state machine: every branch terminates
// with a well-formed JSON body and a specific status code.
func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.catalog.Lookup(r.URL.Path)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Service not found"})
		return
	}

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	assertion := r.Header.Get(HeaderPayment)
	if assertion == "" {
		s.challenge(w, svc)
		return
	}

	var payload models.PaymentPayload
	if err := json.Unmarshal([]byte(assertion), &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payment"})
		return
	}

	required := payment.AtomicAmount(svc.PriceUSDC)
	if err := s.verifier.Verify(r.Context(), payload, required); err != nil {
		log.Printf("gate: payment rejected for %s: %v", svc.Path, err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payment"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
		return
	}
	r.Body.Close()

	result, err := svc.Handler(r.Context(), body)
	if err != nil {
		// No earnings on handler failure: no partial credit.
		log.Printf("gate: handler for %s failed: %v", svc.Path, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Service execution failed"})
		return
	}

	s.revenue.Record(r.Context(), svc.Path, svc.PriceUSDC)
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

// challenge answers a paid request lacking proof of payment with the x402
// challenge header and a human-readable body.
func (s *Server) challenge(w http.ResponseWriter, svc catalog.Service) {
	ch := payment.ChallengeFor(svc.PriceUSDC, s.terms)
	chJSON, err := json.Marshal(ch)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "challenge construction failed"})
		return
	}

	w.Header().Set(HeaderPaymentRequired, string(chJSON))
	writeJSON(w, http.StatusPaymentRequired, map[string]any{
		"error":    "Payment required",
		"price":    svc.PriceUSDC,
		"currency": "USDC",
		"payTo":    s.terms.PayToAddress,
		"network":  s.terms.Network,
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("gate: write response: %v", err)
	}
}
