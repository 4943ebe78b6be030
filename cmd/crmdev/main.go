// ABOUTME: In-memory CRM sink for local funnel development
// ABOUTME: Implements the register, verifycode, and saverecord endpoints; leads are keyed by cookie
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

const defaultVerifyCode = "123456"

type registerRequest struct {
	Name          string         `json:"name"`
	PhoneNumber   string         `json:"phoneNumber"`
	Email         string         `json:"email"`
	Cookie        string         `json:"cookie"`
	City          string         `json:"city"`
	Zip           string         `json:"zip"`
	StreetAddress string         `json:"streetAddress"`
	LeadType      string         `json:"leadType"`
	State         string         `json:"state"`
	URL           string         `json:"url"`
	Data          map[string]any `json:"data"`
}

type verifyRequest struct {
	Code   string `json:"code"`
	UserID string `json:"userId"`
	Cookie string `json:"cookie"`
}

type storedLead struct {
	ID      string          `json:"id"`
	Upserts int             `json:"upserts"`
	Last    registerRequest `json:"last"`
}

type sink struct {
	mu         sync.Mutex
	leads      map[string]*storedLead
	nextID     int
	verifyCode string
}

func newSink(verifyCode string) *sink {
	return &sink{
		leads:      make(map[string]*storedLead),
		verifyCode: verifyCode,
	}
}

func (s *sink) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Cookie == "" {
		http.Error(w, "cookie is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	lead, ok := s.leads[req.Cookie]
	if !ok {
		s.nextID++
		lead = &storedLead{ID: fmt.Sprintf("dev-%d", s.nextID)}
		s.leads[req.Cookie] = lead
	}
	lead.Upserts++
	lead.Last = req
	id := lead.ID
	count := lead.Upserts
	s.mu.Unlock()

	log.Printf("register: cookie=%s id=%s upsert=%d phone=%q street=%q state=%s",
		req.Cookie, id, count, req.PhoneNumber, req.StreetAddress, req.State)

	writeJSON(w, map[string]string{"id": id})
}

func (s *sink) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	known := false
	for _, lead := range s.leads {
		if lead.ID == req.UserID {
			known = true
			break
		}
	}
	s.mu.Unlock()

	if !known {
		log.Printf("verifycode: unknown user %s", req.UserID)
		http.Error(w, "unknown user", http.StatusBadRequest)
		return
	}
	if req.Code != s.verifyCode {
		log.Printf("verifycode: rejected code for %s", req.UserID)
		http.Error(w, "invalid code", http.StatusBadRequest)
		return
	}

	log.Printf("verifycode: accepted for %s", req.UserID)
	writeJSON(w, map[string]string{"status": "verified"})
}

func (s *sink) saveRecord(w http.ResponseWriter, r *http.Request) {
	var record json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	log.Printf("saverecord: %d bytes", len(record))
	writeJSON(w, map[string]json.RawMessage{"record": record})
}

// listLeads dumps everything received so far. Debug endpoint, not part
// of the real CRM surface.
func (s *sink) listLeads(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]*storedLead, 0, len(s.leads))
	for _, lead := range s.leads {
		out = append(out, lead)
	}
	s.mu.Unlock()

	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "crmdev sink is up")
}

func main() {
	_ = godotenv.Load(".env.local")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8930"
	}

	verifyCode := os.Getenv("CRMDEV_VERIFY_CODE")
	if verifyCode == "" {
		verifyCode = defaultVerifyCode
	}

	s := newSink(verifyCode)

	r := chi.NewRouter()
	r.Get("/", rootHandler)
	r.Post("/api/re/RegisterReUser", s.register)
	r.Post("/api/re/verifycode", s.verify)
	r.Post("/api/re/saverecord", s.saveRecord)
	r.Get("/api/re/leads", s.listLeads)

	log.Printf("crmdev sink listening on :%s (verify code %s)", port, verifyCode)
	if err := http.ListenAndServe("0.0.0.0:"+port, r); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
