package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"medcache/internal/cache"
)

// Handlers bundles the dependencies of the operational endpoints
type Handlers struct {
	manager        *cache.Manager
	metricsHandler http.Handler
	logger         *zap.Logger
}

// NewHandlers creates the handler set. metricsHandler serves GET /metrics
// and is typically promhttp.HandlerFor on the engine's registry; nil
// disables the endpoint.
func NewHandlers(manager *cache.Manager, metricsHandler http.Handler, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		manager:        manager,
		metricsHandler: metricsHandler,
		logger:         logger,
	}
}

// Routes builds the HTTP router for the operational surface
func (h *Handlers) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/api/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/api/optimize", h.Optimize).Methods("POST")

	r.HandleFunc("/api/cache/{strategy}/{key:.+}", h.GetEntry).Methods("GET")
	r.HandleFunc("/api/cache/{strategy}/{key:.+}", h.PutEntry).Methods("PUT")
	r.HandleFunc("/api/cache/{strategy}/{key:.+}", h.DeleteEntry).Methods("DELETE")
	r.HandleFunc("/api/cache/{strategy}", h.ClearNamespace).Methods("DELETE")

	if h.metricsHandler != nil {
		r.Handle("/metrics", h.metricsHandler).Methods("GET")
	}

	return r
}

// Health reports process liveness and the state of the distributed tier
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.manager.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"redis":          string(h.manager.RedisState()),
		"uptime_seconds": stats.UptimeSeconds,
	})
}

// GetStats returns the engine's metrics snapshot
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Stats())
}

// Optimize runs an optimization cycle and returns its report
func (h *Handlers) Optimize(w http.ResponseWriter, r *http.Request) {
	result := h.manager.Optimize(r.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

// entryBody is the PUT payload for direct entry writes
type entryBody struct {
	Value    interface{} `json:"value"`
	TTL      string      `json:"ttl,omitempty"`
	Compress bool        `json:"compress,omitempty"`
	Encrypt  bool        `json:"encrypt,omitempty"`
	OwnerID  string      `json:"owner_id,omitempty"`
}

// GetEntry reads a single entry through the regular lookup path
func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	opts := optionsFromQuery(r)
	value, found := h.manager.Get(r.Context(), vars["key"], vars["strategy"], opts)
	if !found {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategy": vars["strategy"],
		"key":      vars["key"],
		"value":    value,
	})
}

// PutEntry writes a single entry through the regular write path
func (h *Handlers) PutEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var body entryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	opts := &cache.Options{
		Compress: body.Compress,
		Encrypt:  body.Encrypt,
		OwnerID:  body.OwnerID,
	}
	if body.TTL != "" {
		ttl, err := time.ParseDuration(body.TTL)
		if err != nil {
			http.Error(w, "Invalid ttl duration", http.StatusBadRequest)
			return
		}
		opts.TTL = ttl
	}

	if !h.manager.Set(r.Context(), vars["key"], body.Value, vars["strategy"], opts) {
		// Disabled or unknown strategies and unavailable tiers all land here
		http.Error(w, "Entry not cached", http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"strategy": vars["strategy"],
		"key":      vars["key"],
		"cached":   true,
	})
}

// DeleteEntry removes a single entry from every tier
func (h *Handlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if !h.manager.Delete(r.Context(), vars["key"], vars["strategy"]) {
		http.Error(w, "Entry not deleted", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearNamespace removes every entry in a strategy's namespace
func (h *Handlers) ClearNamespace(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if !h.manager.Clear(r.Context(), vars["strategy"]) {
		http.Error(w, "Namespace not cleared", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// optionsFromQuery builds read options from query parameters so reversible
// transforms can be undone on direct reads
func optionsFromQuery(r *http.Request) *cache.Options {
	q := r.URL.Query()
	return &cache.Options{
		Compress: q.Get("compress") == "true",
		Encrypt:  q.Get("encrypt") == "true",
		OwnerID:  q.Get("owner_id"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
