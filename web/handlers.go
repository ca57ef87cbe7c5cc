package web

import (
	"encoding/json"
	"net/http"

	"github.com/BrewBlox/brewblox-service/feature"
)

// serviceStatus is the payload of GET /_service/status
type serviceStatus struct {
	Status   string          `json:"status"`
	Service  string          `json:"service"`
	Bus      string          `json:"bus,omitempty"`
	Features []featureStatus `json:"features"`
}

type featureStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// debugPublishRequest is the body of POST /_debug/publish
type debugPublishRequest struct {
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// debugSubscribeRequest is the body of POST /_debug/subscribe
type debugSubscribeRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) registerSystemEndpoints() {
	s.mux.HandleFunc("GET /_service/status", s.handleServiceStatus)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /healthz", s.handleLiveness)
	s.mux.HandleFunc("GET /readyz", s.handleReadiness)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	if s.bus != nil {
		s.mux.HandleFunc("POST /_debug/publish", s.handleDebugPublish)
		s.mux.HandleFunc("POST /_debug/subscribe", s.handleDebugSubscribe)
	}
}

// handleServiceStatus reports the service's feature states.
// The endpoint answers 200 whenever the service is up, even while the bus is
// down, so orchestration doesn't restart a service that is merely waiting
// for its broker.
func (s *Server) handleServiceStatus(w http.ResponseWriter, _ *http.Request) {
	status := serviceStatus{
		Status:  "ok",
		Service: s.serviceName,
	}

	if s.bus != nil {
		if s.bus.IsConnected() {
			status.Bus = "connected"
		} else {
			status.Bus = "disconnected"
		}
	}

	for _, info := range s.registry.Snapshot() {
		fs := featureStatus{Name: info.Name, State: info.State.String()}
		if info.LastErr != nil {
			fs.Error = info.LastErr.Error()
		}
		status.Features = append(status.Features, fs)
	}

	s.writeJSON(w, status)
}

// handleHealth returns aggregated service health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	serviceHealth := s.monitor.AggregateHealth(s.serviceName)

	w.Header().Set("Content-Type", "application/json")
	if serviceHealth.IsUnhealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(serviceHealth); err != nil {
		s.logger.Error("Failed to encode health response", "error", err)
	}
}

// handleLiveness is a simple liveness probe
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReadiness checks that every feature is started
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	ready := true
	for _, info := range s.registry.Snapshot() {
		if info.State != feature.StateStarted {
			ready = false
			break
		}
	}

	if ready {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT READY"))
	}
}

// handleDebugPublish publishes an arbitrary message to the event bus
func (s *Server) handleDebugPublish(w http.ResponseWriter, r *http.Request) {
	var req debugPublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.bus.Publish(r.Context(), req.Topic, req.Message); err != nil {
		s.writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, map[string]string{"status": "published", "topic": req.Topic})
}

// handleDebugSubscribe registers an event bus subscription.
// Received events are visible in the service log and metrics.
func (s *Server) handleDebugSubscribe(w http.ResponseWriter, r *http.Request) {
	var req debugSubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.bus.Subscribe(req.Topic); err != nil {
		s.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.writeJSON(w, map[string]any{
		"status":        "subscribed",
		"topic":         req.Topic,
		"subscriptions": s.bus.Subscriptions(),
	})
}

// writeJSON writes a JSON response and logs encoding errors
func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeJSONError writes an error response in JSON format
func (s *Server) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		s.logger.Error("Failed to encode error response", "error", err)
	}
}
