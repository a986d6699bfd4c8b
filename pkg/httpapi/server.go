// Package httpapi is the admin/REST surface: health, Prometheus
// metrics, relay/proxy stats, and device control routes layered over
// the Device Relay and Client Proxy.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/brewlink/relay/pkg/logger"
	"github.com/brewlink/relay/pkg/proxy"
	"github.com/brewlink/relay/pkg/relay"
	"github.com/brewlink/relay/pkg/reqres"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RelaySource is the slice of the Device Relay's contract the admin
// API depends on.
type RelaySource interface {
	reqres.Sender
	GetConnectedDeviceCount() int
	GetConnectedDevices() []string
	DisconnectDevice(deviceID string) bool
	GetStats() relay.Stats
}

// ProxySource is the slice of the Client Proxy's contract the admin
// API depends on.
type ProxySource interface {
	GetConnectedClientCount() int
	GetStats() proxy.Stats
}

// Server is the admin HTTP surface. Construct with New.
type Server struct {
	relay  RelaySource
	proxy  ProxySource
	log    logger.Logger
	router *mux.Router
	now    func() time.Time
}

// New constructs a Server and wires its routes.
func New(relaySource RelaySource, proxySource ProxySource, options ...func(*Server)) *Server {
	s := &Server{
		relay:  relaySource,
		proxy:  proxySource,
		log:    logger.NewTestLogger(),
		router: mux.NewRouter(),
		now:    time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	s.setupRoutes()

	return s
}

// WithLogger injects a logger.
func WithLogger(log logger.Logger) func(*Server) {
	return func(s *Server) { s.log = log }
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(w, req)
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices", s.handleListDevices).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/disconnect", s.handleDisconnectDevice).Methods(http.MethodPost)
	s.router.HandleFunc("/api/devices/{id}/command", s.handleDeviceCommand).Methods(http.MethodPost)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("failed to encode http response")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"relay": s.relay.GetStats(),
		"proxy": s.proxy.GetStats(),
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"devices": s.relay.GetConnectedDevices()})
}

func (s *Server) handleDisconnectDevice(w http.ResponseWriter, req *http.Request) {
	deviceID := mux.Vars(req)["id"]

	if !s.relay.DisconnectDevice(deviceID) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not connected"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// deviceCommandRequest is the body accepted by the command route: a
// message type plus arbitrary extra fields forwarded verbatim.
type deviceCommandRequest struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func (s *Server) handleDeviceCommand(w http.ResponseWriter, req *http.Request) {
	deviceID := mux.Vars(req)["id"]

	var body deviceCommandRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Type == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	reply, err := reqres.Do(ctx, s.relay, deviceID, body.Type, body.Data, s.now())
	if err != nil {
		s.writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"response": reply})
}
