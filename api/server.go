package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"fraudwatch/cache"
	"fraudwatch/database"
	"fraudwatch/ml"
	"fraudwatch/notifications"
	"fraudwatch/realtime"
	"fraudwatch/websocket"
)

// EmulatorControl is the interface the API uses to start and stop the
// synthetic traffic generator.
type EmulatorControl interface {
	StartEmulation() bool
	StopEmulation() bool
	Running() bool
}

// Server handles HTTP API requests
type Server struct {
	repo       *database.Repository
	engine     *ml.Engine
	redis      *cache.RedisClient
	broker     *realtime.Broker
	hub        *websocket.Hub
	webhookMgr *notifications.WebhookManager
	emulator   EmulatorControl

	driftWindow int
}

// NewServer creates a new API server instance
func NewServer(repo *database.Repository, engine *ml.Engine, redis *cache.RedisClient,
	broker *realtime.Broker, hub *websocket.Hub, webhookMgr *notifications.WebhookManager,
	driftWindow int) *Server {
	return &Server{
		repo:        repo,
		engine:      engine,
		redis:       redis,
		broker:      broker,
		hub:         hub,
		webhookMgr:  webhookMgr,
		driftWindow: driftWindow,
	}
}

// SetEmulator injects the traffic generator control
func (s *Server) SetEmulator(em EmulatorControl) {
	s.emulator = em
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Realtime endpoints (SSE and WebSocket)
	mux.Handle("GET /api/events", s.broker)
	mux.Handle("GET /ws/dashboard", s.hub)

	// Transactions and users
	mux.HandleFunc("GET /api/transactions", s.handleGetTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("GET /api/explain/{id}", s.handleGetExplanation)
	mux.HandleFunc("GET /api/users", s.handleGetUsers)
	mux.HandleFunc("GET /api/users/{id}/transactions", s.handleGetUserTransactions)

	// Dashboard aggregates
	mux.HandleFunc("GET /api/stats", s.handleGetStats)
	mux.HandleFunc("GET /api/metrics", s.handleGetMetrics)
	mux.HandleFunc("GET /api/drift", s.handleGetDrift)

	// Model management
	mux.HandleFunc("GET /api/ml/status", s.handleMLStatus)
	mux.HandleFunc("POST /api/ml/retrain", s.handleRetrain)
	mux.HandleFunc("POST /api/model/select", s.handleSelectModel)

	// Emulation control
	mux.HandleFunc("POST /api/emulation/start", s.handleStartEmulation)
	mux.HandleFunc("POST /api/emulation/stop", s.handleStopEmulation)

	// Webhook management
	mux.HandleFunc("GET /api/config/webhooks", s.handleGetWebhooks)
	mux.HandleFunc("POST /api/config/webhooks", s.handleCreateWebhook)
	mux.HandleFunc("PUT /api/config/webhooks/{id}", s.handleUpdateWebhook)
	mux.HandleFunc("DELETE /api/config/webhooks/{id}", s.handleDeleteWebhook)

	mux.HandleFunc("GET /health", s.handleHealth)

	// Serve Static Files (Dashboard UI)
	fs := http.FileServer(http.Dir("./public"))
	mux.Handle("GET /", fs)

	// Add middleware
	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth reports service liveness and engine state
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"status":        "healthy",
		"service":       "fraudwatch",
		"models_fitted": s.engine.Fitted(),
		"sse_clients":   s.broker.ClientCount(),
		"ws_clients":    s.hub.ClientCount(),
	})
}
