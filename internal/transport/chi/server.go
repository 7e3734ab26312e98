package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/labchat/internal/config"
	"github.com/kailas-cloud/labchat/internal/domain"
	"github.com/kailas-cloud/labchat/internal/logger"
	chatuc "github.com/kailas-cloud/labchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/labchat/internal/usecase/health"
)

// Public error messages. Details go to the operational log only.
const (
	msgChatFailed    = "Error processing chat"
	msgSidebarFailed = "Failed to load sidebar configuration"
	msgLogsFailed    = "Error reading log file"
	msgInvalidBody   = "Invalid request body"
)

const maxChatBodyBytes = 1 << 20

// ChatService answers one chat turn.
type ChatService interface {
	Chat(ctx context.Context, query string) (chatuc.Result, error)
}

// LogReader exposes the activity log contents.
type LogReader interface {
	Read() (string, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Reply     string            `json:"reply"`
	DebugInfo *chatuc.DebugInfo `json:"debugInfo,omitempty"`
}

type sidebarResponse struct {
	Sidebar []config.SidebarItem `json:"sidebar"`
}

type logsResponse struct {
	Logs string `json:"logs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server serves the chat widget API.
type Server struct {
	chat    ChatService
	logs    LogReader
	health  HealthChecker
	sidebar []config.SidebarItem
	logger  *zap.Logger
}

// NewServer creates an HTTP API server. A nil sidebar makes /api/sidebar fail with 500.
func NewServer(
	chat ChatService,
	logs LogReader,
	health HealthChecker,
	sidebar []config.SidebarItem,
	logger *zap.Logger,
) *Server {
	return &Server{
		chat:    chat,
		logs:    logs,
		health:  health,
		sidebar: sidebar,
		logger:  logger,
	}
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/chat", s.Chat)
	r.Get("/api/sidebar", s.Sidebar)
	r.Get("/api/logs", s.Logs)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := s.chat.Chat(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Query is required")
			return
		}
		log.Error("chat failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgChatFailed)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: res.Reply, DebugInfo: res.Debug})
}

// Sidebar handles GET /api/sidebar.
func (s *Server) Sidebar(w http.ResponseWriter, r *http.Request) {
	if s.sidebar == nil {
		logger.FromContext(r.Context(), s.logger).Warn("sidebar requested but not loaded")
		writeError(w, http.StatusInternalServerError, msgSidebarFailed)
		return
	}
	writeJSON(w, http.StatusOK, sidebarResponse{Sidebar: s.sidebar})
}

// Logs handles GET /api/logs.
func (s *Server) Logs(w http.ResponseWriter, r *http.Request) {
	content, err := s.logs.Read()
	if err != nil {
		logger.FromContext(r.Context(), s.logger).Error("read activity log", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, logsResponse{Logs: msgLogsFailed})
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{Logs: content})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
