package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"inboxd/internal/constants"
	apperrors "inboxd/internal/errors"
	"inboxd/internal/middleware"
	"inboxd/internal/models"
	"inboxd/internal/realtime"
	"inboxd/internal/service"
)

type Server struct {
	cfg      *models.Config
	router   *mux.Router
	logger   *logrus.Logger
	inbox    *service.InboxService
	outbound *service.OutboundService
	store    service.Store
	hub      *realtime.Hub
	limiter  *ipRateLimiter
	server   *http.Server
}

func NewServer(cfg *models.Config, inbox *service.InboxService, outbound *service.OutboundService, store service.Store, hub *realtime.Hub, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		logger:   logger,
		inbox:    inbox,
		outbound: outbound,
		store:    store,
		hub:      hub,
		limiter:  newIPRateLimiter(cfg.Server.SendRatePerSec, cfg.Server.SendRateBurst),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	s.router.HandleFunc("/webhook", s.handleWebhookVerify()).Methods(http.MethodGet)
	s.router.HandleFunc("/webhook", s.handleWebhookPost()).Methods(http.MethodPost)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/conversations", s.handleListConversations()).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", s.handleListMessages()).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", s.limiter.middleware(s.handleSendMessage())).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/close", s.handleCloseConversation()).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/assign", s.handleAssignConversation()).Methods(http.MethodPost)

	s.router.Handle("/ws", s.hub).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeout * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeout * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeout * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// handleWebhookVerify answers Meta's subscription handshake.
func (s *Server) handleWebhookVerify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		mode := query.Get("hub.mode")
		token := query.Get("hub.verify_token")
		challenge := query.Get("hub.challenge")

		if mode == "subscribe" && token == s.cfg.Webhook.VerifyToken {
			s.logger.Info("Webhook verified")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(challenge))
			return
		}

		s.logger.Warn("Webhook verification failed")
		w.WriteHeader(http.StatusForbidden)
	}
}

// handleWebhookPost serves two callers on one endpoint: Meta event deliveries
// and the agent dashboard's send_reply action, told apart by the body's
// action field.
func (s *Server) handleWebhookPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := verifySignature(r, s.cfg.Webhook.Secret)
		if err != nil {
			s.logger.WithError(err).Warn("Webhook signature verification failed")
			writeJSON(w, http.StatusUnauthorized, models.SendReplyResponse{
				Success: false,
				Error:   "signature verification failed",
			})
			return
		}

		var probe struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(body, &probe); err != nil {
			writeJSON(w, http.StatusInternalServerError, models.SendReplyResponse{
				Success: false,
				Error:   "invalid JSON payload",
			})
			return
		}

		if probe.Action == models.ActionSendReply {
			s.handleSendReply(w, r, body)
			return
		}

		var payload models.MetaWebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			writeJSON(w, http.StatusInternalServerError, models.SendReplyResponse{
				Success: false,
				Error:   "invalid JSON payload",
			})
			return
		}

		// Acknowledge after processing; per-event failures are logged and
		// never bubble into the response. A non-200 would only make Meta
		// redeliver a batch we already stored.
		s.inbox.ProcessWebhook(r.Context(), &payload)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleSendReply(w http.ResponseWriter, r *http.Request, body []byte) {
	var req models.SendReplyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SendReplyResponse{
			Success: false,
			Error:   "invalid send_reply request",
		})
		return
	}

	result, err := s.outbound.SendReply(r.Context(), &req)
	if err != nil {
		s.logger.WithError(err).WithField(service.LogFieldAction, models.ActionSendReply).
			Error("Failed to send reply")
		writeJSON(w, statusForError(err), models.SendReplyResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	response := models.SendReplyResponse{Success: true}
	if len(result.Raw) > 0 {
		response.MetaResponse = json.RawMessage(result.Raw)
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := models.ConversationStatus(r.URL.Query().Get("status"))
		if status != "" && status != models.ConversationOpen && status != models.ConversationClosed {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}

		conversations, err := s.store.ListConversations(r.Context(), status)
		if err != nil {
			s.logger.WithError(err).Error("Failed to list conversations")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list conversations"})
			return
		}
		if conversations == nil {
			conversations = []*models.Conversation{}
		}
		writeJSON(w, http.StatusOK, conversations)
	}
}

func (s *Server) handleListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		conv, err := s.store.GetConversation(r.Context(), id)
		if err != nil {
			s.logger.WithError(err).Error("Failed to load conversation")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load conversation"})
			return
		}
		if conv == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
			return
		}

		messages, err := s.store.ListMessages(r.Context(), id)
		if err != nil {
			s.logger.WithError(err).Error("Failed to list messages")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list messages"})
			return
		}
		if messages == nil {
			messages = []*models.Message{}
		}
		writeJSON(w, http.StatusOK, messages)
	}
}

func (s *Server) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var req struct {
			Text    string `json:"text"`
			AgentID string `json:"agent_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		msg, err := s.outbound.ReplyToConversation(r.Context(), id, req.Text)
		if err != nil {
			s.logger.WithError(err).WithField(service.LogFieldConversationID, id).
				Error("Failed to send agent message")
			writeJSON(w, statusForError(err), map[string]string{"error": apperrors.GetUserMessage(err)})
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func (s *Server) handleCloseConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		conv, err := s.outbound.CloseConversation(r.Context(), id)
		if err != nil {
			s.logger.WithError(err).WithField(service.LogFieldConversationID, id).
				Warn("Failed to close conversation")
			writeJSON(w, statusForError(err), map[string]string{"error": apperrors.GetUserMessage(err)})
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func (s *Server) handleAssignConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var req struct {
			AgentID string `json:"agent_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		conv, err := s.outbound.AssignAgent(r.Context(), id, req.AgentID)
		if err != nil {
			s.logger.WithError(err).WithField(service.LogFieldConversationID, id).
				Warn("Failed to assign conversation")
			writeJSON(w, statusForError(err), map[string]string{"error": apperrors.GetUserMessage(err)})
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

// statusForError maps application error codes to HTTP statuses.
func statusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
