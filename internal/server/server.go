// Package server exposes read-only JSON projections of the platform over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ldi/campushelp/internal/apperr"
	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/internal/lifecycle"
	"github.com/ldi/campushelp/internal/review"
	"github.com/ldi/campushelp/pkg/models"
)

type Server struct {
	registry *lifecycle.Registry
	reviews  *review.Service
	topN     int
	logger   *zap.Logger
	server   *http.Server
}

func NewServer(registry *lifecycle.Registry, reviews *review.Service, topN int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{registry: registry, reviews: reviews, topN: topN, logger: logger}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tasks", s.handleTasks)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleTask)
	mux.HandleFunc("GET /api/tasks/{id}/applications", s.handleTaskApplications)
	mux.HandleFunc("GET /api/members", s.handleMembers)
	mux.HandleFunc("GET /api/members/{id}", s.handleMember)
	mux.HandleFunc("GET /api/members/{id}/recommendations", s.handleRecommendations)
	mux.HandleFunc("GET /api/members/{id}/reviews", s.handleReviews)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := db.TaskFilter{
		Category:    models.Category(q.Get("category")),
		Campus:      q.Get("campus"),
		PublisherID: q.Get("publisher_id"),
	}
	if raw := q.Get("status"); raw != "" {
		status := models.TaskStatus(raw)
		if !status.Valid() {
			s.respond(w, nil, apperr.Validation("unknown status %q", raw))
			return
		}
		filter.Status = &status
	}
	tasks, err := s.registry.Tasks(r.Context(), filter)
	s.respond(w, tasks, err)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.registry.Task(r.Context(), r.PathValue("id"))
	s.respond(w, task, err)
}

func (s *Server) handleTaskApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.registry.TaskApplications(r.Context(), r.PathValue("id"))
	s.respond(w, apps, err)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
	members, err := s.registry.Members(r.Context(), all)
	s.respond(w, members, err)
}

func (s *Server) handleMember(w http.ResponseWriter, r *http.Request) {
	member, err := s.registry.Member(r.Context(), r.PathValue("id"))
	s.respond(w, member, err)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	topN := s.topN
	if raw := r.URL.Query().Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respond(w, nil, apperr.Validation("top_n must be an integer"))
			return
		}
		topN = n
	}
	recs, err := s.registry.Recommend(r.Context(), r.PathValue("id"), topN)
	s.respond(w, recs, err)
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	views, err := s.reviews.For(r.Context(), r.PathValue("id"))
	s.respond(w, views, err)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.registry.Stats(r.Context())
	s.respond(w, stats, err)
}

type errorBody struct {
	Code     apperr.Code       `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) respond(w http.ResponseWriter, data any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		status := statusFor(err)
		body := errorBody{Code: apperr.CodeOf(err), Message: err.Error()}
		var ae *apperr.Error
		if errors.As(err, &ae) {
			body.Message = ae.Message
			body.Metadata = ae.Metadata
		}
		if status == http.StatusInternalServerError {
			s.logger.Error("request failed", zap.Error(err))
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
		return
	}
	json.NewEncoder(w).Encode(data)
}

func statusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeUnauthorized:
		return http.StatusForbidden
	case apperr.CodeInsufficientFunds, apperr.CodeDuplicateApplication, apperr.CodeDuplicateReview,
		apperr.CodeInvalidTransition, apperr.CodeTaskNotOpen:
		return http.StatusConflict
	case apperr.CodeNotEligible, apperr.CodeContentRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
