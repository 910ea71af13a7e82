package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fieldline/intakeflow/internal/config"
	"github.com/fieldline/intakeflow/internal/domain"
	"github.com/fieldline/intakeflow/internal/export"
	"github.com/fieldline/intakeflow/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes the intake lifecycle over HTTP. Every route maps 1:1 onto an
// IntakeService operation.
type Server struct {
	intake *service.IntakeService
	router chi.Router
	port   int
}

func NewServer(intake *service.IntakeService, port int) *Server {
	srv := &Server{intake: intake, port: port}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)

		r.Post("/sessions", srv.handleStartSession)
		r.Get("/sessions", srv.handleListSessions)
		r.Get("/sessions/{sessionID}", srv.handleGetSession)
		r.Get("/sessions/{sessionID}/export", srv.handleExportSession)
		r.Post("/sessions/{sessionID}/turns", srv.handleTurn)
		r.Post("/sessions/{sessionID}/submit", srv.handleSubmit)
		r.Post("/sessions/{sessionID}/attachments", srv.handleUploadAttachment)
		r.Post("/sessions/{sessionID}/attachments/{attachmentID}/enrich", srv.handleEnrichAttachment)
		r.Post("/sessions/{sessionID}/analyse", srv.handleAnalyse)
		r.Post("/sessions/{sessionID}/promote", srv.handlePromote)

		r.Get("/processes/{processID}", srv.handleGetProcess)
	})

	srv.router = r
	return srv
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("starting HTTP API", "addr", addr)
	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "intakeflow"})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id is required"})
		return
	}

	session, err := s.intake.Start(r.Context(), req.OwnerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner is required"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sessions, err := s.intake.ListByOwner(r.Context(), owner, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []domain.IntakeSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.intake.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	exporter, err := export.NewExporter(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := s.intake.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "intake-"+session.ID+"."+exporter.Extension()))
	if err := exporter.Export(session, w); err != nil {
		slog.Error("export session failed", "session_id", session.ID, "error", err)
	}
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := s.intake.Turn(r.Context(), chi.URLParam(r, "sessionID"), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reply":       result.Reply,
		"is_complete": result.IsComplete,
		"fields":      result.Session.Fields,
		"status":      result.Session.Status,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var fields domain.IntakeFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	session, err := s.intake.Submit(r.Context(), chi.URLParam(r, "sessionID"), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.MaxAttachmentBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file field is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, config.MaxAttachmentBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload"})
		return
	}

	att, err := s.intake.AddAttachment(r.Context(), chi.URLParam(r, "sessionID"),
		header.Filename, r.FormValue("declared_type"), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

func (s *Server) handleEnrichAttachment(w http.ResponseWriter, r *http.Request) {
	att, err := s.intake.EnrichAttachment(r.Context(),
		chi.URLParam(r, "sessionID"), chi.URLParam(r, "attachmentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, att)
}

func (s *Server) handleAnalyse(w http.ResponseWriter, r *http.Request) {
	session, err := s.intake.Analyse(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	rec, err := s.intake.Promote(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	rec, err := s.intake.GetProcess(r.Context(), chi.URLParam(r, "processID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// writeError maps domain error kinds onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrAttachmentNotFound),
		errors.Is(err, domain.ErrProcessNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrValidationFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrBackendFailure):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
