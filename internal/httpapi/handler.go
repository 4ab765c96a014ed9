// Package httpapi exposes progression engines over HTTP. The caller is
// identified by the X-User-ID header set by an upstream gateway.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/engine"
)

var (
	errRegistryClosed = errors.New("server is shutting down")
	validate          = validator.New()
)

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Sessions int    `json:"sessions"`
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type pointsRequest struct {
	Amount int `json:"amount" validate:"gt=0"`
}

type labRequest struct {
	LabID   string `json:"lab_id" validate:"required"`
	LabType string `json:"lab_type" validate:"required"`
	Points  int    `json:"points" validate:"gte=0"`
}

type labResponse struct {
	Inserted bool           `json:"inserted"`
	Progress engine.Summary `json:"progress"`
}

// NewRouter builds the chi router for reg.
func NewRouter(reg *Registry) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: "cyberquest", Sessions: reg.Len()})
	})

	r.Get("/v1/catalog", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, reg.catalog.Achievements())
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/progress", withSession(reg, getProgress))
		r.Post("/points", withSession(reg, addPoints))
		r.Post("/challenges/{id}/complete", withSession(reg, completeChallenge))
		r.Post("/counters/{kind}/increment", withSession(reg, incrementCounter))
		r.Post("/labs", withSession(reg, claimLab))
		r.Get("/notifications/next", withSession(reg, nextNotification))
	})
	return r
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *userSession)

func withSession(reg *Registry, h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := headerUserID(r)
		if userID == "" {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "X-User-ID header required")
			return
		}
		s, err := reg.session(r.Context(), userID)
		if err != nil {
			logRequestError(r, "open session failed", err, userID)
			writeError(w, r, http.StatusServiceUnavailable, "unavailable", err.Error())
			return
		}
		h(w, r, s)
	}
}

func getProgress(w http.ResponseWriter, _ *http.Request, s *userSession) {
	writeJSON(w, http.StatusOK, s.engine.Summary())
}

func addPoints(w http.ResponseWriter, r *http.Request, s *userSession) {
	var req pointsRequest
	if !decode(w, r, &req) {
		return
	}
	s.engine.AddPoints(req.Amount)
	writeJSON(w, http.StatusOK, s.engine.Summary())
}

func completeChallenge(w http.ResponseWriter, r *http.Request, s *userSession) {
	s.engine.CompleteChallenge(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, s.engine.Summary())
}

func incrementCounter(w http.ResponseWriter, r *http.Request, s *userSession) {
	kind := catalog.CounterKind(chi.URLParam(r, "kind"))
	if !catalog.IsIncrementable(kind) {
		writeError(w, r, http.StatusBadRequest, "bad_request", "unknown counter "+string(kind))
		return
	}
	s.engine.IncrementCounter(kind)
	writeJSON(w, http.StatusOK, s.engine.Summary())
}

func claimLab(w http.ResponseWriter, r *http.Request, s *userSession) {
	var req labRequest
	if !decode(w, r, &req) {
		return
	}
	inserted, err := s.engine.ClaimLab(r.Context(), req.LabID, req.LabType, req.Points)
	if err != nil {
		var re *engine.RuntimeError
		switch {
		case engine.IsLabWriteFailed(err):
			logRequestError(r, "lab claim failed", err, s.engine.UserID())
			writeError(w, r, http.StatusBadGateway, "lab_write_failed", "could not record lab completion, try again")
		case errors.As(err, &re) && re.Code == engine.ErrCodeInvalidLab:
			writeError(w, r, http.StatusBadRequest, "bad_request", re.Message)
		default:
			logRequestError(r, "lab claim failed", err, s.engine.UserID())
			writeError(w, r, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, labResponse{Inserted: inserted, Progress: s.engine.Summary()})
}

func nextNotification(w http.ResponseWriter, _ *http.Request, s *userSession) {
	a, ok := s.inbox.Next()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return false
	}
	return true
}

func headerUserID(r *http.Request) string {
	if v := r.Header.Get("X-User-ID"); v != "" {
		return v
	}
	return r.Header.Get("x-user-id")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func logRequestError(r *http.Request, message string, err error, userID string) {
	slog.Error(message,
		"user_id", userID,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
}

// requestLogger logs one line per request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
