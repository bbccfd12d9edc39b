package http

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"institute/portal/internal/auth"
	"institute/portal/internal/config"
	"institute/portal/internal/model"
	"institute/portal/internal/operations"
)

type Server struct {
	cfg      config.Config
	ops      *operations.Service
	log      *zap.Logger
	validate *validator.Validate
}

func NewServer(cfg config.Config, ops *operations.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{
		cfg:      cfg,
		ops:      ops,
		log:      log,
		validate: validate,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	admin := s.requireRole(model.RoleAdmin)
	teacher := s.requireRole(model.RoleTeacher)
	student := s.requireRole(model.RoleStudent)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/timetable/classes/{classId}/sessions", s.handleListSessions)
		r.With(admin).Post("/timetable/conflicts", s.handleCheckConflicts)
		r.With(admin).Post("/timetable/sessions", s.handleCreateSession)

		r.With(teacher).Get("/attendance/sessions", s.handleResolveSession)
		r.With(teacher).Put("/attendance/sessions", s.handleCommitSession)
		r.Get("/students/{studentId}/progress", s.handleStudentProgress)

		r.With(student).Post("/enrollments", s.handleRequestEnrollment)
		r.With(student).Post("/payments", s.handleSubmitPayment)
		for _, kind := range []model.RequestKind{model.RequestEnrollment, model.RequestPayment} {
			base := "/" + string(kind) + "s"
			r.With(admin).Get(base, s.handleListRequests(kind))
			r.Get(base+"/{requestId}", s.handleGetRequest(kind))
			r.With(admin).Post(base+"/{requestId}/approve", s.handleApprove(kind))
			r.With(admin).Post(base+"/{requestId}/reject", s.handleReject(kind))
		}

		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/{notificationId}/read", s.handleMarkNotificationRead)
	})

	return r
}

// Auth

type actorKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		actor, err := auth.ActorFromClaims(claims)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFromContext(ctx context.Context) auth.Actor {
	actor, _ := ctx.Value(actorKey{}).(auth.Actor)
	return actor
}

func (s *Server) requireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := actorFromContext(r.Context())
			if actor == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			if actor.Role() != role {
				writeError(w, http.StatusForbidden, operations.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		s.log.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(started)))
	})
}

// Responses

type errorResponse struct {
	Error     string                   `json:"error"`
	Message   string                   `json:"message,omitempty"`
	Fields    []operations.FieldError  `json:"fields,omitempty"`
	Conflicts []model.ScheduledSession `json:"conflicts,omitempty"`
}

func statusFor(kind operations.Kind) int {
	switch kind {
	case operations.KindValidation:
		return http.StatusBadRequest
	case operations.KindForbidden:
		return http.StatusForbidden
	case operations.KindNotFound:
		return http.StatusNotFound
	case operations.KindConflict, operations.KindInvalidTransition:
		return http.StatusConflict
	case operations.KindConfirmationRequired:
		return http.StatusPreconditionRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeOpError renders an operations error. Persistence causes are logged
// and replaced by the error's generic message.
func (s *Server) writeOpError(w http.ResponseWriter, r *http.Request, err error) {
	opErr, ok := operations.AsError(err)
	if !ok {
		s.log.Error("unexpected error", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, operations.ErrServerError)
		return
	}
	if opErr.Kind == operations.KindPersistence {
		s.log.Error("persistence error",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(opErr.Err))
	}
	writeJSON(w, statusFor(opErr.Kind), errorResponse{
		Error:     opErr.Code,
		Message:   opErr.Message,
		Fields:    opErr.Fields,
		Conflicts: opErr.Conflicts,
	})
}

// decodeAndValidate reads a JSON body into out and runs its validate tags.
// It writes the 400 response itself and reports false on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := decodeJSON(r, out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return false
		}
		fields := make([]operations.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, operations.FieldError{Field: fe.Field(), Code: fe.Tag()})
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   operations.ErrMissingFields,
			Message: "request is missing or has invalid fields",
			Fields:  fields,
		})
		return false
	}
	return true
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
