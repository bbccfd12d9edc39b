package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"institute/portal/internal/auth"
	"institute/portal/internal/model"
	"institute/portal/internal/operations"
)

type enrollmentRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}

type paymentRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Reference string `json:"reference" validate:"required,max=128"`
}

type decisionRequest struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}

func (s *Server) handleRequestEnrollment(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req enrollmentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	created, err := s.ops.RequestEnrollment(r.Context(), actor.UserID(), req.CourseID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req paymentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	created, err := s.ops.SubmitPayment(r.Context(), actor.UserID(), req.Amount, req.Reference)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListRequests(kind model.RequestKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := model.RequestStatus(r.URL.Query().Get("status"))
		reqs, err := s.ops.ListRequests(r.Context(), kind, status)
		if err != nil {
			s.writeOpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reqs)
	}
}

// handleGetRequest serves admins any request and students their own.
func (s *Server) handleGetRequest(kind model.RequestKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromContext(r.Context())
		if _, isTeacher := actor.(auth.Teacher); isTeacher {
			writeError(w, http.StatusForbidden, operations.ErrForbidden)
			return
		}
		req, err := s.ops.GetRequest(r.Context(), kind, chi.URLParam(r, "requestId"))
		if err != nil {
			s.writeOpError(w, r, err)
			return
		}
		if _, isStudent := actor.(auth.Student); isStudent && req.StudentID != actor.UserID() {
			writeError(w, http.StatusNotFound, operations.ErrRequestNotFound)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}

func (s *Server) handleApprove(kind model.RequestKind) http.HandlerFunc {
	return s.handleDecision(kind, "approved", s.ops.Approve)
}

func (s *Server) handleReject(kind model.RequestKind) http.HandlerFunc {
	return s.handleDecision(kind, "rejected", s.ops.Reject)
}

type decideFunc func(ctx context.Context, kind model.RequestKind, requestID, actorID, remarks string) (model.Request, error)

func (s *Server) handleDecision(kind model.RequestKind, label string, decide decideFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromContext(r.Context())
		var req decisionRequest
		if r.ContentLength != 0 {
			if !s.decodeAndValidate(w, r, &req) {
				return
			}
		}
		updated, err := decide(r.Context(), kind, chi.URLParam(r, "requestId"), actor.UserID(), req.Remarks)
		requestTransitions.WithLabelValues(string(kind), outcome(err, label)).Inc()
		if err != nil {
			s.writeOpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}
