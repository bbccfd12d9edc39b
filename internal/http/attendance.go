package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"institute/portal/internal/auth"
	"institute/portal/internal/model"
	"institute/portal/internal/operations"
)

type markRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	Status    string `json:"status" validate:"required,oneof=present absent late"`
	Remarks   string `json:"remarks" validate:"max=500"`
}

type commitRequest struct {
	ClassID   string        `json:"class_id" validate:"required,uuid"`
	SubjectID string        `json:"subject_id" validate:"required,uuid"`
	Date      string        `json:"date" validate:"required"`
	Overwrite bool          `json:"overwrite"`
	Records   []markRequest `json:"records" validate:"required,min=1,dive"`
}

func (s *Server) handleResolveSession(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	query := r.URL.Query()
	date, err := model.ParseDate(query.Get("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  operations.ErrMissingFields,
			Fields: []operations.FieldError{{Field: "date", Code: "date"}},
		})
		return
	}
	resolved, err := s.ops.ResolveSession(r.Context(), actor.UserID(), query.Get("classId"), query.Get("subjectId"), date)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (s *Server) handleCommitSession(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req commitRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  operations.ErrMissingFields,
			Fields: []operations.FieldError{{Field: "date", Code: "date"}},
		})
		return
	}
	marks := make([]operations.Mark, 0, len(req.Records))
	for _, record := range req.Records {
		marks = append(marks, operations.Mark{
			StudentID: record.StudentID,
			Status:    model.AttendanceStatus(record.Status),
			Remarks:   record.Remarks,
		})
	}
	result, err := s.ops.CommitSession(r.Context(), operations.CommitInput{
		TeacherID: actor.UserID(),
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		Date:      date,
		Marks:     marks,
		Overwrite: req.Overwrite,
	})
	attendanceCommits.WithLabelValues(outcome(err, "saved")).Inc()
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStudentProgress(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	studentID := chi.URLParam(r, "studentId")
	if _, isStudent := actor.(auth.Student); isStudent && actor.UserID() != studentID {
		writeError(w, http.StatusForbidden, operations.ErrForbidden)
		return
	}
	summary, err := s.ops.StudentProgress(r.Context(), studentID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
