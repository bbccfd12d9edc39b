package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"institute/portal/internal/model"
	"institute/portal/internal/operations"
)

type slotRequest struct {
	ClassID   string `json:"class_id" validate:"required,uuid"`
	DayOfWeek int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime string `json:"start_time" validate:"required,len=5"`
	EndTime   string `json:"end_time" validate:"required,len=5"`
}

type createSessionRequest struct {
	slotRequest
	SubjectID string `json:"subject_id" validate:"required,uuid"`
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
}

type conflictResponse struct {
	Conflict  bool                     `json:"conflict"`
	Conflicts []model.ScheduledSession `json:"conflicts"`
}

// clocks parses the request times, writing a 400 on failure.
func (req slotRequest) clocks(w http.ResponseWriter) (model.ClockTime, model.ClockTime, bool) {
	start, err := model.ParseClock(req.StartTime)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  operations.ErrInvalidTimeRange,
			Fields: []operations.FieldError{{Field: "start_time", Code: "clock"}},
		})
		return 0, 0, false
	}
	end, err := model.ParseClock(req.EndTime)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  operations.ErrInvalidTimeRange,
			Fields: []operations.FieldError{{Field: "end_time", Code: "clock"}},
		})
		return 0, 0, false
	}
	return start, end, true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	var day model.Weekday
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, operations.ErrInvalidDay)
			return
		}
		day = model.Weekday(parsed)
	}
	sessions, err := s.ops.ListSessions(r.Context(), chi.URLParam(r, "classId"), day)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCheckConflicts(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	start, end, ok := req.clocks(w)
	if !ok {
		return
	}
	conflicts, err := s.ops.Conflicts(r.Context(), req.ClassID, model.Weekday(req.DayOfWeek), start, end)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	if conflicts == nil {
		conflicts = []model.ScheduledSession{}
	}
	writeJSON(w, http.StatusOK, conflictResponse{Conflict: len(conflicts) > 0, Conflicts: conflicts})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	start, end, ok := req.clocks(w)
	if !ok {
		return
	}
	session, err := s.ops.CreateSession(r.Context(), operations.SessionInput{
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		Day:       model.Weekday(req.DayOfWeek),
		Start:     start,
		End:       end,
	})
	if operations.IsKind(err, operations.KindConflict) {
		sessionConflicts.Inc()
	}
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}
