package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"institute/portal/internal/auth"
	"institute/portal/internal/config"
	"institute/portal/internal/db/inmem"
	"institute/portal/internal/model"
	"institute/portal/internal/operations"
)

const (
	adminID   = "22222222-2222-2222-2222-222222222221"
	teacherID = "22222222-2222-2222-2222-222222222222"
	studentID = "22222222-2222-2222-2222-222222222223"
	otherID   = "22222222-2222-2222-2222-222222222224"
	classID   = "33333333-3333-3333-3333-333333333331"
	subjectID = "44444444-4444-4444-4444-444444444441"
	courseID  = "55555555-5555-5555-5555-555555555551"
)

type testApp struct {
	url     string
	admin   string
	teacher string
	student string
	other   string
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	cfg := config.Config{
		JWTSecret: "test-secret",
		JWTIssuer: "test-issuer",
	}
	store := inmem.New()
	store.AddStudent(model.Student{ID: studentID, ClassID: classID, Name: "Asha", RollNo: "01"})
	store.AddStudent(model.Student{ID: otherID, ClassID: classID, Name: "Bilal", RollNo: "02"})
	store.AssignTeacher(teacherID, classID, subjectID)
	store.AddCourse(courseID)

	ops := operations.NewService(store, operations.Options{
		Now: func() time.Time { return time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC) },
	})
	app := httptest.NewServer(NewServer(cfg, ops, nil).Router())
	t.Cleanup(app.Close)

	return testApp{
		url:     app.URL,
		admin:   mustToken(t, cfg.JWTSecret, cfg.JWTIssuer, adminID, "admin"),
		teacher: mustToken(t, cfg.JWTSecret, cfg.JWTIssuer, teacherID, "teacher"),
		student: mustToken(t, cfg.JWTSecret, cfg.JWTIssuer, studentID, "student"),
		other:   mustToken(t, cfg.JWTSecret, cfg.JWTIssuer, otherID, "student"),
	}
}

func TestTimetableScenario(t *testing.T) {
	app := newTestApp(t)
	slot := func(start, end string) map[string]any {
		return map[string]any{
			"class_id":    classID,
			"subject_id":  subjectID,
			"teacher_id":  teacherID,
			"day_of_week": 1,
			"start_time":  start,
			"end_time":    end,
		}
	}

	resp := doReq(t, http.MethodPost, app.url+"/timetable/sessions", app.admin, slot("09:00", "10:30"))
	expectStatus(t, resp, http.StatusCreated)

	check := map[string]any{"class_id": classID, "day_of_week": 1, "start_time": "10:00", "end_time": "11:00"}
	resp = doReq(t, http.MethodPost, app.url+"/timetable/conflicts", app.admin, check)
	expectStatus(t, resp, http.StatusOK)
	var conflicts conflictResponse
	decodeBody(t, resp, &conflicts)
	if !conflicts.Conflict || len(conflicts.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", conflicts)
	}

	resp = doReq(t, http.MethodPost, app.url+"/timetable/sessions", app.admin, slot("10:00", "11:00"))
	expectStatus(t, resp, http.StatusConflict)
	var clash errorResponse
	decodeBody(t, resp, &clash)
	if clash.Error != operations.ErrSessionConflict || clash.Message != "class already has a session on monday at 09:00-10:30" {
		t.Fatalf("unexpected conflict body %+v", clash)
	}

	resp = doReq(t, http.MethodPost, app.url+"/timetable/sessions", app.admin, slot("10:30", "12:00"))
	expectStatus(t, resp, http.StatusCreated)

	resp = doReq(t, http.MethodPost, app.url+"/timetable/sessions", app.admin, slot("12:00", "11:00"))
	expectStatus(t, resp, http.StatusBadRequest)

	resp = doReq(t, http.MethodPost, app.url+"/timetable/sessions", app.teacher, slot("13:00", "14:00"))
	expectStatus(t, resp, http.StatusForbidden)

	resp = doReq(t, http.MethodGet, app.url+"/timetable/classes/"+classID+"/sessions?day=1", app.student, nil)
	expectStatus(t, resp, http.StatusOK)
	var sessions []model.ScheduledSession
	decodeBody(t, resp, &sessions)
	if len(sessions) != 2 || sessions[1].Start.String() != "10:30" {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
}

func TestAttendanceScenario(t *testing.T) {
	app := newTestApp(t)
	sheetURL := app.url + "/attendance/sessions?classId=" + classID + "&subjectId=" + subjectID + "&date=2024-03-11"

	resp := doReq(t, http.MethodGet, sheetURL, app.teacher, nil)
	expectStatus(t, resp, http.StatusOK)
	var sheet operations.ResolvedSession
	decodeBody(t, resp, &sheet)
	if sheet.Existing || len(sheet.Students) != 2 || !sheet.Students[0].Present {
		t.Fatalf("unexpected sheet %+v", sheet)
	}

	commit := map[string]any{
		"class_id":   classID,
		"subject_id": subjectID,
		"date":       "2024-03-11",
		"records": []map[string]any{
			{"student_id": studentID, "status": "absent"},
			{"student_id": otherID, "status": "present"},
		},
	}
	resp = doReq(t, http.MethodPut, app.url+"/attendance/sessions", app.teacher, commit)
	expectStatus(t, resp, http.StatusOK)

	resp = doReq(t, http.MethodPut, app.url+"/attendance/sessions", app.teacher, commit)
	expectStatus(t, resp, http.StatusPreconditionRequired)

	commit["overwrite"] = true
	resp = doReq(t, http.MethodPut, app.url+"/attendance/sessions", app.teacher, commit)
	expectStatus(t, resp, http.StatusOK)
	var result operations.CommitResult
	decodeBody(t, resp, &result)
	if result.Replaced != 2 || result.Saved != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	commit["date"] = "2024-03-14"
	resp = doReq(t, http.MethodPut, app.url+"/attendance/sessions", app.teacher, commit)
	expectStatus(t, resp, http.StatusBadRequest)
	var future errorResponse
	decodeBody(t, resp, &future)
	if future.Error != operations.ErrFutureDate {
		t.Fatalf("expected future_date, got %+v", future)
	}

	commit["date"] = "2024-03-11"
	commit["records"] = []map[string]any{{"student_id": studentID, "status": "excused"}}
	resp = doReq(t, http.MethodPut, app.url+"/attendance/sessions", app.teacher, commit)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = doReq(t, http.MethodGet, sheetURL, app.student, nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = doReq(t, http.MethodGet, app.url+"/students/"+studentID+"/progress", app.student, nil)
	expectStatus(t, resp, http.StatusOK)
	var progress operations.ProgressSummary
	decodeBody(t, resp, &progress)
	if progress.Total != 1 || progress.Absent != 1 || progress.Percent != 0 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	resp = doReq(t, http.MethodGet, app.url+"/students/"+studentID+"/progress", app.other, nil)
	expectStatus(t, resp, http.StatusForbidden)
	resp = doReq(t, http.MethodGet, app.url+"/students/"+studentID+"/progress", app.teacher, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = doReq(t, http.MethodGet, app.url+"/notifications", app.student, nil)
	expectStatus(t, resp, http.StatusOK)
	var notes []model.Notification
	decodeBody(t, resp, &notes)
	if len(notes) != 2 || notes[0].Title != "Marked absent" {
		t.Fatalf("unexpected notifications %+v", notes)
	}

	resp = doReq(t, http.MethodPost, app.url+"/notifications/"+notes[0].ID+"/read", app.other, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp = doReq(t, http.MethodPost, app.url+"/notifications/"+notes[0].ID+"/read", app.student, nil)
	expectStatus(t, resp, http.StatusNoContent)
}

func TestApprovalScenario(t *testing.T) {
	app := newTestApp(t)

	resp := doReq(t, http.MethodPost, app.url+"/enrollments", app.student, map[string]any{"course_id": courseID})
	expectStatus(t, resp, http.StatusCreated)
	var enrollment model.Request
	decodeBody(t, resp, &enrollment)

	resp = doReq(t, http.MethodPost, app.url+"/enrollments", app.student, map[string]any{"course_id": courseID})
	expectStatus(t, resp, http.StatusConflict)

	resp = doReq(t, http.MethodGet, app.url+"/enrollments?status=pending", app.admin, nil)
	expectStatus(t, resp, http.StatusOK)
	var pending []model.Request
	decodeBody(t, resp, &pending)
	if len(pending) != 1 || pending[0].ID != enrollment.ID {
		t.Fatalf("unexpected pending list %+v", pending)
	}

	resp = doReq(t, http.MethodGet, app.url+"/enrollments/"+enrollment.ID, app.other, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp = doReq(t, http.MethodGet, app.url+"/enrollments/"+enrollment.ID, app.student, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = doReq(t, http.MethodPost, app.url+"/enrollments/"+enrollment.ID+"/approve", app.student, nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = doReq(t, http.MethodPost, app.url+"/enrollments/"+enrollment.ID+"/approve", app.admin, nil)
	expectStatus(t, resp, http.StatusOK)
	var approved model.Request
	decodeBody(t, resp, &approved)
	if approved.Status != model.StatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}

	resp = doReq(t, http.MethodPost, app.url+"/enrollments/"+enrollment.ID+"/reject", app.admin, map[string]any{"remarks": "late"})
	expectStatus(t, resp, http.StatusConflict)

	resp = doReq(t, http.MethodPost, app.url+"/payments", app.student, map[string]any{"amount": 0, "reference": "TXN-1"})
	expectStatus(t, resp, http.StatusBadRequest)
	resp = doReq(t, http.MethodPost, app.url+"/payments", app.student, map[string]any{"amount": 2500, "reference": "TXN-1"})
	expectStatus(t, resp, http.StatusCreated)
	var payment model.Request
	decodeBody(t, resp, &payment)

	resp = doReq(t, http.MethodPost, app.url+"/payments/"+payment.ID+"/reject", app.admin, map[string]any{"remarks": " "})
	expectStatus(t, resp, http.StatusBadRequest)
	var missing errorResponse
	decodeBody(t, resp, &missing)
	if missing.Error != operations.ErrRemarksRequired {
		t.Fatalf("expected remarks_required, got %+v", missing)
	}

	resp = doReq(t, http.MethodPost, app.url+"/payments/"+payment.ID+"/approve", app.admin, nil)
	expectStatus(t, resp, http.StatusOK)
	var completed model.Request
	decodeBody(t, resp, &completed)
	if completed.Status != model.StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}

	resp = doReq(t, http.MethodPost, app.url+"/payments/"+enrollment.ID+"/approve", app.admin, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestAuthRejectsUnknownRoles(t *testing.T) {
	app := newTestApp(t)
	devToken := mustToken(t, "test-secret", "test-issuer", adminID, "dev")

	cases := map[string]string{
		"missing":      "",
		"unknown role": devToken,
		"bad issuer":   mustToken(t, "test-secret", "other", adminID, "admin"),
	}
	for name, token := range cases {
		resp := doReq(t, http.MethodGet, app.url+"/notifications", token, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := doReq(t, http.MethodGet, app.url+"/health", "", nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func mustToken(t *testing.T, secret, issuer, userID, userType string) string {
	t.Helper()
	token, err := auth.NewAccessToken(secret, issuer, 10*time.Minute, auth.Claims{
		UserID:   userID,
		UserType: userType,
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func doReq(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		var body bytes.Buffer
		_, _ = body.ReadFrom(resp.Body)
		resp.Body.Close()
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, status, resp.StatusCode, body.String())
	}
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
}
