package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"institute/portal/internal/operations"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	sessionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_session_conflicts_total",
		Help: "Timetable writes rejected because the slot overlaps an existing session.",
	})

	attendanceCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_attendance_commits_total",
		Help: "Attendance commits by outcome.",
	}, []string{"outcome"})

	requestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_request_transitions_total",
		Help: "Approval decisions by request kind and outcome.",
	}, []string{"kind", "outcome"})
)

// outcome labels an operation result for the counters above.
func outcome(err error, ok string) string {
	if err == nil {
		return ok
	}
	if opErr, found := operations.AsError(err); found {
		return opErr.Kind.String()
	}
	return "error"
}
