package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	notes, err := s.ops.ListNotifications(r.Context(), actor.Role(), actor.UserID(), parseLimit(r, 50))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if err := s.ops.MarkNotificationRead(r.Context(), chi.URLParam(r, "notificationId"), actor.Role(), actor.UserID()); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
