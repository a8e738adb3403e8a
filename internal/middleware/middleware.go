package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type contextKey string

const meetingIDKey contextKey = "meetingID"

// MeetingCtx reads the {meetingID} URL parameter into the request context. Requests without one are rejected.
func MeetingCtx() func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meetingID := strings.TrimSpace(chi.URLParam(r, "meetingID"))
			if meetingID == "" {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"message": "meeting not found"})
				return
			}

			ctx := context.WithValue(r.Context(), meetingIDKey, meetingID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MeetingIDFromRequest returns the meeting ID stored by MeetingCtx, or "" when there is none.
func MeetingIDFromRequest(r *http.Request) string {
	meetingID, _ := r.Context().Value(meetingIDKey).(string)
	return meetingID
}
