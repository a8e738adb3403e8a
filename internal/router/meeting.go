package router

import (
	"net/http"
	"time"

	"studygroup/internal/analytics"
	"studygroup/internal/auth"
	"studygroup/internal/config"
	"studygroup/internal/middleware"
	"studygroup/internal/models"
	repo "studygroup/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type meetingHandlers struct {
	meetings *repo.Repository
}

func MeetingRoutes(meetings *repo.Repository, authService *auth.Service) *chi.Mux {
	h := &meetingHandlers{meetings: meetings}
	router := chi.NewRouter()
	router.Use(authService.RequireAuth(config.Config.SessionCookieName, false))

	// Listing and creation
	router.Get("/", h.listMeetingsHandler)
	router.Post("/", h.createMeetingHandler)
	router.Get("/mine", h.myMeetingsHandler)
	router.Get("/stats", h.courseStatsHandler)

	// Membership of a single meeting
	router.Route("/{meetingID}", func(r chi.Router) {
		r.Use(middleware.MeetingCtx())
		r.Get("/", h.getMeetingHandler)
		r.Delete("/", h.deleteMeetingHandler)
		r.Post("/join", h.joinMeetingHandler)
		r.Post("/leave", h.leaveMeetingHandler)
	})

	return router
}

// GET: /?courseId=
func (h *meetingHandlers) listMeetingsHandler(w http.ResponseWriter, r *http.Request) {
	req := &models.SearchMeetingsRequest{CourseID: r.URL.Query().Get("courseId")}

	meetings, err := h.meetings.SearchMeetings(r.Context(), req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, nonNil(meetings))
}

// POST: /
func (h *meetingHandlers) createMeetingHandler(w http.ResponseWriter, r *http.Request) {
	user, err := auth.IdentityFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req models.CreateMeetingRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	meeting, err := h.meetings.CreateMeeting(r.Context(), &req, user)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, meeting)
}

// GET: /mine
func (h *meetingHandlers) myMeetingsHandler(w http.ResponseWriter, r *http.Request) {
	user, err := auth.IdentityFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	meetings, err := h.meetings.ListMeetingsForUser(r.Context(), user)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, nonNil(meetings))
}

// GET: /stats?courseId=
func (h *meetingHandlers) courseStatsHandler(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("courseId")

	meetings, err := h.meetings.SearchMeetingsByCourse(r.Context(), courseID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, analytics.GenerateCourseStats(models.NormalizeCourseID(courseID), meetings, time.Now()))
}

// GET: /{meetingID}
func (h *meetingHandlers) getMeetingHandler(w http.ResponseWriter, r *http.Request) {
	meeting, err := h.meetings.GetMeeting(r.Context(), middleware.MeetingIDFromRequest(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, meeting)
}

// POST: /{meetingID}/join
func (h *meetingHandlers) joinMeetingHandler(w http.ResponseWriter, r *http.Request) {
	user, err := auth.IdentityFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	meeting, err := h.meetings.JoinMeeting(r.Context(), middleware.MeetingIDFromRequest(r), user)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, meeting)
}

// POST: /{meetingID}/leave
func (h *meetingHandlers) leaveMeetingHandler(w http.ResponseWriter, r *http.Request) {
	user, err := auth.IdentityFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	deleted, err := h.meetings.LeaveMeeting(r.Context(), middleware.MeetingIDFromRequest(r), user)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]bool{"deleted": deleted})
}

// DELETE: /{meetingID}
func (h *meetingHandlers) deleteMeetingHandler(w http.ResponseWriter, r *http.Request) {
	user, err := auth.IdentityFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	meetingID := middleware.MeetingIDFromRequest(r)
	if err := h.meetings.DeleteMeeting(r.Context(), meetingID, user); err != nil {
		renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Successfully deleted meeting " + meetingID))
}

// nonNil makes empty listings render as [] rather than null.
func nonNil(meetings []*models.Meeting) []*models.Meeting {
	if meetings == nil {
		return []*models.Meeting{}
	}
	return meetings
}
