package router

import (
	"net/http"

	"studygroup/internal/auth"
	"studygroup/internal/config"
	"studygroup/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/golang/glog"
)

type authHandlers struct {
	auth *auth.Service
}

func AuthRoutes(authService *auth.Service) *chi.Mux {
	h := &authHandlers{auth: authService}
	router := chi.NewRouter()

	// Auth routes that require a session
	router.Route("/", func(r chi.Router) {
		r.Use(authService.RequireAuth(config.Config.SessionCookieName, false))

		// Information about the current user
		r.Get("/me", h.getMeHandler)
		r.Post("/signout", h.signOutHandler)
	})

	// Account creation and recovery. No auth middlewares required.
	router.Post("/signup", h.signUpHandler)
	router.Post("/session", h.createSessionHandler)
	router.Post("/resetPassword", h.resetPasswordHandler)
	router.Post("/resendVerification", h.resendVerificationHandler)

	return router
}

// GET: /me
func (h *authHandlers) getMeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := auth.IdentityFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	fresh, err := h.auth.RefreshIdentity(r.Context(), user)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, fresh)
}

// POST: /signup
func (h *authHandlers) signUpHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	user, err := h.auth.SignUp(r.Context(), &req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, user)
}

// POST: /session
func (h *authHandlers) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	// Create the session cookie. This will also verify the ID token in the process.
	user, cookie, err := h.auth.SignIn(r.Context(), req.Token)
	if err != nil {
		renderError(w, r, err)
		return
	}

	setSessionCookie(w, cookie, int(h.auth.SessionExpiration.Seconds()))
	render.JSON(w, r, user)
}

// POST: /signout
func (h *authHandlers) signOutHandler(w http.ResponseWriter, r *http.Request) {
	user, err := auth.IdentityFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	// The cookie is cleared even when revoking fails; the session then simply expires.
	if err := h.auth.SignOut(r.Context(), user); err != nil {
		glog.Warningf("error signing out %v: %v\n", user.ID, err)
	}

	setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("success"))
}

// POST: /resetPassword
func (h *authHandlers) resetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("success"))
}

// POST: /resendVerification
func (h *authHandlers) resendVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	user, err := h.auth.IdentityFromToken(r.Context(), req.Token)
	if err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.auth.ResendVerification(r.Context(), user); err != nil {
		renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("success"))
}

func setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	var sameSite http.SameSite
	if config.Config.IsHTTPS {
		sameSite = http.SameSiteNoneMode
	} else {
		sameSite = http.SameSiteLaxMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.Config.SessionCookieName,
		Value:    value,
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: sameSite,
		Secure:   config.Config.IsHTTPS,
		Path:     "/",
	})
}
