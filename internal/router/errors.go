package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"studygroup/internal/qerrors"

	"github.com/go-chi/render"
	"github.com/golang/glog"
)

// statusFor maps an error returned by the repository or the auth service to an HTTP status.
func statusFor(err error) int {
	var ve *qerrors.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, qerrors.InvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, qerrors.UnauthenticatedError):
		return http.StatusUnauthorized
	case errors.Is(err, qerrors.ForbiddenError),
		errors.Is(err, qerrors.EmailNotVerifiedError),
		errors.Is(err, qerrors.InvalidEmailError):
		return http.StatusForbidden
	case errors.Is(err, qerrors.MeetingNotFoundError),
		errors.Is(err, qerrors.UserNotFoundError):
		return http.StatusNotFound
	case errors.Is(err, qerrors.AlreadyMemberError),
		errors.Is(err, qerrors.MeetingFullError),
		errors.Is(err, qerrors.EmailExistsError):
		return http.StatusConflict
	case errors.Is(err, qerrors.RemoteUnavailableErr),
		errors.Is(err, qerrors.TooMuchContention):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// renderError writes err as a JSON {"message": ...} body. Infrastructure failures are logged and replaced with a
// generic message.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()

	switch status {
	case http.StatusServiceUnavailable:
		glog.Warningf("%v %v: %v\n", r.Method, r.URL.Path, err)
		message = qerrors.RemoteUnavailableErr.Error()
	case http.StatusInternalServerError:
		glog.Errorf("%v %v: %v\n", r.Method, r.URL.Path, err)
		message = "internal server error"
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": message})
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		glog.Warningln(err)
		return qerrors.InvalidBody
	}
	return nil
}
