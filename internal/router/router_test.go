package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"studygroup/internal/auth"
	"studygroup/internal/config"
	"studygroup/internal/models"
	"studygroup/internal/notify"
	"studygroup/internal/qerrors"
	repo "studygroup/internal/repository"
	"studygroup/internal/store"

	"github.com/go-chi/chi/v5"
)

// stubProvider accepts "token:<uid>" ID tokens and "session:<uid>" cookies for the users it knows.
type stubProvider struct {
	users map[string]*models.Identity
}

func (p *stubProvider) uid(value string, prefix string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return "", qerrors.UnauthenticatedError
	}
	return strings.TrimPrefix(value, prefix), nil
}

func (p *stubProvider) CreateUser(ctx context.Context, email string, password string, displayName string) (*models.Identity, error) {
	for _, u := range p.users {
		if u.Email == email {
			return nil, qerrors.EmailExistsError
		}
	}
	u := &models.Identity{ID: fmt.Sprintf("new-%d", len(p.users)), Email: email, DisplayName: displayName}
	p.users[u.ID] = u
	return u, nil
}

func (p *stubProvider) GetUser(ctx context.Context, id string) (*models.Identity, error) {
	u, ok := p.users[id]
	if !ok {
		return nil, qerrors.UserNotFoundError
	}
	copied := *u
	return &copied, nil
}

func (p *stubProvider) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	return p.uid(idToken, "token:")
}

func (p *stubProvider) SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	uid, err := p.uid(idToken, "token:")
	return "session:" + uid, err
}

func (p *stubProvider) VerifySessionCookie(ctx context.Context, cookie string) (string, error) {
	return p.uid(cookie, "session:")
}

func (p *stubProvider) RevokeRefreshTokens(ctx context.Context, id string) error { return nil }

func (p *stubProvider) EmailVerificationLink(ctx context.Context, email string) (string, error) {
	return "https://example.test/verify", nil
}

func (p *stubProvider) PasswordResetLink(ctx context.Context, email string) (string, error) {
	return "https://example.test/reset", nil
}

type testServer struct {
	handler http.Handler
	store   *store.MemoryStore
}

func newTestServer() *testServer {
	provider := &stubProvider{users: map[string]*models.Identity{
		"ada":   {ID: "ada", Email: "ada@state.edu", DisplayName: "Ada", EmailVerified: true},
		"bob":   {ID: "bob", Email: "bob@state.edu", DisplayName: "Bob", EmailVerified: true},
		"carol": {ID: "carol", Email: "carol@state.edu", DisplayName: "Carol", EmailVerified: true},
		"erin":  {ID: "erin", Email: "erin@state.edu", DisplayName: "Erin", EmailVerified: true},
		"dan":   {ID: "dan", Email: "dan@state.edu", DisplayName: "Dan"},
	}}
	mailer := notify.NewEmailStub(0)
	authService := auth.NewService(provider, mailer, []string{"edu"}, time.Hour)

	ms := store.NewMemoryStore()
	meetings := repo.NewRepository(ms, nil)

	router := chi.NewRouter()
	router.Mount("/", HealthRoutes())
	router.Route("/v1", func(r chi.Router) {
		r.Mount("/users", AuthRoutes(authService))
		r.Mount("/meetings", MeetingRoutes(meetings, authService))
	})

	return &testServer{handler: router, store: ms}
}

func (s *testServer) do(t *testing.T, method string, path string, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("error encoding body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.AddCookie(&http.Cookie{Name: config.Config.SessionCookieName, Value: "session:" + user})
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("error decoding response %q: %v", rec.Body.String(), err)
	}
}

func (s *testServer) createMeeting(t *testing.T, user string, max int) *models.Meeting {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/meetings", user, models.CreateMeetingRequest{
		CourseID:        "CS101",
		CourseName:      "Intro to Computer Science",
		MeetingTime:     time.Now().Add(24 * time.Hour),
		Location:        "Library Room 3",
		MinParticipants: 2,
		MaxParticipants: max,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 creating meeting, got %d: %s", rec.Code, rec.Body.String())
	}
	var m models.Meeting
	decode(t, rec, &m)
	return &m
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	rec := s.do(t, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestMeetingRoutesRequireSession(t *testing.T) {
	s := newTestServer()

	if rec := s.do(t, http.MethodGet, "/v1/meetings", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without a session, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/v1/meetings", "dan", nil); rec.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for an unverified user, got %d", rec.Code)
	}
}

func TestMeetingLifecycle(t *testing.T) {
	s := newTestServer()
	m := s.createMeeting(t, "ada", 3)

	if m.CourseID != "cs101" || len(m.Participants) != 1 || m.CreatedBy.ID != "ada" {
		t.Fatalf("Unexpected meeting: %+v", m)
	}

	// Bob joins, joining twice conflicts.
	rec := s.do(t, http.MethodPost, "/v1/meetings/"+m.ID+"/join", "bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200 joining, got %d: %s", rec.Code, rec.Body.String())
	}
	var joined models.Meeting
	decode(t, rec, &joined)
	if len(joined.Participants) != 2 {
		t.Errorf("Expected 2 participants, got %d", len(joined.Participants))
	}
	if rec := s.do(t, http.MethodPost, "/v1/meetings/"+m.ID+"/join", "bob", nil); rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409 joining twice, got %d", rec.Code)
	}

	// Listing by course finds the meeting regardless of case.
	rec = s.do(t, http.MethodGet, "/v1/meetings?courseId=Cs101", "carol", nil)
	var listed []*models.Meeting
	decode(t, rec, &listed)
	if len(listed) != 1 || listed[0].ID != m.ID {
		t.Errorf("Expected to find the meeting, got %+v", listed)
	}

	rec = s.do(t, http.MethodGet, "/v1/meetings/mine", "bob", nil)
	var mine []*models.Meeting
	decode(t, rec, &mine)
	if len(mine) != 1 {
		t.Errorf("Expected bob to have 1 meeting, got %d", len(mine))
	}

	// The creator cannot leave, only delete.
	if rec := s.do(t, http.MethodPost, "/v1/meetings/"+m.ID+"/leave", "ada", nil); rec.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for the creator leaving, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/v1/meetings/"+m.ID, "bob", nil); rec.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for a participant deleting, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/v1/meetings/"+m.ID+"/leave", "bob", nil)
	var left map[string]bool
	decode(t, rec, &left)
	if rec.Code != http.StatusOK || left["deleted"] {
		t.Errorf("Expected bob to leave without deleting the meeting, got %d %v", rec.Code, left)
	}

	if rec := s.do(t, http.MethodDelete, "/v1/meetings/"+m.ID, "ada", nil); rec.Code != http.StatusOK {
		t.Errorf("Expected status 200 deleting, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/v1/meetings/"+m.ID, "ada", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after deleting, got %d", rec.Code)
	}
}

func TestJoinFullMeeting(t *testing.T) {
	s := newTestServer()
	m := s.createMeeting(t, "ada", 3)

	for _, user := range []string{"bob", "carol"} {
		if rec := s.do(t, http.MethodPost, "/v1/meetings/"+m.ID+"/join", user, nil); rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200 joining as %v, got %d", user, rec.Code)
		}
	}
	rec := s.do(t, http.MethodPost, "/v1/meetings/"+m.ID+"/join", "erin", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409 joining a full meeting, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["message"] != qerrors.MeetingFullError.Error() {
		t.Errorf("Unexpected message %q", body["message"])
	}
}

func TestCreateMeetingValidation(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/v1/meetings", "ada", models.CreateMeetingRequest{
		CourseID:        "cs101",
		MeetingTime:     time.Now().Add(-time.Hour),
		Location:        "Library",
		MinParticipants: 2,
		MaxParticipants: 4,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a past meeting, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/meetings", strings.NewReader("{not json"))
	req.AddCookie(&http.Cookie{Name: config.Config.SessionCookieName, Value: "session:ada"})
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a malformed body, got %d", rec.Code)
	}

	if n := s.store.Count(models.FirestoreMeetingsCollection); n != 0 {
		t.Errorf("Expected no meetings to be stored, got %d", n)
	}
}

func TestCourseStats(t *testing.T) {
	s := newTestServer()
	m := s.createMeeting(t, "ada", 3)
	s.do(t, http.MethodPost, "/v1/meetings/"+m.ID+"/join", "bob", nil)
	s.do(t, http.MethodPost, "/v1/meetings/"+m.ID+"/join", "carol", nil)

	rec := s.do(t, http.MethodGet, "/v1/meetings/stats?courseId=CS101", "erin", nil)
	var stats models.CourseStats
	decode(t, rec, &stats)
	if stats.NumMeetings != 1 || stats.NumFull != 1 || stats.TotalParticipants != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	if rec := s.do(t, http.MethodGet, "/v1/meetings/stats", "erin", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without a course, got %d", rec.Code)
	}
}

func TestCreateSession(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/v1/users/session", "", models.CreateSessionRequest{Token: "token:ada"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "session:ada" || !cookies[0].HttpOnly {
		t.Errorf("Unexpected session cookie: %+v", cookies)
	}

	rec = s.do(t, http.MethodPost, "/v1/users/session", "", models.CreateSessionRequest{Token: "token:dan"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for an unverified user, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Errorf("Expected no cookie for an unverified user")
	}
}

func TestSignUpAndSignOut(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/v1/users/signup", "", models.CreateUserRequest{Email: "eve@gmail.com", Password: "hunter22"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for a non edu address, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/v1/users/signup", "", models.CreateUserRequest{Email: "eve@state.edu", Password: "hunter22"})
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/v1/users/signup", "", models.CreateUserRequest{Email: "eve@state.edu", Password: "hunter22"})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for a taken address, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/v1/users/signout", "ada", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("Expected the session cookie to be cleared, got %+v", cookies)
	}
}

func TestGetMe(t *testing.T) {
	s := newTestServer()
	rec := s.do(t, http.MethodGet, "/v1/users/me", "ada", nil)
	var me models.Identity
	decode(t, rec, &me)
	if me.ID != "ada" || !me.EmailVerified {
		t.Errorf("Unexpected identity: %+v", me)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{qerrors.Invalid("location", "must be a non-empty string"), http.StatusBadRequest},
		{qerrors.InvalidBody, http.StatusBadRequest},
		{qerrors.UnauthenticatedError, http.StatusUnauthorized},
		{qerrors.CreatorCannotLeave, http.StatusForbidden},
		{qerrors.OnlyCreatorCanDelete, http.StatusForbidden},
		{qerrors.EmailNotVerifiedError, http.StatusForbidden},
		{qerrors.MeetingNotFoundError, http.StatusNotFound},
		{qerrors.AlreadyMemberError, http.StatusConflict},
		{qerrors.MeetingFullError, http.StatusConflict},
		{qerrors.Remote("error getting meeting", errors.New("deadline exceeded")), http.StatusServiceUnavailable},
		{fmt.Errorf("error getting meeting: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}
