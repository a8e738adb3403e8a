package auth

import (
	"context"
	"fmt"
	"time"

	"studygroup/internal/models"
	"studygroup/internal/qerrors"

	firebaseSDK "firebase.google.com/go"
	firebaseAuth "firebase.google.com/go/auth"
)

// Provider is the identity provider the Service relies on.
type Provider interface {
	// CreateUser registers a new account.
	CreateUser(ctx context.Context, email string, password string, displayName string) (*models.Identity, error)
	// GetUser returns the current state of an account.
	GetUser(ctx context.Context, id string) (*models.Identity, error)
	// VerifyIDToken checks an ID token issued to a client and returns the user ID it was issued for.
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
	// SessionCookie exchanges an ID token for a session cookie value.
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	// VerifySessionCookie checks a session cookie, including revocation, and returns its user ID.
	VerifySessionCookie(ctx context.Context, cookie string) (string, error)
	// RevokeRefreshTokens invalidates every session of the user.
	RevokeRefreshTokens(ctx context.Context, id string) error
	EmailVerificationLink(ctx context.Context, email string) (string, error)
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

// firebaseProvider authenticates users with Firebase Auth.
type firebaseProvider struct {
	authClient *firebaseAuth.Client
}

// NewFirebaseProvider creates a Provider backed by the Firebase Auth client of app.
func NewFirebaseProvider(ctx context.Context, app *firebaseSDK.App) (Provider, error) {
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("Auth client error: %v", err)
	}
	return &firebaseProvider{authClient: authClient}, nil
}

func (fp *firebaseProvider) CreateUser(ctx context.Context, email string, password string, displayName string) (*models.Identity, error) {
	u := (&firebaseAuth.UserToCreate{}).Email(email).Password(password)
	if displayName != "" {
		u = u.DisplayName(displayName)
	}

	fbUser, err := fp.authClient.CreateUser(ctx, u)
	if firebaseAuth.IsEmailAlreadyExists(err) {
		return nil, qerrors.EmailExistsError
	}
	if err != nil {
		return nil, qerrors.Remote("error creating user", err)
	}

	return fbUserToIdentity(fbUser), nil
}

func (fp *firebaseProvider) GetUser(ctx context.Context, id string) (*models.Identity, error) {
	fbUser, err := fp.authClient.GetUser(ctx, id)
	if firebaseAuth.IsUserNotFound(err) {
		return nil, qerrors.UserNotFoundError
	}
	if err != nil {
		return nil, qerrors.Remote("error getting user", err)
	}

	return fbUserToIdentity(fbUser), nil
}

func (fp *firebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := fp.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", qerrors.UnauthenticatedError, err)
	}
	return token.UID, nil
}

func (fp *firebaseProvider) SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	// This also verifies the ID token. The session cookie will have the same claims as the ID token.
	cookie, err := fp.authClient.SessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		return "", qerrors.Remote("error creating session cookie", err)
	}
	return cookie, nil
}

func (fp *firebaseProvider) VerifySessionCookie(ctx context.Context, cookie string) (string, error) {
	// Also detects whether the user's Firebase session was revoked, the user deleted/disabled, etc.
	decoded, err := fp.authClient.VerifySessionCookieAndCheckRevoked(ctx, cookie)
	if err != nil {
		return "", fmt.Errorf("%w: error verifying cookie: %v", qerrors.UnauthenticatedError, err)
	}
	return decoded.UID, nil
}

func (fp *firebaseProvider) RevokeRefreshTokens(ctx context.Context, id string) error {
	return qerrors.Remote("error revoking sessions", fp.authClient.RevokeRefreshTokens(ctx, id))
}

func (fp *firebaseProvider) EmailVerificationLink(ctx context.Context, email string) (string, error) {
	link, err := fp.authClient.EmailVerificationLink(ctx, email)
	if firebaseAuth.IsUserNotFound(err) {
		return "", qerrors.UserNotFoundError
	}
	if err != nil {
		return "", qerrors.Remote("error generating verification link", err)
	}
	return link, nil
}

func (fp *firebaseProvider) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := fp.authClient.PasswordResetLink(ctx, email)
	if firebaseAuth.IsUserNotFound(err) {
		return "", qerrors.UserNotFoundError
	}
	if err != nil {
		return "", qerrors.Remote("error generating password reset link", err)
	}
	return link, nil
}

// fbUserToIdentity converts a Firebase UserRecord into an Identity.
func fbUserToIdentity(fbUser *firebaseAuth.UserRecord) *models.Identity {
	return &models.Identity{
		ID:            fbUser.UID,
		Email:         fbUser.Email,
		DisplayName:   fbUser.DisplayName,
		EmailVerified: fbUser.EmailVerified,
		Disabled:      fbUser.Disabled,
	}
}
