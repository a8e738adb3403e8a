// Package auth is the single point where identity-provider session state becomes the *models.Identity that handlers
// pass to the meeting repository.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studygroup/internal/models"
	"studygroup/internal/notify"
	"studygroup/internal/qerrors"

	"github.com/golang/glog"
)

// Service implements the account workflow on top of a Provider.
type Service struct {
	provider Provider
	mailer   notify.AccountMailer

	// AllowedDomains are the e-mail domains accounts may use. A domain also admits its subdomains.
	AllowedDomains []string
	// SessionExpiration is the lifetime of the session cookies minted by SignIn.
	SessionExpiration time.Duration
}

func NewService(provider Provider, mailer notify.AccountMailer, allowedDomains []string, sessionExpiration time.Duration) *Service {
	return &Service{
		provider:          provider,
		mailer:            mailer,
		AllowedDomains:    allowedDomains,
		SessionExpiration: sessionExpiration,
	}
}

// SignUp creates an account and sends the verification e-mail. The returned identity is unverified.
func (s *Service) SignUp(ctx context.Context, req *models.CreateUserRequest) (*models.Identity, error) {
	if err := s.checkEmail(req.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(req.Email)
	identity, err := s.provider.CreateUser(ctx, email, req.Password, strings.TrimSpace(req.DisplayName))
	if err != nil {
		return nil, err
	}

	// The account exists at this point; a failed e-mail can be retried through ResendVerification.
	if err := s.sendVerification(ctx, identity.Email); err != nil {
		glog.Warningf("error sending verification email to %s: %v", identity.Email, err)
	}

	return identity, nil
}

// SignIn exchanges an ID token for a session cookie value. Accounts outside the domain policy are rejected, and
// accounts with an unverified e-mail have their sessions revoked before EmailNotVerifiedError is returned.
func (s *Service) SignIn(ctx context.Context, idToken string) (*models.Identity, string, error) {
	identity, err := s.IdentityFromToken(ctx, idToken)
	if err != nil {
		return nil, "", err
	}

	if err := s.checkEmail(identity.Email); err != nil {
		s.revoke(ctx, identity.ID)
		return nil, "", err
	}
	if !identity.EmailVerified {
		s.revoke(ctx, identity.ID)
		return nil, "", qerrors.EmailNotVerifiedError
	}

	cookie, err := s.provider.SessionCookie(ctx, idToken, s.SessionExpiration)
	if err != nil {
		return nil, "", err
	}

	return identity, cookie, nil
}

// IdentityFromToken resolves an ID token issued by the provider into the identity it belongs to. Unlike SignIn it
// accepts unverified accounts.
func (s *Service) IdentityFromToken(ctx context.Context, idToken string) (*models.Identity, error) {
	if idToken == "" {
		return nil, qerrors.UnauthenticatedError
	}

	uid, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return s.lookup(ctx, uid)
}

// SignOut invalidates every session of the identity.
func (s *Service) SignOut(ctx context.Context, identity *models.Identity) error {
	return s.provider.RevokeRefreshTokens(ctx, identity.ID)
}

// RequestPasswordReset mails a password reset link. Unknown addresses succeed silently so the endpoint does not
// reveal which accounts exist. The domain policy is not applied; the address only has to be well formed.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	link, err := s.provider.PasswordResetLink(ctx, email)
	if errors.Is(err, qerrors.UserNotFoundError) {
		glog.Infof("password reset requested for unknown address %s", email)
		return nil
	} else if err != nil {
		return err
	}

	if res := s.mailer.SendPasswordResetEmail(ctx, email, link); !res.Success {
		return qerrors.Remote("error sending password reset email", errors.New(res.Message))
	}
	return nil
}

// ResendVerification sends the verification e-mail again. Does nothing when the e-mail is already verified.
func (s *Service) ResendVerification(ctx context.Context, identity *models.Identity) error {
	if identity.EmailVerified {
		return nil
	}
	return s.sendVerification(ctx, identity.Email)
}

// RefreshIdentity re-reads the account from the provider, picking up changes such as a newly verified e-mail.
func (s *Service) RefreshIdentity(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	fresh, err := s.provider.GetUser(ctx, identity.ID)
	if errors.Is(err, qerrors.UserNotFoundError) {
		return nil, qerrors.UnauthenticatedError
	}
	return fresh, err
}

// Authenticate resolves a session cookie value into the identity it belongs to.
func (s *Service) Authenticate(ctx context.Context, cookie string) (*models.Identity, error) {
	if cookie == "" {
		return nil, qerrors.UnauthenticatedError
	}

	uid, err := s.provider.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return nil, err
	}
	return s.lookup(ctx, uid)
}

// Helpers

// lookup fetches an account, treating missing and disabled accounts as unauthenticated.
func (s *Service) lookup(ctx context.Context, uid string) (*models.Identity, error) {
	identity, err := s.provider.GetUser(ctx, uid)
	if errors.Is(err, qerrors.UserNotFoundError) {
		return nil, qerrors.UnauthenticatedError
	} else if err != nil {
		return nil, err
	}
	if identity.Disabled {
		return nil, qerrors.UnauthenticatedError
	}
	return identity, nil
}

func (s *Service) sendVerification(ctx context.Context, email string) error {
	link, err := s.provider.EmailVerificationLink(ctx, email)
	if err != nil {
		return err
	}
	if res := s.mailer.SendVerificationEmail(ctx, email, link); !res.Success {
		return qerrors.Remote("error sending verification email", errors.New(res.Message))
	}
	return nil
}

func (s *Service) revoke(ctx context.Context, uid string) {
	if err := s.provider.RevokeRefreshTokens(ctx, uid); err != nil {
		glog.Warningf("error revoking sessions of %s: %v", uid, err)
	}
}

// checkEmail validates the address and applies the domain policy.
func (s *Service) checkEmail(email string) error {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	host := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	if !domainAllowed(host, s.AllowedDomains) {
		return qerrors.InvalidEmailError
	}
	return nil
}

// domainAllowed reports whether host is one of domains or a subdomain of one.
func domainAllowed(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func validateEmail(email string) error {
	if email == "" {
		return qerrors.Invalid("email", "must be a non-empty string")
	}
	if parts := strings.Split(email, "@"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return qerrors.Invalid("email", fmt.Sprintf("malformed email string: %q", email))
	}
	return nil
}

func validatePassword(val string) error {
	if len(val) < 6 {
		return qerrors.Invalid("password", "must be a string at least 6 characters long")
	}
	return nil
}
