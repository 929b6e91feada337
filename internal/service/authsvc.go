package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"GreenCampusServer/internal/auth"
	"GreenCampusServer/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, u domain.NewUser) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	SetLastLogin(ctx context.Context, userID string, when time.Time) error
}

type SessionsStore interface {
	CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	RevokeSession(ctx context.Context, sessionID string, when time.Time) error
}

type GoogleTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.ExternalTokenClaims, error)
}

type RegisterInput struct {
	Email       string
	StudentID   string
	DisplayName string
	Department  string
	Batch       string
	Phone       string
	Password    string
}

type AuthService struct {
	Users       UsersStore
	Sessions    SessionsStore
	Google      GoogleTokenVerifier
	SessionTTL  time.Duration
	EmailDomain string

	// Passwords sets the argon2id cost of new hashes. Zero fields use
	// auth.DefaultPasswordParams.
	Passwords auth.PasswordParams
	Now       func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Register validates the institutional identity rules, creates the user
// and opens a session.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, ip, userAgent string) (domain.User, string, error) {
	nu := domain.NewUser{
		Email:       strings.TrimSpace(strings.ToLower(in.Email)),
		StudentID:   strings.TrimSpace(in.StudentID),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Department:  strings.TrimSpace(strings.ToUpper(in.Department)),
		Batch:       strings.TrimSpace(in.Batch),
		Phone:       strings.TrimSpace(in.Phone),
	}
	if nu.Batch == "" {
		nu.Batch = domain.DefaultBatch(s.now())
	}
	if err := domain.ValidateRegistration(nu, in.Password, s.EmailDomain, s.now()); err != nil {
		return domain.User{}, "", err
	}

	passwordHash, err := s.Passwords.Hash(in.Password)
	if err != nil {
		return domain.User{}, "", err
	}
	nu.PasswordHash = passwordHash

	u, err := s.Users.CreateUser(ctx, nu)
	if err != nil {
		return domain.User{}, "", err
	}

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, s.now().Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}

	return u, sessID, nil
}

// Login accepts a student id or an email address as login.
func (s *AuthService) Login(ctx context.Context, login, password, ip, userAgent string) (domain.User, string, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}

	u, err := s.Users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if u.Status == domain.UserStatusDisabled {
		return domain.User{}, "", domain.ErrUserDisabled
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, "", err
	}
	if !ok {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	return s.openSession(ctx, u.User, ip, userAgent)
}

// LoginWithGoogle signs in an existing account whose institutional email
// matches a verified Google ID token.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken, ip, userAgent string) (domain.User, string, error) {
	if s.Google == nil {
		return domain.User{}, "", domain.ErrForbidden
	}
	claims, err := s.Google.Verify(ctx, idToken)
	if err != nil {
		return domain.User{}, "", domain.ErrUnauthorized
	}
	if !claims.EmailVerified || !domain.EmailPattern(s.EmailDomain).MatchString(claims.Email) {
		return domain.User{}, "", domain.ErrForbidden
	}

	u, err := s.Users.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if u.Status == domain.UserStatusDisabled {
		return domain.User{}, "", domain.ErrUserDisabled
	}

	return s.openSession(ctx, u.User, ip, userAgent)
}

func (s *AuthService) openSession(ctx context.Context, u domain.User, ip, userAgent string) (domain.User, string, error) {
	sessID, err := s.Sessions.CreateSession(ctx, u.ID, s.now().Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}

	_ = s.Users.SetLastLogin(ctx, u.ID, s.now())

	return u, sessID, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.Sessions.RevokeSession(ctx, sessionID, s.now())
}

func (s *AuthService) GetUserForSession(ctx context.Context, sessionID string) (domain.User, error) {
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}

	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	if u.Status == domain.UserStatusDisabled {
		return domain.User{}, domain.ErrForbidden
	}

	return u, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.Users.GetUserByID(ctx, id)
}
