package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/logging"
	clockport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/userrepo"
)

// Service manages lightweight token accounts. There are no passwords: registering with a
// known email signs the caller back into that account.
type Service struct {
	repo   userrepo.Repository
	clk    clockport.Clock
	logger *logging.Logger

	newUserID func() domain.UserID
	newToken  func() (string, error)
}

func NewService(repo userrepo.Repository, clk clockport.Clock, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Service{
		repo:   repo,
		clk:    clk,
		logger: logger,
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.Must(uuid.NewV7()).String())
		},
		newToken: newOpaqueToken,
	}
}

// SetNewUserIDForTest overrides user ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewUserIDForTest(fn func() domain.UserID) {
	if fn != nil {
		s.newUserID = fn
	}
}

// Register creates an account, or returns the existing account registered under the same
// email. The returned user carries the token to set in the auth cookie.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	name := domain.NormalizeHumanName(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" {
		return domain.User{}, errValidation("Name and email are required", nil)
	}
	if err := validateEmail(email); err != nil {
		return domain.User{}, errValidation("Invalid email address", map[string]any{"email": err.Error()})
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Debugw("register matched existing account", "userId", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, userrepo.ErrNotFound) {
		return domain.User{}, err
	}

	token, err := s.newToken()
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		ID:        s.newUserID(),
		Name:      name,
		Email:     email,
		Token:     token,
		CreatedAt: s.clk.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			// Lost a race with a concurrent registration for the same email.
			return s.repo.GetByEmail(ctx, email)
		}
		return domain.User{}, err
	}
	s.logger.Infow("user registered", "userId", u.ID)
	return u, nil
}

// Recover signs a user back in by email.
func (s *Service) Recover(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, errValidation("Email is required", nil)
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, &Error{Status: 404, Code: "NOT_FOUND", Message: "No account found with this email"}
		}
		return domain.User{}, err
	}
	return u, nil
}

// Authenticate resolves a bearer token to its user. Unknown or empty tokens are Unauthenticated.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, errUnauthenticated()
	}
	u, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, errUnauthenticated()
		}
		return domain.User{}, err
	}
	return u, nil
}

// Get returns the caller's own account.
func (s *Service) Get(ctx context.Context, caller domain.UserID) (domain.User, error) {
	if caller == "" {
		return domain.User{}, errUnauthenticated()
	}
	u, err := s.repo.GetByID(ctx, caller)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, errUnauthenticated()
		}
		return domain.User{}, err
	}
	return u, nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func newOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
