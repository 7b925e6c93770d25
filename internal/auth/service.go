package auth

import (
	"log/slog"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/user"
)

// UserDirectory is the part of the ledger the auth layer reads.
type UserDirectory interface {
	Authenticate(login, password string) (user.User, error)
	GetUser(id string) (user.User, error)
}

type Service struct {
	users  UserDirectory
	tokens TokenGenerator
	logger *slog.Logger
}

func NewService(users UserDirectory, tokens TokenGenerator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Login checks credentials and issues an access token.
func (s *Service) Login(dto LoginDTO) (LoginResponse, error) {
	if err := dto.Validate(); err != nil {
		return LoginResponse{}, err
	}

	u, err := s.users.Authenticate(dto.Login, dto.Password)
	if err != nil {
		s.logger.Warn("login rejected", "login", dto.Login, "error", err)
		return LoginResponse{}, err
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		return LoginResponse{}, internal.NewInternalError("failed to issue token", err)
	}

	s.logger.Info("user logged in", "user_id", u.ID, "role", u.Role)
	return LoginResponse{AccessToken: token, ExpiresAt: expiresAt, User: u}, nil
}

// UserForToken validates token and loads its user. A user deleted or
// deactivated after login loses access on the next request.
func (s *Service) UserForToken(token string) (user.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return user.User{}, err
	}

	u, err := s.users.GetUser(claims.UserID)
	if err != nil {
		return user.User{}, internal.ErrInvalidToken.WithCause(err)
	}
	if !u.IsUsable() {
		return user.User{}, internal.ErrUserInactive
	}
	return u, nil
}
