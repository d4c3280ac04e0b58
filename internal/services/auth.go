package services

import (
	"context"
	"errors"
	"time"

	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is the server-side record backing an issued token pair. It lives
// in a keyed store with its own expiry; revoking the session invalidates
// the tokens regardless of their embedded lifetime.
type Session struct {
	ID        string             `json:"id"`
	UserID    primitive.ObjectID `json:"user_id"`
	Email     string             `json:"email"`
	Role      string             `json:"role"`
	CreatedAt time.Time          `json:"created_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// SessionStore persists sessions with a TTL
type SessionStore interface {
	Save(ctx context.Context, session *Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the issued tokens and user
type LoginResult struct {
	Tokens *pkg.TokenPair `json:"tokens"`
	User   *models.User   `json:"user"`
}

// AuthService is the authentication collaborator: it verifies credentials,
// mints token pairs and tracks live sessions.
type AuthService struct {
	userRepo   repository.UserRepository
	sessions   SessionStore
	jwtManager *pkg.JWTManager
	sessionTTL time.Duration
	logger     *pkg.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository, sessions SessionStore, jwtManager *pkg.JWTManager, sessionTTL time.Duration, logger *pkg.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		sessions:   sessions,
		jwtManager: jwtManager,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Login verifies credentials and issues a token pair bound to a new session
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	if err := pkg.DefaultValidator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pkg.ErrUserNotFound) {
			return nil, pkg.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Status == models.StatusSuspended {
		return nil, pkg.ErrAccountSuspended
	}

	if !pkg.VerifyPassword(req.Password, user.Password) {
		return nil, pkg.ErrInvalidCredentials
	}

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, session, s.sessionTTL); err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email, string(user.Role), session.ID)
	if err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	now := time.Now()
	if err := s.userRepo.Update(ctx, user.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		s.logger.Warn("failed to record login time", map[string]interface{}{
			"user_id": user.ID.Hex(),
			"error":   err.Error(),
		})
	}

	s.logger.Info("user logged in", map[string]interface{}{
		"user_id":    user.ID.Hex(),
		"session_id": session.ID,
	})

	return &LoginResult{Tokens: tokens, User: user}, nil
}

// Logout revokes the session behind a token
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return pkg.ErrInternalServer.WithCause(err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair, provided its session
// is still alive
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*pkg.TokenPair, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, pkg.ErrInvalidToken.WithCause(err)
	}
	if claims.TokenType != pkg.TokenTypeRefresh {
		return nil, pkg.ErrInvalidToken
	}

	if _, err := s.sessions.Get(ctx, claims.SessionID); err != nil {
		return nil, pkg.ErrSessionNotFound
	}

	tokens, err := s.jwtManager.RefreshToken(refreshToken)
	if err != nil {
		return nil, pkg.ErrInvalidToken.WithCause(err)
	}
	return tokens, nil
}

// ValidateAccess checks an access token and confirms its session exists
func (s *AuthService) ValidateAccess(ctx context.Context, token string) (*pkg.TokenClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		if appErr, ok := pkg.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, pkg.ErrInvalidToken.WithCause(err)
	}
	if claims.TokenType != pkg.TokenTypeAccess {
		return nil, pkg.ErrInvalidToken
	}

	if _, err := s.sessions.Get(ctx, claims.SessionID); err != nil {
		return nil, pkg.ErrSessionNotFound
	}

	return claims, nil
}

// GetUser loads the user behind validated claims
func (s *AuthService) GetUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}
