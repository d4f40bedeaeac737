package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/logging"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/models"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/mykafka"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/oauth"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/repo"
	"github.com/Radhikamangroliya/todo-timeline-api/pkg/tokens"
)

const (
	accessTokenTTL  = 60 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour

	// upstreamTimeout bounds calls to the identity provider so a hanging
	// Google endpoint cannot pin request handlers.
	upstreamTimeout = 10 * time.Second
)

type AuthService struct {
	Provider oauth.Provider
	Repo     *repo.GormRepo
	Producer *mykafka.Producer

	Secret   []byte
	Issuer   string
	Audience string

	// Now is swapped out in tests to simulate expiry.
	Now func() time.Time
}

type AuthResult struct {
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
	User         *models.User
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// LoginURL returns the provider's authorization URL.
func (s *AuthService) LoginURL() string {
	return s.Provider.AuthCodeURL("")
}

// LoginWithCode completes the redirect flow: exchange the authorization
// code, upsert the user, mint session tokens.
func (s *AuthService) LoginWithCode(ctx context.Context, code string) (*AuthResult, error) {
	exCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	claims, err := s.Provider.Exchange(exCtx, code)
	if err != nil {
		return nil, err
	}
	return s.completeLogin(ctx, claims)
}

// LoginWithIDToken completes the direct flow where the frontend obtained
// the ID token itself.
func (s *AuthService) LoginWithIDToken(ctx context.Context, rawIDToken string) (*AuthResult, error) {
	exCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	claims, err := s.Provider.VerifyIDToken(exCtx, rawIDToken)
	if err != nil {
		return nil, err
	}
	return s.completeLogin(ctx, claims)
}

func (s *AuthService) completeLogin(ctx context.Context, claims *oauth.Claims) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "provider", claims.Provider)

	user, created, err := s.Repo.FindOrCreateUser(ctx, claims.Provider, claims.Subject, claims.Email, claims.Name, claims.Picture)
	if err != nil {
		l.Error("login_failed", "reason", "user upsert failed", "error", err)
		return nil, fmt.Errorf("user upsert: %w", err)
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		l.Error("login_failed", "reason", "token issuance failed", "error", err)
		return nil, err
	}

	eventType := "user_logged_in"
	if created {
		eventType = "user_registered"
	}
	s.publish(ctx, eventType, user)

	l.Info("login_successful", "user_id", user.ID, "new_user", created)
	return result, nil
}

// Refresh rotates the presented refresh token and mints a new session
// token for its owner.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	newRefresh, err := tokens.NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	userID, err := s.Repo.RotateRefreshToken(ctx, refreshToken, newRefresh, s.now().Add(refreshTokenTTL))
	if err != nil {
		return nil, err
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(accessTokenTTL)
	access, err := s.mintAccessToken(user, expiresAt)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:        access,
		RefreshToken: newRefresh,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

// Logout revokes the presented refresh token. The access token is left to
// expire on its own; there is no denylist.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.Repo.RevokeRefreshToken(ctx, refreshToken)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*AuthResult, error) {
	expiresAt := s.now().Add(accessTokenTTL)
	access, err := s.mintAccessToken(user, expiresAt)
	if err != nil {
		return nil, err
	}

	refresh, err := tokens.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, refresh, user.ID, s.now().Add(refreshTokenTTL)); err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

func (s *AuthService) mintAccessToken(user *models.User, expiresAt time.Time) (string, error) {
	claims := tokens.AccessClaims{
		UserID:   strconv.FormatUint(uint64(user.ID), 10),
		Email:    user.Email,
		Name:     user.DisplayName,
		Provider: user.OAuthProvider,
	}
	return tokens.NewAccessToken(claims, s.Secret, s.Issuer, s.Audience, expiresAt)
}

func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	event := map[string]interface{}{
		"type":     eventType,
		"user_id":  user.ID,
		"email":    user.Email,
		"provider": user.OAuthProvider,
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, "user_events", strconv.FormatUint(uint64(user.ID), 10), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
