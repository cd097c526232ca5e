package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dimasfh/sociagram/internal/app/repositories"
	"github.com/dimasfh/sociagram/internal/config"
	"github.com/dimasfh/sociagram/internal/domain/user"
	"github.com/dimasfh/sociagram/pkg/logger"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type AuthService struct {
	users  repositories.UserRepository
	tokens repositories.RefreshTokenRepository
	cfg    config.AuthConfig
	log    logger.Log
}

func NewAuthService(users repositories.UserRepository, tokens repositories.RefreshTokenRepository, cfg config.AuthConfig, log logger.Log) *AuthService {
	return &AuthService{users: users, tokens: tokens, cfg: cfg, log: log}
}

type RegisterInput struct {
	FullName string `json:"fullname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult carries the freshly issued token pair. The refresh token goes to
// the client as an httpOnly cookie; only its hash is persisted.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         *user.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var missing []string
	if strings.TrimSpace(in.FullName) == "" {
		missing = append(missing, "fullname")
	}
	if strings.TrimSpace(in.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, NewValidationError(missing...)
	}
	if !emailRegex.MatchString(in.Email) {
		return nil, fmt.Errorf("please provide a valid email")
	}
	if len(in.Password) < 6 {
		return nil, fmt.Errorf("please provide password - min 6")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	username := strings.TrimSpace(in.Username)
	u := &user.User{
		ID:             uuid.NewString(),
		FullName:       strings.TrimSpace(in.FullName),
		Username:       username,
		Slug:           Slugify(username),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		Password:       string(hash),
		ProfilePicture: user.DefaultProfilePicture,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Infof("registered user %s", u.Username)
	return s.issueTokens(ctx, u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(ctx, u)
}

// Refresh rotates the token pair: the presented refresh token is revoked and
// a fresh pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := s.parseToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	hash := hashToken(refreshToken)
	stored, err := s.tokens.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, repositories.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if stored.Revoked {
		// A rotated token coming back means it leaked somewhere between the
		// client and us. Cut off every session for the user.
		s.log.Warnf("revoked refresh token replayed for user %s, revoking all sessions", stored.UserID)
		if err := s.tokens.RevokeAllForUser(ctx, stored.UserID); err != nil {
			return nil, err
		}
		return nil, ErrInvalidToken
	}
	if stored.UserID != userID || time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if err := s.tokens.Revoke(ctx, hash); err != nil && !errors.Is(err, repositories.ErrTokenNotFound) {
		return nil, err
	}
	return s.issueTokens(ctx, u)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.tokens.Revoke(ctx, hashToken(refreshToken))
	if errors.Is(err, repositories.ErrTokenNotFound) {
		return nil
	}
	return err
}

// ValidateAccessToken returns the requester id carried by the access token.
func (s *AuthService) ValidateAccessToken(token string) (string, error) {
	userID, err := s.parseToken(token, s.cfg.AccessSecret)
	if err != nil {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func (s *AuthService) issueTokens(ctx context.Context, u *user.User) (*AuthResult, error) {
	access, err := s.signToken(u.ID, s.cfg.AccessSecret, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.signToken(u.ID, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.tokens.Store(ctx, repositories.RefreshToken{
		TokenHash: hashToken(refresh),
		UserID:    u.ID,
		ExpiresAt: time.Now().Add(s.cfg.RefreshTTL),
	}); err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

func (s *AuthService) signToken(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	// jti keeps two tokens issued in the same second distinct, so rotation
	// never revokes its own replacement.
	claims := jwt.MapClaims{
		"id":  userID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *AuthService) parseToken(tokenString, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	id, ok := (*claims)["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("invalid user id in token")
	}
	return id, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
