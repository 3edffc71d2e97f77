package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"civreg/internal/caching"
	"civreg/internal/common"
	"civreg/internal/models"
	"civreg/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "civreg"

// TokenService issues, refreshes, revokes and verifies session tokens.
type TokenService interface {
	IssueSession(ctx context.Context, userID uuid.UUID, role models.Role) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, accessToken string) error
	Verify(ctx context.Context, accessToken string) (*models.Identity, error)
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RevocationTTL   time.Duration
}

type tokenService struct {
	userRepo    repositories.UserRepository
	revocations caching.RevocationStore
	cfg         TokenConfig
	now         func() time.Time
}

func NewTokenService(userRepo repositories.UserRepository, revocations caching.RevocationStore, cfg TokenConfig) TokenService {
	return &tokenService{
		userRepo:    userRepo,
		revocations: revocations,
		cfg:         cfg,
		now:         time.Now,
	}
}

// IssueSession signs a token pair and stores the refresh token on the account,
// replacing any previous one.
func (s *tokenService) IssueSession(ctx context.Context, userID uuid.UUID, role models.Role) (*models.Session, error) {
	accessToken, err := s.signAccess(userID, role)
	if err != nil {
		return nil, err
	}

	now := s.now()
	refreshClaims := RefreshClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.RefreshSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	if err := s.userRepo.RotateRefreshToken(ctx, userID, &refreshToken); err != nil {
		return nil, common.Persistence(err)
	}

	return &models.Session{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *tokenService) signAccess(userID uuid.UUID, role models.Role) (string, error) {
	now := s.now()
	claims := AccessClaims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.AccessSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Refresh exchanges a refresh token for a new access token. The token must be
// the one currently stored on the account.
func (s *tokenService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", common.ErrInvalidToken.WithMessage("Refresh token is required")
	}

	claims := &RefreshClaims{}
	if _, err := s.parse(refreshToken, claims, s.cfg.RefreshSecret); err != nil {
		return "", common.ErrInvalidToken.Wrap(err)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", common.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", common.Persistence(err)
	}
	if user == nil || user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return "", common.ErrInvalidToken
	}

	return s.signAccess(user.ID, user.Role)
}

// Revoke adds the access token to the revocation set. Entries live at least as
// long as an access token can, so a revoked token never becomes valid again.
func (s *tokenService) Revoke(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return common.ErrMissingToken
	}
	ttl := s.cfg.RevocationTTL
	if s.cfg.AccessTokenTTL > ttl {
		ttl = s.cfg.AccessTokenTTL
	}
	if err := s.revocations.Add(ctx, revocationKey(accessToken), ttl); err != nil {
		return common.Persistence(fmt.Errorf("failed to revoke token: %w", err))
	}
	return nil
}

// Verify checks the revocation set first, then signature and expiry.
func (s *tokenService) Verify(ctx context.Context, accessToken string) (*models.Identity, error) {
	if accessToken == "" {
		return nil, common.ErrMissingToken
	}

	revoked, err := s.revocations.Contains(ctx, revocationKey(accessToken))
	if err != nil {
		return nil, common.Persistence(fmt.Errorf("failed to check revocation: %w", err))
	}
	if revoked {
		return nil, common.ErrRevokedToken
	}

	claims := &AccessClaims{}
	if _, err := s.parse(accessToken, claims, s.cfg.AccessSecret); err != nil {
		return nil, common.ErrInvalidToken.Wrap(err)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil || !claims.Role.Valid() {
		return nil, common.ErrInvalidToken
	}

	return &models.Identity{UserID: userID, Role: claims.Role}, nil
}

func (s *tokenService) parse(token string, claims jwt.Claims, secret string) (*jwt.Token, error) {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token not valid")
	}
	return parsed, nil
}

// revocationKey keys the set by a digest of the raw token value.
func revocationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
