package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"civreg/internal/common"
	"civreg/internal/metrics"
	"civreg/internal/models"
	"civreg/internal/repositories"

	"go.uber.org/zap"
)

const resetTokenTTL = time.Hour

// AuthService covers login, logout, token refresh and the password reset flow.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Logout(ctx context.Context, caller models.Identity, accessToken string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	VerifyResetToken(ctx context.Context, token string) (bool, error)
}

type authService struct {
	userRepo     repositories.UserRepository
	tokens       TokenService
	notifier     NotificationService
	resetURLBase string
	logger       *zap.Logger
	now          func() time.Time
}

func NewAuthService(userRepo repositories.UserRepository, tokens TokenService, notifier NotificationService, resetURLBase string, logger *zap.Logger) AuthService {
	return &authService{
		userRepo:     userRepo,
		tokens:       tokens,
		notifier:     notifier,
		resetURLBase: resetURLBase,
		logger:       logger,
		now:          time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login does not distinguish an unknown email from a wrong password.
func (s *authService) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, common.Validation("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, common.Persistence(err)
	}
	if user == nil || !checkPassword(user.PasswordHash, password) {
		metrics.Logins.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, common.ErrInvalidCredentials
	}

	session, err := s.tokens.IssueSession(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	metrics.Logins.WithLabelValues(metrics.OutcomeSuccess).Inc()

	return &models.LoginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		Role:         user.Role,
		UserID:       user.ID,
		Name:         user.DisplayName,
	}, nil
}

// Logout revokes the presented access token and drops the stored refresh token.
func (s *authService) Logout(ctx context.Context, caller models.Identity, accessToken string) error {
	if err := s.tokens.Revoke(ctx, accessToken); err != nil {
		return err
	}
	if err := s.userRepo.RotateRefreshToken(ctx, caller.UserID, nil); err != nil {
		return common.Persistence(err)
	}
	return nil
}

func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

// ForgotPassword answers the same way whether or not the email is registered.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return common.Validation("Email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return common.Persistence(err)
	}
	if user == nil {
		s.logger.Debug("password reset requested for unknown email")
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetResetToken(ctx, user.ID, token, s.now().Add(resetTokenTTL)); err != nil {
		return common.Persistence(err)
	}

	resetURL := s.resetURLBase + token
	body := fmt.Sprintf("Bonjour %s,\n\nVous avez demandé la réinitialisation de votre mot de passe.\n"+
		"Cliquez sur le lien suivant (valable une heure) : %s\n\n"+
		"Si vous n'êtes pas à l'origine de cette demande, ignorez ce message.", user.DisplayName, resetURL)
	s.notifier.Notify(ctx, user.Email, "Réinitialisation de votre mot de passe", body)
	return nil
}

// ResetPassword checks strength before looking at the token.
func (s *authService) ResetPassword(ctx context.Context, token, password string) error {
	if err := ValidatePasswordStrength(password); err != nil {
		return err
	}

	user, err := s.userRepo.GetByResetToken(ctx, token, s.now())
	if err != nil {
		return common.Persistence(err)
	}
	if user == nil {
		return common.ErrInvalidResetToken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.userRepo.ResetPassword(ctx, user.ID, hash); err != nil {
		return common.Persistence(err)
	}
	return nil
}

func (s *authService) VerifyResetToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	user, err := s.userRepo.GetByResetToken(ctx, token, s.now())
	if err != nil {
		return false, common.Persistence(err)
	}
	return user != nil, nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
