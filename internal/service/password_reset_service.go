package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/repository"
	"photoshare/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const resetTokenBytes = 32

var errInvalidResetLink = models.NewValidationError("Password reset link is invalid or has expired.")

type PasswordResetService struct {
	userRepo  repository.UserRepository
	resetRepo repository.PasswordResetRepository
	mailer    Mailer
	baseURL   string
	ttl       time.Duration
	now       func() time.Time
}

func NewPasswordResetService(
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetRepository,
	mailer Mailer,
	baseURL string,
	ttl time.Duration,
) *PasswordResetService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PasswordResetService{
		userRepo:  userRepo,
		resetRepo: resetRepo,
		mailer:    mailer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		ttl:       ttl,
		now:       time.Now,
	}
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RequestReset mails a reset link when email belongs to a user. The result is the same
// whether or not the address is registered.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)
	if email == "" {
		return models.NewValidationError("Email is required.")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		padPasswordCheck(email)
		return nil
	}

	token, err := newResetToken()
	if err != nil {
		return models.NewInternalError(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	req := &models.PasswordResetRequest{
		Email:     email,
		TokenHash: string(hash),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.resetRepo.Create(ctx, req); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/auth/reset-password?email=%s&token=%s", s.baseURL, url.QueryEscape(email), token)
	body := fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in %d minutes.\n\n%s\n\nIf you did not ask for this, ignore this email.",
		user.Name, int(s.ttl.Minutes()), link)
	if err := s.mailer.Send(ctx, email, "Reset your password", body); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to send password reset email",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// VerifyReset reports whether token is a live reset token for email.
func (s *PasswordResetService) VerifyReset(ctx context.Context, email, token string) error {
	email = validation.NormalizeEmail(email)
	if email == "" || token == "" {
		return errInvalidResetLink
	}
	active, err := s.resetRepo.ListActive(ctx, email, s.now())
	if err != nil {
		return err
	}
	for _, req := range active {
		if bcrypt.CompareHashAndPassword([]byte(req.TokenHash), []byte(token)) == nil {
			return nil
		}
	}
	return errInvalidResetLink
}

// CompleteReset sets a new password and consumes every reset request for email.
func (s *PasswordResetService) CompleteReset(ctx context.Context, email, token, password string) error {
	if err := validation.ValidatePassword(password); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := s.VerifyReset(ctx, email, token); err != nil {
		return err
	}

	email = validation.NormalizeEmail(email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return errInvalidResetLink
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{"password": hashed}); err != nil {
		return err
	}
	if _, err := s.resetRepo.DeleteByEmail(ctx, email); err != nil {
		return err
	}
	return nil
}

// SweepExpired deletes reset requests past their expiry.
func (s *PasswordResetService) SweepExpired(ctx context.Context) (int64, error) {
	return s.resetRepo.DeleteExpired(ctx, s.now())
}
