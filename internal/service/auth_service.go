package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"photoshare/internal/cache"
	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/observability"
	"photoshare/internal/repository"
	"photoshare/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "photoshare"

var (
	padHashOnce sync.Once
	padHash     []byte
)

// padPasswordCheck spends one bcrypt comparison on a fixed hash. Lookups that miss
// call it so an unknown email takes as long as a wrong password.
var padPasswordCheck = func(password string) {
	padHashOnce.Do(func() {
		padHash, _ = bcrypt.GenerateFromPassword([]byte("photoshare-unknown-account"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(padHash, []byte(password))
}

// Claims are the signed session token contents.
type Claims struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Session is a freshly issued login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthService registers users, issues session tokens and resolves them back to identities.
type AuthService struct {
	userRepo repository.UserRepository
	rdb      *redis.Client
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthService returns an AuthService. rdb may be nil, which disables token revocation.
func NewAuthService(userRepo repository.UserRepository, rdb *redis.Client, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthService{
		userRepo: userRepo,
		rdb:      rdb,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL is the lifetime of issued tokens.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateRegistration(in.Name, email, in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		observability.AuthEvents.WithLabelValues("register", "duplicate").Inc()
		return nil, models.NewDuplicateEmailError()
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: string(hashedPassword),
		Role:     models.RoleUser,
	}
	// a concurrent registration can still hit the unique index
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.AuthEvents.WithLabelValues("register", "success").Inc()
	return user, nil
}

// Login verifies credentials. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := validation.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.NewValidationError("Email and password are required.")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		padPasswordCheck(in.Password)
		observability.AuthEvents.WithLabelValues("login", "failure").Inc()
		return nil, models.NewAuthenticationError()
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); cmpErr != nil {
		observability.AuthEvents.WithLabelValues("login", "failure").Inc()
		return nil, models.NewAuthenticationError()
	}

	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.AuthEvents.WithLabelValues("login", "success").Inc()
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// IssueToken signs a token carrying the user's id, email, name and role.
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ResolveSession verifies token and rebuilds the identity from the stored user,
// so role changes and deletions apply to tokens that are already out.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (middleware.Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return middleware.Identity{}, models.NewSessionExpiredError()
	}

	revoked, err := cache.IsRevoked(ctx, s.rdb, claims.RegisteredClaims.ID)
	if err != nil {
		// Redis outage: the signature and expiry still hold
		middleware.Logger.WarnContext(ctx, "token denylist unavailable", slog.String("error", err.Error()))
	}
	if revoked {
		return middleware.Identity{}, models.NewSessionExpiredError()
	}

	user, err := s.userRepo.GetByID(ctx, claims.ID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return middleware.Identity{}, models.NewUnauthorizedError("Unauthorized. Please log in.")
		}
		return middleware.Identity{}, err
	}

	return middleware.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}, nil
}

// Logout denylists the token's id until it would have expired.
// Tokens that no longer verify need no revocation.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	observability.AuthEvents.WithLabelValues("logout", "success").Inc()
	if claims.ExpiresAt == nil {
		return nil
	}
	if err := cache.RevokeToken(ctx, s.rdb, claims.RegisteredClaims.ID, claims.ExpiresAt.Time); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
