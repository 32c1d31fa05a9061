package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"
	"secureshield/pkg/utils"
	"secureshield/pkg/validation"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type AuthService interface {
	Register(ctx context.Context, email, password string, role domain.Role) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	GenerateToken(user domain.User) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	// ResolveUser loads the account a token was issued for.
	ResolveUser(ctx context.Context, claims *Claims) (*domain.User, error)
}

type Claims struct {
	UserID domain.UserID `json:"user_id"`
	Email  string        `json:"email"`
	Role   domain.Role   `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	store          ports.Store
	jwtSecret      []byte
	accessTokenTTL time.Duration
	clock          clock.Clock
	metrics        ports.MetricsRecorder
	logger         *zap.SugaredLogger
}

func NewAuthService(
	store ports.Store,
	jwtSecret string,
	accessTokenTTL time.Duration,
	clk clock.Clock,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) AuthService {
	return &authService{
		store:          store,
		jwtSecret:      []byte(jwtSecret),
		accessTokenTTL: accessTokenTTL,
		clock:          clk,
		metrics:        metrics,
		logger:         logger,
	}
}

func (s *authService) Register(ctx context.Context, email, password string, role domain.Role) (*domain.User, string, error) {
	email = utils.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !role.Valid() {
		return nil, "", fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}

	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		if utils.NormalizeEmail(u.Email) == email {
			return nil, "", domain.ErrEmailTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           domain.UserID(uuid.NewString()),
		Email:        email,
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := s.store.ReplaceUsers(ctx, append(users, user)); err != nil {
		return nil, "", fmt.Errorf("save users: %w", err)
	}

	s.metrics.UserRegistered(role)
	s.logger.Infow("user registered",
		"user_id", user.ID,
		"email", utils.MaskSensitive(email, 3),
		"role", role,
	)

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}
	public := user.Public()
	return &public, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = utils.NormalizeEmail(email)

	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load users: %w", err)
	}

	for _, u := range users {
		if utils.NormalizeEmail(u.Email) != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			break
		}

		token, err := s.GenerateToken(u)
		if err != nil {
			return nil, "", err
		}
		s.metrics.LoginAttempt(true)
		public := u.Public()
		return &public, token, nil
	}

	s.metrics.LoginAttempt(false)
	s.logger.Warnw("login failed", "email", utils.MaskSensitive(email, 3))
	return nil, "", domain.ErrInvalidCredentials
}

func (s *authService) GenerateToken(user domain.User) (string, error) {
	now := s.clock.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.clock.Now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (s *authService) ResolveUser(ctx context.Context, claims *Claims) (*domain.User, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		if u.ID == claims.UserID {
			public := u.Public()
			return &public, nil
		}
	}
	return nil, domain.ErrUserNotFound
}
