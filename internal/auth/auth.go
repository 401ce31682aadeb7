// Package auth issues and checks operator tokens for the control API.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/db"
	"github.com/ukydev/traffic-sim/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "traffic-sim"

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long")
	ErrInvalidUsername    = errors.New("username must be 3 to 50 characters long")
)

type tokenClaims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service handles authentication operations
type Service struct {
	jwtSecret []byte
	tokenExp  time.Duration
	now       func() time.Time
}

// NewService creates a new authentication service. Without a secret a random
// one is generated, so tokens do not survive a restart.
func NewService(secret string, tokenExp time.Duration) (*Service, error) {
	key := []byte(secret)
	if secret == "" {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		log.Warn("JWT_SECRET not set, using a random secret")
	}
	if tokenExp <= 0 {
		tokenExp = 24 * time.Hour
	}
	return &Service{jwtSecret: key, tokenExp: tokenExp, now: time.Now}, nil
}

// HashPassword hashes a password using bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword checks if a password matches a hash
func (s *Service) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateToken signs a token for user and returns it with its expiry.
func (s *Service) GenerateToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenExp)
	claims := tokenClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        newTokenID(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func newTokenID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" || !models.IsValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}

	return &models.Claims{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
		Exp:      claims.ExpiresAt.Unix(),
	}, nil
}

// ExtractTokenFromHeader extracts token from Authorization header
func (s *Service) ExtractTokenFromHeader(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}

// ValidatePassword validates password strength
func (s *Service) ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// ValidateUsername validates username format
func (s *Service) ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return ErrInvalidUsername
	}
	return nil
}

// Authenticate checks credentials against users and records the login.
func (s *Service) Authenticate(ctx context.Context, users db.UserCollection, username, password string) (*models.User, error) {
	user, err := users.FindUserByUsername(ctx, username)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", username, err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !s.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if err := users.UpdateLastLogin(ctx, user.ID.Hex()); err != nil {
		log.WithError(err).WithField("username", username).Warn("Failed to record login")
	}
	return user, nil
}

// Operator describes the account seeded at startup.
type Operator struct {
	Username     string
	Password     string
	PasswordHash string
	Role         models.Role
}

// EnsureOperator creates op in users unless an account with that name
// exists. A plain password is checked and hashed; a hash is stored as is.
func (s *Service) EnsureOperator(ctx context.Context, users db.UserCollection, op Operator) error {
	if err := s.ValidateUsername(op.Username); err != nil {
		return fmt.Errorf("seed operator: %w", err)
	}
	if !models.IsValidRole(op.Role) {
		return fmt.Errorf("seed operator: invalid role %q", op.Role)
	}
	if _, err := users.FindUserByUsername(ctx, op.Username); err == nil {
		return nil
	} else if !errors.Is(err, db.ErrUserNotFound) {
		return fmt.Errorf("seed operator: %w", err)
	}

	hash := op.PasswordHash
	if hash == "" {
		if err := s.ValidatePassword(op.Password); err != nil {
			return fmt.Errorf("seed operator: %w", err)
		}
		var err error
		if hash, err = s.HashPassword(op.Password); err != nil {
			return fmt.Errorf("seed operator: %w", err)
		}
	}
	if err := users.InsertUser(ctx, models.User{Username: op.Username, PasswordHash: hash, Role: op.Role}); err != nil {
		return fmt.Errorf("seed operator: %w", err)
	}
	log.WithFields(log.Fields{"username": op.Username, "role": op.Role}).Info("Operator account created")
	return nil
}
