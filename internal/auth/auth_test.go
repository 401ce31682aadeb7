package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/traffic-sim/internal/db"
	"github.com/ukydev/traffic-sim/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService("test-secret", time.Hour)
	require.NoError(t, err)
	return service
}

func TestNewService(t *testing.T) {
	service, err := NewService("", 0)
	assert.NoError(t, err)
	assert.Len(t, service.jwtSecret, 32)
	assert.Equal(t, 24*time.Hour, service.tokenExp)

	other, err := NewService("", 0)
	require.NoError(t, err)
	assert.NotEqual(t, service.jwtSecret, other.jwtSecret)
}

func TestService_CheckPassword(t *testing.T) {
	service := newTestService(t)

	password := "testpassword123"
	hash, err := service.HashPassword(password)
	require.NoError(t, err)
	assert.NotEqual(t, password, hash)

	assert.True(t, service.CheckPassword(password, hash))
	assert.False(t, service.CheckPassword("wrongpassword", hash))
}

func TestService_TokenRoundTrip(t *testing.T) {
	service := newTestService(t)
	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: "testuser",
		Role:     models.RoleOperator,
	}

	token, expiresAt, err := service.GenerateToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := service.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, models.RoleOperator, claims.Role)
	assert.Equal(t, expiresAt.Unix(), claims.Exp)
}

func TestService_ValidateTokenRejects(t *testing.T) {
	service := newTestService(t)
	user := &models.User{ID: primitive.NewObjectID(), Username: "u", Role: models.RoleViewer}
	good, _, err := service.GenerateToken(user)
	require.NoError(t, err)

	other, err := NewService("another-secret", time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.GenerateToken(user)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Username: "u",
		Role:     "root",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "abc",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		err   error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"tampered", good + "x", ErrInvalidToken},
		{"other secret", foreign, ErrInvalidToken},
		{"none algorithm", unsigned, ErrInvalidToken},
		{"unknown role", badRole, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestService_TokenExpiration(t *testing.T) {
	service := newTestService(t)
	user := &models.User{ID: primitive.NewObjectID(), Username: "u", Role: models.RoleViewer}
	token, _, err := service.GenerateToken(user)
	require.NoError(t, err)

	service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := newTestService(t)

	tests := []struct {
		header  string
		token   string
		wantErr bool
	}{
		{"Bearer abc.def", "abc.def", false},
		{"", "", true},
		{"Bearer", "", true},
		{"Bearer ", "", true},
		{"Basic abc", "", true},
		{"Bearer a b", "", true},
	}
	for _, tt := range tests {
		token, err := service.ExtractTokenFromHeader(tt.header)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidToken, "header %q", tt.header)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.token, token)
	}
}

func TestService_ValidateCredentialsFormat(t *testing.T) {
	service := newTestService(t)
	assert.NoError(t, service.ValidatePassword("longenough"))
	assert.ErrorIs(t, service.ValidatePassword("short"), ErrWeakPassword)
	assert.NoError(t, service.ValidateUsername("ops"))
	assert.ErrorIs(t, service.ValidateUsername("op"), ErrInvalidUsername)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) InsertUser(ctx context.Context, user models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUsers) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUsers) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUsers) UpdateLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)
	users := db.NewMemoryUserCollection()
	require.NoError(t, service.EnsureOperator(ctx, users, Operator{Username: "ops", Password: "secret-pass", Role: models.RoleOperator}))

	user, err := service.Authenticate(ctx, users, "ops", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOperator, user.Role)
	stored, err := users.FindUserByUsername(ctx, "ops")
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)

	_, err = service.Authenticate(ctx, users, "ops", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = service.Authenticate(ctx, users, "nobody", "secret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	inactive := &mockUsers{}
	inactive.On("FindUserByUsername", ctx, "old").Return(&models.User{Username: "old", IsActive: false}, nil)
	_, err = service.Authenticate(ctx, inactive, "old", "whatever")
	assert.ErrorIs(t, err, ErrUserInactive)

	broken := &mockUsers{}
	broken.On("FindUserByUsername", ctx, "ops").Return(nil, errors.New("connection reset"))
	_, err = service.Authenticate(ctx, broken, "ops", "secret-pass")
	assert.ErrorContains(t, err, "connection reset")
}

func TestService_EnsureOperator(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	users := db.NewMemoryUserCollection()
	hash, err := service.HashPassword("pre-hashed-pass")
	require.NoError(t, err)
	require.NoError(t, service.EnsureOperator(ctx, users, Operator{Username: "admin", PasswordHash: hash, Role: models.RoleAdmin}))
	stored, err := users.FindUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, hash, stored.PasswordHash)

	// Existing accounts are left alone.
	existing := &mockUsers{}
	existing.On("FindUserByUsername", ctx, "admin").Return(stored, nil)
	require.NoError(t, service.EnsureOperator(ctx, existing, Operator{Username: "admin", Password: "another-pass", Role: models.RoleAdmin}))
	existing.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)

	assert.ErrorIs(t, service.EnsureOperator(ctx, users, Operator{Username: "new", Password: "short", Role: models.RoleViewer}), ErrWeakPassword)
	assert.ErrorIs(t, service.EnsureOperator(ctx, users, Operator{Username: "x", Password: "long-enough", Role: models.RoleViewer}), ErrInvalidUsername)
	assert.Error(t, service.EnsureOperator(ctx, users, Operator{Username: "new", Password: "long-enough", Role: "root"}))
}
