package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/traffic-sim/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryUserCollection(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserCollection()

	require.NoError(t, users.InsertUser(ctx, models.User{Username: "ops", PasswordHash: "hash", Role: models.RoleOperator}))

	found, err := users.FindUserByUsername(ctx, "ops")
	require.NoError(t, err)
	assert.False(t, found.ID.IsZero())
	assert.True(t, found.IsActive)
	assert.NotZero(t, found.CreatedAt)
	assert.Nil(t, found.LastLogin)

	byID, err := users.FindUserByID(ctx, found.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "ops", byID.Username)

	require.NoError(t, users.UpdateLastLogin(ctx, found.ID.Hex()))
	byID, err = users.FindUserByID(ctx, found.ID.Hex())
	require.NoError(t, err)
	assert.NotNil(t, byID.LastLogin)

	_, err = users.FindUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = users.FindUserByID(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = users.FindUserByID(ctx, "not-hex")
	assert.Error(t, err)
	assert.ErrorIs(t, users.UpdateLastLogin(ctx, primitive.NewObjectID().Hex()), ErrUserNotFound)
}

func TestMongoUserCollection_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	collection := client.Database("test_traffic").Collection("users")
	collection.Drop(ctx)
	users := &MongoUserCollection{Collection: collection}

	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     "testuser",
		PasswordHash: "hashedpassword",
		Role:         models.RoleAdmin,
	}
	require.NoError(t, users.InsertUser(ctx, user))

	var stored models.User
	require.NoError(t, collection.FindOne(ctx, bson.M{"username": "testuser"}).Decode(&stored))
	assert.True(t, stored.IsActive)
	assert.NotZero(t, stored.CreatedAt)

	found, err := users.FindUserByID(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, found.Role)

	require.NoError(t, users.UpdateLastLogin(ctx, user.ID.Hex()))
	found, err = users.FindUserByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.NotNil(t, found.LastLogin)

	_, err = users.FindUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
