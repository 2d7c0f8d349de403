package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)
	userID := uuid.New()

	token, exp, err := m.Issue(userID, valueobject.RoleBoth)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	gotID, role, err := m.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, valueobject.RoleBoth, role)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)

	other, _, err := NewTokenManager("other-secret", time.Minute).Issue(uuid.New(), valueobject.RoleClient)
	require.NoError(t, err)
	_, _, err = m.ParseAccess(other)
	assert.Error(t, err, "чужая подпись")

	expired, _, err := NewTokenManager("test-secret", -time.Minute).Issue(uuid.New(), valueobject.RoleClient)
	require.NoError(t, err)
	_, _, err = m.ParseAccess(expired)
	assert.Error(t, err, "истёкший токен")

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(), "role": "admin", "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, _, err = m.ParseAccess(badRole)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidClaims)
}

func TestCacheService_TTL(t *testing.T) {
	cs := NewCacheService()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cs.now = func() time.Time { return now }

	assert.True(t, cs.SetIfAbsent("k", 1, time.Minute))
	assert.False(t, cs.SetIfAbsent("k", 2, time.Minute))
	v, ok := cs.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = cs.Get("k")
	assert.False(t, ok)
	assert.True(t, cs.SetIfAbsent("k", 3, time.Minute))

	now = now.Add(2 * time.Minute)
	cs.evictExpired()
	assert.Empty(t, cs.cache)
}
