package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "запрос %d", i+1)
	}
	assert.False(t, rl.Allow("10.0.0.1"))

	// Лимит считается на клиента, другой ключ не затронут
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)
	defer rl.Close()

	require.True(t, rl.Allow("k"))
	require.False(t, rl.Allow("k"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("k"))
}

// encodeTestHash собирает Argon2id-хеш в том же формате, что
// scripts/generate_hash.go.
func encodeTestHash(t *testing.T, token string) string {
	t.Helper()

	salt := make([]byte, 16)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	// Уменьшенные параметры, чтобы тест не жёг память
	var (
		memory      uint32 = 1024
		iterations  uint32 = 1
		parallelism uint8  = 1
	)
	hash := argon2.IDKey([]byte(token), salt, iterations, memory, parallelism, 32)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

func TestVerifyArgon2id(t *testing.T) {
	encoded := encodeTestHash(t, "s3cret-token")

	assert.True(t, verifyArgon2id("s3cret-token", encoded))
	assert.False(t, verifyArgon2id("wrong-token", encoded))
	assert.False(t, verifyArgon2id("s3cret-token", "не хеш вообще"))
}

func TestAdminAuthMiddleware(t *testing.T) {
	auth := NewAdminAuth(encodeTestHash(t, "admin-token"))
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer wrong"))
	assert.Equal(t, http.StatusOK, do("Bearer admin-token"))
}

func TestAdminAuthLockout(t *testing.T) {
	auth := NewAdminAuth(encodeTestHash(t, "admin-token"))
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusUnauthorized, do("wrong"))
	}

	// После трёх неудач блокируется даже верный токен
	assert.Equal(t, http.StatusTooManyRequests, do("admin-token"))
}
