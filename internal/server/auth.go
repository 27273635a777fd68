// Package server — auth.go защищает админ-маршруты bearer-токеном.
// Токен проверяется по Argon2id-хешу из конфигурации (хеш генерируется
// scripts/generate_hash.go). Защита от brute-force: 3 неудачные попытки
// с одного адреса = блокировка на 1 час.
package server

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"communityhub.ru/gamification/internal/common"
)

const (
	maxAuthAttempts = 3
	authLockWindow  = 1 * time.Hour
)

// AdminAuth проверяет админ-токен в заголовке Authorization.
type AdminAuth struct {
	tokenHash string // Argon2id-хеш в формате $argon2id$v=19$m=...,t=...,p=...$salt$hash

	mu       sync.Mutex
	failures map[string][]time.Time // Неудачные попытки по адресу клиента
}

// NewAdminAuth создаёт проверку админ-токена.
func NewAdminAuth(tokenHash string) *AdminAuth {
	return &AdminAuth{
		tokenHash: tokenHash,
		failures:  make(map[string][]time.Time),
	}
}

// Middleware пропускает запрос дальше только с верным токеном.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		if a.locked(key) {
			common.WriteError(w, http.StatusTooManyRequests, common.ErrTooManyAttempts.Error())
			return
		}

		token := bearerToken(r)
		if token == "" || !verifyArgon2id(token, a.tokenHash) {
			a.recordFailure(key)
			log.WithField("remote", key).Warn("Неудачная попытка админ-авторизации")
			common.WriteError(w, http.StatusUnauthorized, common.ErrNotAdmin.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bearerToken извлекает токен из "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
}

// locked сообщает, заблокирован ли клиент за перебор.
func (a *AdminAuth) locked(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-authLockWindow)
	var recent []time.Time
	for _, t := range a.failures[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	a.failures[key] = recent
	return len(recent) >= maxAuthAttempts
}

// recordFailure фиксирует неудачную попытку.
func (a *AdminAuth) recordFailure(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[key] = append(a.failures[key], time.Now())
}

// verifyArgon2id проверяет токен по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(token, encodedHash string) bool {
	// Парсим хеш
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	// Извлекаем параметры
	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	// Декодируем соль
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	// Декодируем хеш
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	// Вычисляем хеш предъявленного токена
	computedHash := argon2.IDKey([]byte(token), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
