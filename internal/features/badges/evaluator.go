// Package badges — evaluator.go выдаёт значки после изменения баланса.
// Оценку безопасно вызывать повторно: дубликаты отсекает уникальная пара
// (user_id, badge_id) в БД.
package badges

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Store — операции хранилища, нужные оценщику. Реализуется Repository;
// в тестах подменяется in-memory фейком.
type Store interface {
	Eligible(ctx context.Context, balance int64) ([]*Badge, error)
	Grant(ctx context.Context, userID string, badgeID int64) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]*EarnedBadge, error)
}

// Notifier объявляет о новых значках (например, в чат сообщества).
// Необязателен: nil-уведомитель просто ничего не делает.
type Notifier interface {
	AnnounceBadge(userID string, badge *Badge)
}

// Evaluator выдаёт значки, пороги которых достигнуты балансом.
type Evaluator struct {
	store    Store
	notifier Notifier // может быть nil
}

// NewEvaluator создаёт оценщик значков.
func NewEvaluator(store Store, notifier Notifier) *Evaluator {
	return &Evaluator{store: store, notifier: notifier}
}

// Evaluate выдаёт пользователю все значки с порогом <= balance,
// которых у него ещё нет, и возвращает только новые.
//
// Идемпотентность: повторный вызов с тем же балансом не выдаёт ничего —
// Grant возвращает false для уже имеющихся значков.
func (e *Evaluator) Evaluate(ctx context.Context, userID string, balance int64) ([]*Badge, error) {
	eligible, err := e.store.Eligible(ctx, balance)
	if err != nil {
		return nil, err
	}

	var awarded []*Badge
	for _, b := range eligible {
		granted, err := e.store.Grant(ctx, userID, b.ID)
		if err != nil {
			return awarded, err
		}
		if !granted {
			// Значок уже был — пропускаем
			continue
		}

		awarded = append(awarded, b)
		log.WithFields(log.Fields{
			"user_id": userID,
			"badge":   b.Name,
		}).Info("Выдан значок")

		if e.notifier != nil {
			e.notifier.AnnounceBadge(userID, b)
		}
	}
	return awarded, nil
}

// ListForUser возвращает значки пользователя.
func (e *Evaluator) ListForUser(ctx context.Context, userID string) ([]*EarnedBadge, error) {
	return e.store.ListForUser(ctx, userID)
}
