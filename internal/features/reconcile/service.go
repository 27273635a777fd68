// Package reconcile реализует сверку балансов с журналом начислений.
// Журнал и кэш баланса пишутся без общей транзакции между хранилищами,
// поэтому кэш может отстать; сверка — авторитетный механизм ремонта:
// пересчитывает баланс из журнала и перезаписывает кэш при расхождении.
package reconcile

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Ledger — операции журнала, нужные сверке.
type Ledger interface {
	SumPoints(ctx context.Context, userID string) (int64, error)
	KnownUserIDs(ctx context.Context) ([]string, error)
}

// Balances — кэш балансов.
type Balances interface {
	Get(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, points int64) error
}

// UserResult — результат сверки одного пользователя.
type UserResult struct {
	UserID     string `json:"user_id"`
	OldBalance int64  `json:"old_balance"`
	NewBalance int64  `json:"new_balance"`
	Corrected  bool   `json:"corrected"`
	Error      string `json:"error,omitempty"` // Заполнен при частичном сбое в ReconcileAll
}

// Service выполняет сверку балансов.
type Service struct {
	ledger   Ledger
	balances Balances
}

// NewService создаёт сервис сверки.
func NewService(ledger Ledger, balances Balances) *Service {
	return &Service{ledger: ledger, balances: balances}
}

// ReconcileUser пересчитывает баланс пользователя из журнала.
// Идемпотентна: повторный запуск без новых начислений вернёт
// Corrected=false.
func (s *Service) ReconcileUser(ctx context.Context, userID string) (*UserResult, error) {
	oldBalance, err := s.balances.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	newBalance, err := s.ledger.SumPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &UserResult{
		UserID:     userID,
		OldBalance: oldBalance,
		NewBalance: newBalance,
	}

	if oldBalance == newBalance {
		// Кэш согласован — ничего не трогаем
		return result, nil
	}

	if err := s.balances.Set(ctx, userID, newBalance); err != nil {
		return nil, err
	}
	result.Corrected = true

	log.WithFields(log.Fields{
		"user_id": userID,
		"old":     oldBalance,
		"new":     newBalance,
	}).Info("Баланс исправлен по журналу")

	return result, nil
}

// ReconcileAll сверяет всех известных пользователей (объединение журнала
// и таблицы балансов). Сбой одного пользователя записывается в его
// результат и НЕ прерывает обработку остальных.
func (s *Service) ReconcileAll(ctx context.Context) ([]*UserResult, error) {
	userIDs, err := s.ledger.KnownUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*UserResult, 0, len(userIDs))
	corrected := 0
	failed := 0

	for _, userID := range userIDs {
		r, err := s.ReconcileUser(ctx, userID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Сверка пользователя не удалась")
			results = append(results, &UserResult{UserID: userID, Error: err.Error()})
			failed++
			continue
		}
		if r.Corrected {
			corrected++
		}
		results = append(results, r)
	}

	log.WithFields(log.Fields{
		"users":     len(userIDs),
		"corrected": corrected,
		"failed":    failed,
	}).Info("Сверка балансов завершена")

	return results, nil
}
