// Package catalog — service.go содержит логику разрешения имён действий.
// Исторически платформа пыталась начислить баллы по локализованному имени
// действия, а при неудаче повторяла запрос с английским именем. Здесь этот
// двойной поиск заменён явной таблицей псевдонимов: имя разрешается в
// каноническое ровно один раз при обращении к каталогу.
package catalog

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/common"
)

// Store — операции каталога, нужные сервису. Реализуется Repository;
// в тестах подменяется in-memory фейком.
type Store interface {
	RuleByName(ctx context.Context, name string) (*ActionRule, error)
	AliasTarget(ctx context.Context, alias string) (string, error)
	List(ctx context.Context) ([]*ActionRule, error)
	Upsert(ctx context.Context, rule *ActionRule) error
	SetEnabled(ctx context.Context, name string, enabled bool) error
}

// Service управляет каталогом правил.
type Service struct {
	store Store
}

// NewService создаёт сервис каталога.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Resolve возвращает правило для имени действия, разрешая псевдонимы.
//
// Алгоритм:
//  1. Ищем правило по точному имени.
//  2. Если не нашли — ищем псевдоним и повторяем поиск по каноническому
//     имени. Ровно один переход: псевдоним, указывающий на другой
//     псевдоним, — ошибка заполнения каталога.
//
// Если правила нет ни под каким именем — common.ErrRuleNotFound.
// Выключенные правила возвращаются как есть: решение «не начислять»
// принимает движок.
func (s *Service) Resolve(ctx context.Context, name string) (*ActionRule, error) {
	rule, err := s.store.RuleByName(ctx, name)
	if err == nil {
		return rule, nil
	}
	if err != common.ErrRuleNotFound {
		return nil, err
	}

	// Шаг 2: пробуем псевдоним
	canonical, err := s.store.AliasTarget(ctx, name)
	if err != nil {
		return nil, err
	}
	if canonical == "" {
		return nil, common.ErrRuleNotFound
	}

	log.WithFields(log.Fields{
		"alias":     name,
		"canonical": canonical,
	}).Debug("Имя действия разрешено через псевдоним")

	return s.store.RuleByName(ctx, canonical)
}

// List возвращает все правила каталога.
func (s *Service) List(ctx context.Context) ([]*ActionRule, error) {
	return s.store.List(ctx)
}

// Upsert сохраняет правило после валидации политики.
func (s *Service) Upsert(ctx context.Context, rule *ActionRule) error {
	if rule.Name == "" {
		return common.ErrEmptyAction
	}
	if rule.LimitPolicy == "" {
		rule.LimitPolicy = LimitUnlimited
	}
	if !rule.LimitPolicy.Valid() {
		return fmt.Errorf("неизвестная политика ограничения: %s", rule.LimitPolicy)
	}
	return s.store.Upsert(ctx, rule)
}

// SetEnabled включает или выключает правило.
func (s *Service) SetEnabled(ctx context.Context, name string, enabled bool) error {
	return s.store.SetEnabled(ctx, name, enabled)
}
