// Package award реализует движок начисления баллов — единственную точку
// входа для всех событий платформы, достойных баллов (новый пост, лайк,
// посещение события, заполнение профиля).
//
// Контракт движка: он НИКОГДА не роняет действие, которое его вызвало.
// Комментарий создаётся, даже если начисление баллов не удалось; все
// сбои возвращаются как структурированный Result и логируются здесь,
// чтобы вызывающим не нужны были свои обёртки.
package award

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/common"
	"communityhub.ru/gamification/internal/features/badges"
	"communityhub.ru/gamification/internal/features/catalog"
	"communityhub.ru/gamification/internal/features/ledger"
)

// Коды ошибок в Result.Error. Это часть внешнего контракта —
// вызывающие различают по ним «правила нет» и «хранилище недоступно».
const (
	ErrCodeRuleNotFound     = "rule_not_found_or_disabled"
	ErrCodeEmptyUserID      = "empty_user_id"
	ErrCodeEmptyAction      = "empty_action"
	ErrCodeStoreUnavailable = "store_unavailable"
)

// Options — необязательные параметры начисления.
type Options struct {
	// RelatedID — идентификатор цели (пост, событие), к которой привязано
	// начисление. Обязателен по смыслу для правил once_per_related_target.
	RelatedID string `json:"related_id"`
	// CheckRelated — явная просьба отсекать дубликаты по RelatedID, даже
	// если политика правила этого не требует. Защитный флаг для вызывающих,
	// которым нужна более строгая дедупликация, чем задаёт каталог.
	CheckRelated bool `json:"check_related"`
}

// Result — результат начисления. Всегда возвращается значением:
// движок не возбуждает ошибок наружу.
type Result struct {
	Success        bool   `json:"success"`
	Points         int64  `json:"points,omitempty"`          // Сколько начислено (при успехе)
	Balance        int64  `json:"balance,omitempty"`         // Новый баланс (при успехе, 0 если кэш не обновился)
	AlreadyAwarded bool   `json:"already_awarded,omitempty"` // Сработало ограничение повторов
	Error          string `json:"error,omitempty"`           // Код ошибки (см. ErrCode*)
}

// Rules — разрешение имени действия в правило (с учётом псевдонимов).
type Rules interface {
	Resolve(ctx context.Context, name string) (*catalog.ActionRule, error)
}

// Ledger — операции журнала, нужные движку.
type Ledger interface {
	Append(ctx context.Context, e *ledger.Entry) error
	HasForTarget(ctx context.Context, userID, action, relatedID string) (bool, error)
	HasSince(ctx context.Context, userID, action string, since time.Time) (bool, error)
	HasAny(ctx context.Context, userID, action string) (bool, error)
}

// Balances — кэш балансов.
type Balances interface {
	AddPoints(ctx context.Context, userID string, delta int64) (int64, error)
}

// BadgeEvaluator — оценка значков после успешного начисления.
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, userID string, balance int64) ([]*badges.Badge, error)
}

// Service — движок начислений.
type Service struct {
	rules    Rules
	ledger   Ledger
	balances Balances
	badges   BadgeEvaluator // может быть nil (значки выключены)

	// Источник времени. Подменяется в тестах для проверки границ суток.
	now func() time.Time
}

// NewService создаёт движок начислений.
func NewService(rules Rules, lg Ledger, balances Balances, badgeEval BadgeEvaluator) *Service {
	return &Service{
		rules:    rules,
		ledger:   lg,
		balances: balances,
		badges:   badgeEval,
		now:      time.Now,
	}
}

// Award начисляет баллы пользователю за действие action.
//
// Алгоритм:
//  1. Разрешаем имя действия в правило (с псевдонимами). Нет правила или
//     оно выключено → Result{Error: rule_not_found_or_disabled}; для
//     вызывающего это «баллов нет, продолжаем», а не сбой.
//  2. Проверяем ограничение повторов по журналу.
//  3. Ограничение сработало → Result{AlreadyAwarded: true}.
//  4. Пишем запись в журнал (авторитетная запись начисления), затем
//     обновляем кэш баланса. Сбой обновления кэша НЕ отменяет начисление:
//     журнал — источник истины, расхождение починит сверка.
//  5. Запускаем оценку значков; её сбой никогда не откатывает начисление.
//  6. Возвращаем Result{Success: true, Points: ...}.
func (s *Service) Award(ctx context.Context, userID, action string, opts *Options) Result {
	if opts == nil {
		opts = &Options{}
	}
	if userID == "" {
		return Result{Error: ErrCodeEmptyUserID}
	}
	if action == "" {
		return Result{Error: ErrCodeEmptyAction}
	}

	logger := log.WithFields(log.Fields{
		"user_id": userID,
		"action":  action,
	})

	// Шаг 1: правило
	rule, err := s.rules.Resolve(ctx, action)
	if err != nil {
		if errors.Is(err, common.ErrRuleNotFound) {
			logger.Debug("Правило не найдено — начисление пропущено")
			return Result{Error: ErrCodeRuleNotFound}
		}
		logger.WithError(err).Error("Ошибка чтения каталога правил")
		return Result{Error: ErrCodeStoreUnavailable}
	}
	if !rule.Enabled {
		logger.Debug("Правило выключено — начисление пропущено")
		return Result{Error: ErrCodeRuleNotFound}
	}

	// Шаг 2: ограничение повторов
	eligible, err := s.eligible(ctx, rule, userID, opts)
	if err != nil {
		logger.WithError(err).Error("Ошибка проверки ограничения повторов")
		return Result{Error: ErrCodeStoreUnavailable}
	}

	// Шаг 3: уже начисляли
	if !eligible {
		logger.Debug("Повторное начисление подавлено")
		return Result{AlreadyAwarded: true}
	}

	// Шаг 4: журнал, затем кэш баланса
	entry := &ledger.Entry{
		UserID: userID,
		Action: rule.Name, // Каноническое имя, даже если вызвали по псевдониму
		Points: rule.Points,
	}
	if opts.RelatedID != "" {
		entry.RelatedID = &opts.RelatedID
	}

	if err := s.ledger.Append(ctx, entry); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			// Гонка: параллельное начисление за ту же цель успело раньше.
			// База отвергла вторую вставку — это «уже начислено», не сбой.
			logger.Debug("Гонка начислений разрешена базой: дубликат отвергнут")
			return Result{AlreadyAwarded: true}
		}
		logger.WithError(err).Error("Ошибка записи в журнал начислений")
		return Result{Error: ErrCodeStoreUnavailable}
	}

	newBalance, err := s.balances.AddPoints(ctx, userID, rule.Points)
	if err != nil {
		// Начисление уже состоялось (запись в журнале). Кэш отстал —
		// его догонит сверка. Возвращаем успех.
		logger.WithError(err).Warn("Журнал записан, но кэш баланса не обновился")
		return Result{Success: true, Points: rule.Points}
	}

	// Шаг 5: значки — производный некритичный побочный эффект
	if s.badges != nil {
		if _, err := s.badges.Evaluate(ctx, userID, newBalance); err != nil {
			logger.WithError(err).Warn("Оценка значков не удалась (начисление не затронуто)")
		}
	}

	logger.WithFields(log.Fields{
		"points":  rule.Points,
		"balance": newBalance,
	}).Info("Баллы начислены")

	// Шаг 6
	return Result{Success: true, Points: rule.Points, Balance: newBalance}
}

// eligible проверяет ограничение повторов правила по журналу.
func (s *Service) eligible(ctx context.Context, rule *catalog.ActionRule, userID string, opts *Options) (bool, error) {
	// Дедупликация по цели: политика правила либо явный флаг вызывающего.
	checkTarget := rule.LimitPolicy == catalog.LimitOncePerTarget || opts.CheckRelated
	if checkTarget && opts.RelatedID != "" {
		exists, err := s.ledger.HasForTarget(ctx, userID, rule.Name, opts.RelatedID)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}

	switch rule.LimitPolicy {
	case catalog.LimitOncePerTarget:
		if opts.RelatedID == "" {
			// Без цели дедуплицировать не по чему. Осознанный запасной
			// вариант: начисляем как unlimited, но шумим в лог — вызывающий
			// обязан передавать related_id для таких правил.
			log.WithFields(log.Fields{
				"user_id": userID,
				"action":  rule.Name,
			}).Warn("Правило once_per_related_target вызвано без related_id")
		}
		return true, nil

	case catalog.LimitOncePerDay:
		exists, err := s.ledger.HasSince(ctx, userID, rule.Name, common.UTCDayStart(s.now()))
		if err != nil {
			return false, err
		}
		return !exists, nil

	case catalog.LimitOncePerUser:
		exists, err := s.ledger.HasAny(ctx, userID, rule.Name)
		if err != nil {
			return false, err
		}
		return !exists, nil

	default: // LimitUnlimited и неизвестные политики старых правил
		return true, nil
	}
}
