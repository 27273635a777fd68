// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях сервиса начислений.
// Эти ошибки позволяют движку и обработчикам различать типы проблем:
// «правила нет» и «уже начислено» — штатные исходы, а не сбои.
package common

import "errors"

// Ошибки движка начислений
var (
	// ErrRuleNotFound — правило не найдено в каталоге или отключено.
	// Для вызывающего кода это НЕ фатальная ошибка: баллы просто не начисляются.
	ErrRuleNotFound = errors.New("правило не найдено или отключено")
	// ErrAlreadyAwarded — баллы за это действие уже были начислены
	// (сработало ограничение повторов). Ожидаемый исход, а не баг.
	ErrAlreadyAwarded = errors.New("баллы за это действие уже начислены")
	// ErrEmptyUserID — не передан идентификатор пользователя
	ErrEmptyUserID = errors.New("user_id не задан")
	// ErrEmptyAction — не передано имя действия
	ErrEmptyAction = errors.New("имя действия не задано")
)

// Ошибки хранилища
var (
	// ErrDuplicateEntry — нарушение уникального индекса журнала начислений.
	// Возникает при гонке двух одновременных начислений за одну цель;
	// движок трактует её как ErrAlreadyAwarded.
	ErrDuplicateEntry = errors.New("дубликат записи в журнале начислений")
)

// Ошибки админ-доступа
var (
	// ErrNotAdmin — неверный или отсутствующий админ-токен
	ErrNotAdmin = errors.New("нет прав администратора")
	// ErrTooManyAttempts — слишком много неудачных попыток авторизации
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
)
