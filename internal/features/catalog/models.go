// Package catalog реализует каталог правил начисления баллов.
// models.go описывает структуру правила и политики ограничения повторов.
package catalog

import "time"

// LimitPolicy определяет, как часто правило может сработать повторно
// для одного пользователя.
type LimitPolicy string

const (
	// LimitUnlimited — без ограничений, каждый вызов начисляет баллы.
	LimitUnlimited LimitPolicy = "unlimited"
	// LimitOncePerTarget — не больше одного начисления за конкретную цель
	// (related_id): лайк на один и тот же пост засчитывается один раз.
	LimitOncePerTarget LimitPolicy = "once_per_related_target"
	// LimitOncePerDay — не больше одного начисления за календарные сутки.
	// Сутки считаются по UTC (см. common.UTCDayStart).
	LimitOncePerDay LimitPolicy = "once_per_day"
	// LimitOncePerUser — одно начисление на пользователя за всё время
	// (например, заполнение профиля).
	LimitOncePerUser LimitPolicy = "once_per_user_total"
)

// Valid сообщает, известна ли политика. Используется при админ-правках правил.
func (p LimitPolicy) Valid() bool {
	switch p {
	case LimitUnlimited, LimitOncePerTarget, LimitOncePerDay, LimitOncePerUser:
		return true
	}
	return false
}

// ActionRule — правило начисления баллов за именованное действие.
// Правила заводятся администратором; движок начислений их только читает.
type ActionRule struct {
	ID          int64       `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`                 // Уникальное символическое имя ("new_post")
	Points      int64       `db:"points" json:"points"`             // Сколько начислять (может быть отрицательным — зарезервировано)
	Enabled     bool        `db:"enabled" json:"enabled"`           // Выключенное правило никогда не начисляет
	LimitPolicy LimitPolicy `db:"limit_policy" json:"limit_policy"` // Ограничение повторов
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}
