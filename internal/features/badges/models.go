// Package badges реализует значки — достижения за пороги баллов.
// models.go описывает структуры значка и связи «пользователь — значок».
package badges

import "time"

// Badge — значок, выдаваемый при достижении порога баллов.
// Значки заводятся администратором; оценщик их только читает.
type Badge struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	Icon            string `db:"icon" json:"icon"`
	PointsThreshold int64  `db:"points_threshold" json:"points_threshold"`
}

// EarnedBadge — значок, заработанный пользователем.
// Уникальность пары (user_id, badge_id) гарантируется на уровне БД:
// повторная оценка никогда не создаёт дубликат.
type EarnedBadge struct {
	Badge
	UserID    string    `db:"user_id" json:"user_id"`
	AwardedAt time.Time `db:"awarded_at" json:"awarded_at"`
}
