// Package badges — repository.go выполняет операции с таблицами
// badges и user_badges.
package badges

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицами badges и user_badges.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий значков.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Eligible возвращает все значки с порогом не выше balance.
func (r *Repository) Eligible(ctx context.Context, balance int64) ([]*Badge, error) {
	query := `
		SELECT id, name, icon, points_threshold
		FROM badges
		WHERE points_threshold <= $1
		ORDER BY points_threshold
	`
	rows, err := r.db.Query(ctx, query, balance)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения значков: %w", err)
	}
	defer rows.Close()

	var list []*Badge
	for rows.Next() {
		var b Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.Icon, &b.PointsThreshold); err != nil {
			return nil, fmt.Errorf("ошибка сканирования значка: %w", err)
		}
		list = append(list, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return list, nil
}

// Grant выдаёт значок пользователю. Возвращает true, если значок выдан
// именно сейчас, и false, если он уже был у пользователя: конфликт по
// уникальной паре (user_id, badge_id) — штатный исход, а не ошибка.
func (r *Repository) Grant(ctx context.Context, userID string, badgeID int64) (bool, error) {
	query := `
		INSERT INTO user_badges (user_id, badge_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("ошибка выдачи значка: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListForUser возвращает значки пользователя вместе с датой получения.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]*EarnedBadge, error) {
	query := `
		SELECT b.id, b.name, b.icon, b.points_threshold, ub.user_id, ub.awarded_at
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.awarded_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения значков пользователя: %w", err)
	}
	defer rows.Close()

	var list []*EarnedBadge
	for rows.Next() {
		var eb EarnedBadge
		if err := rows.Scan(&eb.ID, &eb.Name, &eb.Icon, &eb.PointsThreshold, &eb.UserID, &eb.AwardedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования значка: %w", err)
		}
		list = append(list, &eb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return list, nil
}
