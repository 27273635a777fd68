// Package balance — repository.go выполняет операции с таблицей user_points.
package balance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с кэшем балансов.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий балансов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает кэшированный баланс пользователя.
// Если записи нет — 0 без ошибки: отсутствие строки равносильно
// пустому балансу.
func (r *Repository) Get(ctx context.Context, userID string) (int64, error) {
	query := `SELECT points FROM user_points WHERE user_id = $1`
	var points int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return points, nil
}

// AddPoints атомарно увеличивает баланс пользователя на delta
// (создавая запись при первом начислении) и возвращает новое значение.
func (r *Repository) AddPoints(ctx context.Context, userID string, delta int64) (int64, error) {
	query := `
		INSERT INTO user_points (user_id, points)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET points = user_points.points + EXCLUDED.points, updated_at = NOW()
		RETURNING points
	`
	var points int64
	err := r.db.QueryRow(ctx, query, userID, delta).Scan(&points)
	if err != nil {
		return 0, fmt.Errorf("ошибка начисления на баланс: %w", err)
	}
	return points, nil
}

// Set перезаписывает баланс пользователя значением points.
// Используется только сверкой для ремонта расхождений.
func (r *Repository) Set(ctx context.Context, userID string, points int64) error {
	query := `
		INSERT INTO user_points (user_id, points)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET points = EXCLUDED.points, updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, userID, points); err != nil {
		return fmt.Errorf("ошибка перезаписи баланса: %w", err)
	}
	return nil
}

// Top возвращает N пользователей с наибольшим балансом.
// Читает из кэша: для рейтинга допустима небольшая несвежесть.
func (r *Repository) Top(ctx context.Context, limit int) ([]*UserPoints, error) {
	query := `
		SELECT user_id, points, updated_at
		FROM user_points
		ORDER BY points DESC, user_id
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения рейтинга: %w", err)
	}
	defer rows.Close()

	var top []*UserPoints
	for rows.Next() {
		var up UserPoints
		if err := rows.Scan(&up.UserID, &up.Points, &up.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования баланса: %w", err)
		}
		top = append(top, &up)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return top, nil
}
