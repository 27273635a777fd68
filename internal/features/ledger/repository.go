// Package ledger — repository.go выполняет все операции с таблицей points_ledger.
// Защита от двойных начислений за одну цель держится на частичном уникальном
// индексе (user_id, action, related_id) WHERE related_id IS NOT NULL:
// гонку двух одновременных вставок разрешает сама база, а не приложение.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"communityhub.ru/gamification/internal/common"
	"communityhub.ru/gamification/internal/db/postgres"
)

// Repository предоставляет методы для работы с журналом начислений.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий журнала.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Append добавляет запись в журнал и заполняет её ID и created_at.
// Нарушение уникального индекса (вторая вставка за ту же цель)
// возвращается как common.ErrDuplicateEntry — движок трактует его
// как «уже начислено», а не как сбой.
func (r *Repository) Append(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO points_ledger (user_id, action, points, related_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, e.UserID, e.Action, e.Points, e.RelatedID).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return common.ErrDuplicateEntry
		}
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}
	return nil
}

// HasForTarget проверяет, есть ли начисление за тройку
// (user_id, action, related_id).
func (r *Repository) HasForTarget(ctx context.Context, userID, action, relatedID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM points_ledger
			WHERE user_id = $1 AND action = $2 AND related_id = $3
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID, action, relatedID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки начисления за цель: %w", err)
	}
	return exists, nil
}

// HasSince проверяет, есть ли начисление (user_id, action) начиная
// с момента since. Используется для дневного лимита: since — начало
// календарных суток по UTC.
func (r *Repository) HasSince(ctx context.Context, userID, action string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM points_ledger
			WHERE user_id = $1 AND action = $2 AND created_at >= $3
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID, action, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки дневного лимита: %w", err)
	}
	return exists, nil
}

// HasAny проверяет, было ли хоть одно начисление (user_id, action)
// за всё время.
func (r *Repository) HasAny(ctx context.Context, userID, action string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM points_ledger
			WHERE user_id = $1 AND action = $2
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID, action).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки начисления: %w", err)
	}
	return exists, nil
}

// SumPoints возвращает сумму всех начислений пользователя по журналу.
// Это авторитетное значение баланса; кэш в user_points сверяется с ним.
func (r *Repository) SumPoints(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COALESCE(SUM(points), 0) FROM points_ledger WHERE user_id = $1`
	var sum int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("ошибка суммирования журнала: %w", err)
	}
	return sum, nil
}

// ListByUser возвращает последние N записей журнала пользователя.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	query := `
		SELECT id, user_id, action, points, related_id, created_at
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Points, &e.RelatedID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return entries, nil
}

// KnownUserIDs возвращает всех пользователей, известных системе баллов:
// объединение журнала и таблицы кэшированных балансов. Так сверка чинит
// и потерянную строку баланса, и осиротевший баланс без записей в журнале.
func (r *Repository) KnownUserIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT user_id FROM points_ledger
		UNION
		SELECT user_id FROM user_points
		ORDER BY user_id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования user_id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return ids, nil
}
