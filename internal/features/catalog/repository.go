// Package catalog — repository.go выполняет операции с таблицами
// action_rules и action_aliases.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"communityhub.ru/gamification/internal/common"
)

// Repository работает с таблицами action_rules и action_aliases.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий каталога правил.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RuleByName возвращает правило по точному имени.
// Если правила нет — common.ErrRuleNotFound.
func (r *Repository) RuleByName(ctx context.Context, name string) (*ActionRule, error) {
	query := `
		SELECT id, name, points, enabled, limit_policy, created_at, updated_at
		FROM action_rules
		WHERE name = $1
	`
	var rule ActionRule
	err := r.db.QueryRow(ctx, query, name).Scan(
		&rule.ID, &rule.Name, &rule.Points, &rule.Enabled,
		&rule.LimitPolicy, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrRuleNotFound
		}
		return nil, fmt.Errorf("ошибка чтения правила (name=%s): %w", name, err)
	}
	return &rule, nil
}

// AliasTarget возвращает каноническое имя для псевдонима действия.
// Если псевдонима нет — пустая строка без ошибки.
func (r *Repository) AliasTarget(ctx context.Context, alias string) (string, error) {
	query := `SELECT rule_name FROM action_aliases WHERE alias = $1`
	var canonical string
	err := r.db.QueryRow(ctx, query, alias).Scan(&canonical)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("ошибка чтения псевдонима (alias=%s): %w", alias, err)
	}
	return canonical, nil
}

// List возвращает все правила каталога по имени.
func (r *Repository) List(ctx context.Context) ([]*ActionRule, error) {
	query := `
		SELECT id, name, points, enabled, limit_policy, created_at, updated_at
		FROM action_rules
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса правил: %w", err)
	}
	defer rows.Close()

	var rules []*ActionRule
	for rows.Next() {
		var rule ActionRule
		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Points, &rule.Enabled,
			&rule.LimitPolicy, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования правила: %w", err)
		}
		rules = append(rules, &rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return rules, nil
}

// Upsert создаёт или обновляет правило. Используется админ-эндпоинтами;
// история начислений не меняется — баллы фиксируются в журнале на момент
// начисления.
func (r *Repository) Upsert(ctx context.Context, rule *ActionRule) error {
	query := `
		INSERT INTO action_rules (name, points, enabled, limit_policy)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET points = EXCLUDED.points,
		    enabled = EXCLUDED.enabled,
		    limit_policy = EXCLUDED.limit_policy,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, rule.Name, rule.Points, rule.Enabled, rule.LimitPolicy)
	if err != nil {
		return fmt.Errorf("ошибка сохранения правила (name=%s): %w", rule.Name, err)
	}
	return nil
}

// SetEnabled включает или выключает правило.
func (r *Repository) SetEnabled(ctx context.Context, name string, enabled bool) error {
	query := `UPDATE action_rules SET enabled = $2, updated_at = NOW() WHERE name = $1`
	tag, err := r.db.Exec(ctx, query, name, enabled)
	if err != nil {
		return fmt.Errorf("ошибка переключения правила (name=%s): %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrRuleNotFound
	}
	return nil
}
