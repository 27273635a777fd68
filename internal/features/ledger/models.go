// Package ledger реализует журнал начислений — источник истины по баллам.
// models.go описывает структуру записи журнала.
package ledger

import "time"

// Entry — одна запись журнала начислений.
// Журнал append-only: записи никогда не изменяются и не удаляются
// в штатной работе, это неизменяемая история для аудита и сверки.
type Entry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Action    string    `db:"action" json:"action"` // Имя правила на момент начисления (мягкая ссылка)
	Points    int64     `db:"points" json:"points"` // Фиксируется при начислении; правки правила историю не меняют
	RelatedID *string   `db:"related_id" json:"related_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
