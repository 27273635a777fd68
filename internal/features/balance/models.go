// Package balance управляет кэшированным балансом баллов пользователя.
// models.go описывает структуру записи баланса.
//
// Баланс — производный кэш над журналом начислений, а не второй источник
// истины: при расхождении его чинит сверка (reconcile), пересчитывая
// сумму из журнала.
package balance

import "time"

// UserPoints — кэшированный баланс пользователя.
// В согласованном состоянии points равен сумме записей журнала.
type UserPoints struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Points    int64     `db:"points" json:"points"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
