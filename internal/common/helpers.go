// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: работа с границами суток, русская плюрализация,
// форматирование баллов для уведомлений.
package common

import (
	"fmt"
	"math"
	"time"
)

// UTCDayStart возвращает начало календарных суток по UTC для момента t.
// Все дневные лимиты (once_per_day) считаются по UTC, а не по локальному
// времени: так поведение детерминировано при нескольких инстансах сервиса
// в разных часовых поясах.
//
// Пример:
//
//	UTCDayStart(2026-03-01 18:30 MSK) → 2026-03-01 00:00 UTC
func UTCDayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameUTCDay сообщает, попадают ли два момента в одни календарные сутки UTC.
func SameUTCDay(a, b time.Time) bool {
	return UTCDayStart(a).Equal(UTCDayStart(b))
}

// PluralizePoints возвращает правильную форму слова «балл» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "балл" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "балла" (2, 3, 4, 22, ...)
//   - Остальные случаи → "баллов" (0, 5-20, 25-30, 100, ...)
func PluralizePoints(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "балл"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "балла"
	}
	return "баллов"
}

// FormatPoints форматирует количество баллов в читабельную строку.
// Пример: FormatPoints(150) → "150 баллов"
func FormatPoints(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizePoints(n))
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (UTC).
// Используется для отображения дат в истории начислений.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("02.01.2006 15:04")
}
