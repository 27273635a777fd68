// Package notify отправляет анонсы в чат сообщества через Telegram.
// Анонсы — некритичный побочный эффект: любая ошибка отправки логируется
// и проглатывается, начисления и значки от неё не зависят.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/common"
	"communityhub.ru/gamification/internal/features/badges"
)

// TelegramAnnouncer постит анонсы новых значков в чат сообщества.
// Реализует badges.Notifier.
type TelegramAnnouncer struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramAnnouncer создаёт анонсер и авторизуется в Telegram API.
func NewTelegramAnnouncer(token string, chatID int64) (*TelegramAnnouncer, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	log.Infof("Анонсер авторизован как @%s", api.Self.UserName)

	return &TelegramAnnouncer{api: api, chatID: chatID}, nil
}

// AnnounceBadge объявляет о новом значке пользователя.
func (a *TelegramAnnouncer) AnnounceBadge(userID string, badge *badges.Badge) {
	text := fmt.Sprintf("%s Пользователь %s получил значок «%s» (%s)!",
		badge.Icon, userID, badge.Name, common.FormatPoints(badge.PointsThreshold))

	msg := tgbotapi.NewMessage(a.chatID, text)
	if _, err := a.api.Send(msg); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"badge":   badge.Name,
		}).Warn("Не удалось отправить анонс значка")
	}
}
