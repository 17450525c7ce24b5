package handler

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"kada-commute/internal/export"
	"kada-commute/internal/service"
	"kada-commute/internal/session"
)

// sendExport отправляет историю пользователя файлом xlsx.
func (h *Handler) sendExport(ctx context.Context, sess *session.Session) service.Notice {
	chatID := sess.ChatID()

	user, records, err := h.history.Records(ctx, sess)
	if errors.Is(err, session.ErrNotLoggedIn) {
		return service.Notice{}
	}
	if err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Warn("Failed to load history for export")
		return service.Toast(TextExportFailed)
	}

	data, err := export.HistoryXLSX(*user, records)
	if err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to build xlsx")
		return service.Toast(TextExportFailed)
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  export.FileName(*user, h.now()),
		Bytes: data,
	})
	doc.Caption = "📥 История посещений: " + user.Name
	if _, err := h.sender.Send(doc); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to send export")
		return service.Toast(TextExportFailed)
	}
	return service.Notice{}
}
