package handlers

import (
	"context"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	msgInternalError = "❌ Произошла ошибка. Попробуйте позже."
	msgUserNotFound  = "❌ Пользователь не найден. Используйте /start для регистрации."
	msgTeachersOnly  = "❌ Эта команда доступна только учителям.\n\nСтать учителем: /becometeacher"
)

// lookupUser получает пользователя; при отказе возвращает текст ошибки для пользователя
func (h *Handlers) lookupUser(ctx context.Context, telegramID int64, teacherOnly bool) (*model.User, string) {
	user, err := h.userService.GetByTelegramID(ctx, telegramID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return nil, msgInternalError
	}
	if user == nil {
		return nil, msgUserNotFound
	}
	if teacherOnly && !user.IsTeacher {
		return nil, msgTeachersOnly
	}
	return user, ""
}

// requireUser проверяет что пользователь существует
// Возвращает user и true если OK, nil и false если нет
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	if update.Message == nil {
		return nil, false
	}

	user, errText := h.lookupUser(ctx, update.Message.From.ID, false)
	if user == nil {
		h.sendError(ctx, b, update.Message.Chat.ID, errText)
		return nil, false
	}
	return user, true
}

// requireTeacher проверяет что пользователь является учителем
func (h *Handlers) requireTeacher(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	if update.Message == nil {
		return nil, false
	}

	user, errText := h.lookupUser(ctx, update.Message.From.ID, true)
	if user == nil {
		h.sendError(ctx, b, update.Message.Chat.ID, errText)
		return nil, false
	}
	return user, true
}

// requireTeacherCallback - то же для нажатий на кнопки; ошибка показывается alert'ом
func (h *Handlers) requireTeacherCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) (*model.User, bool) {
	user, errText := h.lookupUser(ctx, callback.From.ID, true)
	if user == nil {
		answerCallbackAlert(ctx, b, callback.ID, errText)
		return nil, false
	}
	return user, true
}
