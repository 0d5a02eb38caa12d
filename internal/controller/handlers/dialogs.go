package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/Freeeeeet/lesson_bot/internal/controller/state"
	"github.com/Freeeeeet/lesson_bot/internal/form"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const msgCardClosed = "❌ Карточка занятия закрыта. Откройте занятие заново: /lessons"

// dialogSession возвращает карточку, к которой относится текущий диалог
func (h *Handlers) dialogSession(ctx context.Context, b *bot.Bot, update *models.Update) (*lessonSession, bool) {
	telegramID := update.Message.From.ID

	lessonID, ok := h.stateManager.GetInt64(telegramID, state.DataLessonID)
	if ok {
		if s, ok := h.session(telegramID, lessonID); ok {
			return s, true
		}
	}

	h.logger.Debug("Dialog lost its lesson card", zap.Int64("telegram_id", telegramID))
	h.stateManager.ResetDialog(telegramID)
	h.sendError(ctx, b, update.Message.Chat.ID, msgCardClosed)
	return nil, false
}

// handleNewLessonTitle создаёт занятие с введённым названием и открывает его карточку
func (h *Handlers) handleNewLessonTitle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireTeacher(ctx, b, update); !ok {
		return
	}

	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	lesson, err := h.lessonService.CreateLesson(ctx, service.NewLesson{
		Title: update.Message.Text,
	})
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			h.sendError(ctx, b, chatID, "❌ Название не может быть пустым. Попробуйте ещё раз или отправьте /cancel.")
			return
		}
		h.logger.Error("Failed to create lesson", zap.Error(err))
		h.stateManager.ResetDialog(telegramID)
		h.sendError(ctx, b, chatID, msgInternalError)
		return
	}

	h.stateManager.ResetDialog(telegramID)

	if _, err := h.openCard(ctx, b, chatID, telegramID, lesson.ID, 0); err != nil {
		h.reportOpenError(ctx, b, chatID, lesson.ID, err)
	}
}

// handleLessonTime применяет введённое время к открытой карточке
func (h *Handlers) handleLessonTime(ctx context.Context, b *bot.Bot, update *models.Update) {
	s, ok := h.dialogSession(ctx, b, update)
	if !ok {
		return
	}

	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	f := s.ctrl.Form()
	prev := f.Value(form.FieldScheduledTime)

	if err := f.SetValue(ctx, form.FieldScheduledTime, update.Message.Text); err != nil {
		if errors.Is(err, form.ErrInvalidValue) {
			h.sendError(ctx, b, chatID,
				"❌ Неверный формат времени!\n\nИспользуйте формат ДД.ММ.ГГГГ ЧЧ:ММ (например, 15.03.2026 18:30)\n\n"+
					"Попробуйте еще раз или отправьте /cancel для отмены.")
			return
		}
		h.logger.Error("Failed to set lesson time", zap.Error(err))
		h.stateManager.ResetDialog(telegramID)
		h.sendError(ctx, b, chatID, msgInternalError)
		return
	}

	// Время в прошлом контроллер сбросил и показал alert - ждём другое время
	if f.Value(form.FieldScheduledTime) == "" {
		return
	}

	if err := f.Save(ctx); err != nil {
		h.restoreFields(ctx, f, fieldValue{form.FieldScheduledTime, prev})
		h.stateManager.ResetDialog(telegramID)
		h.reportActionError(ctx, s, err)
		return
	}

	h.stateManager.ResetDialog(telegramID)
	s.presenter.Toast(ctx, service.Notice{Level: service.LevelSuccess, Text: "Время занятия сохранено"})
	f.Refresh(ctx)
}

// handleCancelReason отменяет занятие с введённой причиной
func (h *Handlers) handleCancelReason(ctx context.Context, b *bot.Bot, update *models.Update) {
	s, ok := h.dialogSession(ctx, b, update)
	if !ok {
		return
	}

	err := s.ctrl.Dispatch(ctx, model.ActionCancelLesson, update.Message.Text)
	if errors.Is(err, service.ErrReasonRequired) {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Причина не может быть пустой. Напишите причину или отправьте /cancel.")
		return
	}

	h.stateManager.ResetDialog(update.Message.From.ID)
	h.reportActionError(ctx, s, err)
}

// handleUserEmail сохраняет email пользователя
func (h *Handlers) handleUserEmail(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	chatID := update.Message.Chat.ID
	email := strings.TrimSpace(update.Message.Text)

	if err := h.userService.SetEmail(ctx, user.ID, email); err != nil {
		if service.IsValidation(err) {
			h.sendError(ctx, b, chatID, "❌ Неверный email. Попробуйте ещё раз или отправьте /cancel.")
			return
		}
		h.logger.Error("Failed to set email", zap.Int64("user_id", user.ID), zap.Error(err))
		h.stateManager.ResetDialog(update.Message.From.ID)
		h.sendError(ctx, b, chatID, msgInternalError)
		return
	}

	h.stateManager.ResetDialog(update.Message.From.ID)
	h.sendMessage(ctx, b, chatID, "✅ Email сохранён. Уведомления о новых занятиях придут на него.")
}
