package callbacks

import (
	"context"

	"github.com/Freeeeeet/lesson_bot/internal/controller/keyboard"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// LessonHandler обрабатывает кнопки карточки занятия (handlers.Handlers)
type LessonHandler interface {
	HandleLessonCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, data keyboard.LessonCallbackData)
}

// Handler - точка входа для всех callback queries
type Handler struct {
	lessons LessonHandler
	logger  *zap.Logger
}

// NewHandler создаёт новый обработчик callbacks с зависимостями
func NewHandler(lessons LessonHandler, logger *zap.Logger) *Handler {
	return &Handler{
		lessons: lessons,
		logger:  logger,
	}
}

// HandleCallbackQuery - главный обработчик callback queries
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	callback := update.CallbackQuery

	h.logger.Debug("Callback received",
		zap.String("data", callback.Data),
		zap.Int64("user_id", callback.From.ID),
	)

	// Вызываем роутер
	Route(ctx, b, callback, h)
}
