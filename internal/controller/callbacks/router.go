package callbacks

import (
	"context"

	"github.com/Freeeeeet/lesson_bot/internal/controller/keyboard"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Noop - кнопка без действия
const Noop = "noop"

// Route распределяет callback query по соответствующим обработчикам
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *Handler) {
	data := callback.Data

	if data == Noop {
		answer(ctx, b, callback.ID, "")
		return
	}

	if cb, ok := keyboard.ParseLessonCallback(data); ok {
		h.lessons.HandleLessonCallback(ctx, b, callback, cb)
		return
	}

	h.logger.Warn("Unknown callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID))
	answer(ctx, b, callback.ID, "❌ Неизвестная команда")
}

func answer(ctx context.Context, b *bot.Bot, callbackID, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
}
