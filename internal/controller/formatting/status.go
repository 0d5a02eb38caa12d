package formatting

import (
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
)

// StatusDisplay представляет отображение статуса занятия
type StatusDisplay struct {
	Emoji string
	Text  string
}

// GetStatusDisplay возвращает emoji и текст для статуса занятия
func GetStatusDisplay(status model.LessonStatus) StatusDisplay {
	displays := map[model.LessonStatus]StatusDisplay{
		model.LessonStatusScheduled:   {"🔵", "Запланировано"},
		model.LessonStatusInProgress:  {"🟠", "Идёт"},
		model.LessonStatusCompleted:   {"🟢", "Завершено"},
		model.LessonStatusCancelled:   {"🔴", "Отменено"},
		model.LessonStatusRescheduled: {"🟣", "Перенесено"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", string(status)}
}

// LevelEmoji возвращает индикатор важности сообщения
func LevelEmoji(level service.Level) string {
	switch level {
	case service.LevelSuccess:
		return "✅"
	case service.LevelWarning:
		return "⚠️"
	case service.LevelDanger:
		return "❌"
	default:
		return "ℹ️"
	}
}
