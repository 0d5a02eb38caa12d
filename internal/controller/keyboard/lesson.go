package keyboard

import (
	"fmt"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/go-telegram/bot/models"
)

var actionLabels = map[model.LessonAction]string{
	model.ActionCreateMeetLink: "🎥 Создать ссылку Meet",
	model.ActionJoinMeet:       "▶️ Войти в Meet",
	model.ActionStartLesson:    "🟠 Начать занятие",
	model.ActionCancelLesson:   "❌ Отменить занятие",
	model.ActionCompleteLesson: "✅ Завершить занятие",
	model.ActionOpenWhiteboard: "🖊 Доска",
	model.ActionStudentProfile: "👤 Профиль студента",
}

// ActionLabel возвращает подпись кнопки действия
func ActionLabel(b model.ActionButton) string {
	if label, ok := actionLabels[b.Action]; ok {
		return label
	}
	return b.Label
}

// LessonCard строит клавиатуру карточки: группы действий, затем редактирование полей
func LessonCard(lessonID int64, groups []model.ActionGroup) *models.InlineKeyboardMarkup {
	kb := NewBuilder()

	for _, g := range groups {
		row := make([]models.InlineKeyboardButton, 0, len(g.Buttons))
		for _, btn := range g.Buttons {
			if btn.URL != "" {
				row = append(row, URLButton(ActionLabel(btn), btn.URL))
				continue
			}
			row = append(row, Button(ActionLabel(btn), LessonCallback(lessonID, string(btn.Action))))
		}
		kb.Row(row...)
	}

	kb.Row(
		Button("🕐 Время", LessonCallback(lessonID, OpSetTime)),
		Button("👤 Студент", LessonCallback(lessonID, OpPickStudent)),
		Button("🔄", LessonCallback(lessonID, OpRefresh)),
	)

	return kb.Build()
}

// StudentPicker строит список студентов для выбора в карточку
func StudentPicker(lessonID int64, students []*model.Student) *models.InlineKeyboardMarkup {
	kb := NewBuilder()
	for _, s := range students {
		kb.Row(Button(s.Name, LessonCallback(lessonID, OpSetStudent, s.ID)))
	}
	kb.Row(Button("⬅️ Назад", LessonCallback(lessonID, OpRefresh)))
	return kb.Build()
}

// LessonList строит список занятий; label формирует подпись
func LessonList(lessons []*model.Lesson, label func(*model.Lesson) string) *models.InlineKeyboardMarkup {
	kb := NewBuilder()
	for _, l := range lessons {
		text := label(l)
		if text == "" {
			text = fmt.Sprintf("Занятие #%d", l.ID)
		}
		kb.Row(Button(text, LessonCallback(l.ID, OpOpen)))
	}
	return kb.Build()
}
