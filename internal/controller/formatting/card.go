package formatting

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/service"
)

// CardNames - имена студента и учителя для карточки
type CardNames struct {
	Student string
	Teacher string
}

// Notice форматирует уведомление одной строкой (HTML)
func Notice(n service.Notice) string {
	text := html.EscapeString(n.Text)
	if n.Title != "" {
		text = fmt.Sprintf("<b>%s</b>: %s", html.EscapeString(n.Title), text)
	}
	return LevelEmoji(n.Level) + " " + text
}

// LessonCard форматирует карточку занятия (HTML).
// headline перекрывает подсказку о времени, пока идёт долгая операция.
func LessonCard(v service.View, headline *service.Notice, names CardNames, loc *time.Location) string {
	l := v.Lesson
	var sb strings.Builder

	switch {
	case headline != nil:
		sb.WriteString(Notice(*headline))
		sb.WriteString("\n\n")
	case !v.Advisory.IsZero():
		sb.WriteString(Notice(service.Notice{Level: v.Advisory.Level, Text: v.Advisory.Message}))
		sb.WriteString("\n\n")
	}

	st := GetStatusDisplay(l.Status)
	fmt.Fprintf(&sb, "📚 <b>%s</b>\n\n", html.EscapeString(l.Title))
	fmt.Fprintf(&sb, "📊 Статус: %s %s\n", st.Emoji, st.Text)

	if l.IsScheduled() {
		fmt.Fprintf(&sb, "📅 Время: %s (%s)\n",
			FormatDateTime(*l.ScheduledTime, loc),
			FormatTimeRange(*l.ScheduledTime, l.EndTime(), loc))
	} else {
		sb.WriteString("📅 Время: не задано\n")
	}
	fmt.Fprintf(&sb, "⏱ Длительность: %s\n", FormatDuration(l.DurationOrDefault()))

	fmt.Fprintf(&sb, "👤 Студент: %s\n", orUnset(names.Student))
	fmt.Fprintf(&sb, "🎓 Учитель: %s\n", orUnset(names.Teacher))

	if l.Notes != "" {
		fmt.Fprintf(&sb, "\n📝 Заметки:\n%s\n", html.EscapeString(l.Notes))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// MeetLink форматирует отдельное сообщение со ссылкой на встречу
func MeetLink(link string) string {
	return fmt.Sprintf("🎥 <b>Google Meet</b>\n\n%s", html.EscapeString(link))
}

func orUnset(s string) string {
	if s == "" {
		return "не указан"
	}
	return html.EscapeString(s)
}
