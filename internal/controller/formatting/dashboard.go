package formatting

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
)

// LessonLabel - подпись занятия в списке
func LessonLabel(l *model.Lesson, loc *time.Location) string {
	st := GetStatusDisplay(l.Status)
	if !l.IsScheduled() {
		return fmt.Sprintf("%s %s", st.Emoji, l.Title)
	}
	return fmt.Sprintf("%s %s · %s", st.Emoji, FormatDateTime(*l.ScheduledTime, loc), l.Title)
}

// Dashboard форматирует статистику учителя (HTML)
func Dashboard(d *model.TeacherDashboard, loc *time.Location) string {
	var sb strings.Builder

	sb.WriteString("📊 <b>Дашборд</b>\n\n")
	fmt.Fprintf(&sb, "Последних занятий: %d\n", d.Stats.TotalLessons)
	fmt.Fprintf(&sb, "✅ Завершено: %d\n", d.Stats.CompletedLessons)
	fmt.Fprintf(&sb, "🔵 Предстоит: %d\n", d.Stats.UpcomingLessons)
	fmt.Fprintf(&sb, "👥 Студентов: %d\n", d.Stats.TotalStudents)

	if len(d.RecentLessons) > 0 {
		sb.WriteString("\n<b>Последние занятия:</b>\n")
		for _, l := range d.RecentLessons {
			sb.WriteString(html.EscapeString(LessonLabel(l, loc)))
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
