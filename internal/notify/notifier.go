// Package notify рассылает уведомления о новых занятиях.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
)

// Notifier отправляет уведомление о запланированном занятии
type Notifier interface {
	LessonScheduled(ctx context.Context, lesson *model.Lesson, student *model.Student, teacher *model.User)
}

// Message - одно письмо
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	Text      string
	HTML      string
}

// LessonMessages собирает письма студенту и учителю; адресаты без email пропускаются
func LessonMessages(lesson *model.Lesson, student *model.Student, teacher *model.User, loc *time.Location) []Message {
	if student == nil || teacher == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	when := "not set"
	if lesson.IsScheduled() {
		when = lesson.ScheduledTime.In(loc).Format("02.01.2006 15:04 MST")
	}
	subject := "ESL Lesson Scheduled: " + lesson.Title

	var msgs []Message
	if student.Email != "" {
		lines := []string{
			"Your ESL lesson has been scheduled!",
			"Lesson: " + lesson.Title,
			"Teacher: " + teacher.FullName(),
			"Time: " + when,
			fmt.Sprintf("Duration: %d minutes", lesson.DurationOrDefault()),
		}
		if lesson.HasMeetLink() {
			lines = append(lines, "Meet Link: "+lesson.MeetLink)
		}
		lines = append(lines, "Please be ready 5 minutes before the scheduled time.")
		msgs = append(msgs, newMessage(student.Name, student.Email, subject, lines))
	}

	if teacher.Email != "" {
		lines := []string{
			"You have a new ESL lesson scheduled!",
			"Lesson: " + lesson.Title,
			"Student: " + student.Name,
			"Time: " + when,
			fmt.Sprintf("Duration: %d minutes", lesson.DurationOrDefault()),
		}
		if lesson.HasMeetLink() {
			lines = append(lines, "Meet Link: "+lesson.MeetLink)
		}
		lines = append(lines, "Open the lesson card to add lesson plans and materials.")
		msgs = append(msgs, newMessage(teacher.FullName(), teacher.Email, subject, lines))
	}

	return msgs
}

func newMessage(name, addr, subject string, lines []string) Message {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(l))
		b.WriteString("</p>\n")
	}
	return Message{
		ToName:    name,
		ToAddress: addr,
		Subject:   subject,
		Text:      strings.Join(lines, "\n"),
		HTML:      b.String(),
	}
}
