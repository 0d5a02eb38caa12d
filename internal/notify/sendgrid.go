package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// SendgridNotifier отправляет письма через SendGrid
type SendgridNotifier struct {
	client *sendgrid.Client
	from   *sgmail.Email
	loc    *time.Location
	logger *zap.Logger
}

var _ Notifier = (*SendgridNotifier)(nil)

func NewSendgridNotifier(apiKey, from string, loc *time.Location, logger *zap.Logger) *SendgridNotifier {
	return &SendgridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail("OLYA ESL", from),
		loc:    loc,
		logger: logger,
	}
}

// LessonScheduled отправляет письма в фоне, ошибки только логируются
func (n *SendgridNotifier) LessonScheduled(_ context.Context, lesson *model.Lesson, student *model.Student, teacher *model.User) {
	for _, msg := range LessonMessages(lesson, student, teacher, n.loc) {
		go n.send(lesson.ID, msg)
	}
}

func (n *SendgridNotifier) send(lessonID int64, msg Message) {
	m := sgmail.NewSingleEmail(
		n.from,
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.ToAddress),
		msg.Text,
		msg.HTML,
	)

	res, err := n.client.Send(m)
	if err != nil {
		n.logger.Error("Failed to send lesson notification",
			zap.Int64("lesson_id", lessonID),
			zap.Error(err),
		)
		return
	}
	if res.StatusCode >= http.StatusBadRequest {
		n.logger.Error("Lesson notification rejected",
			zap.Int64("lesson_id", lessonID),
			zap.Int("status", res.StatusCode),
			zap.String("body", res.Body),
		)
		return
	}

	n.logger.Info("Lesson notification sent", zap.Int64("lesson_id", lessonID))
}

// LogNotifier только пишет уведомления в лог (SendGrid не настроен)
type LogNotifier struct {
	loc    *time.Location
	logger *zap.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(loc *time.Location, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{loc: loc, logger: logger}
}

func (n *LogNotifier) LessonScheduled(_ context.Context, lesson *model.Lesson, student *model.Student, teacher *model.User) {
	for _, msg := range LessonMessages(lesson, student, teacher, n.loc) {
		n.logger.Info("Lesson notification (not sent)",
			zap.Int64("lesson_id", lesson.ID),
			zap.String("subject", msg.Subject),
			zap.String("text", msg.Text),
		)
	}
}
