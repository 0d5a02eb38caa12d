package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/controller/formatting"
	"github.com/Freeeeeet/lesson_bot/internal/controller/keyboard"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// messenger - методы *bot.Bot, которые нужны карточке занятия
type messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// telegramPresenter рисует карточку занятия одним сообщением в чате.
// Toast и Alert во время нажатия на кнопку уходят ответом на callback query.
type telegramPresenter struct {
	api    messenger
	chatID int64
	lookup service.FieldLookup
	loc    *time.Location
	logger *zap.Logger

	mu         sync.Mutex
	messageID  int
	callbackID string
	headline   *service.Notice
	last       *service.View
}

var _ service.Presenter = (*telegramPresenter)(nil)

func newTelegramPresenter(api messenger, chatID int64, messageID int, lookup service.FieldLookup, loc *time.Location, logger *zap.Logger) *telegramPresenter {
	return &telegramPresenter{
		api:       api,
		chatID:    chatID,
		messageID: messageID,
		lookup:    lookup,
		loc:       loc,
		logger:    logger,
	}
}

// begin запоминает callback query, на который ещё не ответили
func (p *telegramPresenter) begin(callbackID string) {
	p.mu.Lock()
	p.callbackID = callbackID
	p.mu.Unlock()
}

// finish отвечает на callback query, если этого ещё никто не сделал
func (p *telegramPresenter) finish(ctx context.Context) {
	id := p.takeCallback()
	if id == "" {
		return
	}
	p.answer(ctx, id, "", false)
}

func (p *telegramPresenter) takeCallback() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.callbackID
	p.callbackID = ""
	return id
}

func (p *telegramPresenter) Render(ctx context.Context, v service.View) {
	p.mu.Lock()
	p.last = &v
	headline := p.headline
	p.mu.Unlock()

	p.draw(ctx, v, headline)

	if v.ShowMeetLink && v.Lesson.HasMeetLink() {
		p.send(ctx, formatting.MeetLink(v.Lesson.MeetLink))
	}
}

func (p *telegramPresenter) Headline(ctx context.Context, n *service.Notice) {
	p.mu.Lock()
	p.headline = n
	last := p.last
	p.mu.Unlock()

	if last == nil {
		if n != nil {
			p.send(ctx, formatting.Notice(*n))
		}
		return
	}

	v := *last
	v.ShowMeetLink = false
	p.draw(ctx, v, n)
}

func (p *telegramPresenter) Toast(ctx context.Context, n service.Notice) {
	if id := p.takeCallback(); id != "" {
		p.answer(ctx, id, plainNotice(n), false)
		return
	}
	p.send(ctx, formatting.Notice(n))
}

func (p *telegramPresenter) Alert(ctx context.Context, n service.Notice) {
	if id := p.takeCallback(); id != "" {
		p.answer(ctx, id, plainNotice(n), true)
		return
	}
	p.send(ctx, formatting.Notice(n))
}

// draw редактирует сообщение карточки или отправляет новое
func (p *telegramPresenter) draw(ctx context.Context, v service.View, headline *service.Notice) {
	text := formatting.LessonCard(v, headline, p.names(ctx, v), p.loc)
	markup := keyboard.LessonCard(v.Lesson.ID, v.Groups)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.messageID != 0 {
		_, err := p.api.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      p.chatID,
			MessageID:   p.messageID,
			Text:        text,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: markup,
		})
		if err == nil {
			return
		}
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		p.logger.Warn("Failed to edit lesson card, sending a new one",
			zap.Int64("chat_id", p.chatID),
			zap.Int64("lesson_id", v.Lesson.ID),
			zap.Error(err))
	}

	msg, err := p.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      p.chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		p.logger.Error("Failed to send lesson card",
			zap.Int64("chat_id", p.chatID),
			zap.Int64("lesson_id", v.Lesson.ID),
			zap.Error(err))
		return
	}
	p.messageID = msg.ID
}

func (p *telegramPresenter) names(ctx context.Context, v service.View) formatting.CardNames {
	var names formatting.CardNames
	l := v.Lesson
	if l.HasStudent() {
		names.Student = p.lookupName(ctx, service.EntityStudent, *l.StudentID, "name")
	}
	if l.HasTeacher() {
		names.Teacher = p.lookupName(ctx, service.EntityUser, *l.TeacherID, "first_name")
	}
	return names
}

func (p *telegramPresenter) lookupName(ctx context.Context, entity service.Entity, id int64, field string) string {
	v, found, err := p.lookup.Lookup(ctx, entity, id, field)
	if err != nil {
		p.logger.Debug("Failed to look up name for lesson card",
			zap.String("entity", string(entity)),
			zap.Int64("id", id),
			zap.Error(err))
		return ""
	}
	if !found {
		return ""
	}
	return v
}

func (p *telegramPresenter) send(ctx context.Context, text string) {
	_, err := p.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    p.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		p.logger.Error("Failed to send message", zap.Int64("chat_id", p.chatID), zap.Error(err))
	}
}

func (p *telegramPresenter) answer(ctx context.Context, callbackID, text string, alert bool) {
	_, err := p.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		p.logger.Debug("Failed to answer callback", zap.Error(err))
	}
}

// plainNotice - текст уведомления без разметки (ответ на callback не поддерживает HTML)
func plainNotice(n service.Notice) string {
	if n.Title != "" {
		return n.Title + ": " + n.Text
	}
	return n.Text
}
