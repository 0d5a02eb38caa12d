package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Freeeeeet/lesson_bot/internal/form"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"go.uber.org/zap"
)

// LessonController обслуживает одну открытую форму занятия
type LessonController struct {
	svc       *LessonService
	form      form.Form
	presenter Presenter

	mu            sync.Mutex
	meetLinkShown bool // Блок со ссылкой уже показывали в этой сессии
}

// Bind привязывает контроллер к форме и регистрирует обработчики полей
func (s *LessonService) Bind(f form.Form, p Presenter) *LessonController {
	c := &LessonController{
		svc:       s,
		form:      f,
		presenter: p,
	}

	f.On(form.FieldScheduledTime, c.onScheduledTimeChange)
	f.On(form.FieldStudent, c.onStudentChange)
	f.On(form.EventRefresh, c.onRefresh)

	return c
}

// Form возвращает форму контроллера
func (c *LessonController) Form() form.Form {
	return c.form
}

// Lesson возвращает текущее состояние занятия
func (c *LessonController) Lesson() *model.Lesson {
	return c.form.Lesson()
}

func (c *LessonController) onScheduledTimeChange(ctx context.Context, f form.Form) {
	l := f.Lesson()

	err := c.svc.CheckScheduledTime(l.ScheduledTime)
	if err == nil {
		return
	}

	if setErr := f.SetValue(ctx, form.FieldScheduledTime, ""); setErr != nil {
		c.svc.logger.Error("Failed to reset scheduled time", zap.Int64("lesson_id", l.ID), zap.Error(setErr))
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		c.presenter.Alert(ctx, Notice{Level: LevelDanger, Title: ve.Title, Text: ve.Message})
	}
}

func (c *LessonController) onStudentChange(ctx context.Context, f form.Form) {
	c.FillTeacher(ctx)
}

func (c *LessonController) onRefresh(ctx context.Context, f form.Form) {
	c.Render(ctx)
}

// FillTeacher подставляет учителя студента, если учитель ещё не выбран
func (c *LessonController) FillTeacher(ctx context.Context) {
	l := c.form.Lesson()
	if !l.HasStudent() || l.HasTeacher() {
		return
	}

	teacherID, found := c.svc.teacherOfStudent(ctx, *l.StudentID)
	if !found {
		return
	}

	// Пока шёл запрос, учителя могли выбрать вручную
	if c.form.Value(form.FieldTeacher) != "" {
		return
	}

	if err := c.form.SetValue(ctx, form.FieldTeacher, teacherID); err != nil {
		c.svc.logger.Debug("Failed to set teacher from student",
			zap.Int64("lesson_id", l.ID),
			zap.String("teacher", teacherID),
			zap.Error(err))
	}
}

// Render передаёт хосту текущее состояние карточки
func (c *LessonController) Render(ctx context.Context) {
	l := c.form.Lesson()

	showLink := false
	if l.HasMeetLink() {
		c.mu.Lock()
		showLink = !c.meetLinkShown
		c.meetLinkShown = true
		c.mu.Unlock()
	}

	c.presenter.Render(ctx, View{
		Lesson:       l,
		Groups:       c.svc.Actions(l),
		Advisory:     c.svc.Advisory(l),
		ShowMeetLink: showLink,
	})
}

// Actions возвращает действия, доступные сейчас
func (c *LessonController) Actions() []model.ActionGroup {
	return c.svc.Actions(c.form.Lesson())
}

// Offered проверяет, предлагается ли действие сейчас
func (c *LessonController) Offered(action model.LessonAction) bool {
	return c.svc.IsOffered(c.form.Lesson(), action)
}

// Dispatch выполняет действие, только если оно сейчас предлагается
func (c *LessonController) Dispatch(ctx context.Context, action model.LessonAction, reason string) error {
	if !c.Offered(action) {
		return ErrActionNotOffered
	}

	switch action {
	case model.ActionCreateMeetLink:
		return c.CreateMeetLink(ctx)
	case model.ActionStartLesson:
		return c.Start(ctx)
	case model.ActionCompleteLesson:
		return c.Complete(ctx)
	case model.ActionCancelLesson:
		return c.Cancel(ctx, reason)
	}

	// Остальные действия - навигация, их выполняет хост
	return ErrActionNotOffered
}

// CreateMeetLink создаёт ссылку на встречу и сохраняет занятие
func (c *LessonController) CreateMeetLink(ctx context.Context) error {
	l := c.form.Lesson()

	release, ok := c.svc.acquireMeet(l.ID)
	if !ok {
		return ErrMeetLinkInFlight
	}
	defer release()

	// Кнопка создания пропадает, пока идёт запрос
	c.Render(ctx)
	c.presenter.Headline(ctx, &Notice{Level: LevelInfo, Text: "Creating Google Meet link..."})

	link, err := c.svc.requestMeetLink(ctx, l)
	if err != nil {
		c.presenter.Headline(ctx, nil)
		c.svc.logger.Error("Meet link creation error",
			zap.Int64("lesson_id", l.ID),
			zap.Error(err))
		c.presenter.Alert(ctx, Notice{
			Level: LevelDanger,
			Title: "Error",
			Text:  "Failed to create Meet link. Please check Google API configuration.",
		})
		return ErrMeetLinkFailed
	}

	if err := c.form.SetValue(ctx, form.FieldMeetLink, link); err != nil {
		c.presenter.Headline(ctx, nil)
		return fmt.Errorf("set meet link: %w", err)
	}

	if err := c.form.Save(ctx); err != nil {
		c.presenter.Headline(ctx, nil)
		// Ссылка не сохранилась - возвращаем поле, чтобы действие снова было доступно
		if resetErr := c.form.SetValue(ctx, form.FieldMeetLink, ""); resetErr != nil {
			c.svc.logger.Error("Failed to reset meet link", zap.Int64("lesson_id", l.ID), zap.Error(resetErr))
		}
		return fmt.Errorf("save lesson: %w", err)
	}

	c.svc.logger.Info("Meet link created",
		zap.Int64("lesson_id", l.ID),
		zap.String("meet_link", link))

	c.presenter.Headline(ctx, nil)
	c.presenter.Toast(ctx, Notice{Level: LevelSuccess, Text: "Google Meet link created and saved!"})
	release()
	c.form.Refresh(ctx)

	return nil
}

// Start переводит занятие в In Progress
func (c *LessonController) Start(ctx context.Context) error {
	return c.transition(ctx, model.ActionStartLesson, "")
}

// Complete переводит занятие в Completed
func (c *LessonController) Complete(ctx context.Context) error {
	return c.transition(ctx, model.ActionCompleteLesson, "")
}

// Cancel отменяет занятие; пустая причина - отказ от отмены, запись не меняется
func (c *LessonController) Cancel(ctx context.Context, reason string) error {
	return c.transition(ctx, model.ActionCancelLesson, reason)
}

func (c *LessonController) transition(ctx context.Context, action model.LessonAction, reason string) error {
	l := c.form.Lesson()

	tr, ok := model.TransitionFor(l.Status, action)
	if !ok || tr.Trigger != model.TriggerUser {
		return fmt.Errorf("%s from %s: %w", action, l.Status, ErrTransitionNotAllowed)
	}

	reason = strings.TrimSpace(reason)
	if tr.NeedsReason && reason == "" {
		return ErrReasonRequired
	}

	next := l.Clone()
	next.Status = tr.To
	if tr.NeedsReason {
		next.AppendNote(model.CancellationNote(reason))
	}

	if err := c.form.SetValue(ctx, form.FieldStatus, string(next.Status)); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if next.Notes != l.Notes {
		if err := c.form.SetValue(ctx, form.FieldNotes, next.Notes); err != nil {
			c.restore(ctx, l)
			return fmt.Errorf("set notes: %w", err)
		}
	}

	if err := c.form.Save(ctx); err != nil {
		c.restore(ctx, l)
		return fmt.Errorf("save lesson: %w", err)
	}

	c.svc.logger.Info("Lesson status changed",
		zap.Int64("lesson_id", l.ID),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)))

	c.presenter.Toast(ctx, Notice{Level: LevelSuccess, Text: "Status: " + string(tr.To)})
	c.form.Refresh(ctx)

	return nil
}

// restore возвращает статус и заметки после неудачного сохранения
func (c *LessonController) restore(ctx context.Context, prev *model.Lesson) {
	if err := c.form.SetValue(ctx, form.FieldStatus, string(prev.Status)); err != nil {
		c.svc.logger.Error("Failed to restore lesson status",
			zap.Int64("lesson_id", prev.ID),
			zap.String("status", string(prev.Status)),
			zap.Error(err))
	}
	if err := c.form.SetValue(ctx, form.FieldNotes, prev.Notes); err != nil {
		c.svc.logger.Error("Failed to restore lesson notes", zap.Int64("lesson_id", prev.ID), zap.Error(err))
	}
}

// Reload перечитывает занятие из хранилища, например после ErrLessonConflict
func (c *LessonController) Reload(ctx context.Context) error {
	id := c.form.Lesson().ID

	l, err := c.svc.lessons.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get lesson: %w", err)
	}
	if l == nil {
		return ErrLessonNotFound
	}

	c.form.Reset(l)
	c.svc.logger.Debug("Lesson reloaded",
		zap.Int64("lesson_id", id),
		zap.String("status", string(l.Status)))

	return nil
}
