package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"

	"github.com/Freeeeeet/lesson_bot/internal/controller/formatting"
	"github.com/Freeeeeet/lesson_bot/internal/controller/keyboard"
	"github.com/Freeeeeet/lesson_bot/internal/controller/state"
	"github.com/Freeeeeet/lesson_bot/internal/form"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// lessonSession - открытая карточка занятия пользователя
type lessonSession struct {
	ctrl      *service.LessonController
	presenter *telegramPresenter
}

// session возвращает открытую карточку, если это карточка занятия lessonID
func (h *Handlers) session(telegramID, lessonID int64) (*lessonSession, bool) {
	v, ok := h.stateManager.GetSession(telegramID)
	if !ok {
		return nil, false
	}
	s, ok := v.(*lessonSession)
	if !ok || s.ctrl.Lesson().ID != lessonID {
		return nil, false
	}
	return s, true
}

// openCard загружает занятие и показывает карточку; messageID = 0 - новым сообщением
func (h *Handlers) openCard(ctx context.Context, b *bot.Bot, chatID, telegramID, lessonID int64, messageID int) (*lessonSession, error) {
	p := newTelegramPresenter(b, chatID, messageID, h.lookup, h.lessonService.Location(), h.logger)

	ctrl, err := h.lessonService.OpenForm(ctx, lessonID, p)
	if err != nil {
		return nil, err
	}

	s := &lessonSession{ctrl: ctrl, presenter: p}
	h.stateManager.SetSession(telegramID, s)
	ctrl.Render(ctx)

	h.logger.Debug("Lesson card opened",
		zap.Int64("telegram_id", telegramID),
		zap.Int64("lesson_id", lessonID))

	return s, nil
}

// HandleLessonCallback обрабатывает нажатия на кнопки карточки занятия
func (h *Handlers) HandleLessonCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, data keyboard.LessonCallbackData) {
	if _, ok := h.requireTeacherCallback(ctx, b, callback); !ok {
		return
	}

	msg := callbackMessage(callback)
	if msg == nil {
		answerCallbackAlert(ctx, b, callback.ID, "❌ Сообщение устарело. Откройте занятие заново: /lessons")
		return
	}
	telegramID := callback.From.ID

	if data.Op == keyboard.OpOpen {
		answerCallback(ctx, b, callback.ID, "")
		if _, err := h.openCard(ctx, b, msg.Chat.ID, telegramID, data.LessonID, 0); err != nil {
			h.reportOpenError(ctx, b, msg.Chat.ID, data.LessonID, err)
		}
		return
	}

	s, ok := h.session(telegramID, data.LessonID)
	if !ok {
		// Карточку открыли до перезапуска или открыли другую - подхватываем это сообщение
		var err error
		if s, err = h.openCard(ctx, b, msg.Chat.ID, telegramID, data.LessonID, msg.ID); err != nil {
			answerCallback(ctx, b, callback.ID, "")
			h.reportOpenError(ctx, b, msg.Chat.ID, data.LessonID, err)
			return
		}
	}

	s.presenter.begin(callback.ID)
	defer s.presenter.finish(ctx)

	switch data.Op {
	case keyboard.OpRefresh:
		s.ctrl.Form().Refresh(ctx)

	case keyboard.OpSetTime:
		h.stateManager.SetState(telegramID, state.StateLessonTime)
		h.stateManager.SetData(telegramID, state.DataLessonID, data.LessonID)
		h.sendMessage(ctx, b, msg.Chat.ID,
			"🕐 Введите время занятия в формате <b>ДД.ММ.ГГГГ ЧЧ:ММ</b> (например, 15.03.2026 18:30)\n\n"+
				"Отправьте /cancel для отмены.")

	case keyboard.OpPickStudent:
		h.showStudentPicker(ctx, b, msg, data.LessonID)

	case keyboard.OpSetStudent:
		h.setStudent(ctx, s, data.Arg)

	default:
		h.runAction(ctx, b, s, msg.Chat.ID, telegramID, model.LessonAction(data.Op))
	}
}

// runAction выполняет действие карточки
func (h *Handlers) runAction(ctx context.Context, b *bot.Bot, s *lessonSession, chatID, telegramID int64, action model.LessonAction) {
	if !s.ctrl.Offered(action) {
		h.reportActionError(ctx, s, service.ErrActionNotOffered)
		return
	}

	switch action {
	case model.ActionCancelLesson:
		lessonID := s.ctrl.Lesson().ID
		h.stateManager.SetState(telegramID, state.StateCancelReason)
		h.stateManager.SetData(telegramID, state.DataLessonID, lessonID)
		h.sendMessage(ctx, b, chatID,
			"❌ <b>Отмена занятия</b>\n\nНапишите причину отмены.\n\nОтправьте /cancel, чтобы не отменять занятие.")

	case model.ActionStudentProfile:
		h.showStudentProfile(ctx, b, chatID, s.ctrl.Lesson())

	default:
		h.reportActionError(ctx, s, s.ctrl.Dispatch(ctx, action, ""))
	}
}

// setStudent меняет студента занятия и сохраняет карточку
func (h *Handlers) setStudent(ctx context.Context, s *lessonSession, studentID int64) {
	f := s.ctrl.Form()
	prevStudent := f.Value(form.FieldStudent)
	prevTeacher := f.Value(form.FieldTeacher)

	if err := f.SetValue(ctx, form.FieldStudent, strconv.FormatInt(studentID, 10)); err != nil {
		h.reportActionError(ctx, s, err)
		return
	}

	if err := f.Save(ctx); err != nil {
		h.restoreFields(ctx, f,
			fieldValue{form.FieldStudent, prevStudent},
			fieldValue{form.FieldTeacher, prevTeacher})
		h.reportActionError(ctx, s, fmt.Errorf("save lesson: %w", err))
		return
	}

	s.presenter.Toast(ctx, service.Notice{Level: service.LevelSuccess, Text: "Студент выбран"})
	f.Refresh(ctx)
}

type fieldValue struct {
	field form.Field
	value string
}

// restoreFields возвращает значения полей после неудачного сохранения
func (h *Handlers) restoreFields(ctx context.Context, f form.Form, prev ...fieldValue) {
	for _, fv := range prev {
		if err := f.SetValue(ctx, fv.field, fv.value); err != nil {
			h.logger.Error("Failed to restore lesson field",
				zap.Int64("lesson_id", f.Lesson().ID),
				zap.String("field", string(fv.field)),
				zap.Error(err))
		}
	}
}

func (h *Handlers) showStudentPicker(ctx context.Context, b *bot.Bot, msg *models.Message, lessonID int64) {
	students, err := h.studentService.List(ctx, nil)
	if err != nil {
		h.logger.Error("Failed to list students", zap.Error(err))
		h.sendError(ctx, b, msg.Chat.ID, msgInternalError)
		return
	}
	if len(students) == 0 {
		h.sendMessage(ctx, b, msg.Chat.ID, "👤 Студентов пока нет. Добавьте их через HTTP API: POST /api/students")
		return
	}

	_, err = b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		ReplyMarkup: keyboard.StudentPicker(lessonID, students),
	})
	if err != nil {
		h.logger.Error("Failed to show student picker", zap.Int64("lesson_id", lessonID), zap.Error(err))
	}
}

func (h *Handlers) showStudentProfile(ctx context.Context, b *bot.Bot, chatID int64, l *model.Lesson) {
	if !l.HasStudent() {
		return
	}

	st, err := h.studentService.Get(ctx, *l.StudentID)
	if err != nil {
		if !errors.Is(err, service.ErrStudentNotFound) {
			h.logger.Error("Failed to get student", zap.Int64("student_id", *l.StudentID), zap.Error(err))
		}
		h.sendError(ctx, b, chatID, "❌ Студент не найден")
		return
	}

	email := st.Email
	if email == "" {
		email = "не указан"
	}
	text := fmt.Sprintf("👤 <b>%s</b>\n\n📧 Email: %s\n📅 Добавлен: %s",
		html.EscapeString(st.Name),
		html.EscapeString(email),
		formatting.FormatDateTime(st.CreatedAt, h.lessonService.Location()))
	h.sendMessage(ctx, b, chatID, text)
}

// reportActionError показывает пользователю результат неудачного действия
func (h *Handlers) reportActionError(ctx context.Context, s *lessonSession, err error) {
	switch {
	case err == nil:
	case errors.Is(err, service.ErrMeetLinkFailed):
		// Контроллер уже показал alert
	case errors.Is(err, service.ErrLessonConflict):
		// Занятие изменили в другом месте - показываем актуальную запись
		if reloadErr := s.ctrl.Reload(ctx); reloadErr != nil {
			h.logger.Error("Failed to reload lesson",
				zap.Int64("lesson_id", s.ctrl.Lesson().ID),
				zap.Error(reloadErr))
		}
		s.presenter.Toast(ctx, service.Notice{Level: service.LevelWarning, Text: "Занятие изменилось, карточка обновлена"})
		s.ctrl.Form().Refresh(ctx)
	case errors.Is(err, service.ErrMeetLinkInFlight):
		s.presenter.Toast(ctx, service.Notice{Level: service.LevelInfo, Text: "Ссылка уже создаётся"})
	case errors.Is(err, service.ErrActionNotOffered), errors.Is(err, service.ErrTransitionNotAllowed):
		s.presenter.Toast(ctx, service.Notice{Level: service.LevelWarning, Text: "Действие сейчас недоступно"})
		s.ctrl.Form().Refresh(ctx)
	case errors.Is(err, form.ErrInvalidValue):
		s.presenter.Alert(ctx, service.Notice{Level: service.LevelDanger, Text: "Неверное значение поля"})
	default:
		h.logger.Error("Lesson action failed",
			zap.Int64("lesson_id", s.ctrl.Lesson().ID),
			zap.Error(err))
		s.presenter.Alert(ctx, service.Notice{Level: service.LevelDanger, Text: "Не удалось сохранить занятие. Попробуйте позже."})
		s.ctrl.Form().Refresh(ctx)
	}
}

func (h *Handlers) reportOpenError(ctx context.Context, b *bot.Bot, chatID, lessonID int64, err error) {
	if errors.Is(err, service.ErrLessonNotFound) {
		h.sendError(ctx, b, chatID, "❌ Занятие не найдено")
		return
	}
	h.logger.Error("Failed to open lesson card", zap.Int64("lesson_id", lessonID), zap.Error(err))
	h.sendError(ctx, b, chatID, msgInternalError)
}
