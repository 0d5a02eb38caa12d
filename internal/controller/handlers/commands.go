package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/lesson_bot/internal/controller/formatting"
	"github.com/Freeeeeet/lesson_bot/internal/controller/keyboard"
	"github.com/Freeeeeet/lesson_bot/internal/controller/state"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Справка по командам:\n\n" +
	"/start - Начать работу с ботом\n" +
	"/email - Указать email для уведомлений о занятиях\n" +
	"/help - Показать эту справку\n\n" +
	"Для учителей:\n" +
	"/becometeacher - Зарегистрироваться как учитель\n" +
	"/lessons - Мои занятия\n" +
	"/newlesson - Создать занятие\n" +
	"/dashboard - Статистика по занятиям\n" +
	"/cancel - Отменить текущий ввод"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	user := update.Message.From

	// Регистрируем пользователя
	registeredUser, err := h.userService.RegisterUser(
		ctx,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Добро пожаловать в Lesson Bot - бот для ведения занятий: время, ссылки на Google Meet и статусы.\n\n%s",
		html.EscapeString(registeredUser.FirstName),
		helpText,
	)

	h.sendMessage(ctx, b, update.Message.Chat.ID, welcomeText)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	if currentState == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	// Карточка занятия остаётся открытой; отмена без причины ничего не меняет
	h.stateManager.ResetDialog(telegramID)

	text := "✅ Операция отменена."
	if currentState == state.StateCancelReason {
		text = "✅ Занятие не отменено."
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, text)
}

// HandleBecomeTeacher обрабатывает команду /becometeacher
func (h *Handlers) HandleBecomeTeacher(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	user, err := h.userService.BecomeTeacher(ctx, update.Message.From.ID)
	if err != nil {
		if errors.Is(err, service.ErrTeacherNotFound) {
			h.sendError(ctx, b, update.Message.Chat.ID, msgUserNotFound)
			return
		}
		h.logger.Error("Failed to become teacher", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, msgInternalError)
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"🎓 %s, теперь вы учитель!\n\nСоздайте первое занятие: /newlesson",
		html.EscapeString(user.FullName())))
}

// HandleLessons обрабатывает команду /lessons
func (h *Handlers) HandleLessons(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	lessons, err := h.lessonService.ListForTeacher(ctx, user.ID, lessonListLimit)
	if err != nil {
		h.logger.Error("Failed to list lessons", zap.Int64("teacher_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, msgInternalError)
		return
	}

	if len(lessons) == 0 {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "📚 Занятий пока нет.\n\nСоздать: /newlesson")
		return
	}

	loc := h.lessonService.Location()
	kb := keyboard.LessonList(lessons, func(l *model.Lesson) string {
		return formatting.LessonLabel(l, loc)
	})
	h.sendHTML(ctx, b, update.Message.Chat.ID, "📚 <b>Ваши занятия</b>\n\nВыберите занятие:", kb)
}

// HandleNewLesson обрабатывает команду /newlesson
func (h *Handlers) HandleNewLesson(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireTeacher(ctx, b, update); !ok {
		return
	}

	telegramID := update.Message.From.ID
	h.stateManager.ResetDialog(telegramID)
	h.stateManager.SetState(telegramID, state.StateNewLessonTitle)

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"📚 <b>Новое занятие</b>\n\nВведите название занятия.\n\nОтправьте /cancel для отмены.")
}

// HandleDashboard обрабатывает команду /dashboard
func (h *Handlers) HandleDashboard(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	d, err := h.calendarService.Dashboard(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to build dashboard", zap.Int64("teacher_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, msgInternalError)
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, formatting.Dashboard(d, h.lessonService.Location()))
}

// HandleEmail обрабатывает команду /email
func (h *Handlers) HandleEmail(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	current := user.Email
	if current == "" {
		current = "не указан"
	}

	telegramID := update.Message.From.ID
	h.stateManager.ResetDialog(telegramID)
	h.stateManager.SetState(telegramID, state.StateUserEmail)

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"📧 Текущий email: %s\n\nВведите новый email для уведомлений о занятиях.\n\nОтправьте /cancel для отмены.",
		html.EscapeString(current)))
}

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	// Игнорируем команды (они обрабатываются другими handlers)
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	// Если нет активного состояния, игнорируем
	if currentState == state.StateNone {
		h.logger.Debug("No active state, ignoring message",
			zap.Int64("telegram_id", telegramID))
		return
	}

	h.logger.Debug("Handling dialog step",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(currentState)))

	switch currentState {
	case state.StateNewLessonTitle:
		h.handleNewLessonTitle(ctx, b, update)
	case state.StateLessonTime:
		h.handleLessonTime(ctx, b, update)
	case state.StateCancelReason:
		h.handleCancelReason(ctx, b, update)
	case state.StateUserEmail:
		h.handleUserEmail(ctx, b, update)
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(currentState)))
		h.stateManager.ResetDialog(telegramID)
	}
}
