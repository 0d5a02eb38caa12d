package handlers

import (
	"github.com/Freeeeeet/lesson_bot/internal/controller/state"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд и карточек занятий
type Handlers struct {
	userService     *service.UserService
	lessonService   *service.LessonService
	studentService  *service.StudentService
	calendarService *service.CalendarService
	lookup          service.FieldLookup
	stateManager    *state.Manager
	logger          *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	lessonService *service.LessonService,
	studentService *service.StudentService,
	calendarService *service.CalendarService,
	lookup service.FieldLookup,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		userService:     userService,
		lessonService:   lessonService,
		studentService:  studentService,
		calendarService: calendarService,
		lookup:          lookup,
		stateManager:    stateManager,
		logger:          logger,
	}
}
