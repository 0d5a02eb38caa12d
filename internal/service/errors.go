package service

import (
	"errors"

	"github.com/Freeeeeet/lesson_bot/internal/form"
	"github.com/Freeeeeet/lesson_bot/internal/repository"
)

var (
	ErrLessonNotFound       = errors.New("lesson not found")
	ErrStudentNotFound      = errors.New("student not found")
	ErrTeacherNotFound      = errors.New("teacher not found")
	ErrActionNotOffered     = errors.New("action is not offered for this lesson")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	ErrReasonRequired       = errors.New("cancellation reason is required")
	ErrMeetLinkFailed       = errors.New("failed to create meet link")
	ErrMeetLinkInFlight     = errors.New("meet link is already being created")
	ErrEmailTaken           = errors.New("email is already registered for another student")

	// ErrLessonConflict возвращает LessonStore.Save, если запись изменили после загрузки
	ErrLessonConflict = repository.ErrLessonConflict
)

// ValidationError - ошибка ввода, которую можно показать пользователю как есть
type ValidationError struct {
	Field   form.Field
	Title   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation проверяет, что err - ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func errPastTime() *ValidationError {
	return &ValidationError{
		Field:   form.FieldScheduledTime,
		Title:   "Invalid Time",
		Message: "Cannot schedule lesson in the past",
	}
}
