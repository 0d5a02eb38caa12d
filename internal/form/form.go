// Package form описывает форму занятия, которую предоставляет хост:
// чтение и запись полей, обработчики изменений, сохранение и перерисовка.
package form

import (
	"context"
	"errors"

	"github.com/Freeeeeet/lesson_bot/internal/model"
)

// Field - имя поля формы
type Field string

const (
	FieldTitle         Field = "title"
	FieldStudent       Field = "student"
	FieldTeacher       Field = "teacher"
	FieldScheduledTime Field = "scheduled_time"
	FieldDuration      Field = "duration"
	FieldMeetLink      Field = "meet_link"
	FieldStatus        Field = "status"
	FieldNotes         Field = "notes"

	// EventRefresh - не поле, а событие перерисовки формы
	EventRefresh Field = "refresh"
)

var (
	ErrUnknownField = errors.New("unknown form field")
	ErrInvalidValue = errors.New("invalid field value")
)

// Handler вызывается после изменения поля или при перерисовке
type Handler func(ctx context.Context, f Form)

// Form - возможности формы, которые нужны контроллеру занятия
type Form interface {
	// Lesson возвращает снимок текущего состояния записи
	Lesson() *model.Lesson
	// Value возвращает значение поля в строковом виде; "" - пусто
	Value(field Field) string
	// SetValue меняет поле и вызывает его обработчики
	SetValue(ctx context.Context, field Field, value string) error
	// On регистрирует обработчик поля или события
	On(field Field, h Handler)
	// Save сохраняет запись
	Save(ctx context.Context) error
	// Refresh просит хост перерисовать форму
	Refresh(ctx context.Context)
	// Reset заменяет запись свежей копией, обработчики не вызываются
	Reset(doc *model.Lesson)
}
