package form

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
)

// ValueLayout - формат времени в строковом значении поля
const ValueLayout = "2006-01-02T15:04:05"

// Форматы, в которых принимается время занятия
var timeLayouts = []string{
	"2006-01-02T15:04",
	ValueLayout,
	time.RFC3339,
	"2006-01-02 15:04",
	"02.01.2006 15:04",
}

// Saver сохраняет запись занятия
type Saver interface {
	Save(ctx context.Context, lesson *model.Lesson) error
}

// Record - форма поверх загруженного занятия
type Record struct {
	mu       sync.RWMutex
	doc      *model.Lesson
	saver    Saver
	loc      *time.Location
	handlers map[Field][]Handler
}

var _ Form = (*Record)(nil)

// NewRecord создаёт форму; doc копируется
func NewRecord(doc *model.Lesson, saver Saver, loc *time.Location) *Record {
	if loc == nil {
		loc = time.UTC
	}
	return &Record{
		doc:      doc.Clone(),
		saver:    saver,
		loc:      loc,
		handlers: make(map[Field][]Handler),
	}
}

// Lesson возвращает копию записи
func (r *Record) Lesson() *model.Lesson {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc.Clone()
}

// Location возвращает часовой пояс формы
func (r *Record) Location() *time.Location {
	return r.loc
}

func (r *Record) Value(field Field) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d := r.doc
	switch field {
	case FieldTitle:
		return d.Title
	case FieldStudent:
		return formatID(d.StudentID)
	case FieldTeacher:
		return formatID(d.TeacherID)
	case FieldScheduledTime:
		if !d.IsScheduled() {
			return ""
		}
		return d.ScheduledTime.In(r.loc).Format(ValueLayout)
	case FieldDuration:
		return strconv.Itoa(d.DurationOrDefault())
	case FieldMeetLink:
		return d.MeetLink
	case FieldStatus:
		return string(d.Status)
	case FieldNotes:
		return d.Notes
	}
	return ""
}

// SetValue меняет поле и вызывает обработчики вне блокировки
func (r *Record) SetValue(ctx context.Context, field Field, value string) error {
	if err := r.apply(field, strings.TrimSpace(value)); err != nil {
		return err
	}

	r.fire(ctx, field)
	return nil
}

func (r *Record) apply(field Field, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.doc
	switch field {
	case FieldTitle:
		d.Title = value
	case FieldStudent:
		id, err := parseID(value)
		if err != nil {
			return err
		}
		d.StudentID = id
	case FieldTeacher:
		id, err := parseID(value)
		if err != nil {
			return err
		}
		d.TeacherID = id
	case FieldScheduledTime:
		if value == "" {
			d.ScheduledTime = nil
			return nil
		}
		t, err := ParseTime(value, r.loc)
		if err != nil {
			return err
		}
		d.ScheduledTime = &t
	case FieldDuration:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("duration %q: %w", value, ErrInvalidValue)
		}
		d.Duration = n
	case FieldMeetLink:
		d.MeetLink = value
	case FieldStatus:
		st, err := model.ParseLessonStatus(value)
		if err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidValue)
		}
		d.Status = st
	case FieldNotes:
		d.Notes = value
	default:
		return fmt.Errorf("%q: %w", field, ErrUnknownField)
	}
	return nil
}

func (r *Record) On(field Field, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[field] = append(r.handlers[field], h)
}

func (r *Record) fire(ctx context.Context, field Field) {
	r.mu.RLock()
	hs := append([]Handler(nil), r.handlers[field]...)
	r.mu.RUnlock()

	for _, h := range hs {
		h(ctx, r)
	}
}

// Save сохраняет копию записи и забирает обратно то, что проставила БД
func (r *Record) Save(ctx context.Context) error {
	doc := r.Lesson()
	if err := r.saver.Save(ctx, doc); err != nil {
		return err
	}

	r.mu.Lock()
	r.doc.UpdatedAt = doc.UpdatedAt
	r.mu.Unlock()
	return nil
}

func (r *Record) Reset(doc *model.Lesson) {
	r.mu.Lock()
	r.doc = doc.Clone()
	r.mu.Unlock()
}

func (r *Record) Refresh(ctx context.Context) {
	r.fire(ctx, EventRefresh)
}

// ParseTime разбирает время занятия в одном из поддерживаемых форматов
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("time %q: %w", value, ErrInvalidValue)
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func parseID(value string) (*int64, error) {
	if value == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("id %q: %w", value, ErrInvalidValue)
	}
	return &id, nil
}
