package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
)

// LessonStore - хранилище занятий (repository.LessonRepository)
type LessonStore interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
	Save(ctx context.Context, lesson *model.Lesson) error
	UpdateStatusIfCurrent(ctx context.Context, id int64, from, to model.LessonStatus) (bool, error)
	ListForTeacher(ctx context.Context, teacherID int64, limit int) ([]*model.Lesson, error)
	ListRecentByTeacher(ctx context.Context, teacherID int64, limit int) ([]*model.Lesson, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]*model.Lesson, error)
	ListForCalendar(ctx context.Context, f model.CalendarFilter) ([]*model.Lesson, error)
}

// StudentStore - хранилище студентов (repository.StudentRepository)
type StudentStore interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id int64) (*model.Student, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	List(ctx context.Context, teacherID *int64) ([]*model.Student, error)
	GetField(ctx context.Context, id int64, field string) (*string, error)
}

// UserStore - хранилище пользователей (repository.UserRepository)
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	SetTeacher(ctx context.Context, userID int64, isTeacher bool) error
	SetEmail(ctx context.Context, userID int64, email string) error
	ListTeachersByLoad(ctx context.Context) ([]*model.User, error)
	GetField(ctx context.Context, id int64, field string) (*string, error)
}
