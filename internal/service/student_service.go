package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository"
	"go.uber.org/zap"
)

// NewStudent - данные для создания студента
type NewStudent struct {
	Name      string
	Email     string
	TeacherID *int64
}

type StudentService struct {
	students StudentStore
	users    UserStore
	logger   *zap.Logger
}

func NewStudentService(students StudentStore, users UserStore, logger *zap.Logger) *StudentService {
	return &StudentService{
		students: students,
		users:    users,
		logger:   logger,
	}
}

// Create создаёт студента; без учителя назначается наименее загруженный
func (s *StudentService) Create(ctx context.Context, in NewStudent) (*model.Student, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Title: "Invalid Name", Message: "Student name is required"}
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" {
		taken, err := s.students.EmailTaken(ctx, email, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	student := &model.Student{
		Name:      name,
		Email:     email,
		TeacherID: in.TeacherID,
	}

	if student.TeacherID != nil {
		t, err := s.users.GetByID(ctx, *student.TeacherID)
		if err != nil {
			return nil, fmt.Errorf("get teacher: %w", err)
		}
		if t == nil || !t.IsTeacher {
			return nil, ErrTeacherNotFound
		}
	} else {
		teachers, err := s.users.ListTeachersByLoad(ctx)
		if err != nil {
			return nil, fmt.Errorf("list teachers: %w", err)
		}
		if len(teachers) > 0 {
			id := teachers[0].ID
			student.TeacherID = &id
		}
	}

	if err := s.students.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create student: %w", err)
	}

	fields := []zap.Field{zap.Int64("student_id", student.ID), zap.String("name", student.Name)}
	if student.TeacherID != nil {
		fields = append(fields, zap.Int64("teacher_id", *student.TeacherID))
	}
	s.logger.Info("Student created", fields...)

	return student, nil
}

// Get получает студента по ID
func (s *StudentService) Get(ctx context.Context, id int64) (*model.Student, error) {
	st, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if st == nil {
		return nil, ErrStudentNotFound
	}
	return st, nil
}

// List возвращает студентов учителя; nil - всех
func (s *StudentService) List(ctx context.Context, teacherID *int64) ([]*model.Student, error) {
	return s.students.List(ctx, teacherID)
}
