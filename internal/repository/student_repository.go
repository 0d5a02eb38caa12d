package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateEmail - email уже занят другим студентом
var ErrDuplicateEmail = errors.New("email already registered")

const studentColumns = `id, name, COALESCE(email, ''), teacher_id, created_at`

type StudentRepository struct {
	*base.Repository
}

func NewStudentRepository(db base.DB) *StudentRepository {
	return &StudentRepository{Repository: base.NewRepository(db)}
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	var s model.Student
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.TeacherID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create создаёт студента
func (r *StudentRepository) Create(ctx context.Context, student *model.Student) error {
	query := `
		INSERT INTO students (name, email, teacher_id)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, student.Name, student.Email, student.TeacherID).
		Scan(&student.ID, &student.CreatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create student: %w", err)
	}

	return nil
}

// GetByID получает студента по ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	s, err := scanStudent(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by id: %w", err)
	}

	return s, nil
}

// EmailTaken проверяет, занят ли email другим студентом
func (r *StudentRepository) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM students WHERE lower(email) = lower($1) AND id <> $2)`
	if err := r.QueryRow(ctx, query, email, exceptID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check student email: %w", err)
	}
	return exists, nil
}

// List возвращает студентов; teacherID = nil - всех
func (r *StudentRepository) List(ctx context.Context, teacherID *int64) ([]*model.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE $1::bigint IS NULL OR teacher_id = $1
		ORDER BY name ASC
	`

	rows, err := r.Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []*model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}

	return students, rows.Err()
}

// GetField возвращает значение разрешённого поля студента.
// nil без ошибки - студента нет или поле пустое.
func (r *StudentRepository) GetField(ctx context.Context, id int64, field string) (*string, error) {
	column, ok := studentLookupColumns[field]
	if !ok {
		return nil, fmt.Errorf("field %q is not readable: %w", field, ErrFieldNotAllowed)
	}

	var value *string
	query := fmt.Sprintf(`SELECT NULLIF(%s, '') FROM students WHERE id = $1`, column)
	if err := r.QueryRow(ctx, query, id).Scan(&value); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student field %s: %w", field, err)
	}

	return value, nil
}
