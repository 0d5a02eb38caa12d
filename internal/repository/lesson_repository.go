package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrLessonNotFound - занятие не найдено
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrLessonConflict - занятие изменили после того, как его загрузили
	ErrLessonConflict = errors.New("lesson was changed after it was loaded")
)

const lessonColumns = `l.id, l.title, l.student_id, l.teacher_id, l.scheduled_time, l.duration, l.meet_link, l.status, l.notes, l.created_at, l.updated_at`

type LessonRepository struct {
	*base.Repository
}

func NewLessonRepository(db base.DB) *LessonRepository {
	return &LessonRepository{Repository: base.NewRepository(db)}
}

func scanLesson(row pgx.Row, extra ...any) (*model.Lesson, error) {
	var l model.Lesson
	dest := []any{
		&l.ID,
		&l.Title,
		&l.StudentID,
		&l.TeacherID,
		&l.ScheduledTime,
		&l.Duration,
		&l.MeetLink,
		&l.Status,
		&l.Notes,
		&l.CreatedAt,
		&l.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &l, nil
}

func collectLessons(rows pgx.Rows) ([]*model.Lesson, error) {
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}

	return lessons, rows.Err()
}

// Create создаёт занятие; статус по умолчанию ставит БД
func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	query := `
		INSERT INTO lessons (title, student_id, teacher_id, scheduled_time, duration, meet_link, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE(NULLIF($7, ''), 'Scheduled'), $8)
		RETURNING id, status, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		lesson.Title,
		lesson.StudentID,
		lesson.TeacherID,
		lesson.ScheduledTime,
		lesson.DurationOrDefault(),
		lesson.MeetLink,
		string(lesson.Status),
		lesson.Notes,
	).Scan(&lesson.ID, &lesson.Status, &lesson.CreatedAt, &lesson.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}

	return nil
}

// GetByID получает занятие по ID
func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons l WHERE l.id = $1`

	l, err := scanLesson(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return l, nil
}

// Save сохраняет все изменяемые поля занятия.
// Запись обновляется, только если updated_at не менялся с момента загрузки.
func (r *LessonRepository) Save(ctx context.Context, lesson *model.Lesson) error {
	query := `
		UPDATE lessons
		SET title = $1, student_id = $2, teacher_id = $3, scheduled_time = $4, duration = $5,
		    meet_link = $6, status = $7, notes = $8, updated_at = NOW()
		WHERE id = $9 AND updated_at = $10
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		lesson.Title,
		lesson.StudentID,
		lesson.TeacherID,
		lesson.ScheduledTime,
		lesson.DurationOrDefault(),
		lesson.MeetLink,
		lesson.Status,
		lesson.Notes,
		lesson.ID,
		lesson.UpdatedAt,
	).Scan(&lesson.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return r.missedSave(ctx, lesson.ID)
		}
		return fmt.Errorf("save lesson: %w", err)
	}

	return nil
}

// missedSave отличает удалённое занятие от изменённого после загрузки
func (r *LessonRepository) missedSave(ctx context.Context, id int64) error {
	var exists bool
	err := r.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lessons WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check lesson: %w", err)
	}
	if !exists {
		return ErrLessonNotFound
	}
	return ErrLessonConflict
}

// UpdateStatusIfCurrent меняет статус, только если он всё ещё равен from
func (r *LessonRepository) UpdateStatusIfCurrent(ctx context.Context, id int64, from, to model.LessonStatus) (bool, error) {
	query := `
		UPDATE lessons
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	affected, err := r.ExecAffected(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("update lesson status: %w", err)
	}

	return affected > 0, nil
}

// ListForTeacher возвращает занятия учителя и неназначенные занятия, ближайшие первыми
func (r *LessonRepository) ListForTeacher(ctx context.Context, teacherID int64, limit int) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons l
		WHERE l.teacher_id = $1 OR l.teacher_id IS NULL
		ORDER BY l.scheduled_time ASC NULLS FIRST, l.id DESC
		LIMIT $2
	`

	rows, err := r.Query(ctx, query, teacherID, limit)
	if err != nil {
		return nil, fmt.Errorf("list lessons for teacher: %w", err)
	}

	return collectLessons(rows)
}

// ListRecentByTeacher возвращает последние занятия учителя
func (r *LessonRepository) ListRecentByTeacher(ctx context.Context, teacherID int64, limit int) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons l
		WHERE l.teacher_id = $1
		ORDER BY l.scheduled_time DESC NULLS LAST
		LIMIT $2
	`

	rows, err := r.Query(ctx, query, teacherID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent lessons: %w", err)
	}

	return collectLessons(rows)
}

// ListStale возвращает занятия в статусе Scheduled, начавшиеся раньше cutoff
func (r *LessonRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons l
		WHERE l.status = $1 AND l.scheduled_time < $2
		ORDER BY l.scheduled_time ASC
	`

	rows, err := r.Query(ctx, query, model.LessonStatusScheduled, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale lessons: %w", err)
	}

	return collectLessons(rows)
}

// ListForCalendar возвращает занятия с временем по фильтру вместе с именем студента
func (r *LessonRepository) ListForCalendar(ctx context.Context, f model.CalendarFilter) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `, s.name
		FROM lessons l
		LEFT JOIN students s ON s.id = l.student_id
		WHERE l.scheduled_time IS NOT NULL
		  AND ($1::bigint IS NULL OR l.student_id = $1)
		  AND ($2::bigint IS NULL OR l.teacher_id = $2)
		  AND ($3::timestamptz IS NULL OR l.scheduled_time >= $3)
		  AND ($4::timestamptz IS NULL OR l.scheduled_time <= $4)
		ORDER BY l.scheduled_time ASC
	`

	rows, err := r.Query(ctx, query, f.StudentID, f.TeacherID, f.From, f.To)
	if err != nil {
		return nil, fmt.Errorf("list calendar lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		var studentName *string
		l, err := scanLesson(rows, &studentName)
		if err != nil {
			return nil, fmt.Errorf("scan calendar lesson: %w", err)
		}
		if studentName != nil && l.StudentID != nil {
			l.Student = &model.Student{ID: *l.StudentID, Name: *studentName}
		}
		lessons = append(lessons, l)
	}

	return lessons, rows.Err()
}
