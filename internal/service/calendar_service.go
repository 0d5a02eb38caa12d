package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"go.uber.org/zap"
)

// dashboardLessons - сколько последних занятий учитывает дашборд
const dashboardLessons = 10

type CalendarService struct {
	lessons  LessonStore
	students StudentStore
	users    UserStore
	logger   *zap.Logger
}

func NewCalendarService(lessons LessonStore, students StudentStore, users UserStore, logger *zap.Logger) *CalendarService {
	return &CalendarService{
		lessons:  lessons,
		students: students,
		users:    users,
		logger:   logger,
	}
}

// Events возвращает занятия в формате FullCalendar
func (s *CalendarService) Events(ctx context.Context, f model.CalendarFilter) ([]model.CalendarEvent, error) {
	lessons, err := s.lessons.ListForCalendar(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list calendar lessons: %w", err)
	}

	events := make([]model.CalendarEvent, 0, len(lessons))
	for _, l := range lessons {
		if !l.IsScheduled() {
			continue
		}
		events = append(events, calendarEvent(l))
	}

	return events, nil
}

func calendarEvent(l *model.Lesson) model.CalendarEvent {
	studentName := "Unknown"
	if l.Student != nil && l.Student.Name != "" {
		studentName = l.Student.Name
	}

	color := l.Status.Color()
	id := strconv.FormatInt(l.ID, 10)

	return model.CalendarEvent{
		ID:              id,
		Title:           l.Title + " - " + studentName,
		Start:           *l.ScheduledTime,
		End:             l.EndTime(),
		BackgroundColor: color,
		BorderColor:     color,
		ExtendedProps: model.CalendarEventExtras{
			Student:  studentName,
			Teacher:  l.TeacherID,
			Status:   l.Status,
			MeetLink: l.MeetLink,
			LessonID: l.ID,
		},
	}
}

// Dashboard собирает статистику учителя по последним занятиям
func (s *CalendarService) Dashboard(ctx context.Context, teacherID int64) (*model.TeacherDashboard, error) {
	teacher, err := s.users.GetByID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil || !teacher.IsTeacher {
		return nil, ErrTeacherNotFound
	}

	recent, err := s.lessons.ListRecentByTeacher(ctx, teacherID, dashboardLessons)
	if err != nil {
		return nil, fmt.Errorf("list recent lessons: %w", err)
	}

	students, err := s.students.List(ctx, &teacherID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	stats := model.DashboardStats{
		TotalLessons:  len(recent),
		TotalStudents: len(students),
	}
	for _, l := range recent {
		switch l.Status {
		case model.LessonStatusCompleted:
			stats.CompletedLessons++
		case model.LessonStatusScheduled:
			stats.UpcomingLessons++
		}
	}

	if recent == nil {
		recent = []*model.Lesson{}
	}
	if students == nil {
		students = []*model.Student{}
	}

	return &model.TeacherDashboard{
		Stats:         stats,
		RecentLessons: recent,
		Students:      students,
	}, nil
}
