package model

import "time"

// CalendarFilter - фильтры выборки занятий для календаря
type CalendarFilter struct {
	StudentID *int64
	TeacherID *int64
	From      *time.Time
	To        *time.Time
}

// CalendarEvent - занятие в формате FullCalendar
type CalendarEvent struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Start           time.Time           `json:"start"`
	End             time.Time           `json:"end"`
	BackgroundColor string              `json:"backgroundColor"`
	BorderColor     string              `json:"borderColor"`
	ExtendedProps   CalendarEventExtras `json:"extendedProps"`
}

type CalendarEventExtras struct {
	Student  string       `json:"student"`
	Teacher  *int64       `json:"teacher"`
	Status   LessonStatus `json:"status"`
	MeetLink string       `json:"meet_link"`
	LessonID int64        `json:"lesson_id"`
}

// DashboardStats - статистика учителя по последним занятиям
type DashboardStats struct {
	TotalLessons     int `json:"total_lessons"`
	CompletedLessons int `json:"completed_lessons"`
	UpcomingLessons  int `json:"upcoming_lessons"`
	TotalStudents    int `json:"total_students"`
}

type TeacherDashboard struct {
	Stats         DashboardStats `json:"stats"`
	RecentLessons []*Lesson      `json:"recent_lessons"`
	Students      []*Student     `json:"students"`
}

var statusColors = map[LessonStatus]string{
	LessonStatusScheduled:   "#3b82f6",
	LessonStatusInProgress:  "#f59e0b",
	LessonStatusCompleted:   "#10b981",
	LessonStatusCancelled:   "#ef4444",
	LessonStatusRescheduled: "#8b5cf6",
}

// Color возвращает цвет статуса для календаря
func (s LessonStatus) Color() string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return "#6b7280"
}
