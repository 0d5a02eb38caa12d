package model

import "time"

// DefaultLessonDuration - длительность занятия в минутах, если не указана
const DefaultLessonDuration = 60

type Lesson struct {
	ID            int64        `json:"id"`
	Title         string       `json:"title"`
	StudentID     *int64       `json:"student_id"`     // указатель - может быть nil
	TeacherID     *int64       `json:"teacher_id"`     // указатель - может быть nil
	ScheduledTime *time.Time   `json:"scheduled_time"` // указатель - может быть nil
	Duration      int          `json:"duration"`       // В минутах
	MeetLink      string       `json:"meet_link"`
	Status        LessonStatus `json:"status"`
	Notes         string       `json:"notes"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Student *Student `json:"student,omitempty"`
	Teacher *User    `json:"teacher,omitempty"`
}

// HasStudent - студент выбран
func (l *Lesson) HasStudent() bool {
	return l.StudentID != nil
}

// HasTeacher - учитель назначен
func (l *Lesson) HasTeacher() bool {
	return l.TeacherID != nil
}

// IsScheduled - время занятия задано
func (l *Lesson) IsScheduled() bool {
	return l.ScheduledTime != nil && !l.ScheduledTime.IsZero()
}

// HasMeetLink - ссылка на встречу уже создана
func (l *Lesson) HasMeetLink() bool {
	return l.MeetLink != ""
}

// DurationOrDefault возвращает длительность в минутах
func (l *Lesson) DurationOrDefault() int {
	if l.Duration <= 0 {
		return DefaultLessonDuration
	}
	return l.Duration
}

// EndTime возвращает время окончания; zero если время не задано
func (l *Lesson) EndTime() time.Time {
	if !l.IsScheduled() {
		return time.Time{}
	}
	return l.ScheduledTime.Add(time.Duration(l.DurationOrDefault()) * time.Minute)
}

// AppendNote дописывает строку в notes, не затирая историю
func (l *Lesson) AppendNote(line string) {
	if l.Notes == "" {
		l.Notes = line
		return
	}
	l.Notes = l.Notes + "\n\n" + line
}

// Clone возвращает копию без общих указателей
func (l *Lesson) Clone() *Lesson {
	c := *l
	if l.StudentID != nil {
		v := *l.StudentID
		c.StudentID = &v
	}
	if l.TeacherID != nil {
		v := *l.TeacherID
		c.TeacherID = &v
	}
	if l.ScheduledTime != nil {
		v := *l.ScheduledTime
		c.ScheduledTime = &v
	}
	return &c
}

// CancellationNote - строка, которая дописывается в notes при отмене
func CancellationNote(reason string) string {
	return "Cancelled: " + reason
}
