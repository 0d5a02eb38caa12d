package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/form"
	"github.com/Freeeeeet/lesson_bot/internal/meet"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/notify"
	"go.uber.org/zap"
)

// staleAfter - через сколько после начала занятие в статусе Scheduled закрывается автоматически
const staleAfter = 2 * time.Hour

// NewLesson - данные для создания занятия
type NewLesson struct {
	Title         string
	StudentID     *int64
	TeacherID     *int64
	ScheduledTime *time.Time
	Duration      int
	Notes         string
}

type LessonServiceOptions struct {
	Lessons       LessonStore
	Students      StudentStore
	Users         UserStore
	Lookup        FieldLookup
	Meet          meet.Provider
	Notifier      notify.Notifier
	Location      *time.Location
	WhiteboardURL string
	Logger        *zap.Logger
}

type LessonService struct {
	lessons       LessonStore
	students      StudentStore
	users         UserStore
	lookup        FieldLookup
	meet          meet.Provider
	notifier      notify.Notifier
	loc           *time.Location
	whiteboardURL string
	logger        *zap.Logger
	now           func() time.Time

	// Занятия, для которых сейчас создаётся ссылка на встречу
	meetMu       sync.Mutex
	meetInFlight map[int64]struct{}
}

func NewLessonService(opts LessonServiceOptions) *LessonService {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &LessonService{
		lessons:       opts.Lessons,
		students:      opts.Students,
		users:         opts.Users,
		lookup:        opts.Lookup,
		meet:          opts.Meet,
		notifier:      opts.Notifier,
		loc:           loc,
		whiteboardURL: opts.WhiteboardURL,
		logger:        opts.Logger,
		now:           time.Now,
		meetInFlight:  make(map[int64]struct{}),
	}
}

// Location возвращает часовой пояс занятий
func (s *LessonService) Location() *time.Location {
	return s.loc
}

// CheckScheduledTime отклоняет время строго раньше текущего
func (s *LessonService) CheckScheduledTime(t *time.Time) error {
	if t == nil || t.IsZero() {
		return nil
	}
	if t.Before(s.now()) {
		return errPastTime()
	}
	return nil
}

// Advisory считает подсказку о времени занятия на текущий момент
func (s *LessonService) Advisory(l *model.Lesson) Advisory {
	return ComputeAdvisory(l, s.now())
}

// Actions возвращает действия, которые можно предложить для занятия, по группам
func (s *LessonService) Actions(l *model.Lesson) []model.ActionGroup {
	var actions, status, tools []model.ActionButton

	if !l.HasMeetLink() && l.IsScheduled() && !s.isMeetInFlight(l.ID) {
		actions = append(actions, button(model.ActionCreateMeetLink, ""))
	}
	if l.HasMeetLink() {
		actions = append(actions, button(model.ActionJoinMeet, l.MeetLink))
	}

	for _, tr := range model.UserTransitions(l.Status) {
		status = append(status, button(tr.Action, ""))
	}

	if s.whiteboardURL != "" {
		tools = append(tools, button(model.ActionOpenWhiteboard, s.whiteboardURL))
	}
	if l.HasStudent() {
		tools = append(tools, button(model.ActionStudentProfile, ""))
	}

	var groups []model.ActionGroup
	for _, g := range []model.ActionGroup{
		{Name: model.ActionGroupActions, Buttons: actions},
		{Name: model.ActionGroupStatus, Buttons: status},
		{Name: model.ActionGroupTools, Buttons: tools},
	} {
		if len(g.Buttons) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// IsOffered проверяет, есть ли действие среди предлагаемых
func (s *LessonService) IsOffered(l *model.Lesson, action model.LessonAction) bool {
	for _, g := range s.Actions(l) {
		for _, b := range g.Buttons {
			if b.Action == action {
				return true
			}
		}
	}
	return false
}

func button(action model.LessonAction, url string) model.ActionButton {
	return model.ActionButton{Action: action, Label: action.Label(), URL: url}
}

// acquireMeet помечает занятие как ожидающее ссылку; false - запрос уже идёт
func (s *LessonService) acquireMeet(lessonID int64) (release func(), ok bool) {
	s.meetMu.Lock()
	defer s.meetMu.Unlock()

	if _, busy := s.meetInFlight[lessonID]; busy {
		return nil, false
	}
	s.meetInFlight[lessonID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.meetMu.Lock()
			delete(s.meetInFlight, lessonID)
			s.meetMu.Unlock()
		})
	}, true
}

func (s *LessonService) isMeetInFlight(lessonID int64) bool {
	s.meetMu.Lock()
	defer s.meetMu.Unlock()
	_, busy := s.meetInFlight[lessonID]
	return busy
}

// requestMeetLink ищет email студента и запрашивает ссылку у провайдера
func (s *LessonService) requestMeetLink(ctx context.Context, l *model.Lesson) (string, error) {
	if !l.IsScheduled() {
		return "", errors.New("lesson has no scheduled time")
	}

	var email string
	if l.HasStudent() {
		v, found, err := s.lookup.Lookup(ctx, EntityStudent, *l.StudentID, "email")
		switch {
		case err != nil:
			s.logger.Debug("Student email lookup failed",
				zap.Int64("lesson_id", l.ID),
				zap.Int64("student_id", *l.StudentID),
				zap.Error(err))
		case found:
			email = v
		}
	}

	m, err := s.meet.CreateMeeting(ctx, meet.Request{
		Title:        l.Title,
		When:         *l.ScheduledTime,
		StudentEmail: email,
	})
	if err != nil {
		return "", fmt.Errorf("create meeting: %w", err)
	}
	if m == nil || m.MeetLink == "" {
		return "", errors.New("provider returned no meet link")
	}

	return m.MeetLink, nil
}

// teacherOfStudent возвращает учителя студента; ошибки поиска только логируются
func (s *LessonService) teacherOfStudent(ctx context.Context, studentID int64) (string, bool) {
	v, found, err := s.lookup.Lookup(ctx, EntityStudent, studentID, "teacher")
	if err != nil {
		s.logger.Debug("Teacher lookup failed",
			zap.Int64("student_id", studentID),
			zap.Error(err))
		return "", false
	}
	return v, found
}

// OpenForm загружает занятие и привязывает к нему контроллер формы
func (s *LessonService) OpenForm(ctx context.Context, lessonID int64, p Presenter) (*LessonController, error) {
	l, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if l == nil {
		return nil, ErrLessonNotFound
	}

	rec := form.NewRecord(l, s.lessons, s.loc)
	return s.Bind(rec, p), nil
}

// CreateLesson создаёт занятие и рассылает уведомления
func (s *LessonService) CreateLesson(ctx context.Context, in NewLesson) (*model.Lesson, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &ValidationError{Field: form.FieldTitle, Title: "Invalid Title", Message: "Title is required"}
	}
	if err := s.CheckScheduledTime(in.ScheduledTime); err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		Title:         title,
		StudentID:     in.StudentID,
		TeacherID:     in.TeacherID,
		ScheduledTime: in.ScheduledTime,
		Duration:      in.Duration,
		Status:        model.LessonStatusScheduled,
		Notes:         in.Notes,
	}

	var student *model.Student
	if lesson.HasStudent() {
		st, err := s.students.GetByID(ctx, *lesson.StudentID)
		if err != nil {
			return nil, fmt.Errorf("get student: %w", err)
		}
		if st == nil {
			return nil, ErrStudentNotFound
		}
		student = st

		// Учитель по умолчанию - учитель студента
		if !lesson.HasTeacher() && st.TeacherID != nil {
			id := *st.TeacherID
			lesson.TeacherID = &id
		}
	}

	var teacher *model.User
	if lesson.HasTeacher() {
		u, err := s.users.GetByID(ctx, *lesson.TeacherID)
		if err != nil {
			return nil, fmt.Errorf("get teacher: %w", err)
		}
		if u == nil || !u.IsTeacher {
			return nil, ErrTeacherNotFound
		}
		teacher = u
	}

	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}

	s.logger.Info("Lesson created",
		zap.Int64("lesson_id", lesson.ID),
		zap.String("title", lesson.Title),
	)

	lesson.Student = student
	lesson.Teacher = teacher

	if student != nil && teacher != nil && s.notifier != nil {
		s.notifier.LessonScheduled(ctx, lesson, student, teacher)
	}

	return lesson, nil
}

// GetLesson получает занятие вместе со студентом и учителем
func (s *LessonService) GetLesson(ctx context.Context, id int64) (*model.Lesson, error) {
	l, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if l == nil {
		return nil, ErrLessonNotFound
	}

	if l.HasStudent() {
		if l.Student, err = s.students.GetByID(ctx, *l.StudentID); err != nil {
			return nil, fmt.Errorf("get student: %w", err)
		}
	}
	if l.HasTeacher() {
		if l.Teacher, err = s.users.GetByID(ctx, *l.TeacherID); err != nil {
			return nil, fmt.Errorf("get teacher: %w", err)
		}
	}

	return l, nil
}

// ListForTeacher возвращает занятия учителя и неназначенные занятия
func (s *LessonService) ListForTeacher(ctx context.Context, teacherID int64, limit int) ([]*model.Lesson, error) {
	return s.lessons.ListForTeacher(ctx, teacherID, limit)
}

// UpdateStatus меняет статус через таблицу переходов (API)
func (s *LessonService) UpdateStatus(ctx context.Context, id int64, to model.LessonStatus, reason string) (*model.Lesson, error) {
	l, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if l == nil {
		return nil, ErrLessonNotFound
	}

	tr, ok := model.UserTransitionTo(l.Status, to)
	if !ok {
		return nil, fmt.Errorf("%s -> %s: %w", l.Status, to, ErrTransitionNotAllowed)
	}

	reason = strings.TrimSpace(reason)
	if tr.NeedsReason && reason == "" {
		return nil, ErrReasonRequired
	}

	l.Status = tr.To
	if tr.NeedsReason {
		l.AppendNote(model.CancellationNote(reason))
	}

	if err := s.lessons.Save(ctx, l); err != nil {
		return nil, fmt.Errorf("save lesson: %w", err)
	}

	s.logger.Info("Lesson status updated",
		zap.Int64("lesson_id", id),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
	)

	return l, nil
}

// AutoCompleteStale закрывает занятия в статусе Scheduled, начавшиеся больше двух часов назад
func (s *LessonService) AutoCompleteStale(ctx context.Context, now time.Time) (int, error) {
	tr, ok := model.TransitionFor(model.LessonStatusScheduled, model.ActionAutoComplete)
	if !ok {
		return 0, errors.New("auto-complete transition is not defined")
	}

	stale, err := s.lessons.ListStale(ctx, now.Add(-staleAfter))
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, l := range stale {
		updated, err := s.lessons.UpdateStatusIfCurrent(ctx, l.ID, tr.From, tr.To)
		if err != nil {
			return completed, err
		}
		if updated {
			completed++
			s.logger.Info("Lesson auto-completed", zap.Int64("lesson_id", l.ID))
		}
	}

	return completed, nil
}
