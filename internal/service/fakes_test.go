package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/meet"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// callLog - общий журнал вызовов для проверки порядка
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fakeLessons повторяет проверку updated_at из LessonRepository.Save
type fakeLessons struct {
	mu      sync.Mutex
	byID    map[int64]*model.Lesson
	nextID  int64
	clock   time.Time
	saves   int
	saveErr error
}

func newFakeLessons(lessons ...*model.Lesson) *fakeLessons {
	f := &fakeLessons{byID: make(map[int64]*model.Lesson), nextID: 100, clock: testNow}
	for _, l := range lessons {
		f.byID[l.ID] = l.Clone()
	}
	return f
}

// tick - следующее значение updated_at; вызывается под f.mu
func (f *fakeLessons) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeLessons) Create(_ context.Context, l *model.Lesson) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	l.ID = f.nextID
	l.CreatedAt = testNow
	l.UpdatedAt = f.tick()
	f.byID[l.ID] = l.Clone()
	return nil
}

func (f *fakeLessons) GetByID(_ context.Context, id int64) (*model.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return l.Clone(), nil
}

func (f *fakeLessons) Save(_ context.Context, l *model.Lesson) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cur, ok := f.byID[l.ID]
	if !ok {
		return repository.ErrLessonNotFound
	}
	if !cur.UpdatedAt.Equal(l.UpdatedAt) {
		return repository.ErrLessonConflict
	}
	f.saves++
	l.UpdatedAt = f.tick()
	f.byID[l.ID] = l.Clone()
	return nil
}

func (f *fakeLessons) UpdateStatusIfCurrent(_ context.Context, id int64, from, to model.LessonStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok || l.Status != from {
		return false, nil
	}
	l.Status = to
	l.UpdatedAt = f.tick()
	return true, nil
}

func (f *fakeLessons) stored(id int64) *model.Lesson {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.byID[id]; ok {
		return l.Clone()
	}
	return nil
}

func (f *fakeLessons) sorted(keep func(*model.Lesson) bool) []*model.Lesson {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Lesson
	for _, l := range f.byID {
		if keep(l) {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeLessons) ListForTeacher(_ context.Context, teacherID int64, limit int) ([]*model.Lesson, error) {
	out := f.sorted(func(l *model.Lesson) bool {
		return l.TeacherID == nil || *l.TeacherID == teacherID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLessons) ListRecentByTeacher(_ context.Context, teacherID int64, limit int) ([]*model.Lesson, error) {
	out := f.sorted(func(l *model.Lesson) bool {
		return l.TeacherID != nil && *l.TeacherID == teacherID
	})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeLessons) ListStale(_ context.Context, cutoff time.Time) ([]*model.Lesson, error) {
	return f.sorted(func(l *model.Lesson) bool {
		return l.Status == model.LessonStatusScheduled && l.IsScheduled() && l.ScheduledTime.Before(cutoff)
	}), nil
}

func (f *fakeLessons) ListForCalendar(_ context.Context, flt model.CalendarFilter) ([]*model.Lesson, error) {
	return f.sorted(func(l *model.Lesson) bool {
		if !l.IsScheduled() {
			return false
		}
		if flt.TeacherID != nil && (l.TeacherID == nil || *l.TeacherID != *flt.TeacherID) {
			return false
		}
		if flt.StudentID != nil && (l.StudentID == nil || *l.StudentID != *flt.StudentID) {
			return false
		}
		return true
	}), nil
}

type fakeStudents struct {
	byID   map[int64]*model.Student
	nextID int64
}

func newFakeStudents(students ...*model.Student) *fakeStudents {
	f := &fakeStudents{byID: make(map[int64]*model.Student), nextID: 500}
	for _, s := range students {
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeStudents) Create(_ context.Context, s *model.Student) error {
	for _, other := range f.byID {
		if s.Email != "" && strings.EqualFold(other.Email, s.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	f.nextID++
	s.ID = f.nextID
	f.byID[s.ID] = s
	return nil
}

func (f *fakeStudents) GetByID(_ context.Context, id int64) (*model.Student, error) {
	return f.byID[id], nil
}

func (f *fakeStudents) EmailTaken(_ context.Context, email string, exceptID int64) (bool, error) {
	for _, s := range f.byID {
		if s.ID != exceptID && strings.EqualFold(s.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudents) List(_ context.Context, teacherID *int64) ([]*model.Student, error) {
	var out []*model.Student
	for _, s := range f.byID {
		if teacherID == nil || (s.TeacherID != nil && *s.TeacherID == *teacherID) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStudents) GetField(_ context.Context, id int64, field string) (*string, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	var v string
	switch field {
	case "teacher":
		if s.TeacherID != nil {
			v = fmt.Sprint(*s.TeacherID)
		}
	case "email":
		v = s.Email
	case "name":
		v = s.Name
	default:
		return nil, repository.ErrFieldNotAllowed
	}
	if v == "" {
		return nil, nil
	}
	return &v, nil
}

type fakeUsers struct {
	byID map[int64]*model.User
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[int64]*model.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	u.ID = int64(len(f.byID) + 1000)
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	for _, u := range f.byID {
		if u.TelegramID == telegramID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) SetTeacher(_ context.Context, userID int64, isTeacher bool) error {
	if u, ok := f.byID[userID]; ok {
		u.IsTeacher = isTeacher
	}
	return nil
}

func (f *fakeUsers) SetEmail(_ context.Context, userID int64, email string) error {
	if u, ok := f.byID[userID]; ok {
		u.Email = email
	}
	return nil
}

// ListTeachersByLoad в фейке сортирует по ID; нагрузку задаёт порядок ID в тесте
func (f *fakeUsers) ListTeachersByLoad(_ context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.byID {
		if u.IsTeacher {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) GetField(_ context.Context, id int64, field string) (*string, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	var v string
	switch field {
	case "email":
		v = u.Email
	case "first_name":
		v = u.FirstName
	default:
		return nil, repository.ErrFieldNotAllowed
	}
	if v == "" {
		return nil, nil
	}
	return &v, nil
}

type fakeLookup struct {
	values map[string]string
	err    error
	log    *callLog
}

func (f *fakeLookup) Lookup(_ context.Context, entity Entity, id int64, field string) (string, bool, error) {
	key := fmt.Sprintf("%s:%d:%s", entity, id, field)
	if f.log != nil {
		f.log.add("lookup " + key)
	}
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

type fakeMeet struct {
	link    string
	err     error
	log     *callLog
	started chan struct{} // закрывается при первом вызове
	release chan struct{} // если задан, вызов ждёт его
	once    sync.Once

	mu       sync.Mutex
	requests []meet.Request
}

func (f *fakeMeet) CreateMeeting(ctx context.Context, req meet.Request) (*meet.Meeting, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.log != nil {
		f.log.add("meet")
	}
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &meet.Meeting{MeetLink: f.link, EventID: "evt", Status: "success"}, nil
}

func (f *fakeMeet) calls() []meet.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]meet.Request(nil), f.requests...)
}

type fakePresenter struct {
	mu        sync.Mutex
	views     []View
	headlines []*Notice
	toasts    []Notice
	alerts    []Notice
}

func (p *fakePresenter) Render(_ context.Context, v View) {
	p.mu.Lock()
	p.views = append(p.views, v)
	p.mu.Unlock()
}

func (p *fakePresenter) Headline(_ context.Context, n *Notice) {
	p.mu.Lock()
	p.headlines = append(p.headlines, n)
	p.mu.Unlock()
}

func (p *fakePresenter) Toast(_ context.Context, n Notice) {
	p.mu.Lock()
	p.toasts = append(p.toasts, n)
	p.mu.Unlock()
}

func (p *fakePresenter) Alert(_ context.Context, n Notice) {
	p.mu.Lock()
	p.alerts = append(p.alerts, n)
	p.mu.Unlock()
}

func (p *fakePresenter) lastView() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.views) == 0 {
		return View{}
	}
	return p.views[len(p.views)-1]
}

type fakeNotifier struct {
	sent []*model.Lesson
}

func (n *fakeNotifier) LessonScheduled(_ context.Context, l *model.Lesson, _ *model.Student, _ *model.User) {
	n.sent = append(n.sent, l)
}

type testEnv struct {
	lessons   *fakeLessons
	students  *fakeStudents
	users     *fakeUsers
	lookup    *fakeLookup
	meet      *fakeMeet
	notifier  *fakeNotifier
	presenter *fakePresenter
	log       *callLog
	svc       *LessonService
}

func newTestEnv(lessons ...*model.Lesson) *testEnv {
	log := &callLog{}
	env := &testEnv{
		lessons: newFakeLessons(lessons...),
		students: newFakeStudents(
			&model.Student{ID: 1, Name: "Anna", Email: "anna@example.com", TeacherID: ptr(int64(7))},
			&model.Student{ID: 2, Name: "Boris"},
		),
		users: newFakeUsers(
			&model.User{ID: 7, TelegramID: 70, FirstName: "Olya", Email: "olya@example.com", IsTeacher: true},
			&model.User{ID: 8, TelegramID: 80, FirstName: "Ivan", IsTeacher: true},
			&model.User{ID: 9, TelegramID: 90, FirstName: "Petr"},
		),
		lookup: &fakeLookup{
			values: map[string]string{
				"student:1:teacher": "7",
				"student:1:email":   "anna@example.com",
			},
			log: log,
		},
		meet:      &fakeMeet{link: "https://meet.example/abc", log: log},
		notifier:  &fakeNotifier{},
		presenter: &fakePresenter{},
		log:       log,
	}

	env.svc = NewLessonService(LessonServiceOptions{
		Lessons:  env.lessons,
		Students: env.students,
		Users:    env.users,
		Lookup:   env.lookup,
		Meet:     env.meet,
		Notifier: env.notifier,
		Location: time.UTC,
		Logger:   zap.NewNop(),
	})
	env.svc.now = func() time.Time { return testNow }

	return env
}
