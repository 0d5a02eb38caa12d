package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/form"
	"github.com/Freeeeeet/lesson_bot/internal/meet"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// versionedStore хранит одно занятие и отклоняет запись с устаревшим updated_at
type versionedStore struct {
	service.LessonStore
	current *model.Lesson
}

func (s *versionedStore) GetByID(_ context.Context, id int64) (*model.Lesson, error) {
	if s.current.ID != id {
		return nil, nil
	}
	return s.current.Clone(), nil
}

func (s *versionedStore) Save(_ context.Context, l *model.Lesson) error {
	if !l.UpdatedAt.Equal(s.current.UpdatedAt) {
		return service.ErrLessonConflict
	}
	l.UpdatedAt = l.UpdatedAt.Add(time.Second)
	s.current = l.Clone()
	return nil
}

// detachedForm перестаёт принимать значения после неудачного сохранения
type detachedForm struct {
	*form.Record
	detached bool
}

func (f *detachedForm) SetValue(ctx context.Context, field form.Field, value string) error {
	if f.detached {
		return errors.New("form detached")
	}
	return f.Record.SetValue(ctx, field, value)
}

func (f *detachedForm) Save(ctx context.Context) error {
	err := f.Record.Save(ctx)
	if err != nil {
		f.detached = true
	}
	return err
}

type blockingMeet struct {
	started chan struct{}
	release chan struct{}
}

func (m *blockingMeet) CreateMeeting(ctx context.Context, _ meet.Request) (*meet.Meeting, error) {
	close(m.started)
	select {
	case <-m.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &meet.Meeting{MeetLink: "https://meet.google.com/abcdefghij", Status: "success"}, nil
}

func (m *fakeMessenger) lastEdit() *bot.EditMessageTextParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edited) == 0 {
		return nil
	}
	return m.edited[len(m.edited)-1]
}

func callbacks(t *testing.T, p *bot.EditMessageTextParams) []string {
	t.Helper()
	markup, ok := p.ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.CallbackData)
		}
	}
	return out
}

func TestSetStudentOnChangedLessonReloadsCard(t *testing.T) {
	ctx := context.Background()
	l := futureLesson()
	l.UpdatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Пока карточка открыта, занятие завершили в другом месте
	store := &versionedStore{current: l.Clone()}
	store.current.Status = model.LessonStatusCompleted
	store.current.UpdatedAt = l.UpdatedAt.Add(time.Minute)

	api := &fakeMessenger{}
	lookup := fakeLookup{"student.name": "Anna", "user.first_name": "Olya"}
	svc := service.NewLessonService(service.LessonServiceOptions{
		Lessons: store,
		Lookup:  lookup,
		Logger:  zap.NewNop(),
	})
	p := newTelegramPresenter(api, 555, 0, lookup, time.UTC, zap.NewNop())
	ctrl := svc.Bind(form.NewRecord(l, store, time.UTC), p)
	h := &Handlers{logger: zap.NewNop()}

	p.begin("cb-1")
	h.setStudent(ctx, &lessonSession{ctrl: ctrl, presenter: p}, 2)
	p.finish(ctx)

	assert.Equal(t, model.LessonStatusCompleted, ctrl.Lesson().Status)
	assert.Equal(t, "1", ctrl.Form().Value(form.FieldStudent))
	assert.Equal(t, model.LessonStatusCompleted, store.current.Status)
	assert.False(t, ctrl.Offered(model.ActionStartLesson))

	require.Len(t, api.answered, 1)
	assert.Equal(t, "Занятие изменилось, карточка обновлена", api.answered[0].Text)
	require.Len(t, api.sent, 1)
	assert.Contains(t, api.sent[0].Text, "Завершено")
}

func TestCardHidesMeetButtonWhileLinkIsCreated(t *testing.T) {
	ctx := context.Background()
	api := &fakeMessenger{}
	lookup := fakeLookup{"student.name": "Anna", "user.first_name": "Olya"}
	m := &blockingMeet{started: make(chan struct{}), release: make(chan struct{})}

	svc := service.NewLessonService(service.LessonServiceOptions{
		Lookup: lookup,
		Meet:   m,
		Logger: zap.NewNop(),
	})
	p := newTelegramPresenter(api, 555, 42, lookup, time.UTC, zap.NewNop())
	ctrl := svc.Bind(form.NewRecord(futureLesson(), &fakeSaver{}, time.UTC), p)

	ctrl.Render(ctx)
	require.Contains(t, callbacks(t, api.lastEdit()), "lesson:3:create_meet")

	done := make(chan error, 1)
	go func() {
		done <- ctrl.CreateMeetLink(ctx)
	}()

	select {
	case <-m.started:
	case <-time.After(2 * time.Second):
		t.Fatal("meet provider was not called")
	}

	running := api.lastEdit()
	assert.Contains(t, running.Text, "Creating Google Meet link...")
	assert.NotContains(t, callbacks(t, running), "lesson:3:create_meet")

	close(m.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("meet link creation did not finish")
	}
}

func TestSetStudentLogsFailedRollback(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.ErrorLevel)

	api := &fakeMessenger{}
	lookup := fakeLookup{"student.name": "Anna"}
	svc := service.NewLessonService(service.LessonServiceOptions{
		Lookup: lookup,
		Logger: zap.NewNop(),
	})
	p := newTelegramPresenter(api, 555, 0, lookup, time.UTC, zap.NewNop())
	f := &detachedForm{Record: form.NewRecord(futureLesson(), &fakeSaver{err: errors.New("db gone")}, time.UTC)}
	ctrl := svc.Bind(f, p)
	h := &Handlers{logger: zap.New(core)}

	h.setStudent(ctx, &lessonSession{ctrl: ctrl, presenter: p}, 2)

	entries := logs.FilterMessage("Failed to restore lesson field").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "student", entries[0].ContextMap()["field"])
	assert.Equal(t, "teacher", entries[1].ContextMap()["field"])
	assert.Equal(t, int64(3), entries[0].ContextMap()["lesson_id"])
	assert.Equal(t, 1, logs.FilterMessage("Lesson action failed").Len())
}
