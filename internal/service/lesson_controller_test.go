package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/form"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func scheduledLesson(id int64, at time.Time) *model.Lesson {
	return &model.Lesson{
		ID:            id,
		Title:         "Past Simple",
		ScheduledTime: &at,
		Status:        model.LessonStatusScheduled,
	}
}

func (env *testEnv) open(t *testing.T, l *model.Lesson) *LessonController {
	t.Helper()
	if env.lessons.stored(l.ID) == nil {
		env.lessons.byID[l.ID] = l.Clone()
	}
	c, err := env.svc.OpenForm(context.Background(), l.ID, env.presenter)
	require.NoError(t, err)
	return c
}

func offered(groups []model.ActionGroup, action model.LessonAction) *model.ActionButton {
	for _, g := range groups {
		for i := range g.Buttons {
			if g.Buttons[i].Action == action {
				return &g.Buttons[i]
			}
		}
	}
	return nil
}

func TestPastScheduledTimeIsRejected(t *testing.T) {
	env := newTestEnv()
	c := env.open(t, &model.Lesson{ID: 1, Title: "Intro", Status: model.LessonStatusScheduled})

	require.NoError(t, c.Form().SetValue(context.Background(), form.FieldScheduledTime, "2020-01-01T10:00"))

	assert.Equal(t, "", c.Form().Value(form.FieldScheduledTime))
	assert.Nil(t, c.Lesson().ScheduledTime)
	require.Len(t, env.presenter.alerts, 1)
	assert.Equal(t, "Invalid Time", env.presenter.alerts[0].Title)
	assert.Equal(t, "Cannot schedule lesson in the past", env.presenter.alerts[0].Text)
	assert.Equal(t, LevelDanger, env.presenter.alerts[0].Level)
	assert.Zero(t, env.lessons.saves)
}

func TestCurrentOrFutureScheduledTimeIsKept(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "now", value: "2026-03-10T12:00", want: "2026-03-10T12:00:00"},
		{name: "tomorrow", value: "2026-03-11T09:30", want: "2026-03-11T09:30:00"},
		{name: "dotted layout", value: "20.04.2026 18:15", want: "2026-04-20T18:15:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			c := env.open(t, &model.Lesson{ID: 1, Title: "Intro", Status: model.LessonStatusScheduled})

			require.NoError(t, c.Form().SetValue(context.Background(), form.FieldScheduledTime, tt.value))

			assert.Equal(t, tt.want, c.Form().Value(form.FieldScheduledTime))
			assert.Empty(t, env.presenter.alerts)
		})
	}
}

func TestStudentSelectionFillsTeacher(t *testing.T) {
	env := newTestEnv()
	c := env.open(t, &model.Lesson{ID: 1, Title: "Intro", Status: model.LessonStatusScheduled})

	require.NoError(t, c.Form().SetValue(context.Background(), form.FieldStudent, "1"))

	assert.Equal(t, "7", c.Form().Value(form.FieldTeacher))
	assert.Zero(t, env.lessons.saves)
}

func TestStudentSelectionKeepsExistingTeacher(t *testing.T) {
	env := newTestEnv()
	c := env.open(t, &model.Lesson{ID: 1, Title: "Intro", TeacherID: ptr(int64(8)), Status: model.LessonStatusScheduled})

	require.NoError(t, c.Form().SetValue(context.Background(), form.FieldStudent, "1"))

	assert.Equal(t, "8", c.Form().Value(form.FieldTeacher))
	assert.Empty(t, env.log.all(), "lookup must not run when teacher is set")
}

func TestStudentWithoutTeacherLeavesTeacherEmpty(t *testing.T) {
	env := newTestEnv()
	c := env.open(t, &model.Lesson{ID: 1, Title: "Intro", Status: model.LessonStatusScheduled})

	require.NoError(t, c.Form().SetValue(context.Background(), form.FieldStudent, "2"))

	assert.Equal(t, "", c.Form().Value(form.FieldTeacher))
	assert.Equal(t, []string{"lookup student:2:teacher"}, env.log.all())
}

func TestTeacherLookupFailureIsSwallowed(t *testing.T) {
	env := newTestEnv()
	env.lookup.err = errors.New("rpc down")
	c := env.open(t, &model.Lesson{ID: 1, Title: "Intro", Status: model.LessonStatusScheduled})

	require.NoError(t, c.Form().SetValue(context.Background(), form.FieldStudent, "1"))

	assert.Equal(t, "", c.Form().Value(form.FieldTeacher))
	assert.Empty(t, env.presenter.alerts)
}

func TestCancelAppendsReason(t *testing.T) {
	tests := []struct {
		name  string
		notes string
		want  string
	}{
		{name: "empty notes", notes: "", want: "Cancelled: Student sick"},
		{name: "existing notes", notes: "Bring the workbook", want: "Bring the workbook\n\nCancelled: Student sick"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			l := scheduledLesson(1, testNow.Add(24*time.Hour))
			l.Notes = tt.notes
			c := env.open(t, l)

			require.NoError(t, c.Dispatch(context.Background(), model.ActionCancelLesson, "Student sick"))

			got := c.Lesson()
			assert.Equal(t, model.LessonStatusCancelled, got.Status)
			assert.Equal(t, tt.want, got.Notes)

			stored := env.lessons.stored(1)
			assert.Equal(t, model.LessonStatusCancelled, stored.Status)
			assert.Equal(t, tt.want, stored.Notes)
			assert.Equal(t, 1, env.lessons.saves)
			require.Len(t, env.presenter.toasts, 1)
			assert.Equal(t, LevelSuccess, env.presenter.toasts[0].Level)
		})
	}
}

func TestCancelWithoutReasonChangesNothing(t *testing.T) {
	for _, reason := range []string{"", "   "} {
		env := newTestEnv()
		l := scheduledLesson(1, testNow.Add(24*time.Hour))
		l.Notes = "keep me"
		c := env.open(t, l)

		err := c.Dispatch(context.Background(), model.ActionCancelLesson, reason)
		require.ErrorIs(t, err, ErrReasonRequired)

		got := c.Lesson()
		assert.Equal(t, model.LessonStatusScheduled, got.Status)
		assert.Equal(t, "keep me", got.Notes)
		assert.Zero(t, env.lessons.saves)
	}
}

func TestStartThenComplete(t *testing.T) {
	env := newTestEnv()
	c := env.open(t, scheduledLesson(1, testNow.Add(time.Hour)))
	ctx := context.Background()

	require.ErrorIs(t, c.Dispatch(ctx, model.ActionCompleteLesson, ""), ErrActionNotOffered)

	require.NoError(t, c.Dispatch(ctx, model.ActionStartLesson, ""))
	assert.Equal(t, model.LessonStatusInProgress, c.Lesson().Status)

	require.NoError(t, c.Dispatch(ctx, model.ActionCompleteLesson, ""))
	assert.Equal(t, model.LessonStatusCompleted, env.lessons.stored(1).Status)

	assert.Nil(t, offered(c.Actions(), model.ActionStartLesson))
	assert.Nil(t, offered(c.Actions(), model.ActionCancelLesson))
}

func TestTransitionSaveFailureRestoresForm(t *testing.T) {
	env := newTestEnv()
	l := scheduledLesson(1, testNow.Add(time.Hour))
	c := env.open(t, l)
	env.lessons.saveErr = errors.New("db gone")

	err := c.Cancel(context.Background(), "Teacher ill")
	require.Error(t, err)

	got := c.Lesson()
	assert.Equal(t, model.LessonStatusScheduled, got.Status)
	assert.Equal(t, "", got.Notes)
	assert.Empty(t, env.presenter.toasts)
}

func TestStatusActionsFollowTransitionTable(t *testing.T) {
	tests := []struct {
		status model.LessonStatus
		want   []model.LessonAction
	}{
		{model.LessonStatusScheduled, []model.LessonAction{model.ActionStartLesson, model.ActionCancelLesson}},
		{model.LessonStatusInProgress, []model.LessonAction{model.ActionCompleteLesson}},
		{model.LessonStatusCompleted, nil},
		{model.LessonStatusCancelled, nil},
		{model.LessonStatusRescheduled, nil},
	}

	env := newTestEnv()
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			l := &model.Lesson{ID: 1, Status: tt.status}

			var got []model.LessonAction
			for _, g := range env.svc.Actions(l) {
				if g.Name != model.ActionGroupStatus {
					continue
				}
				for _, b := range g.Buttons {
					got = append(got, b.Action)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateMeetLinkOffered(t *testing.T) {
	future := testNow.Add(3 * time.Hour)

	tests := []struct {
		name     string
		lesson   *model.Lesson
		offered  bool
		joinLink string
	}{
		{
			name:    "time set and no link",
			lesson:  &model.Lesson{ID: 1, ScheduledTime: &future, Status: model.LessonStatusScheduled},
			offered: true,
		},
		{
			name:    "no time",
			lesson:  &model.Lesson{ID: 1, Status: model.LessonStatusScheduled},
			offered: false,
		},
		{
			name:     "link exists",
			lesson:   &model.Lesson{ID: 1, ScheduledTime: &future, MeetLink: "https://meet.example/x", Status: model.LessonStatusScheduled},
			offered:  false,
			joinLink: "https://meet.example/x",
		},
	}

	env := newTestEnv()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := env.svc.Actions(tt.lesson)

			assert.Equal(t, tt.offered, offered(groups, model.ActionCreateMeetLink) != nil)

			join := offered(groups, model.ActionJoinMeet)
			if tt.joinLink == "" {
				assert.Nil(t, join)
				return
			}
			require.NotNil(t, join)
			assert.Equal(t, tt.joinLink, join.URL)
		})
	}
}

func TestToolsGroup(t *testing.T) {
	env := newTestEnv()
	env.svc.whiteboardURL = "https://board.example"

	groups := env.svc.Actions(&model.Lesson{ID: 1, StudentID: ptr(int64(1)), Status: model.LessonStatusCompleted})

	require.Len(t, groups, 1)
	assert.Equal(t, model.ActionGroupTools, groups[0].Name)
	assert.Equal(t, "https://board.example", groups[0].Buttons[0].URL)
	assert.Equal(t, model.ActionStudentProfile, groups[0].Buttons[1].Action)
}

func TestCreateMeetLinkSavesRecord(t *testing.T) {
	env := newTestEnv()
	l := scheduledLesson(1, testNow.Add(24*time.Hour))
	l.StudentID = ptr(int64(1))
	c := env.open(t, l)

	require.NoError(t, c.Dispatch(context.Background(), model.ActionCreateMeetLink, ""))

	assert.Equal(t, "https://meet.example/abc", c.Form().Value(form.FieldMeetLink))
	assert.Equal(t, "https://meet.example/abc", env.lessons.stored(1).MeetLink)
	assert.Equal(t, 1, env.lessons.saves)

	assert.Equal(t, []string{"lookup student:1:email", "meet"}, env.log.all())
	reqs := env.meet.calls()
	require.Len(t, reqs, 1)
	assert.Equal(t, "anna@example.com", reqs[0].StudentEmail)
	assert.Equal(t, "Past Simple", reqs[0].Title)

	require.Len(t, env.presenter.headlines, 2)
	assert.NotNil(t, env.presenter.headlines[0])
	assert.Nil(t, env.presenter.headlines[1])
	require.Len(t, env.presenter.toasts, 1)
	assert.Equal(t, "Google Meet link created and saved!", env.presenter.toasts[0].Text)

	assert.True(t, env.presenter.lastView().ShowMeetLink)
	assert.False(t, c.Offered(model.ActionCreateMeetLink))
	assert.ErrorIs(t, c.Dispatch(context.Background(), model.ActionCreateMeetLink, ""), ErrActionNotOffered)
}

func TestMeetLinkShownOncePerController(t *testing.T) {
	env := newTestEnv()
	l := scheduledLesson(1, testNow.Add(24*time.Hour))
	l.MeetLink = "https://meet.example/old"
	c := env.open(t, l)

	c.Render(context.Background())
	c.Render(context.Background())
	require.Len(t, env.presenter.views, 2)
	assert.True(t, env.presenter.views[0].ShowMeetLink)
	assert.False(t, env.presenter.views[1].ShowMeetLink)

	other := env.open(t, l)
	other.Render(context.Background())
	assert.True(t, env.presenter.lastView().ShowMeetLink)
}

func TestCreateMeetLinkWithoutStudentEmail(t *testing.T) {
	env := newTestEnv()
	env.lookup.err = errors.New("lookup failed")
	l := scheduledLesson(1, testNow.Add(24*time.Hour))
	l.StudentID = ptr(int64(1))
	c := env.open(t, l)

	require.NoError(t, c.CreateMeetLink(context.Background()))

	reqs := env.meet.calls()
	require.Len(t, reqs, 1)
	assert.Equal(t, "", reqs[0].StudentEmail)
}

func TestCreateMeetLinkProviderFailure(t *testing.T) {
	env := newTestEnv()
	env.meet.err = errors.New("quota exceeded")
	c := env.open(t, scheduledLesson(1, testNow.Add(24*time.Hour)))

	err := c.Dispatch(context.Background(), model.ActionCreateMeetLink, "")
	require.ErrorIs(t, err, ErrMeetLinkFailed)

	assert.Equal(t, "", c.Form().Value(form.FieldMeetLink))
	assert.Zero(t, env.lessons.saves)
	require.Len(t, env.presenter.alerts, 1)
	assert.Equal(t, "Failed to create Meet link. Please check Google API configuration.", env.presenter.alerts[0].Text)
	assert.NotContains(t, env.presenter.alerts[0].Text, "quota")
	assert.True(t, c.Offered(model.ActionCreateMeetLink))
}

func TestCreateMeetLinkSaveFailureClearsLink(t *testing.T) {
	env := newTestEnv()
	c := env.open(t, scheduledLesson(1, testNow.Add(24*time.Hour)))
	env.lessons.saveErr = errors.New("db gone")

	require.Error(t, c.CreateMeetLink(context.Background()))

	assert.Equal(t, "", c.Form().Value(form.FieldMeetLink))
	assert.True(t, c.Offered(model.ActionCreateMeetLink))
}

func TestCreateMeetLinkInFlightGuard(t *testing.T) {
	env := newTestEnv()
	env.meet.started = make(chan struct{})
	env.meet.release = make(chan struct{})
	c := env.open(t, scheduledLesson(1, testNow.Add(24*time.Hour)))

	done := make(chan error, 1)
	go func() {
		done <- c.CreateMeetLink(context.Background())
	}()

	select {
	case <-env.meet.started:
	case <-time.After(2 * time.Second):
		t.Fatal("meet provider was not called")
	}

	assert.False(t, c.Offered(model.ActionCreateMeetLink))
	assert.ErrorIs(t, c.CreateMeetLink(context.Background()), ErrMeetLinkInFlight)

	close(env.meet.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("meet link creation did not finish")
	}

	assert.Len(t, env.meet.calls(), 1)
	assert.Equal(t, "https://meet.example/abc", c.Form().Value(form.FieldMeetLink))
}

func TestRefreshRendersAdvisory(t *testing.T) {
	env := newTestEnv()
	c := env.open(t, scheduledLesson(1, testNow.Add(10*time.Minute)))

	c.Form().Refresh(context.Background())

	v := env.presenter.lastView()
	assert.Equal(t, AdvisoryStartingSoon, v.Advisory.Kind)
	assert.Equal(t, LevelSuccess, v.Advisory.Level)
	assert.NotNil(t, offered(v.Groups, model.ActionCreateMeetLink))
}

func TestOpenFormUnknownLesson(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.OpenForm(context.Background(), 404, env.presenter)
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestStatusChangedElsewhereBlocksStaleCard(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.open(t, scheduledLesson(1, testNow.Add(-3*time.Hour)))

	n, err := env.svc.AutoCompleteStale(ctx, testNow)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	err = c.Dispatch(ctx, model.ActionStartLesson, "")
	require.ErrorIs(t, err, ErrLessonConflict)

	assert.Equal(t, model.LessonStatusCompleted, env.lessons.stored(1).Status)
	assert.Equal(t, model.LessonStatusScheduled, c.Lesson().Status)
	assert.Zero(t, env.lessons.saves)
	assert.Empty(t, env.presenter.toasts)

	require.NoError(t, c.Reload(ctx))
	assert.Equal(t, model.LessonStatusCompleted, c.Lesson().Status)
	assert.False(t, c.Offered(model.ActionStartLesson))
	assert.ErrorIs(t, c.Dispatch(ctx, model.ActionCancelLesson, "late"), ErrActionNotOffered)
}

func TestStatusUpdateThroughServiceBlocksStaleCard(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.open(t, scheduledLesson(1, testNow.Add(time.Hour)))

	_, err := env.svc.UpdateStatus(ctx, 1, model.LessonStatusCancelled, "Teacher ill")
	require.NoError(t, err)

	require.ErrorIs(t, c.Dispatch(ctx, model.ActionStartLesson, ""), ErrLessonConflict)
	assert.Equal(t, model.LessonStatusCancelled, env.lessons.stored(1).Status)
	assert.Equal(t, "Cancelled: Teacher ill", env.lessons.stored(1).Notes)
}

func TestCardSavesRepeatedlyAfterOwnChanges(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.open(t, scheduledLesson(1, testNow.Add(time.Hour)))

	require.NoError(t, c.Dispatch(ctx, model.ActionStartLesson, ""))
	require.NoError(t, c.Dispatch(ctx, model.ActionCompleteLesson, ""))

	assert.Equal(t, 2, env.lessons.saves)
	assert.Equal(t, model.LessonStatusCompleted, env.lessons.stored(1).Status)
}

func TestReloadUnknownLesson(t *testing.T) {
	env := newTestEnv()
	c := env.open(t, scheduledLesson(1, testNow.Add(time.Hour)))
	delete(env.lessons.byID, 1)

	assert.ErrorIs(t, c.Reload(context.Background()), ErrLessonNotFound)
}

func TestCreateMeetLinkRendersWithoutButtonBeforeRequest(t *testing.T) {
	env := newTestEnv()
	env.meet.started = make(chan struct{})
	env.meet.release = make(chan struct{})
	c := env.open(t, scheduledLesson(1, testNow.Add(24*time.Hour)))

	done := make(chan error, 1)
	go func() {
		done <- c.CreateMeetLink(context.Background())
	}()

	select {
	case <-env.meet.started:
	case <-time.After(2 * time.Second):
		t.Fatal("meet provider was not called")
	}

	v := env.presenter.lastView()
	assert.Nil(t, offered(v.Groups, model.ActionCreateMeetLink))
	env.presenter.mu.Lock()
	require.Len(t, env.presenter.headlines, 1)
	assert.Equal(t, "Creating Google Meet link...", env.presenter.headlines[0].Text)
	env.presenter.mu.Unlock()

	close(env.meet.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("meet link creation did not finish")
	}
	assert.NotNil(t, offered(env.presenter.lastView().Groups, model.ActionJoinMeet))
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

func TestFailedRollbackIsLogged(t *testing.T) {
	env := newTestEnv()
	core, logs := observer.New(zap.ErrorLevel)
	env.svc.logger = zap.New(core)

	l := scheduledLesson(1, testNow.Add(time.Hour))
	env.lessons.byID[1] = l.Clone()
	env.lessons.saveErr = errors.New("db gone")
	c := env.svc.Bind(&detachedForm{Record: form.NewRecord(l, env.lessons, time.UTC)}, env.presenter)

	require.Error(t, c.Dispatch(context.Background(), model.ActionStartLesson, ""))

	entries := logs.FilterMessage("Failed to restore lesson status").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["lesson_id"])
	assert.Equal(t, "Scheduled", entries[0].ContextMap()["status"])
	assert.Equal(t, 1, logs.FilterMessage("Failed to restore lesson notes").Len())
}
