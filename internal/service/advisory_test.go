package service

import (
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestComputeAdvisory(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
		status model.LessonStatus
		want   AdvisoryKind
		level  Level
	}{
		{name: "passed and still scheduled", offset: -time.Minute, status: model.LessonStatusScheduled, want: AdvisoryTimePassed, level: LevelWarning},
		{name: "passed and in progress", offset: -time.Minute, status: model.LessonStatusInProgress, want: AdvisoryNone},
		{name: "starts now", offset: 0, status: model.LessonStatusScheduled, want: AdvisoryStartingSoon, level: LevelSuccess},
		{name: "in ten minutes", offset: 10 * time.Minute, status: model.LessonStatusScheduled, want: AdvisoryStartingSoon, level: LevelSuccess},
		{name: "in fifteen minutes", offset: 15 * time.Minute, status: model.LessonStatusScheduled, want: AdvisoryWithinHour, level: LevelInfo},
		{name: "in fifty nine minutes", offset: 59 * time.Minute, status: model.LessonStatusScheduled, want: AdvisoryWithinHour, level: LevelInfo},
		{name: "in an hour", offset: time.Hour, status: model.LessonStatusScheduled, want: AdvisoryNone},
		{name: "cancelled soon", offset: 5 * time.Minute, status: model.LessonStatusCancelled, want: AdvisoryStartingSoon, level: LevelSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := testNow.Add(tt.offset)
			got := ComputeAdvisory(&model.Lesson{ScheduledTime: &at, Status: tt.status}, testNow)

			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.want == AdvisoryNone, got.IsZero())
		})
	}
}

func TestComputeAdvisoryWithoutTime(t *testing.T) {
	assert.True(t, ComputeAdvisory(&model.Lesson{Status: model.LessonStatusScheduled}, testNow).IsZero())
	assert.True(t, ComputeAdvisory(nil, testNow).IsZero())
}
