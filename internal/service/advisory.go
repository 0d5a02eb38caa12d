package service

import (
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
)

type AdvisoryKind string

const (
	AdvisoryNone         AdvisoryKind = ""
	AdvisoryTimePassed   AdvisoryKind = "time_passed"
	AdvisoryStartingSoon AdvisoryKind = "starting_soon"
	AdvisoryWithinHour   AdvisoryKind = "within_hour"
)

const (
	soonWindow = 15 * time.Minute
	hourWindow = time.Hour
)

// Advisory - подсказка о времени занятия, не сохраняется
type Advisory struct {
	Kind    AdvisoryKind `json:"kind"`
	Level   Level        `json:"level,omitempty"`
	Message string       `json:"message,omitempty"`
}

func (a Advisory) IsZero() bool {
	return a.Kind == AdvisoryNone
}

// ComputeAdvisory считает подсказку на момент now
func ComputeAdvisory(l *model.Lesson, now time.Time) Advisory {
	if l == nil || !l.IsScheduled() {
		return Advisory{}
	}

	delta := l.ScheduledTime.Sub(now)
	switch {
	case delta < 0:
		if l.Status == model.LessonStatusScheduled {
			return Advisory{
				Kind:    AdvisoryTimePassed,
				Level:   LevelWarning,
				Message: "Lesson time has passed - please update status",
			}
		}
	case delta < soonWindow:
		return Advisory{
			Kind:    AdvisoryStartingSoon,
			Level:   LevelSuccess,
			Message: "Lesson starting soon!",
		}
	case delta < hourWindow:
		return Advisory{
			Kind:    AdvisoryWithinHour,
			Level:   LevelInfo,
			Message: "Lesson starting in less than 1 hour",
		}
	}
	return Advisory{}
}
