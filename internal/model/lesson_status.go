package model

import "fmt"

type LessonStatus string

const (
	LessonStatusScheduled   LessonStatus = "Scheduled"
	LessonStatusInProgress  LessonStatus = "In Progress"
	LessonStatusCompleted   LessonStatus = "Completed"
	LessonStatusCancelled   LessonStatus = "Cancelled"
	LessonStatusRescheduled LessonStatus = "Rescheduled"
)

// AllLessonStatuses перечисляет статусы в порядке жизненного цикла
var AllLessonStatuses = []LessonStatus{
	LessonStatusScheduled,
	LessonStatusInProgress,
	LessonStatusCompleted,
	LessonStatusCancelled,
	LessonStatusRescheduled,
}

// ParseLessonStatus проверяет, что строка - известный статус
func ParseLessonStatus(s string) (LessonStatus, error) {
	for _, st := range AllLessonStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown lesson status %q", s)
}

// Trigger - кто инициирует переход
type Trigger string

const (
	TriggerUser   Trigger = "user"   // Кнопка в интерфейсе или запрос API
	TriggerSystem Trigger = "system" // Фоновая задача
)

// Transition - одно разрешённое ребро машины состояний занятия
type Transition struct {
	From        LessonStatus
	To          LessonStatus
	Action      LessonAction
	Trigger     Trigger
	NeedsReason bool // Переход требует непустую причину, она дописывается в notes
}

var lessonTransitions = []Transition{
	{From: LessonStatusScheduled, To: LessonStatusInProgress, Action: ActionStartLesson, Trigger: TriggerUser},
	{From: LessonStatusScheduled, To: LessonStatusCancelled, Action: ActionCancelLesson, Trigger: TriggerUser, NeedsReason: true},
	{From: LessonStatusInProgress, To: LessonStatusCompleted, Action: ActionCompleteLesson, Trigger: TriggerUser},

	// Занятие давно прошло, а статус никто не обновил
	{From: LessonStatusScheduled, To: LessonStatusCompleted, Action: ActionAutoComplete, Trigger: TriggerSystem},
}

// TransitionFor возвращает переход для статуса и действия
func TransitionFor(from LessonStatus, action LessonAction) (Transition, bool) {
	for _, tr := range lessonTransitions {
		if tr.From == from && tr.Action == action {
			return tr, true
		}
	}
	return Transition{}, false
}

// UserTransitions возвращает переходы, которые можно предложить пользователю из статуса from
func UserTransitions(from LessonStatus) []Transition {
	var out []Transition
	for _, tr := range lessonTransitions {
		if tr.From == from && tr.Trigger == TriggerUser {
			out = append(out, tr)
		}
	}
	return out
}

// CanTransition проверяет пользовательский переход from -> to
func CanTransition(from, to LessonStatus) bool {
	_, ok := UserTransitionTo(from, to)
	return ok
}

// UserTransitionTo ищет пользовательский переход from -> to
func UserTransitionTo(from, to LessonStatus) (Transition, bool) {
	for _, tr := range UserTransitions(from) {
		if tr.To == to {
			return tr, true
		}
	}
	return Transition{}, false
}

// IsTerminal - из статуса нет пользовательских переходов
func (s LessonStatus) IsTerminal() bool {
	return len(UserTransitions(s)) == 0
}
