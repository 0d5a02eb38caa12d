package model

type LessonAction string

const (
	ActionCreateMeetLink LessonAction = "create_meet"
	ActionJoinMeet       LessonAction = "join_meet"
	ActionStartLesson    LessonAction = "start"
	ActionCancelLesson   LessonAction = "cancel"
	ActionCompleteLesson LessonAction = "complete"
	ActionOpenWhiteboard LessonAction = "whiteboard"
	ActionStudentProfile LessonAction = "student_profile"

	ActionAutoComplete LessonAction = "auto_complete" // Только для фоновой задачи
)

// Группы кнопок на карточке занятия
const (
	ActionGroupActions = "Actions"
	ActionGroupStatus  = "Status"
	ActionGroupTools   = "Tools"
)

// ActionButton - одно действие, которое можно показать пользователю
type ActionButton struct {
	Action LessonAction
	Label  string
	URL    string // Для действий, которые просто открывают ссылку
}

type ActionGroup struct {
	Name    string
	Buttons []ActionButton
}

var actionLabels = map[LessonAction]string{
	ActionCreateMeetLink: "Create Meet Link",
	ActionJoinMeet:       "Join Meet",
	ActionStartLesson:    "Start Lesson",
	ActionCancelLesson:   "Cancel Lesson",
	ActionCompleteLesson: "Complete Lesson",
	ActionOpenWhiteboard: "Open Whiteboard",
	ActionStudentProfile: "Student Profile",
}

// Label возвращает подпись действия по умолчанию
func (a LessonAction) Label() string {
	if l, ok := actionLabels[a]; ok {
		return l
	}
	return string(a)
}
