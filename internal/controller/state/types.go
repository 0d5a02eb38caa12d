package state

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Создание занятия
	StateNewLessonTitle UserState = "new_lesson_title"

	// Редактирование открытой карточки занятия
	StateLessonTime   UserState = "lesson_time"
	StateCancelReason UserState = "cancel_reason"

	// Email для уведомлений
	StateUserEmail UserState = "user_email"
)

// Ключи временных данных диалога
const (
	DataLessonID = "lesson_id"
)

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State UserState
	Data  map[string]interface{} // Временные данные для текущего диалога

	// Session - открытая карточка занятия; переживает сброс диалога
	Session interface{}
}
