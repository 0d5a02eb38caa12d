package service

import (
	"context"

	"github.com/Freeeeeet/lesson_bot/internal/model"
)

// Level - важность сообщения (цвет индикатора)
type Level string

const (
	LevelInfo    Level = "blue"
	LevelSuccess Level = "green"
	LevelWarning Level = "orange"
	LevelDanger  Level = "red"
)

type Notice struct {
	Level Level
	Title string
	Text  string
}

// View - то, что хост рисует на карточке занятия
type View struct {
	Lesson   *model.Lesson
	Groups   []model.ActionGroup
	Advisory Advisory
	// ShowMeetLink - ссылку на встречу нужно показать отдельным блоком (один раз за сессию)
	ShowMeetLink bool
}

// Presenter - слой отображения, который предоставляет хост
type Presenter interface {
	Render(ctx context.Context, v View)
	// Headline показывает баннер над карточкой; nil - убрать баннер
	Headline(ctx context.Context, n *Notice)
	Toast(ctx context.Context, n Notice)
	Alert(ctx context.Context, n Notice)
}
