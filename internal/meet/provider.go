// Package meet создаёт ссылки на видеовстречи для занятий.
package meet

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured - провайдер встреч не настроен
var ErrNotConfigured = errors.New("meeting provider not configured")

// Request - запрос на создание встречи
type Request struct {
	Title        string    `json:"title"`
	When         time.Time `json:"when"`
	StudentEmail string    `json:"student_email,omitempty"`
}

// Meeting - созданная встреча
type Meeting struct {
	MeetLink string `json:"meet_link"`
	EventID  string `json:"event_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// Provider создаёт встречу во внешнем календаре
type Provider interface {
	CreateMeeting(ctx context.Context, req Request) (*Meeting, error)
}

// DisabledProvider используется, когда интеграция не настроена
type DisabledProvider struct{}

func (DisabledProvider) CreateMeeting(context.Context, Request) (*Meeting, error) {
	return nil, ErrNotConfigured
}
