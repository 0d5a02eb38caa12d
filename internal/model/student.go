package model

import "time"

type Student struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	TeacherID *int64    `json:"teacher_id"` // указатель - может быть nil
	CreatedAt time.Time `json:"created_at"`
}
