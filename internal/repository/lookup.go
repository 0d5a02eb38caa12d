package repository

import "errors"

// ErrFieldNotAllowed - поле нельзя читать через поиск значений
var ErrFieldNotAllowed = errors.New("field lookup not allowed")

// Поля, доступные для поиска значения по первичному ключу.
// Имя колонки подставляется в SQL, поэтому только из этих списков.
var (
	studentLookupColumns = map[string]string{
		"teacher": "teacher_id::text",
		"email":   "email",
		"name":    "name",
	}

	userLookupColumns = map[string]string{
		"email":      "email",
		"first_name": "first_name",
	}
)
