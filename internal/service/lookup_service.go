package service

import (
	"context"
	"fmt"
)

// Entity - тип записи для поиска значения поля
type Entity string

const (
	EntityStudent Entity = "student"
	EntityUser    Entity = "user"
)

// FieldLookup возвращает значение поля записи по первичному ключу.
// found = false - записи нет или поле пустое.
type FieldLookup interface {
	Lookup(ctx context.Context, entity Entity, id int64, field string) (value string, found bool, err error)
}

type LookupService struct {
	students StudentStore
	users    UserStore
}

var _ FieldLookup = (*LookupService)(nil)

func NewLookupService(students StudentStore, users UserStore) *LookupService {
	return &LookupService{students: students, users: users}
}

func (s *LookupService) Lookup(ctx context.Context, entity Entity, id int64, field string) (string, bool, error) {
	var (
		v   *string
		err error
	)

	switch entity {
	case EntityStudent:
		v, err = s.students.GetField(ctx, id, field)
	case EntityUser:
		v, err = s.users.GetField(ctx, id, field)
	default:
		return "", false, fmt.Errorf("unknown entity %q", entity)
	}

	if err != nil {
		return "", false, fmt.Errorf("lookup %s.%s: %w", entity, field, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}
