package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, telegram_id, username, first_name, last_name, email, language_code, is_teacher, created_at`

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(db base.DB) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(db)}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.LanguageCode,
		&user.IsTeacher,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, email, language_code, is_teacher)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.LanguageCode,
		user.IsTeacher,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, telegramID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}

	return user, nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// Update обновляет профиль пользователя
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET username = $1, first_name = $2, last_name = $3, language_code = $4
		WHERE id = $5
	`

	affected, err := r.ExecAffected(ctx, query, user.Username, user.FirstName, user.LastName, user.LanguageCode, user.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// SetTeacher делает пользователя учителем
func (r *UserRepository) SetTeacher(ctx context.Context, userID int64, isTeacher bool) error {
	affected, err := r.ExecAffected(ctx, `UPDATE users SET is_teacher = $1 WHERE id = $2`, isTeacher, userID)
	if err != nil {
		return fmt.Errorf("set teacher flag: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// SetEmail сохраняет email пользователя для уведомлений
func (r *UserRepository) SetEmail(ctx context.Context, userID int64, email string) error {
	affected, err := r.ExecAffected(ctx, `UPDATE users SET email = $1 WHERE id = $2`, email, userID)
	if err != nil {
		return fmt.Errorf("set user email: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// ListTeachersByLoad возвращает учителей, начиная с наименее загруженного
func (r *UserRepository) ListTeachersByLoad(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT u.id, u.telegram_id, u.username, u.first_name, u.last_name, u.email, u.language_code, u.is_teacher, u.created_at
		FROM users u
		LEFT JOIN students s ON s.teacher_id = u.id
		WHERE u.is_teacher
		GROUP BY u.id
		ORDER BY COUNT(s.id) ASC, u.id ASC
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// GetField возвращает значение разрешённого поля пользователя
func (r *UserRepository) GetField(ctx context.Context, id int64, field string) (*string, error) {
	column, ok := userLookupColumns[field]
	if !ok {
		return nil, fmt.Errorf("field %q is not readable: %w", field, ErrFieldNotAllowed)
	}

	var value *string
	query := fmt.Sprintf(`SELECT NULLIF(%s, '') FROM users WHERE id = $1`, column)
	if err := r.QueryRow(ctx, query, id).Scan(&value); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user field %s: %w", field, err)
	}

	return value, nil
}
