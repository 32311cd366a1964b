package repository

import (
	"context"
	"fmt"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/pkg/database"

	"go.uber.org/zap"
)

// UserRepository stores the account rows sessions point at. Accounts are
// otherwise owned by the account service; lookups go through
// SessionRepository.FindSessionUser.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
}

type userRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewUserRepository(db database.PgxIface, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

func (ur *userRepository) Create(ctx context.Context, user *entity.User) error {
	if user.Role == "" {
		user.Role = entity.RoleCustomer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
		user.UpdatedAt = user.CreatedAt
	}

	_, err := conn(ctx, ur.db).Exec(ctx, `
		INSERT INTO users (id, username, email, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.Email, user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		ur.log.Error("Failed to create user", zap.Error(err), zap.String("user_id", user.ID.String()))
		return fmt.Errorf("create user %s: %w", user.ID, err)
	}
	return nil
}
