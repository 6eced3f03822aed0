package postgres

import (
	"context"

	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

type userRepository struct {
	db DB
}

func NewUserRepository(db DB) interfaces.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, first_name, last_name, email, role
		FROM users
		WHERE id = $1
	`

	var (
		user domain.User
		role string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &role)
	if err != nil {
		return nil, mapError(err, "user "+id)
	}
	user.Role = domain.Role(role)
	return &user, nil
}
