package access

import (
	"context"

	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

// Guard resolves a principal against the user directory. The stored role wins
// over whatever role the token claims.
type Guard struct {
	users interfaces.UserRepository
}

func NewGuard(users interfaces.UserRepository) *Guard {
	return &Guard{users: users}
}

// Require returns the caller's directory entry if it holds one of roles.
// With no roles any known user passes.
func (g *Guard) Require(ctx context.Context, p domain.Principal, roles ...domain.Role) (*domain.User, error) {
	if p.UserID == "" {
		return nil, domain.Unauthorized("authentication required")
	}

	user, err := g.users.FindByID(ctx, p.UserID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.Unauthorized("unknown user")
		}
		return nil, err
	}

	if len(roles) == 0 {
		return user, nil
	}
	for _, r := range roles {
		if user.Role == r {
			return user, nil
		}
	}
	return nil, domain.Unauthorized("role %s is not allowed to perform this action", user.Role)
}

// RequireSelf passes when the caller is subjectID or an admin.
func (g *Guard) RequireSelf(ctx context.Context, p domain.Principal, subjectID string) (*domain.User, error) {
	user, err := g.Require(ctx, p)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleAdmin && user.ID != subjectID {
		return nil, domain.Unauthorized("cannot act on behalf of another user")
	}
	return user, nil
}
