package ports

import (
	"context"

	"github.com/parceltrack/courier-system/internal/core/domain"
)

// AuthService implements account registration and login. Login returns the
// signed session token alongside the user; the REST layer mirrors the token
// into the session cookie shared with the realtime channel.
type AuthService interface {
	Register(ctx context.Context, name, email, password, role string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	DeleteUser(ctx context.Context, userID string) error
}
