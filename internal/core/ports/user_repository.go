package ports

import (
	"context"

	"github.com/parceltrack/courier-system/internal/core/domain"
)

// UserRepository defines the interface for user persistence. FindByID is also
// the subject-resolution lookup used when verifying realtime connections.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id string) error
}
