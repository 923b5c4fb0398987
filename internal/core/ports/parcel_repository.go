package ports

import (
	"context"

	"github.com/parceltrack/courier-system/internal/core/domain"
)

// ParcelRepository defines persistence operations for parcels. It is the
// single store shared by the REST layer and the realtime channel handlers.
type ParcelRepository interface {
	Create(ctx context.Context, p *domain.Parcel) (*domain.Parcel, error)
	// FindByTrackingID retrieves a parcel by its external-facing tracking id.
	FindByTrackingID(ctx context.Context, trackingID string) (*domain.Parcel, error)
	// FindByID retrieves a parcel by its storage id.
	FindByID(ctx context.Context, id string) (*domain.Parcel, error)
	// FindAssignedTo returns every parcel currently assigned to the agent.
	FindAssignedTo(ctx context.Context, agentID string) ([]*domain.Parcel, error)
	// SetAgentLocation updates the latest-location projection on every parcel
	// assigned to the agent. Only the newest position is retained.
	SetAgentLocation(ctx context.Context, agentID string, loc domain.Location) error
	// SetStatus persists a new status and returns the updated parcel.
	SetStatus(ctx context.Context, parcelID string, status domain.ParcelStatus) (*domain.Parcel, error)
	// AssignAgent binds a delivery agent to the parcel and returns the updated
	// parcel.
	AssignAgent(ctx context.Context, parcelID, agentID string) (*domain.Parcel, error)
}
