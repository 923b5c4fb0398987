package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/parceltrack/courier-system/internal/core/domain"
	"github.com/parceltrack/courier-system/internal/core/ports"
)

const trackingIDPrefix = "trkId"

// ParcelService implements parcel booking, lookup and agent assignment.
type ParcelService struct {
	parcels ports.ParcelRepository
	users   ports.UserRepository
	logger  zerolog.Logger
}

func NewParcelService(parcels ports.ParcelRepository, users ports.UserRepository, logger zerolog.Logger) *ParcelService {
	return &ParcelService{parcels: parcels, users: users, logger: logger}
}

// Book creates a new parcel in Pending status with a freshly generated
// tracking id. The pickup schedule must lie in the future.
func (s *ParcelService) Book(ctx context.Context, customerID string, input ports.BookParcelInput) (*domain.Parcel, error) {
	if !input.PickupSchedule.After(time.Now()) {
		return nil, domain.ErrPickupInPast
	}

	trackingID, err := s.uniqueTrackingID(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	parcel := &domain.Parcel{
		TrackingID:     trackingID,
		Customer:       customerID,
		SenderInfo:     toAddress(input.SenderInfo),
		ReceiverInfo:   toAddress(input.ReceiverInfo),
		Details:        toDetails(input.Details),
		Payment:        domain.Payment{Method: input.Payment.Method, CODAmount: input.Payment.CODAmount},
		PickupSchedule: input.PickupSchedule.UTC(),
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.parcels.Create(ctx, parcel)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to book parcel")
		return nil, err
	}

	s.logger.Info().Str("tracking_id", created.TrackingID).Str("customer", customerID).Msg("parcel booked")
	return created, nil
}

// Track retrieves the public tracking snapshot for a parcel.
func (s *ParcelService) Track(ctx context.Context, trackingID string) (*domain.Parcel, error) {
	return s.parcels.FindByTrackingID(ctx, trackingID)
}

// Assign binds a delivery agent to a parcel. The assignee must exist and hold
// the agent role.
func (s *ParcelService) Assign(ctx context.Context, parcelID, agentID string) (*domain.Parcel, error) {
	agent, err := s.users.FindByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Role != domain.RoleAgent {
		return nil, domain.ErrNotAnAgent
	}

	updated, err := s.parcels.AssignAgent(ctx, parcelID, agentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("parcel_id", parcelID).Str("agent_id", agentID).Msg("agent assigned")
	return updated, nil
}

// uniqueTrackingID generates a tracking id and retries on the (unlikely)
// collision with an existing parcel.
func (s *ParcelService) uniqueTrackingID(ctx context.Context) (string, error) {
	for range 5 {
		candidate := generateTrackingID()
		_, err := s.parcels.FindByTrackingID(ctx, candidate)
		if errors.Is(err, domain.ErrParcelNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not generate a unique tracking id")
}

func generateTrackingID() string {
	suffix := strings.ToUpper(ksuid.New().String())
	return fmt.Sprintf("%s%d%s", trackingIDPrefix, time.Now().UnixMilli(), suffix[:6])
}

func toAddress(in ports.AddressInput) domain.Address {
	addr := domain.Address{
		Name:       in.Name,
		Phone:      in.Phone,
		Address1:   in.Address1,
		Address2:   in.Address2,
		City:       in.City,
		PostalCode: in.PostalCode,
	}
	if in.Location != nil {
		addr.Location = &domain.Location{Lat: in.Location.Lat, Lng: in.Location.Lng}
	}
	return addr
}

func toDetails(in ports.ParcelDetailsInput) domain.ParcelDetails {
	return domain.ParcelDetails{
		Type:                domain.ParcelType(in.Type),
		Weight:              in.Weight,
		Description:         in.Description,
		SpecialInstructions: in.SpecialInstructions,
	}
}
