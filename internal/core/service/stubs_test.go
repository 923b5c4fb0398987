package service

import (
	"context"
	"fmt"
	"time"

	"github.com/parceltrack/courier-system/internal/core/domain"
	"github.com/parceltrack/courier-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Shared stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID      map[string]*domain.User
	byEmail   map[string]*domain.User
	createErr error
	deleted   []string
	nextID    int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (r *stubUserRepo) seed(id, email, role string) *domain.User {
	u := &domain.User{ID: id, Name: "user " + id, Email: email, Role: role}
	r.byID[id] = u
	r.byEmail[email] = u
	return u
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	r.nextID++
	created := *user
	created.ID = fmt.Sprintf("user_%d", r.nextID)
	r.byID[created.ID] = &created
	r.byEmail[created.Email] = &created
	return &created, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, u)
	}
	return users, nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	r.deleted = append(r.deleted, id)
	return nil
}

var _ ports.UserRepository = (*stubUserRepo)(nil)

type stubParcelRepo struct {
	byID       map[string]*domain.Parcel
	byTracking map[string]*domain.Parcel
	createErr  error
	nextID     int
}

func newStubParcelRepo() *stubParcelRepo {
	return &stubParcelRepo{
		byID:       make(map[string]*domain.Parcel),
		byTracking: make(map[string]*domain.Parcel),
	}
}

func (r *stubParcelRepo) seed(id, trackingID, agentID string, status domain.ParcelStatus) *domain.Parcel {
	p := &domain.Parcel{
		ID:             id,
		TrackingID:     trackingID,
		Status:         status,
		AssignedAgent:  agentID,
		PickupSchedule: time.Now().Add(time.Hour),
	}
	r.byID[id] = p
	r.byTracking[trackingID] = p
	return p
}

func (r *stubParcelRepo) Create(_ context.Context, p *domain.Parcel) (*domain.Parcel, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	created := *p
	created.ID = fmt.Sprintf("parcel_%d", r.nextID)
	r.byID[created.ID] = &created
	r.byTracking[created.TrackingID] = &created
	return &created, nil
}

func (r *stubParcelRepo) FindByTrackingID(_ context.Context, trackingID string) (*domain.Parcel, error) {
	p, ok := r.byTracking[trackingID]
	if !ok {
		return nil, domain.ErrParcelNotFound
	}
	return p, nil
}

func (r *stubParcelRepo) FindByID(_ context.Context, id string) (*domain.Parcel, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrParcelNotFound
	}
	return p, nil
}

func (r *stubParcelRepo) FindAssignedTo(_ context.Context, agentID string) ([]*domain.Parcel, error) {
	var assigned []*domain.Parcel
	for _, p := range r.byID {
		if p.AssignedAgent == agentID {
			assigned = append(assigned, p)
		}
	}
	return assigned, nil
}

func (r *stubParcelRepo) SetAgentLocation(_ context.Context, agentID string, loc domain.Location) error {
	for _, p := range r.byID {
		if p.AssignedAgent == agentID {
			l := loc
			p.AgentLocation = &l
		}
	}
	return nil
}

func (r *stubParcelRepo) SetStatus(_ context.Context, parcelID string, status domain.ParcelStatus) (*domain.Parcel, error) {
	p, ok := r.byID[parcelID]
	if !ok {
		return nil, domain.ErrParcelNotFound
	}
	p.Status = status
	return p, nil
}

func (r *stubParcelRepo) AssignAgent(_ context.Context, parcelID, agentID string) (*domain.Parcel, error) {
	p, ok := r.byID[parcelID]
	if !ok {
		return nil, domain.ErrParcelNotFound
	}
	p.AssignedAgent = agentID
	return p, nil
}

var _ ports.ParcelRepository = (*stubParcelRepo)(nil)
