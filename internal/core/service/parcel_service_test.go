package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/parceltrack/courier-system/internal/core/domain"
	"github.com/parceltrack/courier-system/internal/core/ports"
)

func bookingInput(pickup time.Time) ports.BookParcelInput {
	return ports.BookParcelInput{
		SenderInfo:     ports.AddressInput{Name: "Sender", Phone: "111", Address1: "1 First St", City: "Dhaka", PostalCode: "1000"},
		ReceiverInfo:   ports.AddressInput{Name: "Receiver", Phone: "222", Address1: "2 Second St", City: "Dhaka", PostalCode: "1212"},
		Details:        ports.ParcelDetailsInput{Type: "small", Weight: 1.5, Description: "books"},
		Payment:        ports.PaymentInput{Method: "COD", CODAmount: 250},
		PickupSchedule: pickup,
	}
}

func TestParcelService_Book_HappyPath(t *testing.T) {
	repo := newStubParcelRepo()
	svc := NewParcelService(repo, newStubUserRepo(), zerolog.Nop())

	parcel, err := svc.Book(context.Background(), "cust_1", bookingInput(time.Now().Add(24*time.Hour)))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if parcel.Status != domain.StatusPending {
		t.Errorf("expected Pending status, got %q", parcel.Status)
	}
	if !strings.HasPrefix(parcel.TrackingID, "trkId") {
		t.Errorf("tracking id %q missing trkId prefix", parcel.TrackingID)
	}
	if parcel.Customer != "cust_1" {
		t.Errorf("customer not recorded: %q", parcel.Customer)
	}
}

func TestParcelService_Book_PickupInPast(t *testing.T) {
	svc := NewParcelService(newStubParcelRepo(), newStubUserRepo(), zerolog.Nop())

	_, err := svc.Book(context.Background(), "cust_1", bookingInput(time.Now().Add(-time.Minute)))
	if !errors.Is(err, domain.ErrPickupInPast) {
		t.Fatalf("expected ErrPickupInPast, got: %v", err)
	}
}

func TestParcelService_Book_GeneratesDistinctTrackingIDs(t *testing.T) {
	repo := newStubParcelRepo()
	svc := NewParcelService(repo, newStubUserRepo(), zerolog.Nop())

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		parcel, err := svc.Book(context.Background(), "cust_1", bookingInput(time.Now().Add(time.Hour)))
		if err != nil {
			t.Fatalf("book %d: %v", i, err)
		}
		if seen[parcel.TrackingID] {
			t.Fatalf("duplicate tracking id %q", parcel.TrackingID)
		}
		seen[parcel.TrackingID] = true
	}
}

func TestParcelService_Track_NotFound(t *testing.T) {
	svc := NewParcelService(newStubParcelRepo(), newStubUserRepo(), zerolog.Nop())

	_, err := svc.Track(context.Background(), "trkIdMissing")
	if !errors.Is(err, domain.ErrParcelNotFound) {
		t.Fatalf("expected ErrParcelNotFound, got: %v", err)
	}
}

func TestParcelService_Assign_HappyPath(t *testing.T) {
	users := newStubUserRepo()
	users.seed("agent_1", "agent@example.com", domain.RoleAgent)
	parcels := newStubParcelRepo()
	parcels.seed("P1", "trkId123ABCD", "", domain.StatusPending)

	svc := NewParcelService(parcels, users, zerolog.Nop())

	updated, err := svc.Assign(context.Background(), "P1", "agent_1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if updated.AssignedAgent != "agent_1" {
		t.Errorf("agent not assigned: %q", updated.AssignedAgent)
	}
}

func TestParcelService_Assign_RejectsNonAgent(t *testing.T) {
	users := newStubUserRepo()
	users.seed("cust_1", "cust@example.com", domain.RoleCustomer)
	parcels := newStubParcelRepo()
	parcels.seed("P1", "trkId123ABCD", "", domain.StatusPending)

	svc := NewParcelService(parcels, users, zerolog.Nop())

	_, err := svc.Assign(context.Background(), "P1", "cust_1")
	if !errors.Is(err, domain.ErrNotAnAgent) {
		t.Fatalf("expected ErrNotAnAgent, got: %v", err)
	}
}
