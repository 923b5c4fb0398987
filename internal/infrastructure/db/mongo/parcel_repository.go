package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/parceltrack/courier-system/internal/core/domain"
)

const collectionParcels = "parcels"

type ParcelRepository struct {
	col *mongo.Collection
}

func NewParcelRepository(db *mongo.Database) *ParcelRepository {
	return &ParcelRepository{col: db.Collection(collectionParcels)}
}

// mongoParcel mirrors domain.Parcel with a native ObjectID primary key.
type mongoParcel struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	TrackingID     string               `bson:"trackingId"`
	Customer       string               `bson:"customer,omitempty"`
	SenderInfo     domain.Address       `bson:"senderInfo"`
	ReceiverInfo   domain.Address       `bson:"receiverInfo"`
	Details        domain.ParcelDetails `bson:"parcelDetails"`
	Payment        domain.Payment       `bson:"payment"`
	PickupSchedule time.Time            `bson:"pickupSchedule"`
	Status         domain.ParcelStatus  `bson:"status"`
	AssignedAgent  string               `bson:"assignedAgent,omitempty"`
	AgentLocation  *domain.Location     `bson:"agentLocation,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt"`
}

func (mp mongoParcel) toDomain() *domain.Parcel {
	return &domain.Parcel{
		ID:             mp.ID.Hex(),
		TrackingID:     mp.TrackingID,
		Customer:       mp.Customer,
		SenderInfo:     mp.SenderInfo,
		ReceiverInfo:   mp.ReceiverInfo,
		Details:        mp.Details,
		Payment:        mp.Payment,
		PickupSchedule: mp.PickupSchedule,
		Status:         mp.Status,
		AssignedAgent:  mp.AssignedAgent,
		AgentLocation:  mp.AgentLocation,
		CreatedAt:      mp.CreatedAt,
		UpdatedAt:      mp.UpdatedAt,
	}
}

func fromDomain(p *domain.Parcel) mongoParcel {
	return mongoParcel{
		TrackingID:     p.TrackingID,
		Customer:       p.Customer,
		SenderInfo:     p.SenderInfo,
		ReceiverInfo:   p.ReceiverInfo,
		Details:        p.Details,
		Payment:        p.Payment,
		PickupSchedule: p.PickupSchedule,
		Status:         p.Status,
		AssignedAgent:  p.AssignedAgent,
		AgentLocation:  p.AgentLocation,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (r *ParcelRepository) Create(ctx context.Context, p *domain.Parcel) (*domain.Parcel, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, fromDomain(p))
	if err != nil {
		return nil, fmt.Errorf("insert parcel: %w", err)
	}

	created := *p
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *ParcelRepository) FindByTrackingID(ctx context.Context, trackingID string) (*domain.Parcel, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mp mongoParcel
	if err := r.col.FindOne(ctx, bson.M{"trackingId": trackingID}).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrParcelNotFound
		}
		return nil, fmt.Errorf("find parcel by tracking id: %w", err)
	}
	return mp.toDomain(), nil
}

func (r *ParcelRepository) FindByID(ctx context.Context, id string) (*domain.Parcel, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrParcelNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mp mongoParcel
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrParcelNotFound
		}
		return nil, fmt.Errorf("find parcel by id: %w", err)
	}
	return mp.toDomain(), nil
}

func (r *ParcelRepository) FindAssignedTo(ctx context.Context, agentID string) ([]*domain.Parcel, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{"assignedAgent": agentID})
	if err != nil {
		return nil, fmt.Errorf("find assigned parcels: %w", err)
	}
	defer cursor.Close(ctx)

	var parcels []*domain.Parcel
	for cursor.Next(ctx) {
		var mp mongoParcel
		if err := cursor.Decode(&mp); err != nil {
			return nil, fmt.Errorf("decode parcel: %w", err)
		}
		parcels = append(parcels, mp.toDomain())
	}
	return parcels, cursor.Err()
}

// SetAgentLocation overwrites the latest-location projection on every parcel
// assigned to the agent in a single update.
func (r *ParcelRepository) SetAgentLocation(ctx context.Context, agentID string, loc domain.Location) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateMany(ctx,
		bson.M{"assignedAgent": agentID},
		bson.M{"$set": bson.M{"agentLocation": loc, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("set agent location: %w", err)
	}
	return nil
}

func (r *ParcelRepository) SetStatus(ctx context.Context, parcelID string, status domain.ParcelStatus) (*domain.Parcel, error) {
	oid, err := primitive.ObjectIDFromHex(parcelID)
	if err != nil {
		return nil, domain.ErrParcelNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mp mongoParcel
	err = r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrParcelNotFound
		}
		return nil, fmt.Errorf("set parcel status: %w", err)
	}
	return mp.toDomain(), nil
}

func (r *ParcelRepository) AssignAgent(ctx context.Context, parcelID, agentID string) (*domain.Parcel, error) {
	oid, err := primitive.ObjectIDFromHex(parcelID)
	if err != nil {
		return nil, domain.ErrParcelNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mp mongoParcel
	err = r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"assignedAgent": agentID, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrParcelNotFound
		}
		return nil, fmt.Errorf("assign agent: %w", err)
	}
	return mp.toDomain(), nil
}

// EnsureIndexes creates necessary indexes on the parcels collection.
func (r *ParcelRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "trackingId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "assignedAgent", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
