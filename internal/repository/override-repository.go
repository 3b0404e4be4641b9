package repository

import (
	"access_service/internal/apperrors"
	"access_service/internal/models"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// OverrideRepository stores explicit per-user grants and denials. One document
// per (userId, accessId) pair.
type OverrideRepository struct {
	collection *mongo.Collection
}

func NewOverrideRepository(db *mongo.Database) *OverrideRepository {
	return &OverrideRepository{
		collection: db.Collection("UserOverride"),
	}
}

func (r *OverrideRepository) Set(ctx context.Context, override *models.UserOverride) error {
	currentTime := int(time.Now().Unix())
	override.UpdatedAt = currentTime

	filter := bson.M{"userId": override.UserID, "accessId": override.AccessID}
	update := bson.M{
		"$set": bson.M{
			"granted":   override.Granted,
			"updatedAt": override.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"userId":    override.UserID,
			"accessId":  override.AccessID,
			"createdBy": override.CreatedBy,
			"createdAt": currentTime,
		},
	}

	opts := options.UpdateOne().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return &apperrors.PersistenceError{Op: "set user override", Err: err}
	}

	return nil
}

func (r *OverrideRepository) Clear(ctx context.Context, userID, accessID bson.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID, "accessId": accessID})
	if err != nil {
		return &apperrors.PersistenceError{Op: "clear user override", Err: err}
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("override", userID.Hex()+"/"+accessID.Hex())
	}

	return nil
}

// Find returns nil without error when no override exists; absence is the
// normal case on the authorization hot path.
func (r *OverrideRepository) Find(ctx context.Context, userID, accessID bson.ObjectID) (*models.UserOverride, error) {
	var override models.UserOverride
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "accessId": accessID}).Decode(&override)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

func (r *OverrideRepository) FindForUser(ctx context.Context, userID bson.ObjectID) ([]*models.UserOverride, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var overrides []*models.UserOverride
	if err = cursor.All(ctx, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// ClearForAccess drops every override that points at a deleted access so no
// stale grant survives the access itself.
func (r *OverrideRepository) ClearForAccess(ctx context.Context, accessID bson.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"accessId": accessID})
	if err != nil {
		return &apperrors.PersistenceError{Op: "clear access overrides", Err: err}
	}
	return nil
}
