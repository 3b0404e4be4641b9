package repository

import (
	"access_service/internal/apperrors"
	"access_service/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type AccessRepository struct {
	collection *mongo.Collection
}

func NewAccessRepository(db *mongo.Database) *AccessRepository {
	return &AccessRepository{
		collection: db.Collection("Access"),
	}
}

func (r *AccessRepository) Insert(ctx context.Context, access *models.Access) (*models.Access, error) {
	if access.ID.IsZero() {
		access.ID = bson.NewObjectID()
	}

	currentTime := int(time.Now().Unix())
	if access.CreatedAt == 0 {
		access.CreatedAt = currentTime
	}
	if access.UpdatedAt == 0 {
		access.UpdatedAt = currentTime
	}

	_, err := r.collection.InsertOne(ctx, access)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "insert access", Err: err}
	}

	return access, nil
}

func (r *AccessRepository) Update(ctx context.Context, access *models.Access) error {
	access.UpdatedAt = int(time.Now().Unix())

	filter := bson.M{"_id": access.ID, "deletedAt": 0}
	update := bson.M{"$set": bson.M{
		"route":     access.Route,
		"updatedBy": access.UpdatedBy,
		"updatedAt": access.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return &apperrors.PersistenceError{Op: "update access", Err: err}
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("access", access.ID.Hex())
	}

	return nil
}

// SoftDelete sets the delete marker; the document stays behind for audit
// history and the route key becomes free for a fresh Access.
func (r *AccessRepository) SoftDelete(ctx context.Context, id, updatedBy bson.ObjectID) error {
	filter := bson.M{"_id": id, "deletedAt": 0}
	update := bson.M{"$set": bson.M{
		"deletedAt": int(time.Now().Unix()),
		"updatedBy": updatedBy,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return &apperrors.PersistenceError{Op: "soft-delete access", Err: err}
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("access", id.Hex())
	}

	return nil
}

func (r *AccessRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Access, error) {
	var access models.Access
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deletedAt": 0}).Decode(&access)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("access", id.Hex())
		}
		return nil, err
	}
	return &access, nil
}

// FindActiveByRoute resolves a route key to its live Access. Soft-deleted
// documents never match, which is what makes unknown-or-deleted keys fail
// closed in the resolver.
func (r *AccessRepository) FindActiveByRoute(ctx context.Context, route string) (*models.Access, error) {
	var access models.Access
	err := r.collection.FindOne(ctx, bson.M{"route": route, "deletedAt": 0}).Decode(&access)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("access with route '%s': %w", route, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &access, nil
}

func (r *AccessRepository) FindActiveByIDs(ctx context.Context, ids []bson.ObjectID) ([]*models.Access, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "deletedAt": 0})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var accesses []*models.Access
	if err = cursor.All(ctx, &accesses); err != nil {
		return nil, err
	}
	return accesses, nil
}

func (r *AccessRepository) FindAll(ctx context.Context, routeFilter string, page, limit int) ([]*models.Access, error) {
	filter := bson.M{"deletedAt": 0}
	if routeFilter != "" {
		filter["route"] = bson.M{"$regex": routeFilter}
	}

	opts := options.Find()
	opts.SetSort(bson.M{"route": 1})
	if page > 0 && limit > 0 {
		opts.SetSkip(int64((page - 1) * limit))
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var accesses []*models.Access
	if err = cursor.All(ctx, &accesses); err != nil {
		return nil, err
	}
	return accesses, nil
}
