package repository

import (
	"access_service/internal/apperrors"
	"access_service/internal/models"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("User"),
	}
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}

	currentTime := int(time.Now().Unix())
	if user.CreatedAt == 0 {
		user.CreatedAt = currentTime
	}
	if user.UpdatedAt == 0 {
		user.UpdatedAt = currentTime
	}

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "insert user", Err: err}
	}

	return user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deletedAt": 0}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user", id.Hex())
		}
		return nil, err
	}
	return &user, nil
}

// CountByLevel counts live users referencing a level. This feeds the
// level-deletion guard.
func (r *UserRepository) CountByLevel(ctx context.Context, levelID bson.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"levelId": levelID, "deletedAt": 0})
}

func (r *UserRepository) UpdateLevel(ctx context.Context, userID, levelID bson.ObjectID) error {
	filter := bson.M{"_id": userID, "deletedAt": 0}
	update := bson.M{"$set": bson.M{
		"levelId":   levelID,
		"updatedAt": int(time.Now().Unix()),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return &apperrors.PersistenceError{Op: "update user level", Err: err}
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("user", userID.Hex())
	}

	return nil
}
