package repository

import (
	"access_service/internal/apperrors"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AssociationRepository owns the level-to-access set relation. The set lives
// in the level document's accessIds array, so every operation here is a single
// document write: concurrent readers see the old set or the new one, never a
// mix.
type AssociationRepository struct {
	levels *mongo.Collection
}

func NewAssociationRepository(db *mongo.Database) *AssociationRepository {
	return &AssociationRepository{
		levels: db.Collection("Level"),
	}
}

// Sync replaces the level's association set with exactly accessIDs.
// Duplicates collapse; order carries no meaning. Calling it twice with the
// same set is a no-op the second time.
func (r *AssociationRepository) Sync(ctx context.Context, levelID bson.ObjectID, accessIDs []bson.ObjectID) error {
	deduped := make([]bson.ObjectID, 0, len(accessIDs))
	seen := make(map[bson.ObjectID]bool, len(accessIDs))
	for _, id := range accessIDs {
		if !seen[id] {
			seen[id] = true
			deduped = append(deduped, id)
		}
	}

	filter := bson.M{"_id": levelID, "deletedAt": 0}
	update := bson.M{"$set": bson.M{
		"accessIds": deduped,
		"updatedAt": int(time.Now().Unix()),
	}}

	result, err := r.levels.UpdateOne(ctx, filter, update)
	if err != nil {
		return &apperrors.PersistenceError{Op: "sync level accesses", Err: err}
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("level", levelID.Hex())
	}

	return nil
}

// ClearForAccess removes one access from every level's set. Used when an
// access is deleted; idempotent, so a failed run can simply be retried.
func (r *AssociationRepository) ClearForAccess(ctx context.Context, accessID bson.ObjectID) error {
	filter := bson.M{"accessIds": accessID}
	update := bson.M{"$pull": bson.M{"accessIds": accessID}}

	_, err := r.levels.UpdateMany(ctx, filter, update)
	if err != nil {
		return &apperrors.PersistenceError{Op: "clear access associations", Err: err}
	}

	return nil
}

func (r *AssociationRepository) AccessIDsForLevel(ctx context.Context, levelID bson.ObjectID) ([]bson.ObjectID, error) {
	opts := options.FindOne().SetProjection(bson.M{"accessIds": 1})

	var result struct {
		AccessIDs []bson.ObjectID `bson:"accessIds"`
	}
	err := r.levels.FindOne(ctx, bson.M{"_id": levelID, "deletedAt": 0}, opts).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("level", levelID.Hex())
		}
		return nil, err
	}

	return result.AccessIDs, nil
}

// LevelIDsForAccess lists the levels currently granting an access. Callers use
// it to invalidate per-level caches before clearing the association.
func (r *AssociationRepository) LevelIDsForAccess(ctx context.Context, accessID bson.ObjectID) ([]bson.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})

	cursor, err := r.levels.Find(ctx, bson.M{"accessIds": accessID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		ID bson.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	levelIDs := make([]bson.ObjectID, len(results))
	for i, result := range results {
		levelIDs[i] = result.ID
	}
	return levelIDs, nil
}

// Contains reports whether the pair (levelID, accessID) exists.
func (r *AssociationRepository) Contains(ctx context.Context, levelID, accessID bson.ObjectID) (bool, error) {
	filter := bson.M{"_id": levelID, "deletedAt": 0, "accessIds": accessID}
	count, err := r.levels.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
