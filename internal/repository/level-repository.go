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

type LevelRepository struct {
	collection *mongo.Collection
	users      *mongo.Collection
}

func NewLevelRepository(db *mongo.Database) *LevelRepository {
	return &LevelRepository{
		collection: db.Collection("Level"),
		users:      db.Collection("User"),
	}
}

func (r *LevelRepository) Insert(ctx context.Context, level *models.Level) (*models.Level, error) {
	if level.ID.IsZero() {
		level.ID = bson.NewObjectID()
	}
	if level.AccessIDs == nil {
		level.AccessIDs = []bson.ObjectID{}
	}

	currentTime := int(time.Now().Unix())
	if level.CreatedAt == 0 {
		level.CreatedAt = currentTime
	}
	if level.UpdatedAt == 0 {
		level.UpdatedAt = currentTime
	}

	_, err := r.collection.InsertOne(ctx, level)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "insert level", Err: err}
	}

	return level, nil
}

func (r *LevelRepository) Update(ctx context.Context, level *models.Level) error {
	level.UpdatedAt = int(time.Now().Unix())

	filter := bson.M{"_id": level.ID, "deletedAt": 0}
	update := bson.M{"$set": bson.M{
		"name":      level.Name,
		"updatedBy": level.UpdatedBy,
		"updatedAt": level.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return &apperrors.PersistenceError{Op: "update level", Err: err}
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("level", level.ID.Hex())
	}

	return nil
}

// DeleteGuarded soft-deletes a level and empties its association set, but only
// when no live user references it. The count check and the delete run in one
// transaction so a concurrent user reassignment cannot slip between them.
func (r *LevelRepository) DeleteGuarded(ctx context.Context, id, updatedBy bson.ObjectID) error {
	session, err := r.collection.Database().Client().StartSession()
	if err != nil {
		return &apperrors.PersistenceError{Op: "start level delete session", Err: err}
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc context.Context) (any, error) {
		count, err := r.users.CountDocuments(sc, bson.M{"levelId": id, "deletedAt": 0})
		if err != nil {
			return nil, &apperrors.PersistenceError{Op: "count level users", Err: err}
		}
		if count > 0 {
			return nil, apperrors.ErrLevelInUse
		}

		filter := bson.M{"_id": id, "deletedAt": 0}
		update := bson.M{"$set": bson.M{
			"deletedAt": int(time.Now().Unix()),
			"updatedBy": updatedBy,
			"accessIds": []bson.ObjectID{},
		}}

		result, err := r.collection.UpdateOne(sc, filter, update)
		if err != nil {
			return nil, &apperrors.PersistenceError{Op: "soft-delete level", Err: err}
		}
		if result.MatchedCount == 0 {
			return nil, apperrors.NotFound("level", id.Hex())
		}

		return nil, nil
	})

	return err
}

func (r *LevelRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Level, error) {
	var level models.Level
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deletedAt": 0}).Decode(&level)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("level", id.Hex())
		}
		return nil, err
	}
	return &level, nil
}

func (r *LevelRepository) FindByName(ctx context.Context, name string) (*models.Level, error) {
	var level models.Level
	err := r.collection.FindOne(ctx, bson.M{"name": name, "deletedAt": 0}).Decode(&level)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("level", name)
		}
		return nil, err
	}
	return &level, nil
}

func (r *LevelRepository) FindAll(ctx context.Context, nameFilter, sortField, sortOrder string, page, limit int) ([]*models.Level, error) {
	filter := bson.M{"deletedAt": 0}
	if nameFilter != "" {
		filter["name"] = bson.M{"$regex": nameFilter}
	}

	order := 1
	if sortOrder == "desc" || sortOrder == "DESC" {
		order = -1
	}
	if sortField == "" {
		sortField = "name"
	}

	opts := options.Find()
	opts.SetSort(bson.M{sortField: order})
	if page > 0 && limit > 0 {
		opts.SetSkip(int64((page - 1) * limit))
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var levels []*models.Level
	if err = cursor.All(ctx, &levels); err != nil {
		return nil, err
	}
	return levels, nil
}

// FindAllWithAccessCounts backs the admin list view: each level plus how many
// accesses it currently grants.
func (r *LevelRepository) FindAllWithAccessCounts(ctx context.Context, nameFilter string, page, limit int) ([]*models.LevelWithAccessCount, error) {
	match := bson.M{"deletedAt": 0}
	if nameFilter != "" {
		match["name"] = bson.M{"$regex": nameFilter}
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$addFields", Value: bson.M{"accessCount": bson.M{"$size": "$accessIds"}}}},
		bson.D{{Key: "$sort", Value: bson.M{"name": 1}}},
	}
	if page > 0 && limit > 0 {
		pipeline = append(pipeline,
			bson.D{{Key: "$skip", Value: int64((page - 1) * limit)}},
			bson.D{{Key: "$limit", Value: int64(limit)}},
		)
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var levels []*models.LevelWithAccessCount
	if err = cursor.All(ctx, &levels); err != nil {
		return nil, err
	}
	return levels, nil
}
