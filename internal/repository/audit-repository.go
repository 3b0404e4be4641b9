package repository

import (
	"access_service/internal/apperrors"
	"access_service/internal/models"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AuditRepository appends to the AuditLog collection. There is deliberately no
// update or delete method on it.
type AuditRepository struct {
	collection *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		collection: db.Collection("AuditLog"),
	}
}

func (r *AuditRepository) Append(ctx context.Context, record *models.AuditRecord) (*models.AuditRecord, error) {
	if record.ID.IsZero() {
		record.ID = bson.NewObjectID()
	}
	if record.Timestamp == 0 {
		record.Timestamp = int(time.Now().Unix())
	}

	_, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "append audit record", Err: err}
	}

	return record, nil
}

func (r *AuditRepository) FindByEntity(ctx context.Context, entityType string, entityID bson.ObjectID, page, limit int) ([]*models.AuditRecord, error) {
	filter := bson.M{"entityType": entityType, "entityId": entityID}

	opts := options.Find()
	opts.SetSort(bson.M{"timestamp": -1})
	if page > 0 && limit > 0 {
		opts.SetSkip(int64((page - 1) * limit))
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*models.AuditRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
