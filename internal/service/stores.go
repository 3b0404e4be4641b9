package service

import (
	"access_service/internal/models"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// The services talk to persistence through these interfaces; the Mongo
// repositories satisfy them, the tests use in-memory fakes.

type accessStore interface {
	Insert(ctx context.Context, access *models.Access) (*models.Access, error)
	Update(ctx context.Context, access *models.Access) error
	SoftDelete(ctx context.Context, id, updatedBy bson.ObjectID) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Access, error)
	FindActiveByRoute(ctx context.Context, route string) (*models.Access, error)
	FindActiveByIDs(ctx context.Context, ids []bson.ObjectID) ([]*models.Access, error)
	FindAll(ctx context.Context, routeFilter string, page, limit int) ([]*models.Access, error)
}

type levelStore interface {
	Insert(ctx context.Context, level *models.Level) (*models.Level, error)
	Update(ctx context.Context, level *models.Level) error
	DeleteGuarded(ctx context.Context, id, updatedBy bson.ObjectID) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Level, error)
	FindByName(ctx context.Context, name string) (*models.Level, error)
	FindAll(ctx context.Context, nameFilter, sortField, sortOrder string, page, limit int) ([]*models.Level, error)
	FindAllWithAccessCounts(ctx context.Context, nameFilter string, page, limit int) ([]*models.LevelWithAccessCount, error)
}

type associationStore interface {
	Sync(ctx context.Context, levelID bson.ObjectID, accessIDs []bson.ObjectID) error
	ClearForAccess(ctx context.Context, accessID bson.ObjectID) error
	AccessIDsForLevel(ctx context.Context, levelID bson.ObjectID) ([]bson.ObjectID, error)
	LevelIDsForAccess(ctx context.Context, accessID bson.ObjectID) ([]bson.ObjectID, error)
	Contains(ctx context.Context, levelID, accessID bson.ObjectID) (bool, error)
}

type userStore interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	CountByLevel(ctx context.Context, levelID bson.ObjectID) (int64, error)
	UpdateLevel(ctx context.Context, userID, levelID bson.ObjectID) error
}

type overrideStore interface {
	Set(ctx context.Context, override *models.UserOverride) error
	Clear(ctx context.Context, userID, accessID bson.ObjectID) error
	Find(ctx context.Context, userID, accessID bson.ObjectID) (*models.UserOverride, error)
	FindForUser(ctx context.Context, userID bson.ObjectID) ([]*models.UserOverride, error)
	ClearForAccess(ctx context.Context, accessID bson.ObjectID) error
}

type auditStore interface {
	Append(ctx context.Context, record *models.AuditRecord) (*models.AuditRecord, error)
	FindByEntity(ctx context.Context, entityType string, entityID bson.ObjectID, page, limit int) ([]*models.AuditRecord, error)
}

type routeSetCache interface {
	SaveStructCached(ctx context.Context, key string, model any, ttl time.Duration) error
	GetStructCached(ctx context.Context, key string, model any) error
	DeleteKey(ctx context.Context, key string)
}

// Auditor receives one record per permission-relevant mutation, after the
// mutation has committed. Implementations never fail the caller.
type Auditor interface {
	Record(ctx context.Context, actorAddress, entityType string, entityID bson.ObjectID, message string)
}
