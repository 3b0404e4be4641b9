package models

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Actor identifies who performs a mutating call. It is always supplied
// explicitly by the transport layer, never read from ambient state.
type Actor struct {
	ID      bson.ObjectID `json:"id"`
	Address string        `json:"address"`
}

// Access is a named permission key protecting one capability or route.
type Access struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Route     string        `bson:"route" json:"route" validate:"required,max=100"`
	CreatedBy bson.ObjectID `bson:"createdBy" json:"createdBy"`
	UpdatedBy bson.ObjectID `bson:"updatedBy" json:"updatedBy"`
	CreatedAt int           `bson:"createdAt" json:"createdAt"`
	UpdatedAt int           `bson:"updatedAt" json:"updatedAt"`
	DeletedAt int           `bson:"deletedAt" json:"deletedAt,omitempty"`
}

// Level is a named role. Its access associations are stored inline so a
// whole-set replacement is a single document write.
type Level struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string          `bson:"name" json:"name" validate:"required,max=50"`
	AccessIDs []bson.ObjectID `bson:"accessIds" json:"accessIds"`
	CreatedBy bson.ObjectID   `bson:"createdBy" json:"createdBy"`
	UpdatedBy bson.ObjectID   `bson:"updatedBy" json:"updatedBy"`
	CreatedAt int             `bson:"createdAt" json:"createdAt"`
	UpdatedAt int             `bson:"updatedAt" json:"updatedAt"`
	DeletedAt int             `bson:"deletedAt" json:"deletedAt,omitempty"`
}

// LevelWithAccessCount is the list-view projection used by admin forms.
type LevelWithAccessCount struct {
	Level       `bson:",inline"`
	AccessCount int `bson:"accessCount" json:"accessCount"`
}

// User carries only what authorization needs: the level reference and the
// soft-delete marker. Profile fields live in the profile service.
type User struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string        `bson:"username,omitempty" json:"username"`
	Email     string        `bson:"email,omitempty" json:"email"`
	LevelID   bson.ObjectID `bson:"levelId" json:"levelId" validate:"required"`
	CreatedAt int           `bson:"createdAt" json:"createdAt"`
	UpdatedAt int           `bson:"updatedAt" json:"updatedAt"`
	DeletedAt int           `bson:"deletedAt" json:"deletedAt,omitempty"`
}

// UserOverride is an explicit per-user grant or deny for one access. When
// present it takes precedence over whatever the user's level says.
type UserOverride struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    bson.ObjectID `bson:"userId" json:"userId"`
	AccessID  bson.ObjectID `bson:"accessId" json:"accessId"`
	Granted   bool          `bson:"granted" json:"granted"`
	CreatedBy bson.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt int           `bson:"createdAt" json:"createdAt"`
	UpdatedAt int           `bson:"updatedAt" json:"updatedAt"`
}

// AuditRecord is append-only; nothing in this service updates or deletes one.
type AuditRecord struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	ActorAddress string        `bson:"actorAddress" json:"actorAddress"`
	EntityType   string        `bson:"entityType" json:"entityType"`
	EntityID     bson.ObjectID `bson:"entityId" json:"entityId"`
	Message      string        `bson:"message" json:"message"`
	Timestamp    int           `bson:"timestamp" json:"timestamp"`
}

// Entity type tags used in audit records.
const (
	EntityAccess = "access"
	EntityLevel  = "level"
	EntityUser   = "user"
)

// IsDeleted reports whether the soft-delete marker is set.
func (a *Access) IsDeleted() bool { return a.DeletedAt != 0 }

func (l *Level) IsDeleted() bool { return l.DeletedAt != 0 }

func (u *User) IsDeleted() bool { return u.DeletedAt != 0 }
