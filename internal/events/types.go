package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	// AuditRecorded is emitted after every permission-relevant mutation has
	// been durably committed.
	AuditRecorded EventType = "audit.recorded"
	// UserRegistered arrives from the account system when a new user exists.
	UserRegistered EventType = "user.registered"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

type AuditRecordedEvent struct {
	BaseEvent
	ActorAddress string `json:"actor_address"`
	EntityType   string `json:"entity_type"`
	EntityID     string `json:"entity_id"`
	Message      string `json:"message"`
}

func NewAuditRecordedEvent(actorAddress, entityType, entityID, message string) *AuditRecordedEvent {
	return &AuditRecordedEvent{
		BaseEvent: BaseEvent{
			ID:        generateEventID(),
			Type:      AuditRecorded,
			Timestamp: time.Now().Unix(),
			Version:   "1.0",
		},
		ActorAddress: actorAddress,
		EntityType:   entityType,
		EntityID:     entityID,
		Message:      message,
	}
}

func (e *AuditRecordedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

type UserRegisteredEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (e *UserRegisteredEvent) FromJSON(data []byte) error {
	return json.Unmarshal(data, e)
}

func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()[:8]
}
