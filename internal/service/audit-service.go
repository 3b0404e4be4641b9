package service

import (
	"access_service/internal/events"
	"access_service/internal/models"
	"access_service/internal/repository"
	"context"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuditService appends immutable records of permission-relevant mutations and
// mirrors them onto the audit-events exchange. Recording is fire-and-forget
// for callers: a failed write is logged, never propagated, and always happens
// after the mutation it describes.
type AuditService struct {
	auditRepo auditStore
	publisher events.Publisher
}

func NewAuditService(publisher events.Publisher) *AuditService {
	return &AuditService{
		auditRepo: repository.Repositories_instance.AuditRepository,
		publisher: publisher,
	}
}

func (s *AuditService) Record(ctx context.Context, actorAddress, entityType string, entityID bson.ObjectID, message string) {
	record := &models.AuditRecord{
		ActorAddress: actorAddress,
		EntityType:   entityType,
		EntityID:     entityID,
		Message:      message,
	}

	if _, err := s.auditRepo.Append(ctx, record); err != nil {
		log.Printf("Error writing audit record for %s %s: %s", entityType, entityID.Hex(), err)
		return
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAuditRecorded(ctx, actorAddress, entityType, entityID.Hex(), message); err != nil {
		log.Printf("Error publishing audit event for %s %s: %s", entityType, entityID.Hex(), err)
	}
}

// History lists the audit trail of one entity, newest first.
func (s *AuditService) History(ctx context.Context, entityType string, entityID bson.ObjectID, page, limit int) ([]*models.AuditRecord, error) {
	return s.auditRepo.FindByEntity(ctx, entityType, entityID, page, limit)
}
