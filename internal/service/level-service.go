package service

import (
	"access_service/internal/apperrors"
	"access_service/internal/models"
	"access_service/internal/repository"
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const maxLevelNameLength = 50

// LevelService is the registry of roles and the entry point for association
// sync.
type LevelService struct {
	levelRepo  levelStore
	accessRepo accessStore
	assocRepo  associationStore
	cache      routeSetCache
	audit      Auditor
}

func NewLevelService(audit Auditor) *LevelService {
	return &LevelService{
		levelRepo:  repository.Repositories_instance.LevelRepository,
		accessRepo: repository.Repositories_instance.AccessRepository,
		assocRepo:  repository.Repositories_instance.AssociationRepository,
		cache:      repository.Repositories_instance.RedisRepository,
		audit:      audit,
	}
}

func validateLevelName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &apperrors.ValidationError{Field: "name", Reason: "is required"}
	}
	if len(name) > maxLevelNameLength {
		return &apperrors.ValidationError{Field: "name", Reason: "must not exceed 50 characters"}
	}
	return nil
}

func (s *LevelService) Create(ctx context.Context, actor models.Actor, name string) (*models.Level, error) {
	if err := validateLevelName(name); err != nil {
		return nil, err
	}

	existing, err := s.levelRepo.FindByName(ctx, name)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, &apperrors.ValidationError{Field: "name", Reason: "is already in use"}
	}

	level := &models.Level{
		Name:      name,
		CreatedBy: actor.ID,
		UpdatedBy: actor.ID,
	}

	level, err = s.levelRepo.Insert(ctx, level)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.Address, models.EntityLevel, level.ID, "Level created")
	return level, nil
}

func (s *LevelService) Update(ctx context.Context, actor models.Actor, id bson.ObjectID, name string) (*models.Level, error) {
	if err := validateLevelName(name); err != nil {
		return nil, err
	}

	level, err := s.levelRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := s.levelRepo.FindByName(ctx, name)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, &apperrors.ValidationError{Field: "name", Reason: "is already in use"}
	}

	level.Name = name
	level.UpdatedBy = actor.ID
	if err := s.levelRepo.Update(ctx, level); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.Address, models.EntityLevel, level.ID, "Level updated")
	return level, nil
}

// Delete refuses to remove a level that any live user still references; the
// guard and the soft delete run in one transaction inside the repository.
// On success the level's association set is already empty.
func (s *LevelService) Delete(ctx context.Context, actor models.Actor, id bson.ObjectID) error {
	if err := s.levelRepo.DeleteGuarded(ctx, id, actor.ID); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.DeleteKey(ctx, levelAccessCacheKey(id))
	}

	s.audit.Record(ctx, actor.Address, models.EntityLevel, id, "Level deleted")
	return nil
}

// SyncAccesses makes the level's association set exactly equal to accessIDs.
// Every id must name a live access; a stale form submission referencing a
// deleted access is rejected whole rather than partially applied.
func (s *LevelService) SyncAccesses(ctx context.Context, actor models.Actor, levelID bson.ObjectID, accessIDs []bson.ObjectID) error {
	if len(accessIDs) > 0 {
		active, err := s.accessRepo.FindActiveByIDs(ctx, accessIDs)
		if err != nil {
			return err
		}
		activeSet := make(map[bson.ObjectID]bool, len(active))
		for _, a := range active {
			activeSet[a.ID] = true
		}
		for _, id := range accessIDs {
			if !activeSet[id] {
				return &apperrors.ValidationError{Field: "accessIds", Reason: "contains an unknown or deleted access"}
			}
		}
	}

	if err := s.assocRepo.Sync(ctx, levelID, accessIDs); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.DeleteKey(ctx, levelAccessCacheKey(levelID))
	}

	s.audit.Record(ctx, actor.Address, models.EntityLevel, levelID, "Level accesses synced")
	return nil
}

func (s *LevelService) Get(ctx context.Context, id bson.ObjectID) (*models.Level, error) {
	return s.levelRepo.FindByID(ctx, id)
}

// Accesses returns the live accesses a level grants, for edit-form rendering.
func (s *LevelService) Accesses(ctx context.Context, levelID bson.ObjectID) ([]*models.Access, error) {
	ids, err := s.assocRepo.AccessIDsForLevel(ctx, levelID)
	if err != nil {
		return nil, err
	}
	return s.accessRepo.FindActiveByIDs(ctx, ids)
}

func (s *LevelService) List(ctx context.Context, nameFilter, sortField, sortOrder string, page, limit int) ([]*models.Level, error) {
	return s.levelRepo.FindAll(ctx, nameFilter, sortField, sortOrder, page, limit)
}

func (s *LevelService) ListWithAccessCounts(ctx context.Context, nameFilter string, page, limit int) ([]*models.LevelWithAccessCount, error) {
	return s.levelRepo.FindAllWithAccessCounts(ctx, nameFilter, page, limit)
}
