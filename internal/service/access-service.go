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

const maxRouteLength = 100

// AccessService is the registry of permission keys.
type AccessService struct {
	accessRepo   accessStore
	assocRepo    associationStore
	overrideRepo overrideStore
	cache        routeSetCache
	audit        Auditor
}

func NewAccessService(audit Auditor) *AccessService {
	return &AccessService{
		accessRepo:   repository.Repositories_instance.AccessRepository,
		assocRepo:    repository.Repositories_instance.AssociationRepository,
		overrideRepo: repository.Repositories_instance.OverrideRepository,
		cache:        repository.Repositories_instance.RedisRepository,
		audit:        audit,
	}
}

func validateRoute(route string) error {
	if strings.TrimSpace(route) == "" {
		return &apperrors.ValidationError{Field: "route", Reason: "is required"}
	}
	if len(route) > maxRouteLength {
		return &apperrors.ValidationError{Field: "route", Reason: "must not exceed 100 characters"}
	}
	return nil
}

func (s *AccessService) Create(ctx context.Context, actor models.Actor, route string) (*models.Access, error) {
	if err := validateRoute(route); err != nil {
		return nil, err
	}

	existing, err := s.accessRepo.FindActiveByRoute(ctx, route)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, &apperrors.ValidationError{Field: "route", Reason: "is already in use"}
	}

	access := &models.Access{
		Route:     route,
		CreatedBy: actor.ID,
		UpdatedBy: actor.ID,
	}

	access, err = s.accessRepo.Insert(ctx, access)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.Address, models.EntityAccess, access.ID, "Access created")
	return access, nil
}

func (s *AccessService) Update(ctx context.Context, actor models.Actor, id bson.ObjectID, route string) (*models.Access, error) {
	if err := validateRoute(route); err != nil {
		return nil, err
	}

	access, err := s.accessRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := s.accessRepo.FindActiveByRoute(ctx, route)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, &apperrors.ValidationError{Field: "route", Reason: "is already in use"}
	}

	access.Route = route
	access.UpdatedBy = actor.ID
	if err := s.accessRepo.Update(ctx, access); err != nil {
		return nil, err
	}

	// A renamed route changes every granting level's key set.
	s.invalidateLevelCaches(ctx, id)

	s.audit.Record(ctx, actor.Address, models.EntityAccess, access.ID, "Access updated")
	return access, nil
}

// Delete soft-deletes the access, then clears it from every level and every
// user override. The soft delete goes first: if it fails nothing else is
// touched, and both clear steps are idempotent so a crash between them can be
// retried without harm.
func (s *AccessService) Delete(ctx context.Context, actor models.Actor, id bson.ObjectID) error {
	if err := s.accessRepo.SoftDelete(ctx, id, actor.ID); err != nil {
		return err
	}

	s.invalidateLevelCaches(ctx, id)

	if err := s.assocRepo.ClearForAccess(ctx, id); err != nil {
		return err
	}
	if err := s.overrideRepo.ClearForAccess(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.Address, models.EntityAccess, id, "Access deleted")
	return nil
}

func (s *AccessService) Get(ctx context.Context, id bson.ObjectID) (*models.Access, error) {
	return s.accessRepo.FindByID(ctx, id)
}

func (s *AccessService) List(ctx context.Context, routeFilter string, page, limit int) ([]*models.Access, error) {
	return s.accessRepo.FindAll(ctx, routeFilter, page, limit)
}

func (s *AccessService) invalidateLevelCaches(ctx context.Context, accessID bson.ObjectID) {
	if s.cache == nil {
		return
	}
	levelIDs, err := s.assocRepo.LevelIDsForAccess(ctx, accessID)
	if err != nil {
		return
	}
	for _, levelID := range levelIDs {
		s.cache.DeleteKey(ctx, levelAccessCacheKey(levelID))
	}
}
