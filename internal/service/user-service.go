package service

import (
	"access_service/internal/models"
	"access_service/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserService manages the two per-user pieces of authorization state: the
// level reference and the access overrides.
type UserService struct {
	userRepo     userStore
	levelRepo    levelStore
	accessRepo   accessStore
	overrideRepo overrideStore
	audit        Auditor
}

func NewUserService(audit Auditor) *UserService {
	return &UserService{
		userRepo:     repository.Repositories_instance.UserRepository,
		levelRepo:    repository.Repositories_instance.LevelRepository,
		accessRepo:   repository.Repositories_instance.AccessRepository,
		overrideRepo: repository.Repositories_instance.OverrideRepository,
		audit:        audit,
	}
}

func (s *UserService) Get(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

// AssignLevel moves a user to another level. The target must exist and be
// live, which keeps every user's level reference valid.
func (s *UserService) AssignLevel(ctx context.Context, actor models.Actor, userID, levelID bson.ObjectID) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.levelRepo.FindByID(ctx, levelID); err != nil {
		return err
	}

	if err := s.userRepo.UpdateLevel(ctx, userID, levelID); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.Address, models.EntityUser, userID, "User level changed")
	return nil
}

// SetOverride records an explicit grant or deny for one user and one access,
// taking precedence over whatever the user's level says.
func (s *UserService) SetOverride(ctx context.Context, actor models.Actor, userID, accessID bson.ObjectID, granted bool) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.accessRepo.FindByID(ctx, accessID); err != nil {
		return err
	}

	override := &models.UserOverride{
		UserID:    userID,
		AccessID:  accessID,
		Granted:   granted,
		CreatedBy: actor.ID,
	}
	if err := s.overrideRepo.Set(ctx, override); err != nil {
		return err
	}

	message := "Access override set: deny"
	if granted {
		message = "Access override set: grant"
	}
	s.audit.Record(ctx, actor.Address, models.EntityUser, userID, message)
	return nil
}

// ClearOverride removes the override so the user falls back to the level's
// grant.
func (s *UserService) ClearOverride(ctx context.Context, actor models.Actor, userID, accessID bson.ObjectID) error {
	if err := s.overrideRepo.Clear(ctx, userID, accessID); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.Address, models.EntityUser, userID, "Access override cleared")
	return nil
}

func (s *UserService) Overrides(ctx context.Context, userID bson.ObjectID) ([]*models.UserOverride, error) {
	return s.overrideRepo.FindForUser(ctx, userID)
}
