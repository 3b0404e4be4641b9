package service

import (
	"access_service/internal/apperrors"
	"access_service/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const levelAccessCacheTTL = 10 * time.Minute

func levelAccessCacheKey(levelID bson.ObjectID) string {
	return "level-access:" + levelID.Hex()
}

// PermissionService answers the one question the rest of the platform asks:
// may this user perform this access? The level provides the default answer;
// an explicit per-user override, grant or deny, wins over it. Unknown or
// deleted access keys always deny.
type PermissionService struct {
	accessRepo   accessStore
	userRepo     userStore
	overrideRepo overrideStore
	assocRepo    associationStore
	cache        routeSetCache
}

func NewPermissionService() *PermissionService {
	return &PermissionService{
		accessRepo:   repository.Repositories_instance.AccessRepository,
		userRepo:     repository.Repositories_instance.UserRepository,
		overrideRepo: repository.Repositories_instance.OverrideRepository,
		assocRepo:    repository.Repositories_instance.AssociationRepository,
		cache:        repository.Repositories_instance.RedisRepository,
	}
}

// IsPermitted computes the grant for one user and one access key. Denial is a
// normal false result; errors are reserved for unknown users and storage
// failures.
func (s *PermissionService) IsPermitted(ctx context.Context, userID bson.ObjectID, accessKey string) (bool, error) {
	return s.isPermitted(ctx, userID, accessKey, false)
}

// IsPermittedStrict behaves like IsPermitted but reports an unknown access
// key as a NotFound error instead of a silent denial.
func (s *PermissionService) IsPermittedStrict(ctx context.Context, userID bson.ObjectID, accessKey string) (bool, error) {
	return s.isPermitted(ctx, userID, accessKey, true)
}

func (s *PermissionService) isPermitted(ctx context.Context, userID bson.ObjectID, accessKey string, strict bool) (bool, error) {
	access, err := s.accessRepo.FindActiveByRoute(ctx, accessKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if strict {
				return false, err
			}
			// Unknown capability is never implicitly granted.
			return false, nil
		}
		return false, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}

	override, err := s.overrideRepo.Find(ctx, userID, access.ID)
	if err != nil {
		return false, err
	}
	if override != nil {
		return override.Granted, nil
	}

	return s.assocRepo.Contains(ctx, user.LevelID, access.ID)
}

// Checker is a per-request snapshot of one user's full grant state: the
// level's active route keys plus the user's overrides, fetched once. Answering
// from it costs no further round trips, which is what the authorization
// middleware wants when it checks many keys per request.
type Checker struct {
	userID    bson.ObjectID
	levelID   bson.ObjectID
	routes    map[string]bool
	overrides map[string]bool
}

func (c *Checker) Allowed(accessKey string) bool {
	if granted, ok := c.overrides[accessKey]; ok {
		return granted
	}
	return c.routes[accessKey]
}

// Routes lists the access keys the checker would allow, override-adjusted.
func (c *Checker) Routes() []string {
	keys := make([]string, 0, len(c.routes)+len(c.overrides))
	for route := range c.routes {
		if granted, ok := c.overrides[route]; !ok || granted {
			keys = append(keys, route)
		}
	}
	for route, granted := range c.overrides {
		if granted && !c.routes[route] {
			keys = append(keys, route)
		}
	}
	return keys
}

// NewChecker loads the user's grant state. The level route set comes from the
// Redis cache when warm; overrides are always read fresh because they are
// per-user and cheap.
func (s *PermissionService) NewChecker(ctx context.Context, userID bson.ObjectID) (*Checker, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	routes, err := s.levelRouteSet(ctx, user.LevelID)
	if err != nil {
		return nil, err
	}

	overrides, err := s.overrideRouteMap(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Checker{
		userID:    userID,
		levelID:   user.LevelID,
		routes:    routes,
		overrides: overrides,
	}, nil
}

// levelRouteSet resolves a level's association set down to active route keys.
// Soft-deleted accesses drop out here even if a stale association row still
// names them.
func (s *PermissionService) levelRouteSet(ctx context.Context, levelID bson.ObjectID) (map[string]bool, error) {
	if s.cache != nil {
		var cached []string
		if err := s.cache.GetStructCached(ctx, levelAccessCacheKey(levelID), &cached); err == nil {
			routes := make(map[string]bool, len(cached))
			for _, route := range cached {
				routes[route] = true
			}
			return routes, nil
		}
	}

	accessIDs, err := s.assocRepo.AccessIDsForLevel(ctx, levelID)
	if err != nil {
		return nil, err
	}

	accesses, err := s.accessRepo.FindActiveByIDs(ctx, accessIDs)
	if err != nil {
		return nil, err
	}

	routes := make(map[string]bool, len(accesses))
	routeList := make([]string, 0, len(accesses))
	for _, access := range accesses {
		routes[access.Route] = true
		routeList = append(routeList, access.Route)
	}

	if s.cache != nil {
		if err := s.cache.SaveStructCached(ctx, levelAccessCacheKey(levelID), routeList, levelAccessCacheTTL); err != nil {
			return routes, nil
		}
	}

	return routes, nil
}

func (s *PermissionService) overrideRouteMap(ctx context.Context, userID bson.ObjectID) (map[string]bool, error) {
	overrides, err := s.overrideRepo.FindForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(overrides) == 0 {
		return map[string]bool{}, nil
	}

	accessIDs := make([]bson.ObjectID, 0, len(overrides))
	for _, o := range overrides {
		accessIDs = append(accessIDs, o.AccessID)
	}

	// Overrides on deleted accesses are unreachable by key and are skipped.
	accesses, err := s.accessRepo.FindActiveByIDs(ctx, accessIDs)
	if err != nil {
		return nil, err
	}
	routeByID := make(map[bson.ObjectID]string, len(accesses))
	for _, access := range accesses {
		routeByID[access.ID] = access.Route
	}

	result := make(map[string]bool, len(overrides))
	for _, o := range overrides {
		if route, ok := routeByID[o.AccessID]; ok {
			result[route] = o.Granted
		}
	}
	return result, nil
}

// UserPermissions returns every access key a user may perform right now.
// Exposed for the gateway, which embeds the list in forwarded headers.
func (s *PermissionService) UserPermissions(ctx context.Context, userID bson.ObjectID) ([]string, error) {
	checker, err := s.NewChecker(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error collecting user permissions: %w", err)
	}
	return checker.Routes(), nil
}
