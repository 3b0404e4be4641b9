package service

import (
	"access_service/internal/apperrors"
	"access_service/internal/models"
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// In-memory stand-ins for the Mongo repositories. They share one fakeDB so
// cross-store effects (association clears, delete guards) behave like the
// real collections.

type fakeDB struct {
	accesses  map[bson.ObjectID]*models.Access
	levels    map[bson.ObjectID]*models.Level
	users     map[bson.ObjectID]*models.User
	overrides []*models.UserOverride

	findUserCalls     int
	levelAccessCalls  int
	overrideListCalls int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		accesses: make(map[bson.ObjectID]*models.Access),
		levels:   make(map[bson.ObjectID]*models.Level),
		users:    make(map[bson.ObjectID]*models.User),
	}
}

type fakeAccessStore struct{ db *fakeDB }

func (f *fakeAccessStore) Insert(ctx context.Context, access *models.Access) (*models.Access, error) {
	if access.ID.IsZero() {
		access.ID = bson.NewObjectID()
	}
	if access.CreatedAt == 0 {
		access.CreatedAt = int(time.Now().Unix())
	}
	f.db.accesses[access.ID] = access
	return access, nil
}

func (f *fakeAccessStore) Update(ctx context.Context, access *models.Access) error {
	existing, ok := f.db.accesses[access.ID]
	if !ok || existing.IsDeleted() {
		return apperrors.NotFound("access", access.ID.Hex())
	}
	existing.Route = access.Route
	existing.UpdatedBy = access.UpdatedBy
	return nil
}

func (f *fakeAccessStore) SoftDelete(ctx context.Context, id, updatedBy bson.ObjectID) error {
	access, ok := f.db.accesses[id]
	if !ok || access.IsDeleted() {
		return apperrors.NotFound("access", id.Hex())
	}
	access.DeletedAt = int(time.Now().Unix())
	access.UpdatedBy = updatedBy
	return nil
}

func (f *fakeAccessStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.Access, error) {
	access, ok := f.db.accesses[id]
	if !ok || access.IsDeleted() {
		return nil, apperrors.NotFound("access", id.Hex())
	}
	return access, nil
}

func (f *fakeAccessStore) FindActiveByRoute(ctx context.Context, route string) (*models.Access, error) {
	for _, access := range f.db.accesses {
		if access.Route == route && !access.IsDeleted() {
			return access, nil
		}
	}
	return nil, apperrors.NotFound("access", route)
}

func (f *fakeAccessStore) FindActiveByIDs(ctx context.Context, ids []bson.ObjectID) ([]*models.Access, error) {
	var result []*models.Access
	for _, id := range ids {
		if access, ok := f.db.accesses[id]; ok && !access.IsDeleted() {
			result = append(result, access)
		}
	}
	return result, nil
}

func (f *fakeAccessStore) FindAll(ctx context.Context, routeFilter string, page, limit int) ([]*models.Access, error) {
	var result []*models.Access
	for _, access := range f.db.accesses {
		if access.IsDeleted() {
			continue
		}
		if routeFilter != "" && !strings.Contains(access.Route, routeFilter) {
			continue
		}
		result = append(result, access)
	}
	return result, nil
}

type fakeLevelStore struct{ db *fakeDB }

func (f *fakeLevelStore) Insert(ctx context.Context, level *models.Level) (*models.Level, error) {
	if level.ID.IsZero() {
		level.ID = bson.NewObjectID()
	}
	if level.AccessIDs == nil {
		level.AccessIDs = []bson.ObjectID{}
	}
	f.db.levels[level.ID] = level
	return level, nil
}

func (f *fakeLevelStore) Update(ctx context.Context, level *models.Level) error {
	existing, ok := f.db.levels[level.ID]
	if !ok || existing.IsDeleted() {
		return apperrors.NotFound("level", level.ID.Hex())
	}
	existing.Name = level.Name
	existing.UpdatedBy = level.UpdatedBy
	return nil
}

func (f *fakeLevelStore) DeleteGuarded(ctx context.Context, id, updatedBy bson.ObjectID) error {
	level, ok := f.db.levels[id]
	if !ok || level.IsDeleted() {
		return apperrors.NotFound("level", id.Hex())
	}
	for _, user := range f.db.users {
		if user.LevelID == id && !user.IsDeleted() {
			return apperrors.ErrLevelInUse
		}
	}
	level.DeletedAt = int(time.Now().Unix())
	level.UpdatedBy = updatedBy
	level.AccessIDs = []bson.ObjectID{}
	return nil
}

func (f *fakeLevelStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.Level, error) {
	level, ok := f.db.levels[id]
	if !ok || level.IsDeleted() {
		return nil, apperrors.NotFound("level", id.Hex())
	}
	return level, nil
}

func (f *fakeLevelStore) FindByName(ctx context.Context, name string) (*models.Level, error) {
	for _, level := range f.db.levels {
		if level.Name == name && !level.IsDeleted() {
			return level, nil
		}
	}
	return nil, apperrors.NotFound("level", name)
}

func (f *fakeLevelStore) FindAll(ctx context.Context, nameFilter, sortField, sortOrder string, page, limit int) ([]*models.Level, error) {
	var result []*models.Level
	for _, level := range f.db.levels {
		if level.IsDeleted() {
			continue
		}
		if nameFilter != "" && !strings.Contains(level.Name, nameFilter) {
			continue
		}
		result = append(result, level)
	}
	return result, nil
}

func (f *fakeLevelStore) FindAllWithAccessCounts(ctx context.Context, nameFilter string, page, limit int) ([]*models.LevelWithAccessCount, error) {
	levels, _ := f.FindAll(ctx, nameFilter, "", "", page, limit)
	result := make([]*models.LevelWithAccessCount, 0, len(levels))
	for _, level := range levels {
		result = append(result, &models.LevelWithAccessCount{
			Level:       *level,
			AccessCount: len(level.AccessIDs),
		})
	}
	return result, nil
}

type fakeAssociationStore struct{ db *fakeDB }

func (f *fakeAssociationStore) Sync(ctx context.Context, levelID bson.ObjectID, accessIDs []bson.ObjectID) error {
	level, ok := f.db.levels[levelID]
	if !ok || level.IsDeleted() {
		return apperrors.NotFound("level", levelID.Hex())
	}
	deduped := make([]bson.ObjectID, 0, len(accessIDs))
	seen := make(map[bson.ObjectID]bool, len(accessIDs))
	for _, id := range accessIDs {
		if !seen[id] {
			seen[id] = true
			deduped = append(deduped, id)
		}
	}
	level.AccessIDs = deduped
	return nil
}

func (f *fakeAssociationStore) ClearForAccess(ctx context.Context, accessID bson.ObjectID) error {
	for _, level := range f.db.levels {
		kept := level.AccessIDs[:0]
		for _, id := range level.AccessIDs {
			if id != accessID {
				kept = append(kept, id)
			}
		}
		level.AccessIDs = kept
	}
	return nil
}

func (f *fakeAssociationStore) AccessIDsForLevel(ctx context.Context, levelID bson.ObjectID) ([]bson.ObjectID, error) {
	f.db.levelAccessCalls++
	level, ok := f.db.levels[levelID]
	if !ok || level.IsDeleted() {
		return nil, apperrors.NotFound("level", levelID.Hex())
	}
	return level.AccessIDs, nil
}

func (f *fakeAssociationStore) LevelIDsForAccess(ctx context.Context, accessID bson.ObjectID) ([]bson.ObjectID, error) {
	var result []bson.ObjectID
	for _, level := range f.db.levels {
		for _, id := range level.AccessIDs {
			if id == accessID {
				result = append(result, level.ID)
				break
			}
		}
	}
	return result, nil
}

func (f *fakeAssociationStore) Contains(ctx context.Context, levelID, accessID bson.ObjectID) (bool, error) {
	level, ok := f.db.levels[levelID]
	if !ok || level.IsDeleted() {
		return false, nil
	}
	for _, id := range level.AccessIDs {
		if id == accessID {
			return true, nil
		}
	}
	return false, nil
}

type fakeUserStore struct{ db *fakeDB }

func (f *fakeUserStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	f.db.findUserCalls++
	user, ok := f.db.users[id]
	if !ok || user.IsDeleted() {
		return nil, apperrors.NotFound("user", id.Hex())
	}
	return user, nil
}

func (f *fakeUserStore) CountByLevel(ctx context.Context, levelID bson.ObjectID) (int64, error) {
	var count int64
	for _, user := range f.db.users {
		if user.LevelID == levelID && !user.IsDeleted() {
			count++
		}
	}
	return count, nil
}

func (f *fakeUserStore) UpdateLevel(ctx context.Context, userID, levelID bson.ObjectID) error {
	user, ok := f.db.users[userID]
	if !ok || user.IsDeleted() {
		return apperrors.NotFound("user", userID.Hex())
	}
	user.LevelID = levelID
	return nil
}

type fakeOverrideStore struct{ db *fakeDB }

func (f *fakeOverrideStore) Set(ctx context.Context, override *models.UserOverride) error {
	for _, existing := range f.db.overrides {
		if existing.UserID == override.UserID && existing.AccessID == override.AccessID {
			existing.Granted = override.Granted
			return nil
		}
	}
	f.db.overrides = append(f.db.overrides, override)
	return nil
}

func (f *fakeOverrideStore) Clear(ctx context.Context, userID, accessID bson.ObjectID) error {
	for i, existing := range f.db.overrides {
		if existing.UserID == userID && existing.AccessID == accessID {
			f.db.overrides = append(f.db.overrides[:i], f.db.overrides[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("override", userID.Hex())
}

func (f *fakeOverrideStore) Find(ctx context.Context, userID, accessID bson.ObjectID) (*models.UserOverride, error) {
	for _, existing := range f.db.overrides {
		if existing.UserID == userID && existing.AccessID == accessID {
			return existing, nil
		}
	}
	return nil, nil
}

func (f *fakeOverrideStore) FindForUser(ctx context.Context, userID bson.ObjectID) ([]*models.UserOverride, error) {
	f.db.overrideListCalls++
	var result []*models.UserOverride
	for _, existing := range f.db.overrides {
		if existing.UserID == userID {
			result = append(result, existing)
		}
	}
	return result, nil
}

func (f *fakeOverrideStore) ClearForAccess(ctx context.Context, accessID bson.ObjectID) error {
	kept := f.db.overrides[:0]
	for _, existing := range f.db.overrides {
		if existing.AccessID != accessID {
			kept = append(kept, existing)
		}
	}
	f.db.overrides = kept
	return nil
}

type fakeAuditor struct {
	records []string
}

func (f *fakeAuditor) Record(ctx context.Context, actorAddress, entityType string, entityID bson.ObjectID, message string) {
	f.records = append(f.records, entityType+": "+message)
}

// Wiring helpers shared by the service tests.

type fixture struct {
	db          *fakeDB
	audit       *fakeAuditor
	accesses    *AccessService
	levels      *LevelService
	users       *UserService
	permissions *PermissionService
}

func newFixture() *fixture {
	db := newFakeDB()
	audit := &fakeAuditor{}
	accessStore := &fakeAccessStore{db: db}
	levelStore := &fakeLevelStore{db: db}
	assocStore := &fakeAssociationStore{db: db}
	userStore := &fakeUserStore{db: db}
	overrideStore := &fakeOverrideStore{db: db}

	return &fixture{
		db:    db,
		audit: audit,
		accesses: &AccessService{
			accessRepo:   accessStore,
			assocRepo:    assocStore,
			overrideRepo: overrideStore,
			audit:        audit,
		},
		levels: &LevelService{
			levelRepo:  levelStore,
			accessRepo: accessStore,
			assocRepo:  assocStore,
			audit:      audit,
		},
		users: &UserService{
			userRepo:     userStore,
			levelRepo:    levelStore,
			accessRepo:   accessStore,
			overrideRepo: overrideStore,
			audit:        audit,
		},
		permissions: &PermissionService{
			accessRepo:   accessStore,
			userRepo:     userStore,
			overrideRepo: overrideStore,
			assocRepo:    assocStore,
		},
	}
}

func (f *fixture) actor() models.Actor {
	return models.Actor{ID: bson.NewObjectID(), Address: "10.0.0.1"}
}

func idsOf(accesses ...*models.Access) []bson.ObjectID {
	ids := make([]bson.ObjectID, 0, len(accesses))
	for _, access := range accesses {
		ids = append(ids, access.ID)
	}
	return ids
}

func (f *fixture) addUser(levelID bson.ObjectID) *models.User {
	user := &models.User{ID: bson.NewObjectID(), LevelID: levelID}
	f.db.users[user.ID] = user
	return user
}
