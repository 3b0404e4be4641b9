package service

import (
	"access_service/internal/apperrors"
	"context"
	"errors"
	"testing"
)

func TestLevelDerivedGrants(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, err := f.levels.Create(ctx, actor, "Editor")
	if err != nil {
		t.Fatalf("creating level: %v", err)
	}

	edit, _ := f.accesses.Create(ctx, actor, "posts.edit")
	view, _ := f.accesses.Create(ctx, actor, "posts.view")
	if _, err := f.accesses.Create(ctx, actor, "posts.publish"); err != nil {
		t.Fatalf("creating access: %v", err)
	}

	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(edit, view)); err != nil {
		t.Fatalf("syncing accesses: %v", err)
	}

	user := f.addUser(editor.ID)

	testCases := []struct {
		route   string
		allowed bool
	}{
		{"posts.edit", true},
		{"posts.view", true},
		{"posts.publish", false}, // exists but not in the level's set
		{"posts.nonexistent", false},
	}

	for _, tc := range testCases {
		t.Run(tc.route, func(t *testing.T) {
			allowed, err := f.permissions.IsPermitted(ctx, user.ID, tc.route)
			if err != nil {
				t.Fatalf("IsPermitted(%s): %v", tc.route, err)
			}
			if allowed != tc.allowed {
				t.Errorf("IsPermitted(%s) = %v, want %v", tc.route, allowed, tc.allowed)
			}
		})
	}
}

func TestUnknownAccessFailsClosed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	level, _ := f.levels.Create(ctx, actor, "Editor")
	user := f.addUser(level.ID)

	allowed, err := f.permissions.IsPermitted(ctx, user.ID, "no.such.key")
	if err != nil {
		t.Fatalf("expected silent denial, got error: %v", err)
	}
	if allowed {
		t.Error("unknown access key must never be granted")
	}

	_, err = f.permissions.IsPermittedStrict(ctx, user.ID, "no.such.key")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("strict mode should report NotFound, got %v", err)
	}
}

func TestUnknownUserIsAnError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	if _, err := f.accesses.Create(ctx, actor, "posts.view"); err != nil {
		t.Fatalf("creating access: %v", err)
	}

	_, err := f.permissions.IsPermitted(ctx, f.actor().ID, "posts.view")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("unknown user should be a NotFound error, got %v", err)
	}
}

func TestDeletedAccessIsDeniedDespiteStaleAssociation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	publish, _ := f.accesses.Create(ctx, actor, "posts.publish")
	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(publish)); err != nil {
		t.Fatalf("syncing accesses: %v", err)
	}
	user := f.addUser(editor.ID)

	// Soft-delete the document directly, leaving the association row in
	// place, as if the clear step had crashed mid-delete.
	f.db.accesses[publish.ID].DeletedAt = 1

	allowed, err := f.permissions.IsPermitted(ctx, user.ID, "posts.publish")
	if err != nil {
		t.Fatalf("IsPermitted: %v", err)
	}
	if allowed {
		t.Error("soft-deleted access must deny even with a stale association")
	}
}

func TestRecreatedAccessIsIndependentOfDeletedOne(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	publish, _ := f.accesses.Create(ctx, actor, "posts.publish")
	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(publish)); err != nil {
		t.Fatalf("syncing accesses: %v", err)
	}
	user := f.addUser(editor.ID)

	if err := f.accesses.Delete(ctx, actor, publish.ID); err != nil {
		t.Fatalf("deleting access: %v", err)
	}

	recreated, err := f.accesses.Create(ctx, actor, "posts.publish")
	if err != nil {
		t.Fatalf("re-creating access after delete: %v", err)
	}
	if recreated.ID == publish.ID {
		t.Error("re-created access should get a fresh id")
	}

	allowed, err := f.permissions.IsPermitted(ctx, user.ID, "posts.publish")
	if err != nil {
		t.Fatalf("IsPermitted: %v", err)
	}
	if allowed {
		t.Error("re-created access must not inherit the deleted one's associations")
	}
}

func TestOverridePrecedence(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	edit, _ := f.accesses.Create(ctx, actor, "posts.edit")
	publish, _ := f.accesses.Create(ctx, actor, "posts.publish")
	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(edit)); err != nil {
		t.Fatalf("syncing accesses: %v", err)
	}
	user := f.addUser(editor.ID)

	// Deny override on a level-granted access wins over the level.
	if err := f.users.SetOverride(ctx, actor, user.ID, edit.ID, false); err != nil {
		t.Fatalf("setting deny override: %v", err)
	}
	if allowed, _ := f.permissions.IsPermitted(ctx, user.ID, "posts.edit"); allowed {
		t.Error("explicit deny override must beat the level grant")
	}

	// Grant override on a non-granted access also wins.
	if err := f.users.SetOverride(ctx, actor, user.ID, publish.ID, true); err != nil {
		t.Fatalf("setting grant override: %v", err)
	}
	if allowed, _ := f.permissions.IsPermitted(ctx, user.ID, "posts.publish"); !allowed {
		t.Error("explicit grant override must beat the level denial")
	}

	// Clearing the override reverts to the level's answer.
	if err := f.users.ClearOverride(ctx, actor, user.ID, edit.ID); err != nil {
		t.Fatalf("clearing override: %v", err)
	}
	if allowed, _ := f.permissions.IsPermitted(ctx, user.ID, "posts.edit"); !allowed {
		t.Error("removing the override must restore the level grant")
	}
}

func TestCheckerAnswersFromSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	edit, _ := f.accesses.Create(ctx, actor, "posts.edit")
	view, _ := f.accesses.Create(ctx, actor, "posts.view")
	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(edit, view)); err != nil {
		t.Fatalf("syncing accesses: %v", err)
	}
	user := f.addUser(editor.ID)
	if err := f.users.SetOverride(ctx, actor, user.ID, view.ID, false); err != nil {
		t.Fatalf("setting override: %v", err)
	}

	f.db.findUserCalls = 0
	f.db.levelAccessCalls = 0
	f.db.overrideListCalls = 0

	checker, err := f.permissions.NewChecker(ctx, user.ID)
	if err != nil {
		t.Fatalf("NewChecker: %v", err)
	}

	checks := []struct {
		route   string
		allowed bool
	}{
		{"posts.edit", true},
		{"posts.view", false}, // deny override
		{"posts.edit", true},
		{"posts.missing", false},
		{"posts.view", false},
	}
	for _, check := range checks {
		if got := checker.Allowed(check.route); got != check.allowed {
			t.Errorf("Allowed(%s) = %v, want %v", check.route, got, check.allowed)
		}
	}

	if f.db.findUserCalls != 1 {
		t.Errorf("expected 1 user fetch, got %d", f.db.findUserCalls)
	}
	if f.db.levelAccessCalls != 1 {
		t.Errorf("expected 1 association fetch, got %d", f.db.levelAccessCalls)
	}
	if f.db.overrideListCalls != 1 {
		t.Errorf("expected 1 override fetch, got %d", f.db.overrideListCalls)
	}
}

func TestUserPermissionsListsOverrideAdjustedRoutes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	edit, _ := f.accesses.Create(ctx, actor, "posts.edit")
	view, _ := f.accesses.Create(ctx, actor, "posts.view")
	publish, _ := f.accesses.Create(ctx, actor, "posts.publish")
	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(edit, view)); err != nil {
		t.Fatalf("syncing accesses: %v", err)
	}
	user := f.addUser(editor.ID)

	if err := f.users.SetOverride(ctx, actor, user.ID, view.ID, false); err != nil {
		t.Fatalf("setting deny override: %v", err)
	}
	if err := f.users.SetOverride(ctx, actor, user.ID, publish.ID, true); err != nil {
		t.Fatalf("setting grant override: %v", err)
	}

	permissions, err := f.permissions.UserPermissions(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserPermissions: %v", err)
	}

	want := map[string]bool{"posts.edit": true, "posts.publish": true}
	if len(permissions) != len(want) {
		t.Fatalf("expected %d permissions, got %v", len(want), permissions)
	}
	for _, route := range permissions {
		if !want[route] {
			t.Errorf("unexpected permission %q in %v", route, permissions)
		}
	}
}
