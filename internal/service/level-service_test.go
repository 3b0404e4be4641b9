package service

import (
	"access_service/internal/apperrors"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLevelNameValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	testCases := []struct {
		name  string
		input string
		valid bool
	}{
		{"ok", "Editor", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"at limit", strings.Repeat("a", 50), true},
		{"over limit", strings.Repeat("a", 51), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.levels.Create(ctx, actor, tc.input)
			var ve *apperrors.ValidationError
			if tc.valid && err != nil {
				t.Errorf("Create(%q) unexpected error: %v", tc.input, err)
			}
			if !tc.valid && !errors.As(err, &ve) {
				t.Errorf("Create(%q) expected ValidationError, got %v", tc.input, err)
			}
		})
	}
}

func TestDuplicateLevelNameRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	if _, err := f.levels.Create(ctx, actor, "Editor"); err != nil {
		t.Fatalf("creating level: %v", err)
	}

	var ve *apperrors.ValidationError
	if _, err := f.levels.Create(ctx, actor, "Editor"); !errors.As(err, &ve) {
		t.Errorf("duplicate name should be a ValidationError, got %v", err)
	}
}

func TestDeleteLevelInUseIsRefused(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	edit, _ := f.accesses.Create(ctx, actor, "posts.edit")
	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(edit)); err != nil {
		t.Fatalf("syncing accesses: %v", err)
	}
	f.addUser(editor.ID)

	auditCountBefore := len(f.audit.records)

	err := f.levels.Delete(ctx, actor, editor.ID)
	if !errors.Is(err, apperrors.ErrLevelInUse) {
		t.Fatalf("expected ErrLevelInUse, got %v", err)
	}

	// Nothing about the level may change on a refused delete.
	level := f.db.levels[editor.ID]
	if level.IsDeleted() {
		t.Error("refused delete must not soft-delete the level")
	}
	if len(level.AccessIDs) != 1 {
		t.Errorf("refused delete must leave associations intact, got %v", level.AccessIDs)
	}
	if len(f.audit.records) != auditCountBefore {
		t.Error("refused delete must not emit an audit record")
	}
}

func TestDeleteUnusedLevelClearsAssociations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	edit, _ := f.accesses.Create(ctx, actor, "posts.edit")
	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(edit)); err != nil {
		t.Fatalf("syncing accesses: %v", err)
	}

	if err := f.levels.Delete(ctx, actor, editor.ID); err != nil {
		t.Fatalf("deleting unused level: %v", err)
	}

	level := f.db.levels[editor.ID]
	if !level.IsDeleted() {
		t.Error("level should carry the soft-delete marker")
	}
	if len(level.AccessIDs) != 0 {
		t.Errorf("deleted level should hold no associations, got %v", level.AccessIDs)
	}
}

func TestSyncReplacesWholeSetAndIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	edit, _ := f.accesses.Create(ctx, actor, "posts.edit")
	view, _ := f.accesses.Create(ctx, actor, "posts.view")
	publish, _ := f.accesses.Create(ctx, actor, "posts.publish")

	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(edit, publish)); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	// Replacement, not merge: publish drops out, view comes in.
	target := idsOf(view, edit)
	for i := 0; i < 2; i++ {
		if err := f.levels.SyncAccesses(ctx, actor, editor.ID, target); err != nil {
			t.Fatalf("sync %d: %v", i+1, err)
		}

		got := f.db.levels[editor.ID].AccessIDs
		if len(got) != 2 {
			t.Fatalf("sync %d: expected 2 associations, got %v", i+1, got)
		}
		want := map[string]bool{edit.ID.Hex(): true, view.ID.Hex(): true}
		for _, id := range got {
			if !want[id.Hex()] {
				t.Errorf("sync %d: unexpected association %s", i+1, id.Hex())
			}
		}
	}
}

func TestSyncDeduplicatesInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	edit, _ := f.accesses.Create(ctx, actor, "posts.edit")

	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(edit, edit, edit)); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if got := f.db.levels[editor.ID].AccessIDs; len(got) != 1 {
		t.Errorf("expected duplicate ids to collapse, got %v", got)
	}
}

func TestSyncRejectsDeletedAccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	edit, _ := f.accesses.Create(ctx, actor, "posts.edit")
	stale, _ := f.accesses.Create(ctx, actor, "posts.stale")
	if err := f.accesses.Delete(ctx, actor, stale.ID); err != nil {
		t.Fatalf("deleting access: %v", err)
	}

	err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(edit, stale))
	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("sync with deleted access should be a ValidationError, got %v", err)
	}

	// Rejected whole: the valid half must not have been applied either.
	if got := f.db.levels[editor.ID].AccessIDs; len(got) != 0 {
		t.Errorf("rejected sync must not partially apply, got %v", got)
	}
}

func TestListWithAccessCounts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	if _, err := f.levels.Create(ctx, actor, "Viewer"); err != nil {
		t.Fatalf("creating level: %v", err)
	}
	edit, _ := f.accesses.Create(ctx, actor, "posts.edit")
	view, _ := f.accesses.Create(ctx, actor, "posts.view")
	if err := f.levels.SyncAccesses(ctx, actor, editor.ID, idsOf(edit, view)); err != nil {
		t.Fatalf("syncing accesses: %v", err)
	}

	levels, err := f.levels.ListWithAccessCounts(ctx, "", 1, 30)
	if err != nil {
		t.Fatalf("ListWithAccessCounts: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	for _, level := range levels {
		want := 0
		if level.Name == "Editor" {
			want = 2
		}
		if level.AccessCount != want {
			t.Errorf("level %s: expected %d accesses, got %d", level.Name, want, level.AccessCount)
		}
	}
}

func TestLevelMutationsAreAudited(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := f.actor()

	editor, _ := f.levels.Create(ctx, actor, "Editor")
	if _, err := f.levels.Update(ctx, actor, editor.ID, "Senior Editor"); err != nil {
		t.Fatalf("updating level: %v", err)
	}
	if err := f.levels.Delete(ctx, actor, editor.ID); err != nil {
		t.Fatalf("deleting level: %v", err)
	}

	want := []string{
		"level: Level created",
		"level: Level updated",
		"level: Level deleted",
	}
	if len(f.audit.records) != len(want) {
		t.Fatalf("expected %d audit records, got %v", len(want), f.audit.records)
	}
	for i, message := range want {
		if f.audit.records[i] != message {
			t.Errorf("audit record %d = %q, want %q", i, f.audit.records[i], message)
		}
	}
}
