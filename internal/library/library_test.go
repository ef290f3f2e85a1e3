package library

import (
	"context"
	"testing"
	"time"

	"curator/internal/testsupport"
)

func TestDisplayNameFor(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"vacation/beach_day-01.jpg", "Beach Day 01"},
		{"IMG_0042.HEIC", "IMG 0042"},
		{"/clips/family.reunion.mov", "Family Reunion"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := DisplayNameFor(tc.path); got != tc.want {
			t.Errorf("DisplayNameFor(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	lib := NewStore(store.DB())
	ctx := context.Background()

	remote, err := store.CreateRemoteFile(ctx, 1, "/photos/sunset.jpg", "id:abc", "hash-1")
	if err != nil {
		t.Fatalf("create remote file: %v", err)
	}

	first, err := lib.Create(ctx, remote.ID, remote.Path)
	if err != nil {
		t.Fatalf("create media file: %v", err)
	}
	second, err := lib.Create(ctx, remote.ID, remote.Path)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same row, got ids %d and %d", first.ID, second.ID)
	}
	if first.DisplayName != "Sunset" {
		t.Fatalf("display name = %q, want %q", first.DisplayName, "Sunset")
	}
}

func TestImageDetailsRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	lib := NewStore(store.DB())
	ctx := context.Background()

	remote, err := store.CreateRemoteFile(ctx, 1, "/photos/hike.jpg", "id:hike", "hash-1")
	if err != nil {
		t.Fatalf("create remote file: %v", err)
	}
	if _, err := lib.Create(ctx, remote.ID, remote.Path); err != nil {
		t.Fatalf("create media file: %v", err)
	}

	captured := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	lat, lon := 46.5, 7.98
	if err := lib.SetImageDetails(ctx, remote.ID, 4032, 3024, false, "#3a7bd5", &captured, &lat, &lon); err != nil {
		t.Fatalf("set image details: %v", err)
	}
	if err := lib.SetAddress(ctx, remote.ID, "Grindelwald, Switzerland"); err != nil {
		t.Fatalf("set address: %v", err)
	}
	if err := lib.SetElevation(ctx, remote.ID, 1034.2); err != nil {
		t.Fatalf("set elevation: %v", err)
	}

	file, err := lib.ByRemoteFileID(ctx, remote.ID)
	if err != nil {
		t.Fatalf("fetch media file: %v", err)
	}
	if file.Width != 4032 || file.Height != 3024 {
		t.Fatalf("dimensions = %dx%d, want 4032x3024", file.Width, file.Height)
	}
	if !file.HasLocation() {
		t.Fatal("expected GPS coordinates")
	}
	if file.CapturedAt == nil || !file.CapturedAt.Equal(captured) {
		t.Fatalf("captured at = %v, want %v", file.CapturedAt, captured)
	}
	if file.Address != "Grindelwald, Switzerland" {
		t.Fatalf("address = %q", file.Address)
	}
	if file.Elevation == nil || *file.Elevation != 1034.2 {
		t.Fatalf("elevation = %v, want 1034.2", file.Elevation)
	}
}

func TestReplaceTagsKeepsOtherSources(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	lib := NewStore(store.DB())
	ctx := context.Background()

	remote, err := store.CreateRemoteFile(ctx, 1, "/photos/garden.jpg", "id:garden", "hash-1")
	if err != nil {
		t.Fatalf("create remote file: %v", err)
	}
	file, err := lib.Create(ctx, remote.ID, remote.Path)
	if err != nil {
		t.Fatalf("create media file: %v", err)
	}

	if err := lib.ReplaceTags(ctx, file.ID, "classify", []Tag{
		{Label: "flower", Confidence: 0.91},
		{Label: "garden", Confidence: 0.74},
	}); err != nil {
		t.Fatalf("replace classify tags: %v", err)
	}
	if err := lib.ReplaceTags(ctx, file.ID, "plant", []Tag{
		{Label: "Rosa rugosa", Confidence: 0.88},
	}); err != nil {
		t.Fatalf("replace plant tags: %v", err)
	}
	if err := lib.ReplaceTags(ctx, file.ID, "classify", []Tag{
		{Label: "rose", Confidence: 0.95},
	}); err != nil {
		t.Fatalf("re-replace classify tags: %v", err)
	}

	tags, err := lib.Tags(ctx, file.ID)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d: %+v", len(tags), tags)
	}
	if tags[0].Label != "rose" || tags[0].Source != "classify" {
		t.Fatalf("unexpected first tag %+v", tags[0])
	}
	if tags[1].Label != "Rosa rugosa" || tags[1].Source != "plant" {
		t.Fatalf("unexpected second tag %+v", tags[1])
	}
}

func TestDeleteRemovesRowAndTags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	lib := NewStore(store.DB())
	ctx := context.Background()

	remote, err := store.CreateRemoteFile(ctx, 1, "/photos/old.jpg", "id:old", "hash-1")
	if err != nil {
		t.Fatalf("create remote file: %v", err)
	}
	file, err := lib.Create(ctx, remote.ID, remote.Path)
	if err != nil {
		t.Fatalf("create media file: %v", err)
	}
	if err := lib.ReplaceTags(ctx, file.ID, "classify", []Tag{{Label: "sky", Confidence: 0.5}}); err != nil {
		t.Fatalf("replace tags: %v", err)
	}

	if err := lib.Delete(ctx, remote.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := lib.ByRemoteFileID(ctx, remote.ID)
	if err != nil {
		t.Fatalf("fetch after delete: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected nil after delete, got %+v", gone)
	}
	if err := lib.Delete(ctx, remote.ID); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}
