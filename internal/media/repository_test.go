package media

import (
	"context"
	"testing"
	"time"
)

func TestRepository_ThumbnailIndex(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	rows := []*Thumbnail{
		{Fingerprint: "fp", TimestampMs: 0, Width: 160, Path: "/t/0.jpg", Bytes: 100, CreatedAt: old, LastUsedAt: old},
		{Fingerprint: "fp", TimestampMs: 1000, Width: 160, Path: "/t/1000.jpg", Bytes: 250, CreatedAt: old, LastUsedAt: old.Add(time.Minute)},
	}
	for _, r := range rows {
		if err := repo.PutThumbnail(ctx, r); err != nil {
			t.Fatalf("PutThumbnail() error = %v", err)
		}
	}

	got, err := repo.GetThumbnail(ctx, "fp", 1000, 160)
	if err != nil {
		t.Fatalf("GetThumbnail() error = %v", err)
	}
	if got == nil || got.Path != "/t/1000.jpg" {
		t.Fatalf("GetThumbnail() = %+v, want /t/1000.jpg", got)
	}

	missing, err := repo.GetThumbnail(ctx, "fp", 1000, 320)
	if err != nil || missing != nil {
		t.Errorf("GetThumbnail(other width) = %+v, %v; want nil, nil", missing, err)
	}

	total, err := repo.ThumbnailBytes(ctx)
	if err != nil || total != 350 {
		t.Errorf("ThumbnailBytes() = %d, %v; want 350", total, err)
	}

	if err := repo.TouchThumbnail(ctx, "fp", 0, 160); err != nil {
		t.Fatalf("TouchThumbnail() error = %v", err)
	}
	byAge, err := repo.ListThumbnailsByAge(ctx)
	if err != nil {
		t.Fatalf("ListThumbnailsByAge() error = %v", err)
	}
	if len(byAge) != 2 || byAge[0].TimestampMs != 1000 {
		t.Errorf("oldest = %+v, want timestamp 1000 first after touch", byAge[0])
	}

	if err := repo.DeleteThumbnail(ctx, "fp", 1000, 160); err != nil {
		t.Fatalf("DeleteThumbnail() error = %v", err)
	}
	total, _ = repo.ThumbnailBytes(ctx)
	if total != 100 {
		t.Errorf("ThumbnailBytes() after delete = %d, want 100", total)
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	v, err := repo.GetConfig(ctx, "auth_token")
	if err != nil || v != "" {
		t.Errorf("GetConfig(missing) = %q, %v; want empty", v, err)
	}

	if err := repo.SetConfig(ctx, "auth_token", "a"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "b"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	v, _ = repo.GetConfig(ctx, "auth_token")
	if v != "b" {
		t.Errorf("GetConfig() = %q, want b", v)
	}
}
