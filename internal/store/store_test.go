package store

import (
	"context"
	"path/filepath"
	"testing"

	"taskflow/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "views.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetView(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	filter := model.FilterState{
		Status:   model.StatusPending,
		Priority: "high",
		Tag:      "work",
		Sort:     model.SortDueDate,
		Order:    model.OrderAsc,
	}

	saved, err := s.SaveView(ctx, model.SavedView{Name: "urgent-work", Filter: filter})
	if err != nil {
		t.Fatalf("save view: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if saved.Filter != filter {
		t.Fatalf("filter round-trip mismatch: got %+v", saved.Filter)
	}

	got, err := s.GetViewByName(ctx, "urgent-work")
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if got.ID != saved.ID || got.Filter != filter {
		t.Fatalf("unexpected view: %+v", got)
	}
}

func TestSaveViewUpsertsByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.SaveView(ctx, model.SavedView{Name: "daily", Filter: model.DefaultFilter()})
	if err != nil {
		t.Fatalf("save view: %v", err)
	}

	replacement := model.FilterState{Status: model.StatusCompleted, Priority: "all", Sort: model.SortTitle, Order: model.OrderAsc}
	second, err := s.SaveView(ctx, model.SavedView{Name: "daily", Filter: replacement})
	if err != nil {
		t.Fatalf("save view again: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected same row, got ids %d and %d", first.ID, second.ID)
	}
	if second.Filter != replacement {
		t.Fatalf("filter not replaced: %+v", second.Filter)
	}

	views, err := s.ListViews(ctx)
	if err != nil {
		t.Fatalf("list views: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
}

func TestSaveViewUpdateByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveView(ctx, model.SavedView{Name: "old-name", Filter: model.DefaultFilter()})
	if err != nil {
		t.Fatalf("save view: %v", err)
	}

	saved.Name = "new-name"
	updated, err := s.SaveView(ctx, saved)
	if err != nil {
		t.Fatalf("update view: %v", err)
	}
	if updated.Name != "new-name" {
		t.Fatalf("name not updated: %q", updated.Name)
	}

	if _, err := s.GetViewByName(ctx, "old-name"); err == nil {
		t.Fatal("old name should be gone")
	}
}

func TestListViewsOrderedByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zebra", "alpha", "middle"} {
		if _, err := s.SaveView(ctx, model.SavedView{Name: name, Filter: model.DefaultFilter()}); err != nil {
			t.Fatalf("save view %q: %v", name, err)
		}
	}

	views, err := s.ListViews(ctx)
	if err != nil {
		t.Fatalf("list views: %v", err)
	}

	want := []string{"alpha", "middle", "zebra"}
	if len(views) != len(want) {
		t.Fatalf("expected %d views, got %d", len(want), len(views))
	}
	for i, name := range want {
		if views[i].Name != name {
			t.Fatalf("position %d: got %q, want %q", i, views[i].Name, name)
		}
	}
}

func TestDeleteView(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveView(ctx, model.SavedView{Name: "temp", Filter: model.DefaultFilter()})
	if err != nil {
		t.Fatalf("save view: %v", err)
	}

	if err := s.DeleteView(ctx, saved.ID); err != nil {
		t.Fatalf("delete view: %v", err)
	}

	views, err := s.ListViews(ctx)
	if err != nil {
		t.Fatalf("list views: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected no views, got %d", len(views))
	}
}
