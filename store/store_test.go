package store

import (
	"bytes"
	"context"
	"testing"
)

// setupTestStore opens a store backed by an in-memory database
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoad_AbsentKey(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)

	_, ok, err := s.Load(context.Background(), KeyTasks)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Error("expected absent key, got a document")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	doc := []byte(`[{"id":"t1","text":"Buy milk","completed":false}]`)
	if err := s.Save(ctx, KeyTasks, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, ok, err := s.Load(ctx, KeyTasks)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("expected document, got absent")
	}
	if !bytes.Equal(got, doc) {
		t.Errorf("Load = %s, want %s", got, doc)
	}
}

func TestSave_OverwritesWholesale(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, KeyProjects, []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second := []byte(`[{"id":"2"},{"id":"3"}]`)
	if err := s.Save(ctx, KeyProjects, second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, ok, err := s.Load(ctx, KeyProjects)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("expected document, got absent")
	}
	if !bytes.Equal(got, second) {
		t.Errorf("Load = %s, want %s", got, second)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, KeySession, []byte("token")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Delete(ctx, KeySession); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, ok, err := s.Load(ctx, KeySession)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Error("expected key to be gone after Delete")
	}

	// Deleting an absent key is a no-op
	if err := s.Delete(ctx, KeySession); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, KeyTasks, []byte("tasks-doc")); err != nil {
		t.Fatalf("Save tasks failed: %v", err)
	}
	if err := s.Save(ctx, KeyProjects, []byte("projects-doc")); err != nil {
		t.Fatalf("Save projects failed: %v", err)
	}

	got, _, err := s.Load(ctx, KeyTasks)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != "tasks-doc" {
		t.Errorf("tasks key = %s, want tasks-doc", got)
	}
}
