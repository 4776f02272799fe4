//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-chat-server/internal/pipeline"
)

func testSession() *Session {
	s := New()
	s.Messages = []pipeline.Message{
		{Role: "user", Content: "What is logical replication?"},
		{Role: "assistant", Content: "Logical replication streams row changes."},
	}
	s.LastDocuments = []pipeline.Document{
		{ID: "doc-1", Source: "replication.md", Content: "Logical replication...", Score: 0.9},
	}
	return s
}

func TestNew_AssignsUniqueIDs(t *testing.T) {
	a := New()
	b := New()

	if a.ID == "" || b.ID == "" {
		t.Fatal("expected non-empty session IDs")
	}
	if a.ID == b.ID {
		t.Errorf("expected unique IDs, both were %q", a.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	s := testSession()
	if err := store.Put(ctx, s); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("expected ID %q, got %q", s.ID, got.ID)
	}
	if len(got.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(got.Messages))
	}
	if len(got.LastDocuments) != 1 {
		t.Errorf("expected 1 document, got %d", len(got.LastDocuments))
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore(time.Minute)

	_, err := store.Get(context.Background(), "7b0f7a46-954c-4a38-a31c-581575eef1c7")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CopiesOnPutAndGet(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	s := testSession()
	if err := store.Put(ctx, s); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Mutating the caller's copy after Put must not touch the store.
	s.Messages[0].Content = "mutated"

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Messages[0].Content != "What is logical replication?" {
		t.Errorf("stored session aliased caller's slice: %q", got.Messages[0].Content)
	}

	// Mutating the Get result must not touch the store either.
	got.Messages[0].Content = "mutated again"
	again, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if again.Messages[0].Content != "What is logical replication?" {
		t.Errorf("Get result aliased stored slice: %q", again.Messages[0].Content)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(20 * time.Millisecond)
	ctx := context.Background()

	s := testSession()
	if err := store.Put(ctx, s); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, err := store.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expired session to be gone, got %v", err)
	}
}

func TestMemoryStore_DeleteAndList(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	a := testSession()
	b := testSession()
	for _, s := range []*Session{a, b} {
		if err := store.Put(ctx, s); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(ids))
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected deleted session to be gone, got %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 session after delete, got %d", store.Count())
	}
}

func TestFileStore_PutGet(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()

	s := testSession()
	if err := store.Put(ctx, s); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("expected ID %q, got %q", s.ID, got.ID)
	}
	if len(got.Messages) != 2 || got.Messages[1].Role != "assistant" {
		t.Errorf("messages did not round-trip: %+v", got.Messages)
	}
	if len(got.LastDocuments) != 1 || got.LastDocuments[0].Score != 0.9 {
		t.Errorf("documents did not round-trip: %+v", got.LastDocuments)
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	_, err = store.Get(context.Background(), "7b0f7a46-954c-4a38-a31c-581575eef1c7")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_RejectsHostileIDs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	for _, id := range []string{"../escape", "..", "not-a-uuid", ""} {
		if _, err := store.Get(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestFileStore_DeleteIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()

	s := testSession()
	if err := store.Put(ctx, s); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, s.ID); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()

	s := testSession()
	if err := store.Put(ctx, s); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Stray files in the directory must not show up as sessions.
	junk := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(junk, []byte("junk"), 0o644); err != nil {
		t.Fatalf("failed to write junk file: %v", err)
	}
	bad := filepath.Join(dir, "not-a-uuid.json")
	if err := os.WriteFile(bad, []byte("{}"), 0o644); err != nil {
		t.Fatalf("failed to write bad file: %v", err)
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != s.ID {
		t.Errorf("expected only %q, got %v", s.ID, ids)
	}
}
