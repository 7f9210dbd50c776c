package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	file, err := s.Put(ctx, "employees.csv", []byte("id,name\n1,Ada\n"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if file.ID == "" {
		t.Fatal("expected generated id")
	}
	if file.Name != "employees.csv" || file.Size != 15 {
		t.Errorf("file record: %+v", file)
	}

	content, err := s.Get(ctx, file.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(content) != "id,name\n1,Ada\n" {
		t.Errorf("content: %q", content)
	}
}

func TestMemoryStoreListOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a, _ := s.Put(ctx, "a.csv", []byte("x"))
	b, _ := s.Put(ctx, "b.csv", []byte("y"))

	files, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 || files[0].ID != a.ID || files[1].ID != b.ID {
		t.Errorf("list order: %+v", files)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	file, _ := s.Put(ctx, "a.csv", []byte("x"))
	if err := s.Delete(ctx, file.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, file.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, file.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete should be ErrNotFound, got %v", err)
	}

	files, _ := s.List(ctx)
	if len(files) != 0 {
		t.Errorf("list after delete: %+v", files)
	}
}

func TestMemoryStoreStat(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	file, _ := s.Put(ctx, "a.csv", []byte("id\n1\n"))
	stat, err := s.Stat(ctx, file.ID)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if stat.Name != "a.csv" || stat.Size != 5 {
		t.Errorf("stat record: %+v", stat)
	}
	if _, err := s.Stat(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreCopiesContent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("id\n1\n")
	file, _ := s.Put(ctx, "a.csv", buf)
	buf[0] = 'X'

	content, err := s.Get(ctx, file.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(content) != "id\n1\n" {
		t.Errorf("stored content aliased caller buffer: %q", content)
	}
}
