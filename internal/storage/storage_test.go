package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Set(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := kv.Get(ctx, "k")
	if err != nil || string(got) != "two" {
		t.Fatalf("expected two, got %q (err=%v)", got, err)
	}
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("deleting a missing key should succeed: %v", err)
	}
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemory())
}

func TestMemoryKVCopiesValues(t *testing.T) {
	m := NewMemory()
	buf := []byte("abc")
	_ = m.Set(context.Background(), "k", buf)
	buf[0] = 'x'
	got, _ := m.Get(context.Background(), "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
}

func TestSQLiteKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wealth.db")
	kv, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer kv.Close()
	exerciseKV(t, kv)
	if err := kv.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSQLiteKVPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wealth.db")
	kv, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := kv.Set(context.Background(), "records", []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	kv.Close()

	again, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	got, err := again.Get(context.Background(), "records")
	if err != nil || string(got) != "[]" {
		t.Fatalf("expected persisted value, got %q (err=%v)", got, err)
	}
}

func TestOpenBackends(t *testing.T) {
	if kv, err := Open(BackendMemory, ""); err != nil {
		t.Fatalf("memory: %v", err)
	} else {
		kv.Close()
	}
	if _, err := Open("redis", ""); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
