package credstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "acs"), mr
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	file, err := NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	rs, _ := newRedisTestStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   file,
		"redis":  rs,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get(ctx, KeyVerificationEmail); err != nil || ok {
				t.Fatalf("Get on empty store = ok %v err %v", ok, err)
			}

			if err := store.Set(ctx, KeyVerificationEmail, "a@b.com"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			v, ok, err := store.Get(ctx, KeyVerificationEmail)
			if err != nil || !ok || v != "a@b.com" {
				t.Fatalf("Get = %q %v %v", v, ok, err)
			}

			if err := store.Set(ctx, KeyVerificationEmail, "c@d.com"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if v, _, _ := store.Get(ctx, KeyVerificationEmail); v != "c@d.com" {
				t.Fatalf("overwrite not visible, got %q", v)
			}

			if err := store.Delete(ctx, KeyVerificationEmail); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := store.Delete(ctx, KeyVerificationEmail); err != nil {
				t.Fatalf("Delete of missing key: %v", err)
			}
			if _, ok, _ := store.Get(ctx, KeyVerificationEmail); ok {
				t.Fatal("expected key to be gone")
			}

			if err := store.Set(ctx, "", "x"); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("empty key err = %v, want ErrInvalidKey", err)
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	first, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := first.Set(ctx, KeyVerificationEmail, "a@b.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, err := second.Get(ctx, KeyVerificationEmail)
	if err != nil || !ok || v != "a@b.com" {
		t.Fatalf("after reopen Get = %q %v %v", v, ok, err)
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, _, err := s.Get(context.Background(), KeyVerificationEmail); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr := newRedisTestStore(t)
	mr.Close()

	ctx := context.Background()
	if _, _, err := s.Get(ctx, KeyVerificationEmail); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Get err = %v, want ErrUnavailable", err)
	}
	if err := s.Set(ctx, KeyVerificationEmail, "a@b.com"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Set err = %v, want ErrUnavailable", err)
	}
}

func TestRedisStoreKeyLayoutHasNoTTL(t *testing.T) {
	s, mr := newRedisTestStore(t)
	if err := s.Set(context.Background(), KeyVerificationEmail, "a@b.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := mr.Get("acs:" + KeyVerificationEmail)
	if err != nil || got != "a@b.com" {
		t.Fatalf("raw key = %q err %v", got, err)
	}
	if ttl := mr.TTL("acs:" + KeyVerificationEmail); ttl != 0 {
		t.Fatalf("expected no TTL, got %v", ttl)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, Options{})
	if err != nil {
		t.Fatalf("Open default: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("default backend = %T, want *MemoryStore", s)
	}
	_ = closeFn()

	s, _, err = Open(ctx, Options{Backend: BackendFile, FilePath: filepath.Join(t.TempDir(), "s.json")})
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("file backend = %T, want *FileStore", s)
	}

	mr := miniredis.RunT(t)
	s, closeFn, err = Open(ctx, Options{Backend: BackendRedis, RedisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("Open redis: %v", err)
	}
	if _, ok := s.(*RedisStore); !ok {
		t.Fatalf("redis backend = %T, want *RedisStore", s)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close redis: %v", err)
	}

	if _, _, err := Open(ctx, Options{Backend: "floppy"}); err == nil {
		t.Fatal("expected unknown backend to fail")
	}
	if _, _, err := Open(ctx, Options{Backend: BackendRedis}); err == nil {
		t.Fatal("expected redis without url to fail")
	}
}
