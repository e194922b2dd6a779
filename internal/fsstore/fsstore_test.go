package fsstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func TestBuildLockPath(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), ".fslocks")
	got, err := BuildLockPath(root, "state.users")
	if err != nil {
		t.Fatalf("BuildLockPath() error = %v", err)
	}
	want := filepath.Join(root, "state.users.lck")
	if got != want {
		t.Fatalf("BuildLockPath() = %q, want %q", got, want)
	}
}

func TestBuildLockPathInvalidKey(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), ".fslocks")
	invalid := []string{
		"",
		"State.users",
		"state/users",
		".state.users",
		"state.users.",
		"state users",
	}
	for _, key := range invalid {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			_, err := BuildLockPath(root, key)
			if err == nil {
				t.Fatalf("BuildLockPath(%q) expected error", key)
			}
			if !errors.Is(err, ErrInvalidPath) {
				t.Fatalf("BuildLockPath(%q) error = %v, want ErrInvalidPath", key, err)
			}
		})
	}
}

func TestReadWriteJSONAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "users.json")
	type payload struct {
		Name string `json:"name"`
	}
	in := payload{Name: "alpha"}
	if err := WriteJSONAtomic(path, in, FileOptions{}); err != nil {
		t.Fatalf("WriteJSONAtomic() error = %v", err)
	}
	var out payload
	ok, err := ReadJSON(path, &out)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if !ok {
		t.Fatalf("ReadJSON() exists = false, want true")
	}
	if out.Name != in.Name {
		t.Fatalf("ReadJSON() value = %+v, want %+v", out, in)
	}
}

func TestReadJSONMissingFile(t *testing.T) {
	t.Parallel()

	var out map[string]any
	ok, err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &out)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if ok {
		t.Fatalf("ReadJSON() exists = true, want false")
	}
}

func TestReadWriteTextAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "export.txt")
	in := "hello\nworld\n"
	if err := WriteTextAtomic(path, in, FileOptions{}); err != nil {
		t.Fatalf("WriteTextAtomic() error = %v", err)
	}
	got, ok, err := ReadText(path)
	if err != nil {
		t.Fatalf("ReadText() error = %v", err)
	}
	if !ok {
		t.Fatalf("ReadText() exists = false, want true")
	}
	if got != in {
		t.Fatalf("ReadText() = %q, want %q", got, in)
	}
}

func TestWithLockSerializes(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), ".fslocks", "state.users.lck")
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(context.Background(), lockPath, func() error {
				counter++
				return nil
			})
			if err != nil {
				t.Errorf("WithLock() error = %v", err)
			}
		}()
	}
	wg.Wait()
	if counter != 8 {
		t.Fatalf("counter = %d, want 8", counter)
	}
}
