package kvlog_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/kvs/pkg/kvlog"
)

func openTestStore(t *testing.T, path string) *kvlog.Store {
	t.Helper()

	store, err := kvlog.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func Test_Get_Returns_Value_After_Set(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "data.log"))

	err := store.Set("a", "1")
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	value, ok, err := store.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !ok || value != "1" {
		t.Fatalf("get = (%q, %v), want (%q, true)", value, ok, "1")
	}
}

func Test_Get_Reports_Absence_Without_Error(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "data.log"))

	_, ok, err := store.Get("never-written")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if ok {
		t.Fatal("expected absence")
	}
}

func Test_Remove_Fails_With_KeyNotFound_On_Fresh_Store(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "data.log"))

	err := store.Remove("a")
	if !errors.Is(err, kvlog.ErrKeyNotFound) {
		t.Fatalf("remove = %v, want ErrKeyNotFound", err)
	}

	var kErr *kvlog.Error
	if !errors.As(err, &kErr) {
		t.Fatalf("remove error is not *kvlog.Error: %v", err)
	}

	if kErr.Kind != kvlog.KindKeyNotFound {
		t.Fatalf("kind = %v, want KindKeyNotFound", kErr.Kind)
	}

	if kErr.Key != "a" {
		t.Fatalf("key = %q, want %q", kErr.Key, "a")
	}
}

func Test_Remove_Makes_Subsequent_Get_Report_Absence(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "data.log"))

	err := store.Set("a", "1")
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	err = store.Remove("a")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, ok, err := store.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if ok {
		t.Fatal("expected absence after remove")
	}
}

func Test_Reopen_Replays_Writes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.log")

	store, err := kvlog.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	err = store.Set("a", "1")
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	err = store.Set("b", "2")
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	err = store.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)

	value, ok, err := reopened.Get("a")
	if err != nil || !ok || value != "1" {
		t.Fatalf("get a = (%q, %v, %v), want (1, true, nil)", value, ok, err)
	}

	value, ok, err = reopened.Get("b")
	if err != nil || !ok || value != "2" {
		t.Fatalf("get b = (%q, %v, %v), want (2, true, nil)", value, ok, err)
	}
}

func Test_Reopen_Replays_Tombstones(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.log")

	store, err := kvlog.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	err = store.Set("a", "1")
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	err = store.Remove("a")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	err = store.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)

	_, ok, err := reopened.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if ok {
		t.Fatal("expected absence after remove and reopen")
	}
}

func Test_Set_Skips_Append_When_Value_Unchanged(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "data.log"))

	err := store.Set("a", "1")
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	sizeAfterFirst := store.Stats().LogSizeBytes

	err = store.Set("a", "1")
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	if got := store.Stats().LogSizeBytes; got != sizeAfterFirst {
		t.Fatalf("log size = %d after duplicate set, want %d", got, sizeAfterFirst)
	}
}

func Test_Set_Counts_One_Wasteful_Op_Per_Overwrite(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "data.log"))

	err := store.Set("a", "1")
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	if got := store.Stats().WastefulOps; got != 0 {
		t.Fatalf("wasteful ops = %d after fresh insert, want 0", got)
	}

	err = store.Set("a", "2")
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	if got := store.Stats().WastefulOps; got != 1 {
		t.Fatalf("wasteful ops = %d after overwrite, want 1", got)
	}

	value, ok, err := store.Get("a")
	if err != nil || !ok || value != "2" {
		t.Fatalf("get = (%q, %v, %v), want (2, true, nil)", value, ok, err)
	}
}

func Test_Open_Resolves_Directory_To_Data_Log(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store := openTestStore(t, dir)

	err := store.Set("a", "1")
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	if got, want := store.Path(), filepath.Join(dir, kvlog.DefaultLogName); got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}

	_, err = os.Stat(filepath.Join(dir, "data.log"))
	if err != nil {
		t.Fatalf("stat data.log: %v", err)
	}
}

func Test_Get_Stays_Correct_Past_Cache_Capacity(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "data.log"))

	// Well past the default cache bound of 100; evicted entries must
	// still resolve through index + log.
	const keys = 150

	for i := 0; i < keys; i++ {
		err := store.Set(fmt.Sprintf("key-%03d", i), fmt.Sprintf("value-%03d", i))
		if err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}

	for i := 0; i < keys; i++ {
		value, ok, err := store.Get(fmt.Sprintf("key-%03d", i))
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}

		if !ok || value != fmt.Sprintf("value-%03d", i) {
			t.Fatalf("get %d = (%q, %v)", i, value, ok)
		}
	}
}

func Test_Close_Returns_Nil_When_Called_Multiple_Times(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "data.log"))

	err := store.Close()
	if err != nil {
		t.Fatalf("first close: %v", err)
	}

	err = store.Close()
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func Test_Operations_Fail_After_Close(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "data.log"))

	err := store.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	_, _, err = store.Get("a")
	if !errors.Is(err, kvlog.ErrClosed) {
		t.Fatalf("get after close = %v, want ErrClosed", err)
	}

	err = store.Set("a", "1")
	if !errors.Is(err, kvlog.ErrClosed) {
		t.Fatalf("set after close = %v, want ErrClosed", err)
	}

	err = store.Remove("a")
	if !errors.Is(err, kvlog.ErrClosed) {
		t.Fatalf("remove after close = %v, want ErrClosed", err)
	}
}

func Test_LockFile_Rejects_Second_Instance(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.log")

	first, err := kvlog.OpenWithConfig(kvlog.Config{Path: path, LockFile: true})
	if err != nil {
		t.Fatalf("open first: %v", err)
	}

	defer func() { _ = first.Close() }()

	_, err = kvlog.OpenWithConfig(kvlog.Config{Path: path, LockFile: true})
	if !errors.Is(err, kvlog.ErrLocked) {
		t.Fatalf("open second = %v, want ErrLocked", err)
	}

	err = first.Close()
	if err != nil {
		t.Fatalf("close first: %v", err)
	}

	// Lock released; a new instance may own the path again.
	second, err := kvlog.OpenWithConfig(kvlog.Config{Path: path, LockFile: true})
	if err != nil {
		t.Fatalf("open after release: %v", err)
	}

	_ = second.Close()
}

func Test_Open_Rejects_Empty_Path(t *testing.T) {
	t.Parallel()

	_, err := kvlog.Open("")
	if err == nil {
		t.Fatal("expected error for empty path")
	}
}
