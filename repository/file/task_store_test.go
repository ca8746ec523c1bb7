package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fastygo/taskscan/domain"
)

func newTestStore(t *testing.T) (*TaskStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	store, err := NewTaskStore(path, nil)
	if err != nil {
		t.Fatalf("NewTaskStore: %v", err)
	}
	return store, path
}

func TestLoadMissingFileReturnsEmptyList(t *testing.T) {
	store, _ := newTestStore(t)
	list, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list.Today) != 0 || len(list.Longterm) != 0 {
		t.Errorf("expected empty buckets, got %d/%d", len(list.Today), len(list.Longterm))
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	store, path := newTestStore(t)
	list := domain.NewTaskList()
	list.Append(domain.BucketToday, domain.Task{ID: "a1", Text: "Send the deck", Priority: domain.PriorityHigh})
	list.Append(domain.BucketLongterm, domain.Task{ID: "b2", Text: "Plan offsite", Priority: domain.PriorityMedium, Due: domain.NewDue("2030-01-15")})

	if err := store.Save(context.Background(), list); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// The tmp file must not survive a successful save.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("tmp file left behind after save")
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Today) != 1 || got.Today[0].Text != "Send the deck" {
		t.Errorf("today bucket mismatch: %+v", got.Today)
	}
	if len(got.Longterm) != 1 || got.Longterm[0].DueValue() != "2030-01-15" {
		t.Errorf("longterm bucket mismatch: %+v", got.Longterm)
	}
}

func TestSaveWritesPrettyPrintedSchema(t *testing.T) {
	store, path := newTestStore(t)
	if err := store.Save(context.Background(), domain.NewTaskList()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("stored file is not valid JSON: %v", err)
	}
	for _, key := range []string{"today", "longterm"} {
		if string(decoded[key]) != "[]" {
			t.Errorf("bucket %q = %s, want []", key, decoded[key])
		}
	}
}

func TestLoadCorruptWithoutBackupStartsEmpty(t *testing.T) {
	store, path := newTestStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list.Today) != 0 {
		t.Errorf("expected empty recovery list")
	}
	// Corrupt content must be preserved under the side name.
	raw, err := os.ReadFile(path + ".corrupt")
	if err != nil {
		t.Fatalf("corrupt backup missing: %v", err)
	}
	if string(raw) != "{not json" {
		t.Errorf("corrupt backup content mangled: %q", raw)
	}
}

func TestLoadCorruptRecoversFromValidBackup(t *testing.T) {
	store, path := newTestStore(t)
	good := domain.NewTaskList()
	good.Append(domain.BucketToday, domain.Task{ID: "x", Text: "Review pricing proposal"})
	payload, _ := json.MarshalIndent(good, "", "  ")
	if err := os.WriteFile(path+".corrupt", payload, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list.Today) != 1 || list.Today[0].Text != "Review pricing proposal" {
		t.Fatalf("recovery from backup failed: %+v", list)
	}
	// The main file must have been restored from the backup.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("restored main file missing: %v", err)
	}
	var restored domain.TaskList
	if err := json.Unmarshal(raw, &restored); err != nil || len(restored.Today) != 1 {
		t.Errorf("restored main file invalid: %v %+v", err, restored)
	}
}

func TestLoadBackupAlsoCorruptFallsBackToEmpty(t *testing.T) {
	store, path := newTestStore(t)
	if err := os.WriteFile(path+".corrupt", []byte("also broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	list, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list.Today) != 0 || len(list.Longterm) != 0 {
		t.Errorf("expected empty list, got %+v", list)
	}
}
