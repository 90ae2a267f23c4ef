package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreMissingState(t *testing.T) {
	t.Parallel()

	snap, existed := NewFileStore().Load(t.TempDir())
	if existed {
		t.Fatalf("expected existed=false for missing state")
	}
	if len(snap) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewFileStore()
	in := Snapshot{
		"src/a.txt":     "aaaa",
		"src/sub/b.txt": "bbbb",
	}

	if err := store.Save(root, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, existed := store.Load(root)
	if !existed {
		t.Fatalf("expected existed=true after save")
	}
	if len(out) != len(in) {
		t.Fatalf("round trip mismatch: %v vs %v", out, in)
	}
	for path, digest := range in {
		if out[path] != digest {
			t.Fatalf("digest mismatch for %s: %q vs %q", path, out[path], digest)
		}
	}
}

func TestFileStoreEmptySnapshotStillExists(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewFileStore()
	if err := store.Save(root, Snapshot{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, existed := store.Load(root)
	if !existed {
		t.Fatalf("an empty persisted snapshot is still an established baseline")
	}
}

func TestFileStoreMalformedStateTreatedAsAbsent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{name: "garbage", content: "{not json"},
		{name: "wrong shape", content: `{"files": "nope"}`},
		{name: "missing files key", content: `{"other": {}}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			if err := os.MkdirAll(StateDir(root), 0o755); err != nil {
				t.Fatalf("mkdir state dir: %v", err)
			}
			if err := os.WriteFile(StatePath(root), []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write state: %v", err)
			}

			snap, existed := NewFileStore().Load(root)
			if existed {
				t.Fatalf("malformed state must load as absent")
			}
			if len(snap) != 0 {
				t.Fatalf("expected empty snapshot, got %v", snap)
			}
		})
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewFileStore()
	if err := store.Save(root, Snapshot{"a.txt": "one"}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(root, Snapshot{"b.txt": "two"}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	out, existed := store.Load(root)
	if !existed {
		t.Fatalf("expected existed=true")
	}
	if _, ok := out["a.txt"]; ok {
		t.Fatalf("overwritten snapshot must not keep stale entries")
	}
	if out["b.txt"] != "two" {
		t.Fatalf("unexpected snapshot: %v", out)
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewFileStore()
	if err := store.Save(root, Snapshot{"a.txt": "one"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(StateDir(root))
	if err != nil {
		t.Fatalf("read state dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestFileStoreSaveFailsOnUnwritableTarget(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	// Occupy the state dir path with a regular file so MkdirAll fails.
	if err := os.WriteFile(filepath.Join(root, stateDirName), []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	if err := NewFileStore().Save(root, Snapshot{"a.txt": "one"}); err == nil {
		t.Fatalf("expected save error when state dir cannot be created")
	}
}

func TestSnapshotClone(t *testing.T) {
	t.Parallel()

	original := Snapshot{"a.txt": "one"}
	clone := original.Clone()
	clone["a.txt"] = "changed"
	clone["b.txt"] = "new"

	if original["a.txt"] != "one" {
		t.Fatalf("clone mutated the original")
	}
	if _, ok := original["b.txt"]; ok {
		t.Fatalf("clone additions leaked into the original")
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, existed := store.Load("/repo"); existed {
		t.Fatalf("expected absent snapshot")
	}

	if err := store.Save("/repo", Snapshot{"a.txt": "one"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, existed := store.Load("/repo")
	if !existed || snap["a.txt"] != "one" {
		t.Fatalf("unexpected load result: %v existed=%v", snap, existed)
	}

	// Stored snapshot must be isolated from later caller mutations.
	snap["a.txt"] = "mutated"
	again, _ := store.Load("/repo")
	if again["a.txt"] != "one" {
		t.Fatalf("memory store leaked internal state")
	}

	wantErr := errors.New("disk full")
	store.FailSaves(wantErr)
	if err := store.Save("/repo", Snapshot{}); !errors.Is(err, wantErr) {
		t.Fatalf("expected injected save error, got %v", err)
	}
}
