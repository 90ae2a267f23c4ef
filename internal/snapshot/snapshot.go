// Package snapshot persists the per-repository map of watched file paths to
// content digests across invocations.
package snapshot

// Snapshot maps repository-relative forward-slash paths to content digests.
// There is exactly one snapshot per repository root; it is shared across
// watch patterns.
type Snapshot map[string]string

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for path, digest := range s {
		out[path] = digest
	}
	return out
}

// Store loads and saves the snapshot for a repository root.
//
// Load never fails the run: a missing, unreadable, or malformed snapshot is
// reported as absent (existed=false), which forces a bootstrap run. Save
// must be atomic with respect to concurrent readers.
type Store interface {
	Load(root string) (snap Snapshot, existed bool)
	Save(root string, snap Snapshot) error
}
