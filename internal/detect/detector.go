// Package detect decides whether watched files changed since the previous
// invocation.
//
// The decision composes the git diff (which paths moved at all), the watch
// pattern (which of those are interesting), and the persisted snapshot
// (what their content looked like last time). Only content changes count:
// a file that is in the diff but hashes to its previous digest does not
// trigger.
package detect

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fcamblor/cc-plugins/internal/digest"
	"github.com/fcamblor/cc-plugins/internal/snapshot"
)

// Scanner lists repository-relative paths that differ from the last commit.
type Scanner interface {
	ChangedPaths(ctx context.Context, root string) ([]string, error)
}

// PathMatcher selects candidate paths from the diff.
type PathMatcher interface {
	Matches(relPath string) bool
}

// Decision is the outcome of one evaluation.
type Decision struct {
	// Changed reports whether any candidate's content moved since the
	// previous run. Always false on a bootstrap run.
	Changed bool `json:"changed"`
	// Bootstrap reports that no prior snapshot existed; this run only
	// established the baseline.
	Bootstrap bool `json:"bootstrap"`
	// Candidates are the diff paths that matched the watch pattern.
	Candidates []string `json:"candidates"`
	// ChangedPaths are the candidates whose digest differs from (or was
	// absent from) the prior snapshot. Populated on bootstrap runs too,
	// for reporting, even though Changed stays false.
	ChangedPaths []string `json:"changed_paths"`
	// Tracked is the number of entries in the persisted snapshot after
	// this run.
	Tracked int `json:"tracked"`
}

// Detector wires the scanner and snapshot store into the gate decision.
type Detector struct {
	scanner Scanner
	store   snapshot.Store
}

func New(scanner Scanner, store snapshot.Store) *Detector {
	return &Detector{scanner: scanner, store: store}
}

// Evaluate runs the decision for one invocation and persists the updated
// snapshot unconditionally, so every run refreshes the stored digests.
// Scanner and save failures abort the evaluation; they must never pass for
// "no changes".
func (d *Detector) Evaluate(ctx context.Context, root string, matcher PathMatcher) (Decision, error) {
	decision, next, err := d.evaluate(ctx, root, matcher)
	if err != nil {
		return Decision{}, err
	}

	if err := d.store.Save(root, next); err != nil {
		return Decision{}, fmt.Errorf("persist snapshot: %w", err)
	}

	return decision, nil
}

// Peek runs the same decision without persisting anything. Used by dry-run
// inspection so looking does not consume the pending change.
func (d *Detector) Peek(ctx context.Context, root string, matcher PathMatcher) (Decision, error) {
	decision, _, err := d.evaluate(ctx, root, matcher)
	return decision, err
}

func (d *Detector) evaluate(ctx context.Context, root string, matcher PathMatcher) (Decision, snapshot.Snapshot, error) {
	prior, existed := d.store.Load(root)

	diffPaths, err := d.scanner.ChangedPaths(ctx, root)
	if err != nil {
		return Decision{}, nil, fmt.Errorf("list changed paths: %w", err)
	}

	decision := Decision{Bootstrap: !existed}
	next := prior.Clone()

	for _, rel := range diffPaths {
		if !matcher.Matches(rel) {
			continue
		}
		decision.Candidates = append(decision.Candidates, rel)

		sum, err := digest.File(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			// Deleted, or vanished between the scan and the read: drop it
			// from the snapshot. A disappearance never triggers on its own.
			delete(next, rel)
			continue
		}

		next[rel] = sum
		if old, ok := prior[rel]; !ok || old != sum {
			decision.ChangedPaths = append(decision.ChangedPaths, rel)
		}
	}

	sort.Strings(decision.Candidates)
	sort.Strings(decision.ChangedPaths)
	decision.Changed = existed && len(decision.ChangedPaths) > 0
	decision.Tracked = len(next)

	return decision, next, nil
}
