// Package snapshot provides the versioned-snapshot diff service consumed
// by the diff evidence provider: given a snapshot reference, it reports
// every file changed since that snapshot with full before/after content.
package snapshot

import (
	"context"
)

// ChangeKind describes how a file changed relative to the snapshot
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified"
	Deleted  ChangeKind = "deleted"
	Renamed  ChangeKind = "renamed"
)

// FileDiff is one changed file. Before/After hold full content and are
// empty when the side does not exist (Before for added, After for
// deleted). OldPath is set for renames.
type FileDiff struct {
	Path    string     `json:"path"`
	OldPath string     `json:"oldPath,omitempty"`
	Kind    ChangeKind `json:"kind"`
	Before  string     `json:"before,omitempty"`
	After   string     `json:"after,omitempty"`
}

// Service is the diff backend contract. Patch exists primarily as a
// lightweight availability probe.
type Service interface {
	FullDiff(ctx context.Context, base string) ([]FileDiff, error)
	Patch(ctx context.Context, base string) (string, error)
}
