// Package remote abstracts the remote blob store. The sync engine only
// ever sees these three operations plus resource creation; whether a
// locator/path pair maps to a Gist file, a repository path, or an S3
// object is a backend detail.
package remote

import "context"

// Resource is a remote blob plus its revision tag.
type Resource struct {
	Content     []byte
	RevisionTag string
}

// Store is the remote blob store boundary.
type Store interface {
	// Read fetches a resource. Absent resources surface
	// models.ErrRemoteNotFound.
	Read(ctx context.Context, locator, path string) (*Resource, error)

	// Write stores content and returns the new revision tag. When
	// expectedRevision is non-empty the write is conditional: a
	// changed remote surfaces models.ErrRemoteConflict and the caller
	// decides whether to retry with a fresh read.
	Write(ctx context.Context, locator, path string, content []byte, expectedRevision string) (string, error)

	// Probe checks existence without fetching content.
	Probe(ctx context.Context, locator, path string) (bool, error)

	// Create provisions a new remote container and returns its
	// locator. Backends with a fixed container return it unchanged.
	Create(ctx context.Context, name string) (string, error)
}

// Well-known resource paths within a locator.
const (
	PathMeta       = "meta.json"
	PathArchive    = "archive.json"
	PathWorkspaces = "workspaces.json"
	PathSections   = "sections.json"
)

// SectionItemsPath derives the child resource path for a
// (workspace, section) pair. Deterministic so every client addresses
// the same resource.
func SectionItemsPath(workspaceID, sectionID string) string {
	return "items/" + workspaceID + "-" + sectionID + ".json"
}
