package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemKind identifies a content record type.
type ItemKind string

const (
	KindPrompt   ItemKind = "prompt"
	KindNote     ItemKind = "note"
	KindSnippet  ItemKind = "snippet"
	KindResource ItemKind = "resource"
)

// Item is a single user-authored content record. The encryption and
// sync layers treat items as opaque JSON; no field is special-cased.
type Item struct {
	ID          string    `json:"id"`
	Kind        ItemKind  `json:"kind"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	SectionID   string    `json:"sectionId,omitempty"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	URL         string    `json:"url,omitempty"`
	Language    string    `json:"language,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewItem creates an item with a fresh identifier and timestamps.
func NewItem(kind ItemKind, title string) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the last-modified timestamp.
func (i *Item) Touch() {
	i.UpdatedAt = time.Now().UTC()
}

// Workspace groups sections.
type Workspace struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Section groups items within a workspace.
type Section struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
}

// Collections bundles the full plaintext corpus: every content list
// plus the workspace and section indexes. This is the unit the crypto
// layer encrypts and the sync engine pushes or pulls as a whole.
type Collections struct {
	Workspaces []Workspace `json:"workspaces"`
	Sections   []Section   `json:"sections"`
	Prompts    []Item      `json:"prompts"`
	Notes      []Item      `json:"notes"`
	Snippets   []Item      `json:"snippets"`
	Resources  []Item      `json:"resources"`
}

// ItemCount returns the total number of content records.
func (c *Collections) ItemCount() int {
	return len(c.Prompts) + len(c.Notes) + len(c.Snippets) + len(c.Resources)
}
