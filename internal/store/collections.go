package store

import (
	"errors"
	"fmt"

	"github.com/pentesthub/hubvault/internal/models"
)

// LoadCollections reads the full plaintext corpus from the store.
// Missing keys yield empty lists, not errors: a fresh vault has no
// content yet.
func LoadCollections(s Store) (*models.Collections, error) {
	c := &models.Collections{}

	for _, part := range []struct {
		key string
		out interface{}
	}{
		{KeyWorkspaces, &c.Workspaces},
		{KeySections, &c.Sections},
		{KeyPrompts, &c.Prompts},
		{KeyNotes, &c.Notes},
		{KeySnippets, &c.Snippets},
		{KeyResources, &c.Resources},
	} {
		if err := s.Get(part.key, part.out); err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("load %s: %w", part.key, err)
		}
	}

	return c, nil
}

// SaveCollections replaces the full plaintext corpus in the store.
func SaveCollections(s Store, c *models.Collections) error {
	for _, part := range []struct {
		key   string
		value interface{}
	}{
		{KeyWorkspaces, c.Workspaces},
		{KeySections, c.Sections},
		{KeyPrompts, c.Prompts},
		{KeyNotes, c.Notes},
		{KeySnippets, c.Snippets},
		{KeyResources, c.Resources},
	} {
		if err := s.Put(part.key, part.value); err != nil {
			return fmt.Errorf("save %s: %w", part.key, err)
		}
	}
	return nil
}
