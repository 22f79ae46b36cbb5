// Package testutil provides shared helpers for integration and
// benchmark tests: an in-memory remote server, corpus fixtures, and
// client construction shortcuts.
package testutil

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pentesthub/hubvault/internal/client"
	"github.com/pentesthub/hubvault/internal/config"
	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/models"
	"github.com/pentesthub/hubvault/internal/store"
)

// TestCorpus builds a small but structurally complete corpus: one
// workspace, two sections, and items of every kind.
func TestCorpus() *models.Collections {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	item := func(id string, kind models.ItemKind, section, title string) models.Item {
		return models.Item{
			ID:          id,
			Kind:        kind,
			WorkspaceID: "ws-recon",
			SectionID:   section,
			Title:       title,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	return &models.Collections{
		Workspaces: []models.Workspace{
			{ID: "ws-recon", Name: "Recon", Position: 0},
		},
		Sections: []models.Section{
			{ID: "sec-notes", WorkspaceID: "ws-recon", Name: "Notes", Position: 0},
			{ID: "sec-tools", WorkspaceID: "ws-recon", Name: "Tools", Position: 1},
		},
		Prompts: []models.Item{
			item("p1", models.KindPrompt, "sec-notes", "Privilege escalation checklist"),
		},
		Notes: []models.Item{
			item("n1", models.KindNote, "sec-notes", "nmap full scan output"),
		},
		Snippets: []models.Item{
			item("s1", models.KindSnippet, "sec-tools", "bash reverse shell"),
		},
		Resources: []models.Item{
			item("r1", models.KindResource, "sec-tools", "GTFOBins"),
		},
	}
}

// LargeCorpus builds a corpus with n notes, for benchmarks.
func LargeCorpus(n int) *models.Collections {
	c := TestCorpus()
	for i := 0; i < n; i++ {
		note := models.NewItem(models.KindNote, "generated note")
		note.WorkspaceID = "ws-recon"
		note.SectionID = "sec-notes"
		note.Body = "Lorem ipsum dolor sit amet, consectetur adipiscing elit."
		c.Notes = append(c.Notes, *note)
	}
	return c
}

// TestConfig returns a config wired to the given remote URL with local
// storage in a temp directory.
func TestConfig(t *testing.T, remoteURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Remote.BaseURL = remoteURL
	cfg.Remote.Timeout = 5 * time.Second
	cfg.Remote.MaxRetries = 0
	return cfg
}

// NewTestClient constructs a client against the given config and
// registers cleanup.
func NewTestClient(t *testing.T, cfg *config.Config) *client.Client {
	t.Helper()
	logger := events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
	c, err := client.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// SeedClient stores the corpus in the client's local store.
func SeedClient(t *testing.T, c *client.Client, corpus *models.Collections) {
	t.Helper()
	require.NoError(t, store.SaveCollections(c.Store, corpus))
}
