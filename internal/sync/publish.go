package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pentesthub/hubvault/internal/models"
	"github.com/pentesthub/hubvault/internal/remote"
	"github.com/pentesthub/hubvault/internal/store"
)

// PublishResult reports a completed publish.
type PublishResult struct {
	Locator        string `json:"locator"`
	Version        int    `json:"version"`
	ItemsPublished int    `json:"items_published"`
}

// Publish writes the corpus in the layout AutoLoad consumes: workspace
// and section indexes plus one item list per section, each sealed
// under the read-only password when one is configured, plaintext
// otherwise. Metadata goes last so a reader never observes a version
// that points at half-written resources.
func (e *Engine) Publish(ctx context.Context) (*PublishResult, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	collections, err := store.LoadCollections(e.store)
	if err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeStorage, Phase: "collect", Err: err}
	}

	state := e.loadState()
	locator := state.Locator
	if locator == "" {
		locator, err = e.remote.Create(ctx, "hubvault")
		if err != nil {
			return nil, &models.SyncError{Code: models.ErrCodeNetwork, Phase: "create", Err: err}
		}
	}

	if err := e.writeResource(ctx, locator, remote.PathWorkspaces, collections.Workspaces); err != nil {
		return nil, err
	}
	if err := e.writeResource(ctx, locator, remote.PathSections, collections.Sections); err != nil {
		return nil, err
	}

	published := 0
	for _, section := range collections.Sections {
		items := itemsForSection(collections, section.WorkspaceID, section.ID)
		path := remote.SectionItemsPath(section.WorkspaceID, section.ID)
		if err := e.writeResource(ctx, locator, path, items); err != nil {
			return nil, err
		}
		published += len(items)
	}

	version := state.LocalVersion + 1
	meta, err := json.Marshal(models.RemoteMeta{
		Version:      version,
		LastModified: time.Now().UTC(),
	})
	if err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeState, Phase: "publish", Locator: locator, Err: err}
	}
	if _, err := e.remote.Write(ctx, locator, remote.PathMeta, meta, ""); err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeNetwork, Phase: "publish", Locator: locator, Err: err}
	}

	state.Locator = locator
	state.Confirm(version)
	if err := e.saveState(state); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"locator": locator,
		"version": version,
		"items":   published,
	}).Info("Publish complete")

	return &PublishResult{Locator: locator, Version: version, ItemsPublished: published}, nil
}

// writeResource seals value under the read-only password when one is
// configured, otherwise writes plaintext JSON.
func (e *Engine) writeResource(ctx context.Context, locator, path string, value interface{}) error {
	var content []byte
	var err error

	if e.readOnlyPassword != "" {
		envelope, encErr := e.crypto.Encrypt(value, e.readOnlyPassword)
		if encErr != nil {
			return &models.SyncError{Code: models.ErrCodeCrypto, Phase: "publish", Locator: locator, Err: encErr}
		}
		content, err = json.Marshal(envelope)
	} else {
		content, err = json.Marshal(value)
	}
	if err != nil {
		return &models.SyncError{Code: models.ErrCodeCrypto, Phase: "publish", Locator: locator, Err: err}
	}

	if _, err := e.remote.Write(ctx, locator, path, content, ""); err != nil {
		return &models.SyncError{Code: models.ErrCodeNetwork, Phase: "publish", Locator: locator, Err: err}
	}
	return nil
}

func itemsForSection(c *models.Collections, workspaceID, sectionID string) []models.Item {
	items := make([]models.Item, 0)
	for _, list := range [][]models.Item{c.Prompts, c.Notes, c.Snippets, c.Resources} {
		for _, item := range list {
			if item.WorkspaceID == workspaceID && item.SectionID == sectionID {
				items = append(items, item)
			}
		}
	}
	return items
}
