package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pentesthub/hubvault/internal/models"
	"github.com/pentesthub/hubvault/internal/remote"
	"github.com/pentesthub/hubvault/internal/store"
)

// RemoteInfo is the result of a metadata-only probe.
type RemoteInfo struct {
	Exists        bool   `json:"exists"`
	RemoteVersion int    `json:"remote_version,omitempty"`
	LastModified  string `json:"last_modified,omitempty"`
}

// AutoLoadResult reports partial success field-by-field; the caller
// decides whether a partially applied batch is acceptable.
type AutoLoadResult struct {
	Success          bool   `json:"success"`
	RemoteVersion    int    `json:"remote_version,omitempty"`
	WorkspacesLoaded bool   `json:"workspaces_loaded"`
	SectionsLoaded   bool   `json:"sections_loaded"`
	ItemsLoaded      int    `json:"items_loaded"`
	ItemsSkipped     int    `json:"items_skipped"`
	Reason           string `json:"reason,omitempty"`
}

// sectionRef is the minimum a section-index entry must carry to
// address its child resource.
type sectionRef struct {
	WorkspaceID string `json:"workspaceId"`
	SectionID   string `json:"id"`
}

// CheckRemoteExists probes remote metadata without decrypting
// anything.
func (e *Engine) CheckRemoteExists(ctx context.Context) (*RemoteInfo, error) {
	locator := e.autoLoadLocator()
	if locator == "" {
		return &RemoteInfo{Exists: false}, nil
	}

	exists, err := e.remote.Probe(ctx, locator, remote.PathMeta)
	if err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeNetwork, Phase: "probe", Locator: locator, Err: err}
	}
	if !exists {
		return &RemoteInfo{Exists: false}, nil
	}

	meta, err := e.readMeta(ctx, locator)
	if err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeNetwork, Phase: "probe", Locator: locator, Err: err}
	}

	return &RemoteInfo{
		Exists:        true,
		RemoteVersion: meta.Version,
		LastModified:  meta.LastModified.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

// AutoLoad follows a published corpus: it fetches the index resources,
// then every referenced per-section item list, decrypting whatever is
// tagged as an envelope with the embedded read-only password. Index
// resources are always applied before children, because children are
// addressed by identifiers the section index carries. A missing remote
// is a silent no-op; malformed children are skipped with a warning,
// and the version counter still advances once the batch is processed.
func (e *Engine) AutoLoad(ctx context.Context) (*AutoLoadResult, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	locator := e.autoLoadLocator()
	if locator == "" {
		return &AutoLoadResult{Success: false, Reason: "no remote configured"}, nil
	}

	// Never overwrite local data when the remote has nothing:
	// offline-first posture, descriptive rather than exceptional.
	meta, err := e.readMeta(ctx, locator)
	if err != nil {
		if errors.Is(err, models.ErrRemoteNotFound) {
			return &AutoLoadResult{Success: false, Reason: "remote has no published data"}, nil
		}
		return nil, &models.SyncError{Code: models.ErrCodeNetwork, Phase: "autoload", Locator: locator, Err: err}
	}

	result := &AutoLoadResult{RemoteVersion: meta.Version}
	mutated := false

	// Indexes first.
	if raw, err := e.fetchResource(ctx, locator, remote.PathWorkspaces); err != nil {
		e.logger.WithError(err).Warn("Skipping workspace index")
	} else {
		if err := e.store.Put(store.KeyWorkspaces, raw); err != nil {
			return nil, &models.SyncError{Code: models.ErrCodeStorage, Phase: "autoload", Locator: locator, Err: err}
		}
		result.WorkspacesLoaded = true
		mutated = true
	}

	var sections []sectionRef
	if raw, err := e.fetchResource(ctx, locator, remote.PathSections); err != nil {
		e.logger.WithError(err).Warn("Skipping section index")
	} else {
		if err := e.store.Put(store.KeySections, raw); err != nil {
			return nil, &models.SyncError{Code: models.ErrCodeStorage, Phase: "autoload", Locator: locator, Err: err}
		}
		result.SectionsLoaded = true
		mutated = true

		if err := json.Unmarshal(raw, &sections); err != nil {
			e.logger.WithError(err).Warn("Section index is not a list; skipping children")
			sections = nil
		}
	}

	// Children, addressed by the identifiers the index carries. A bad
	// child is skipped, never fatal: partial content is still useful.
	for _, ref := range sections {
		path := remote.SectionItemsPath(ref.WorkspaceID, ref.SectionID)
		raw, err := e.fetchResource(ctx, locator, path)
		if err != nil {
			result.ItemsSkipped++
			e.logger.WithFields(map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			}).Warn("Skipping section items")
			continue
		}
		if err := e.store.Put(store.SectionItemsKey(ref.WorkspaceID, ref.SectionID), raw); err != nil {
			return nil, &models.SyncError{Code: models.ErrCodeStorage, Phase: "autoload", Locator: locator, Err: err}
		}
		result.ItemsLoaded++
		mutated = true
	}

	// The batch is processed; only now does the version advance.
	state := e.loadState()
	state.Locator = locator
	state.Confirm(meta.Version)
	if err := e.saveState(state); err != nil {
		return nil, err
	}

	if mutated {
		e.notifyChange()
	}

	result.Success = true

	e.logger.WithFields(map[string]interface{}{
		"version":       meta.Version,
		"items_loaded":  result.ItemsLoaded,
		"items_skipped": result.ItemsSkipped,
	}).Info("Auto-load complete")

	return result, nil
}

// fetchResource reads one resource and resolves it to plaintext JSON,
// decrypting tagged envelopes with the embedded read-only password.
func (e *Engine) fetchResource(ctx context.Context, locator, path string) (json.RawMessage, error) {
	res, err := e.remote.Read(ctx, locator, path)
	if err != nil {
		return nil, err
	}

	payload, err := remote.DetectPayload(res.Content)
	if err != nil {
		return nil, fmt.Errorf("detect payload: %w", err)
	}

	if payload.Kind == remote.PayloadPlain {
		return payload.Plain, nil
	}

	plaintext, err := e.crypto.Decrypt(payload.Envelope, e.readOnlyPassword)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

func (e *Engine) autoLoadLocator() string {
	if state := e.loadState(); state.Locator != "" {
		return state.Locator
	}
	return e.defaultLocator
}
