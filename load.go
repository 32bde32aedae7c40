package taskwise

import (
	"context"
	"log/slog"

	"github.com/taskwise/taskwise/events"
	"github.com/taskwise/taskwise/models"
	"github.com/taskwise/taskwise/store"
)

// loadData populates the in-memory lists from the local store. Legacy
// task records are backfilled on decode. A missing project list seeds the
// defaults and persists them immediately; an unreadable one falls back to
// in-memory defaults without touching the stored document.
func (a *App) loadData(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if data, ok, err := a.local.Load(ctx, store.KeyTasks); err != nil {
		slog.Error("failed to load tasks", "error", err)
	} else if ok {
		tasks, err := models.DecodeTasks(data)
		if err != nil {
			slog.Error("failed to decode stored tasks", "error", err)
		} else {
			a.tasks = tasks
		}
	}

	defaults := models.DefaultProjects()
	models.SortProjects(defaults)

	data, ok, err := a.local.Load(ctx, store.KeyProjects)
	if err != nil {
		// Read failure: run on in-memory defaults but leave the stored
		// document alone; it may come back next start.
		slog.Error("failed to load projects", "error", err)
		a.projects = defaults
		return
	}
	if ok {
		projects, err := models.DecodeProjects(data)
		if err != nil {
			slog.Error("failed to decode stored projects", "error", err)
			a.projects = defaults
			return
		}
		models.SortProjects(projects)
		a.projects = projects
		return
	}

	// First run: seed the default projects and persist them.
	a.projects = defaults
	a.persistProjects(ctx, defaults)
}

// SyncNow runs a full reconciliation against the cloud collections. It
// does nothing when signed out. On success the merged lists become the
// in-memory state; on failure the current state is left untouched and the
// error is returned. There is no automatic retry.
//
// Reconciliation deliberately does not serialize against in-flight
// incremental pushes; a racing push can momentarily re-send a document
// the merge just settled, and the next reconciliation absorbs it.
func (a *App) SyncNow(ctx context.Context) error {
	if a.auth.Current() == nil {
		return nil
	}

	a.syncing.Store(true)
	events.PublishSafe(a.emitter, events.EventSyncStarted)
	defer func() {
		a.syncing.Store(false)
		events.PublishSafe(a.emitter, events.EventSyncFinished)
	}()

	localTasks := a.Tasks()
	localProjects := a.Projects()

	mergedTasks, mergedProjects, err := a.engine.FullSync(ctx, localTasks, localProjects)
	if err != nil {
		slog.Warn("full reconciliation failed", "error", err)
		return err
	}

	models.SortProjects(mergedProjects)

	// A sign-out racing the merge wins: discard the result rather than
	// resurrect account data on a wiped device.
	if a.auth.Current() == nil {
		return nil
	}

	a.mu.Lock()
	a.tasks = mergedTasks
	a.projects = mergedProjects
	a.mu.Unlock()

	events.PublishSafe(a.emitter, events.EventTasksChanged)
	events.PublishSafe(a.emitter, events.EventProjectsChanged)
	return nil
}
