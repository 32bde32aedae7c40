// Package sync reconciles the in-memory task and project lists with the
// local store and the per-user cloud collections.
//
// Two operations exist, both idempotent: a full reconciliation that
// union-merges both sides (cloud wins per identifier) and writes the
// result back everywhere, and an incremental diff-and-push that mirrors a
// single local mutation to the cloud. Incremental pushes are
// fire-and-forget: their failures are logged and the next full
// reconciliation heals whatever they missed. That weak consistency is
// intentional.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/taskwise/taskwise/cloud"
	"github.com/taskwise/taskwise/models"
	"github.com/taskwise/taskwise/store"
)

// Engine orchestrates reconciliation between the local store and the
// cloud collections.
type Engine struct {
	local  *store.Store
	remote cloud.Store
}

// New creates an engine over the given stores.
func New(local *store.Store, remote cloud.Store) *Engine {
	return &Engine{local: local, remote: remote}
}

// FullSync pulls both cloud collections, overlays them on the given local
// lists (a cloud document always replaces the local one with the same id,
// local-only entries are kept, cloud-only entries are appended), pushes
// the merged lists back in one batch per collection, and persists them
// locally. Any pull, decode, or push failure aborts the whole operation
// and returns the input lists untouched. There is no automatic retry.
func (e *Engine) FullSync(ctx context.Context, localTasks []models.Task, localProjects []models.Project) ([]models.Task, []models.Project, error) {
	cloudTasks, err := e.pullTasks(ctx)
	if err != nil {
		return localTasks, localProjects, err
	}
	cloudProjects, err := e.pullProjects(ctx)
	if err != nil {
		return localTasks, localProjects, err
	}

	mergedTasks := unionByID(localTasks, cloudTasks, func(t models.Task) string { return t.ID })
	mergedProjects := unionByID(localProjects, cloudProjects, func(p models.Project) string { return p.ID })

	// Write the union back so documents that existed only locally are now
	// also in the cloud. This heals asymmetric state from lost pushes.
	if err := e.pushTasks(ctx, mergedTasks); err != nil {
		return localTasks, localProjects, err
	}
	if err := e.pushProjects(ctx, mergedProjects); err != nil {
		return localTasks, localProjects, err
	}

	// Local persistence failures leave in-memory state authoritative for
	// the rest of the session; they are logged, never surfaced.
	e.persistLocal(ctx, mergedTasks, mergedProjects)

	return mergedTasks, mergedProjects, nil
}

// PropagateTasks mirrors one local mutation to the cloud: an upsert for
// every new or changed task, a delete for every removed one. Failures are
// logged per document and swallowed; unchanged tasks cause no calls.
func (e *Engine) PropagateTasks(ctx context.Context, old, new []models.Task) {
	oldByID := make(map[string]models.Task, len(old))
	for _, t := range old {
		oldByID[t.ID] = t
	}

	for _, t := range new {
		prev, existed := oldByID[t.ID]
		if existed && sameDoc(prev, t) {
			continue
		}
		doc, err := models.DocumentFromTask(t)
		if err != nil {
			slog.Error("failed to encode task for push", "task_id", t.ID, "error", err)
			continue
		}
		if err := e.remote.Upsert(ctx, cloud.CollectionTasks, t.ID, doc); err != nil {
			slog.Warn("task push failed", "task_id", t.ID, "error", err)
		}
	}

	newIDs := make(map[string]struct{}, len(new))
	for _, t := range new {
		newIDs[t.ID] = struct{}{}
	}
	for _, t := range old {
		if _, kept := newIDs[t.ID]; kept {
			continue
		}
		if err := e.remote.Delete(ctx, cloud.CollectionTasks, t.ID); err != nil {
			slog.Warn("task delete push failed", "task_id", t.ID, "error", err)
		}
	}
}

// PropagateProjects mirrors one local project mutation to the cloud, with
// the same semantics as PropagateTasks.
func (e *Engine) PropagateProjects(ctx context.Context, old, new []models.Project) {
	oldByID := make(map[string]models.Project, len(old))
	for _, p := range old {
		oldByID[p.ID] = p
	}

	for _, p := range new {
		prev, existed := oldByID[p.ID]
		if existed && sameDoc(prev, p) {
			continue
		}
		doc, err := models.DocumentFromProject(p)
		if err != nil {
			slog.Error("failed to encode project for push", "project_id", p.ID, "error", err)
			continue
		}
		if err := e.remote.Upsert(ctx, cloud.CollectionProjects, p.ID, doc); err != nil {
			slog.Warn("project push failed", "project_id", p.ID, "error", err)
		}
	}

	newIDs := make(map[string]struct{}, len(new))
	for _, p := range new {
		newIDs[p.ID] = struct{}{}
	}
	for _, p := range old {
		if _, kept := newIDs[p.ID]; kept {
			continue
		}
		if err := e.remote.Delete(ctx, cloud.CollectionProjects, p.ID); err != nil {
			slog.Warn("project delete push failed", "project_id", p.ID, "error", err)
		}
	}
}

// unionByID merges two lists keyed by identifier. Local order is
// preserved, a remote entry replaces the local entry with the same id in
// place, and remote-only entries are appended in remote order.
func unionByID[T any](local, remote []T, id func(T) string) []T {
	merged := make([]T, 0, len(local)+len(remote))
	index := make(map[string]int, len(local))

	for _, item := range local {
		index[id(item)] = len(merged)
		merged = append(merged, item)
	}
	for _, item := range remote {
		if i, ok := index[id(item)]; ok {
			merged[i] = item
			continue
		}
		index[id(item)] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

// sameDoc reports deep equality of two entities over their serialized
// form. Any field difference, including the derived score or the time
// accumulator, makes them differ.
func sameDoc(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

func (e *Engine) pullTasks(ctx context.Context) ([]models.Task, error) {
	docs, err := e.remote.ListAll(ctx, cloud.CollectionTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to pull tasks: %w", err)
	}
	tasks := make([]models.Task, 0, len(docs))
	for _, doc := range docs {
		task, err := models.TaskFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("malformed remote task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (e *Engine) pullProjects(ctx context.Context) ([]models.Project, error) {
	docs, err := e.remote.ListAll(ctx, cloud.CollectionProjects)
	if err != nil {
		return nil, fmt.Errorf("failed to pull projects: %w", err)
	}
	projects := make([]models.Project, 0, len(docs))
	for _, doc := range docs {
		project, err := models.ProjectFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("malformed remote project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func (e *Engine) pushTasks(ctx context.Context, tasks []models.Task) error {
	docs := make([]cloud.Document, 0, len(tasks))
	for _, t := range tasks {
		doc, err := models.DocumentFromTask(t)
		if err != nil {
			return fmt.Errorf("failed to encode task %s: %w", t.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := e.remote.BatchUpsert(ctx, cloud.CollectionTasks, docs); err != nil {
		return fmt.Errorf("failed to push tasks: %w", err)
	}
	return nil
}

func (e *Engine) pushProjects(ctx context.Context, projects []models.Project) error {
	docs := make([]cloud.Document, 0, len(projects))
	for _, p := range projects {
		doc, err := models.DocumentFromProject(p)
		if err != nil {
			return fmt.Errorf("failed to encode project %s: %w", p.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := e.remote.BatchUpsert(ctx, cloud.CollectionProjects, docs); err != nil {
		return fmt.Errorf("failed to push projects: %w", err)
	}
	return nil
}

// persistLocal writes both merged lists to the local store, logging
// failures instead of returning them.
func (e *Engine) persistLocal(ctx context.Context, tasks []models.Task, projects []models.Project) {
	if e.local == nil {
		return
	}
	if data, err := models.EncodeTasks(tasks); err != nil {
		slog.Error("failed to encode merged tasks", "error", err)
	} else if err := e.local.Save(ctx, store.KeyTasks, data); err != nil {
		slog.Error("failed to persist merged tasks", "error", err)
	}
	if data, err := models.EncodeProjects(projects); err != nil {
		slog.Error("failed to encode merged projects", "error", err)
	} else if err := e.local.Save(ctx, store.KeyProjects, data); err != nil {
		slog.Error("failed to persist merged projects", "error", err)
	}
}
