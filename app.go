// Package taskwise is the data core of the TaskWise task manager: an
// in-memory task and project list backed by a local document store, with
// optional cloud sync for signed-in users.
//
// App is the single source of truth shared by the UI layer. All
// mutations go through its entry points; screens observe changes through
// Subscribe and re-read the lists. Local edits always succeed — cloud
// propagation is asynchronous and never blocks or rolls back an edit.
package taskwise

import (
	"context"
	"log/slog"
	"strings"
	gosync "sync"
	"sync/atomic"

	"github.com/taskwise/taskwise/auth"
	"github.com/taskwise/taskwise/cloud"
	"github.com/taskwise/taskwise/config"
	"github.com/taskwise/taskwise/events"
	"github.com/taskwise/taskwise/logging"
	"github.com/taskwise/taskwise/models"
	"github.com/taskwise/taskwise/priority"
	"github.com/taskwise/taskwise/store"
	"github.com/taskwise/taskwise/sync"
)

// App holds the in-memory task and project lists and wires together the
// local store, the cloud store, auth, and the sync engine.
type App struct {
	config  *config.Config
	local   *store.Store
	engine  *sync.Engine
	auth    *auth.Service
	emitter events.Publisher

	mu       gosync.Mutex
	tasks    []models.Task
	projects []models.Project

	syncing atomic.Bool

	unsubscribeAuth func()
}

// New creates the application container, loads persisted state, and
// restores a previous session if one was saved. A restored or newly
// signed-in session triggers a full reconciliation in the background.
func New(ctx context.Context, opts ...Option) (*App, error) {
	options := applyOptions(opts)

	cfg := options.config
	if cfg == nil {
		// Default boot path: on-disk config plus file logging. Hosts that
		// inject a config own their logging setup.
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
		err = logging.Init(logging.Options{
			Path:  cfg.Log.File,
			Level: logging.ParseLevel(cfg.Log.Level),
		})
		if err != nil {
			slog.Warn("file logging unavailable", "error", err)
		}
	}

	local := options.local
	if local == nil {
		opened, err := store.Open(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		local = opened
	}

	users := options.users
	remote := options.remote
	if remote == nil && cfg.Cloud.Enabled() {
		client, err := cloud.Connect(ctx, cfg.Cloud.ProjectID, cfg.Cloud.CredentialsFile)
		if err != nil {
			return nil, err
		}
		if users == nil {
			users = auth.NewFirestoreUsers(client)
		}
		authSvc := auth.NewService(users, cfg.Auth)
		remote = cloud.NewFirestoreStore(client, authSvc)
		return newApp(ctx, cfg, local, remote, authSvc, options.emitter), nil
	}

	authSvc := auth.NewService(users, cfg.Auth)
	if remote == nil {
		// No cloud configured: a nil-client store no-ops every call and
		// the app runs local-only.
		remote = cloud.NewFirestoreStore(nil, authSvc)
	}
	return newApp(ctx, cfg, local, remote, authSvc, options.emitter), nil
}

func newApp(ctx context.Context, cfg *config.Config, local *store.Store, remote cloud.Store, authSvc *auth.Service, emitter events.Publisher) *App {
	a := &App{
		config:  cfg,
		local:   local,
		engine:  sync.New(local, remote),
		auth:    authSvc,
		emitter: emitter,
	}

	a.loadData(ctx)

	a.unsubscribeAuth = authSvc.Subscribe(func(session *auth.Session) {
		a.onSessionChanged(session)
	})
	a.restoreSession(ctx)

	return a
}

// Close releases the app's resources. Pending fire-and-forget pushes are
// abandoned; the next full reconciliation heals them.
func (a *App) Close() error {
	if a.unsubscribeAuth != nil {
		a.unsubscribeAuth()
	}
	return a.local.Close()
}

// Tasks returns a copy of the current task list.
func (a *App) Tasks() []models.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	tasks := make([]models.Task, len(a.tasks))
	copy(tasks, a.tasks)
	return tasks
}

// Projects returns a copy of the current project list, name-ascending.
func (a *App) Projects() []models.Project {
	a.mu.Lock()
	defer a.mu.Unlock()
	projects := make([]models.Project, len(a.projects))
	copy(projects, a.projects)
	return projects
}

// Session returns the active session, or nil when signed out.
func (a *App) Session() *auth.Session {
	return a.auth.Current()
}

// Syncing reports whether a full reconciliation is in flight.
func (a *App) Syncing() bool {
	return a.syncing.Load()
}

// Subscribe registers a change handler for UI consumers and returns an
// unsubscribe func.
func (a *App) Subscribe(handler func(events.Event)) func() {
	return a.emitter.Subscribe(handler)
}

// ============================================================================
// Task mutations
// ============================================================================

// CreateTaskRequest carries the editor fields for a new task.
type CreateTaskRequest struct {
	Text       string
	ProjectID  string
	Attributes Attributes
}

// Attributes aliases the priority attributes for callers of the root
// package.
type Attributes = priority.Attributes

// AddTask validates and appends a new task. The priority score is derived
// from the attributes; blank text and an assignment to an unknown project
// are rejected before any mutation.
func (a *App) AddTask(ctx context.Context, req CreateTaskRequest) (models.Task, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return models.Task{}, models.ErrEmptyText
	}
	attrs, err := normalizeAttributes(req.Attributes)
	if err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		ID:         models.NewID(),
		Text:       text,
		ProjectID:  req.ProjectID,
		Attributes: attrs,
	}
	task.Rescore()

	a.mu.Lock()
	if req.ProjectID != "" && indexOfProject(a.projects, req.ProjectID) < 0 {
		a.mu.Unlock()
		return models.Task{}, models.ErrProjectNotFound
	}
	old := a.tasks
	updated := make([]models.Task, len(old), len(old)+1)
	copy(updated, old)
	updated = append(updated, task)
	a.applyTasksLocked(ctx, old, updated)
	a.mu.Unlock()

	events.PublishSafe(a.emitter, events.EventTasksChanged)
	return task, nil
}

// UpdateTaskRequest carries an edit; nil fields are left unchanged.
type UpdateTaskRequest struct {
	ID         string
	Text       *string
	ProjectID  *string
	Attributes *Attributes
}

// UpdateTask edits an existing task in place. Changing the attributes
// recomputes the derived score; reassignment must name an existing
// project (the empty string clears the assignment).
func (a *App) UpdateTask(ctx context.Context, req UpdateTaskRequest) error {
	if req.Text != nil && strings.TrimSpace(*req.Text) == "" {
		return models.ErrEmptyText
	}
	var attrs *priority.Attributes
	if req.Attributes != nil {
		normalized, err := normalizeAttributes(*req.Attributes)
		if err != nil {
			return err
		}
		attrs = &normalized
	}

	a.mu.Lock()
	i := indexOfTask(a.tasks, req.ID)
	if i < 0 {
		a.mu.Unlock()
		return models.ErrTaskNotFound
	}
	if req.ProjectID != nil && *req.ProjectID != "" && indexOfProject(a.projects, *req.ProjectID) < 0 {
		a.mu.Unlock()
		return models.ErrProjectNotFound
	}

	old := a.tasks
	updated := make([]models.Task, len(old))
	copy(updated, old)

	task := &updated[i]
	if req.Text != nil {
		task.Text = strings.TrimSpace(*req.Text)
	}
	if req.ProjectID != nil {
		task.ProjectID = *req.ProjectID
	}
	if attrs != nil {
		task.Attributes = *attrs
		task.Rescore()
	}

	a.applyTasksLocked(ctx, old, updated)
	a.mu.Unlock()

	events.PublishSafe(a.emitter, events.EventTasksChanged)
	return nil
}

// ToggleTask flips a task's completion state.
func (a *App) ToggleTask(ctx context.Context, id string) error {
	a.mu.Lock()
	i := indexOfTask(a.tasks, id)
	if i < 0 {
		a.mu.Unlock()
		return models.ErrTaskNotFound
	}

	old := a.tasks
	updated := make([]models.Task, len(old))
	copy(updated, old)
	updated[i].Completed = !updated[i].Completed

	a.applyTasksLocked(ctx, old, updated)
	a.mu.Unlock()

	events.PublishSafe(a.emitter, events.EventTasksChanged)
	return nil
}

// DeleteTask removes a task. The UI confirms with the user before calling.
func (a *App) DeleteTask(ctx context.Context, id string) error {
	a.mu.Lock()
	i := indexOfTask(a.tasks, id)
	if i < 0 {
		a.mu.Unlock()
		return models.ErrTaskNotFound
	}

	old := a.tasks
	updated := make([]models.Task, 0, len(old)-1)
	updated = append(updated, old[:i]...)
	updated = append(updated, old[i+1:]...)

	a.applyTasksLocked(ctx, old, updated)
	a.mu.Unlock()

	events.PublishSafe(a.emitter, events.EventTasksChanged)
	return nil
}

// AddTime accumulates seconds from a finished focus session onto a task.
// This is the one mutation path outside the edit form; it flows through
// the same persist-and-propagate pipeline as any other edit.
func (a *App) AddTime(ctx context.Context, id string, seconds int) error {
	if seconds < 0 {
		return models.ErrNegativeSeconds
	}

	a.mu.Lock()
	i := indexOfTask(a.tasks, id)
	if i < 0 {
		a.mu.Unlock()
		return models.ErrTaskNotFound
	}

	old := a.tasks
	updated := make([]models.Task, len(old))
	copy(updated, old)
	updated[i].TimeSpent += seconds

	a.applyTasksLocked(ctx, old, updated)
	a.mu.Unlock()

	events.PublishSafe(a.emitter, events.EventTasksChanged)
	return nil
}

// ============================================================================
// Project mutations
// ============================================================================

// CreateProjectRequest carries the editor fields for a new project.
type CreateProjectRequest struct {
	Name  string
	Color string
}

// CreateProject validates and adds a new project.
func (a *App) CreateProject(ctx context.Context, req CreateProjectRequest) (models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Project{}, models.ErrEmptyName
	}
	color := req.Color
	if color == "" {
		color = models.SwatchColors[0]
	}

	project := models.Project{
		ID:    models.NewID(),
		Name:  name,
		Color: color,
	}

	a.mu.Lock()
	old := a.projects
	updated := make([]models.Project, len(old), len(old)+1)
	copy(updated, old)
	updated = append(updated, project)
	a.applyProjectsLocked(ctx, old, updated)
	a.mu.Unlock()

	events.PublishSafe(a.emitter, events.EventProjectsChanged)
	return project, nil
}

// UpdateProjectRequest carries a project edit; nil fields are unchanged.
type UpdateProjectRequest struct {
	ID    string
	Name  *string
	Color *string
}

// UpdateProject edits a project's name or color.
func (a *App) UpdateProject(ctx context.Context, req UpdateProjectRequest) error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return models.ErrEmptyName
	}

	a.mu.Lock()
	i := indexOfProject(a.projects, req.ID)
	if i < 0 {
		a.mu.Unlock()
		return models.ErrProjectNotFound
	}

	old := a.projects
	updated := make([]models.Project, len(old))
	copy(updated, old)
	if req.Name != nil {
		updated[i].Name = strings.TrimSpace(*req.Name)
	}
	if req.Color != nil {
		updated[i].Color = *req.Color
	}

	a.applyProjectsLocked(ctx, old, updated)
	a.mu.Unlock()

	events.PublishSafe(a.emitter, events.EventProjectsChanged)
	return nil
}

// SetProjectArchived archives or unarchives a project. Archived projects
// stay in the list and keep their tasks visible and editable.
func (a *App) SetProjectArchived(ctx context.Context, id string, archived bool) error {
	a.mu.Lock()
	i := indexOfProject(a.projects, id)
	if i < 0 {
		a.mu.Unlock()
		return models.ErrProjectNotFound
	}

	old := a.projects
	updated := make([]models.Project, len(old))
	copy(updated, old)
	updated[i].Archived = archived

	a.applyProjectsLocked(ctx, old, updated)
	a.mu.Unlock()

	events.PublishSafe(a.emitter, events.EventProjectsChanged)
	return nil
}

// DeleteProject removes a project and unassigns its tasks in the same
// mutation. Tasks are never deleted with their project; their ProjectID
// is nulled out instead, and both collections propagate.
func (a *App) DeleteProject(ctx context.Context, id string) error {
	a.mu.Lock()
	i := indexOfProject(a.projects, id)
	if i < 0 {
		a.mu.Unlock()
		return models.ErrProjectNotFound
	}

	oldProjects := a.projects
	updatedProjects := make([]models.Project, 0, len(oldProjects)-1)
	updatedProjects = append(updatedProjects, oldProjects[:i]...)
	updatedProjects = append(updatedProjects, oldProjects[i+1:]...)

	oldTasks := a.tasks
	updatedTasks := make([]models.Task, len(oldTasks))
	copy(updatedTasks, oldTasks)
	for j := range updatedTasks {
		if updatedTasks[j].ProjectID == id {
			updatedTasks[j].ProjectID = ""
		}
	}

	a.applyProjectsLocked(ctx, oldProjects, updatedProjects)
	a.applyTasksLocked(ctx, oldTasks, updatedTasks)
	a.mu.Unlock()

	events.PublishSafe(a.emitter, events.EventProjectsChanged)
	events.PublishSafe(a.emitter, events.EventTasksChanged)
	return nil
}

// ============================================================================
// Internals
// ============================================================================

// applyTasksLocked installs the new task list, persists it, and kicks off
// incremental propagation. The caller holds a.mu. The local write never
// waits on the cloud push; a push that dies is healed by the next full
// reconciliation.
func (a *App) applyTasksLocked(ctx context.Context, old, updated []models.Task) {
	a.tasks = updated
	a.persistTasks(ctx, updated)
	go a.engine.PropagateTasks(context.WithoutCancel(ctx), old, updated)
}

// applyProjectsLocked is the project counterpart of applyTasksLocked; it
// also keeps the list sorted by name.
func (a *App) applyProjectsLocked(ctx context.Context, old, updated []models.Project) {
	models.SortProjects(updated)
	a.projects = updated
	a.persistProjects(ctx, updated)
	go a.engine.PropagateProjects(context.WithoutCancel(ctx), old, updated)
}

// persistTasks saves the task list locally. Failures are logged and the
// in-memory list stays authoritative for the rest of the session.
func (a *App) persistTasks(ctx context.Context, tasks []models.Task) {
	data, err := models.EncodeTasks(tasks)
	if err != nil {
		slog.Error("failed to encode tasks", "error", err)
		return
	}
	if err := a.local.Save(ctx, store.KeyTasks, data); err != nil {
		slog.Error("failed to save tasks", "error", err)
	}
}

func (a *App) persistProjects(ctx context.Context, projects []models.Project) {
	data, err := models.EncodeProjects(projects)
	if err != nil {
		slog.Error("failed to encode projects", "error", err)
		return
	}
	if err := a.local.Save(ctx, store.KeyProjects, data); err != nil {
		slog.Error("failed to save projects", "error", err)
	}
}

func indexOfTask(tasks []models.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func indexOfProject(projects []models.Project, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// normalizeAttributes fills unset levels with medium and rejects values
// outside the three selectable levels.
func normalizeAttributes(attrs Attributes) (priority.Attributes, error) {
	for _, l := range []*priority.Level{
		&attrs.Easiness, &attrs.Importance, &attrs.Emergency, &attrs.Interest,
	} {
		if *l == "" {
			*l = priority.LevelMedium
			continue
		}
		if !priority.Valid(*l) {
			return priority.Attributes{}, models.ErrInvalidLevel
		}
	}
	return attrs, nil
}
