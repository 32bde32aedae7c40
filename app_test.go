package taskwise

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/taskwise/taskwise/auth"
	"github.com/taskwise/taskwise/cloud"
	"github.com/taskwise/taskwise/config"
	"github.com/taskwise/taskwise/events"
	"github.com/taskwise/taskwise/models"
	"github.com/taskwise/taskwise/priority"
	"github.com/taskwise/taskwise/store"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

// memCloud is an in-memory cloud.Store for app-level tests
type memCloud struct {
	mu          sync.Mutex
	collections map[string]map[string]cloud.Document
}

var _ cloud.Store = (*memCloud)(nil)

func newMemCloud() *memCloud {
	return &memCloud{collections: make(map[string]map[string]cloud.Document)}
}

func (m *memCloud) bucket(collection string) map[string]cloud.Document {
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]cloud.Document)
	}
	return m.collections[collection]
}

func (m *memCloud) ListAll(_ context.Context, collection string) ([]cloud.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []cloud.Document
	for _, doc := range m.bucket(collection) {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *memCloud) Upsert(_ context.Context, collection, id string, doc cloud.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(collection)[id] = doc
	return nil
}

func (m *memCloud) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bucket(collection), id)
	return nil
}

func (m *memCloud) BatchUpsert(_ context.Context, collection string, docs []cloud.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		m.bucket(collection)[doc["id"].(string)] = doc
	}
	return nil
}

func (m *memCloud) seed(collection string, docs ...cloud.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		m.bucket(collection)[doc["id"].(string)] = doc
	}
}

// memUsers is an in-memory auth.UserStore
type memUsers struct {
	mu    sync.Mutex
	users map[string]auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]auth.User)}
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

func (m *memUsers) Create(_ context.Context, user auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Email] = user
	return nil
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{TokenSecret: "test-secret", TokenTTLHours: 1},
	}
}

// setupTestApp builds an app over in-memory stores
func setupTestApp(t *testing.T, extra ...Option) (*App, *memCloud) {
	t.Helper()
	remote := newMemCloud()
	opts := append([]Option{
		WithConfig(testConfig()),
		WithLocalStore(testStore(t)),
		WithCloudStore(remote),
		WithUserStore(newMemUsers()),
	}, extra...)
	a, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	return a, remote
}

// ============================================================================
// Loading and seeding
// ============================================================================

func TestNew_SeedsDefaultProjects(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)

	projects := a.Projects()
	if len(projects) != 3 {
		t.Fatalf("expected 3 seeded projects, got %d", len(projects))
	}

	// Seeded sorted by name.
	want := []string{"Personal", "Shopping", "Work"}
	for i, p := range projects {
		if p.Name != want[i] {
			t.Errorf("project[%d] = %q, want %q", i, p.Name, want[i])
		}
	}
}

func TestNew_SeedPersistsImmediately(t *testing.T) {
	t.Parallel()

	local := testStore(t)
	a, err := New(context.Background(),
		WithConfig(testConfig()),
		WithLocalStore(local),
		WithCloudStore(newMemCloud()))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	_ = a

	data, ok, err := local.Load(context.Background(), store.KeyProjects)
	if err != nil || !ok {
		t.Fatalf("seeded projects not persisted: ok=%v err=%v", ok, err)
	}
	persisted, err := models.DecodeProjects(data)
	if err != nil {
		t.Fatalf("DecodeProjects failed: %v", err)
	}
	if len(persisted) != 3 {
		t.Errorf("persisted %d projects, want 3", len(persisted))
	}
}

func TestNew_ExistingProjectsNotReseeded(t *testing.T) {
	t.Parallel()

	local := testStore(t)
	existing := []models.Project{{ID: "p1", Name: "Garden", Color: "#10b981"}}
	data, err := models.EncodeProjects(existing)
	if err != nil {
		t.Fatalf("EncodeProjects failed: %v", err)
	}
	if err := local.Save(context.Background(), store.KeyProjects, data); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	a, err := New(context.Background(),
		WithConfig(testConfig()),
		WithLocalStore(local),
		WithCloudStore(newMemCloud()))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	projects := a.Projects()
	if len(projects) != 1 || projects[0].Name != "Garden" {
		t.Errorf("existing projects replaced by seed: %+v", projects)
	}
}

func TestNew_CorruptProjectListNotOverwritten(t *testing.T) {
	t.Parallel()

	local := testStore(t)
	corrupt := []byte(`[{"id":"p1","name":"Garden"`)
	if err := local.Save(context.Background(), store.KeyProjects, corrupt); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	a, err := New(context.Background(),
		WithConfig(testConfig()),
		WithLocalStore(local),
		WithCloudStore(newMemCloud()))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	// The session runs on in-memory defaults.
	if projects := a.Projects(); len(projects) != 3 {
		t.Errorf("expected 3 default projects in memory, got %d", len(projects))
	}

	// The stored document is left alone, not repaired with the seed.
	data, ok, err := local.Load(context.Background(), store.KeyProjects)
	if err != nil || !ok {
		t.Fatalf("stored projects gone: ok=%v err=%v", ok, err)
	}
	if string(data) != string(corrupt) {
		t.Errorf("stored project list rewritten on load:\n got %s\nwant %s", data, corrupt)
	}
}

// ============================================================================
// Task mutations
// ============================================================================

func TestAddTask(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)
	ctx := context.Background()

	task, err := a.AddTask(ctx, CreateTaskRequest{Text: "  Buy milk  "})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if task.Text != "Buy milk" {
		t.Errorf("text not trimmed: %q", task.Text)
	}
	if task.ID == "" {
		t.Error("expected an assigned id")
	}
	// Unset attributes default to medium, which scores 2.0.
	if task.PriorityScore != 2.0 {
		t.Errorf("default score = %v, want 2.0", task.PriorityScore)
	}

	if got := a.Tasks(); len(got) != 1 {
		t.Errorf("expected 1 task in list, got %d", len(got))
	}
}

func TestAddTask_EmptyTextRejected(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)

	for _, text := range []string{"", "   ", "\t\n"} {
		if _, err := a.AddTask(context.Background(), CreateTaskRequest{Text: text}); !errors.Is(err, models.ErrEmptyText) {
			t.Errorf("AddTask(%q): expected ErrEmptyText, got %v", text, err)
		}
	}
	if len(a.Tasks()) != 0 {
		t.Error("rejected task must not be saved")
	}
}

func TestAddTask_InvalidLevelRejected(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)

	_, err := a.AddTask(context.Background(), CreateTaskRequest{
		Text:       "x",
		Attributes: Attributes{Easiness: "extreme"},
	})
	if !errors.Is(err, models.ErrInvalidLevel) {
		t.Errorf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestAddTask_UnknownProjectRejected(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)

	_, err := a.AddTask(context.Background(), CreateTaskRequest{Text: "orphan", ProjectID: "no-such-project"})
	if !errors.Is(err, models.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
	if len(a.Tasks()) != 0 {
		t.Error("rejected task must not be saved")
	}
}

func TestUpdateTask_UnknownProjectRejected(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)
	ctx := context.Background()

	task, err := a.AddTask(ctx, CreateTaskRequest{Text: "Move me", ProjectID: "1"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	bogus := "no-such-project"
	if err := a.UpdateTask(ctx, UpdateTaskRequest{ID: task.ID, ProjectID: &bogus}); !errors.Is(err, models.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
	if got := a.Tasks()[0].ProjectID; got != "1" {
		t.Errorf("assignment changed by rejected edit: %q", got)
	}

	// The empty string clears the assignment.
	none := ""
	if err := a.UpdateTask(ctx, UpdateTaskRequest{ID: task.ID, ProjectID: &none}); err != nil {
		t.Fatalf("clearing assignment failed: %v", err)
	}
	if got := a.Tasks()[0].ProjectID; got != "" {
		t.Errorf("assignment not cleared: %q", got)
	}
}

func TestUpdateTask_AttributesRescore(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)
	ctx := context.Background()

	task, err := a.AddTask(ctx, CreateTaskRequest{Text: "Score me"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	attrs := Attributes{
		Easiness:   priority.LevelHigh,
		Importance: priority.LevelHigh,
		Emergency:  priority.LevelHigh,
		Interest:   priority.LevelHigh,
	}
	if err := a.UpdateTask(ctx, UpdateTaskRequest{ID: task.ID, Attributes: &attrs}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	got := a.Tasks()[0]
	if got.PriorityScore != 3.0 {
		t.Errorf("score after all-high edit = %v, want 3.0", got.PriorityScore)
	}
}

func TestToggleTask(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)
	ctx := context.Background()

	task, err := a.AddTask(ctx, CreateTaskRequest{Text: "Flip me"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	if err := a.ToggleTask(ctx, task.ID); err != nil {
		t.Fatalf("ToggleTask failed: %v", err)
	}
	if !a.Tasks()[0].Completed {
		t.Error("expected task completed after toggle")
	}
	if err := a.ToggleTask(ctx, task.ID); err != nil {
		t.Fatalf("second ToggleTask failed: %v", err)
	}
	if a.Tasks()[0].Completed {
		t.Error("expected task reopened after second toggle")
	}

	if err := a.ToggleTask(ctx, "missing"); !errors.Is(err, models.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)
	ctx := context.Background()

	task, err := a.AddTask(ctx, CreateTaskRequest{Text: "Remove me"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if err := a.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if len(a.Tasks()) != 0 {
		t.Error("expected empty task list after delete")
	}
}

func TestAddTime(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)
	ctx := context.Background()

	task, err := a.AddTask(ctx, CreateTaskRequest{Text: "Focus target"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	if err := a.AddTime(ctx, task.ID, 25*60); err != nil {
		t.Fatalf("AddTime failed: %v", err)
	}
	if err := a.AddTime(ctx, task.ID, 5*60); err != nil {
		t.Fatalf("second AddTime failed: %v", err)
	}

	if got := a.Tasks()[0].TimeSpent; got != 30*60 {
		t.Errorf("timeSpent = %d, want %d", got, 30*60)
	}

	if err := a.AddTime(ctx, task.ID, -1); !errors.Is(err, models.ErrNegativeSeconds) {
		t.Errorf("expected ErrNegativeSeconds, got %v", err)
	}
	if err := a.AddTime(ctx, "missing", 10); !errors.Is(err, models.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

// ============================================================================
// Project mutations
// ============================================================================

func TestCreateProject_SortedByName(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)
	ctx := context.Background()

	if _, err := a.CreateProject(ctx, CreateProjectRequest{Name: "Aquarium", Color: "#ec4899"}); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	projects := a.Projects()
	if projects[0].Name != "Aquarium" {
		t.Errorf("expected Aquarium first after sort, got %q", projects[0].Name)
	}

	if _, err := a.CreateProject(ctx, CreateProjectRequest{Name: "   "}); !errors.Is(err, models.ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}

func TestSetProjectArchived(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)
	ctx := context.Background()

	project, err := a.CreateProject(ctx, CreateProjectRequest{Name: "Attic"})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if err := a.SetProjectArchived(ctx, project.ID, true); err != nil {
		t.Fatalf("SetProjectArchived failed: %v", err)
	}

	// Archived projects stay in the list.
	found := false
	for _, p := range a.Projects() {
		if p.ID == project.ID {
			found = true
			if !p.Archived {
				t.Error("project should be archived")
			}
		}
	}
	if !found {
		t.Error("archived project must remain listed")
	}
}

func TestDeleteProject_NullsTaskReferences(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)
	ctx := context.Background()

	project, err := a.CreateProject(ctx, CreateProjectRequest{Name: "Doomed"})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	for range 3 {
		if _, err := a.AddTask(ctx, CreateTaskRequest{Text: "in project", ProjectID: project.ID}); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
	}
	if _, err := a.AddTask(ctx, CreateTaskRequest{Text: "elsewhere", ProjectID: "1"}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	before := len(a.Tasks())
	if err := a.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}

	tasks := a.Tasks()
	if len(tasks) != before {
		t.Errorf("task count changed on project delete: %d -> %d", before, len(tasks))
	}
	for _, task := range tasks {
		if task.ProjectID == project.ID {
			t.Errorf("task %s still references deleted project", task.ID)
		}
	}
	// The unrelated assignment survives.
	kept := 0
	for _, task := range tasks {
		if task.ProjectID == "1" {
			kept++
		}
	}
	if kept != 1 {
		t.Errorf("unrelated project assignment lost: %d tasks on project 1", kept)
	}

	for _, p := range a.Projects() {
		if p.ID == project.ID {
			t.Error("deleted project still listed")
		}
	}
}

// ============================================================================
// Sessions and sync
// ============================================================================

func TestSignOut_WipesLocalData(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)
	ctx := context.Background()

	if err := a.SignUp(ctx, "wipe@example.com", "secret1"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if _, err := a.AddTask(ctx, CreateTaskRequest{Text: "private"}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	a.SignOut(ctx)

	if a.Session() != nil {
		t.Error("session should be cleared")
	}
	if len(a.Tasks()) != 0 {
		t.Error("tasks should be wiped on sign-out")
	}
	if got := a.Projects(); len(got) != 3 {
		t.Errorf("expected reseeded defaults, got %d projects", len(got))
	}
}

func TestSessionRestoredAcrossRestart(t *testing.T) {
	t.Parallel()

	local := testStore(t)
	users := newMemUsers()
	ctx := context.Background()

	first, err := New(ctx,
		WithConfig(testConfig()),
		WithLocalStore(local),
		WithCloudStore(newMemCloud()),
		WithUserStore(users))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	if err := first.SignUp(ctx, "resume@example.com", "secret1"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	// Simulate a restart over the same local store.
	second, err := New(ctx,
		WithConfig(testConfig()),
		WithLocalStore(local),
		WithCloudStore(newMemCloud()),
		WithUserStore(users))
	if err != nil {
		t.Fatalf("Failed to create second app: %v", err)
	}

	session := second.Session()
	if session == nil {
		t.Fatal("expected restored session after restart")
	}
	if session.Email != "resume@example.com" {
		t.Errorf("restored session email = %q", session.Email)
	}
}

func TestSyncNow_SignedOutIsNoOp(t *testing.T) {
	t.Parallel()

	a, remote := setupTestApp(t)
	remote.seed(cloud.CollectionTasks, cloud.Document{"id": "c1", "text": "cloud", "completed": false})

	if err := a.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if len(a.Tasks()) != 0 {
		t.Error("signed-out sync must not pull cloud state")
	}
}

func TestSyncNow_MergesCloudState(t *testing.T) {
	t.Parallel()

	a, remote := setupTestApp(t)
	ctx := context.Background()

	localTask, err := a.AddTask(ctx, CreateTaskRequest{Text: "local"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	remote.seed(cloud.CollectionTasks, cloud.Document{"id": "c1", "text": "cloud", "completed": false})

	if err := a.SignUp(ctx, "merge@example.com", "secret1"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if err := a.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	ids := make(map[string]bool)
	for _, task := range a.Tasks() {
		ids[task.ID] = true
	}
	if !ids[localTask.ID] || !ids["c1"] {
		t.Errorf("merged tasks missing entries: %v", ids)
	}

	// The local task self-heals into the cloud.
	remote.mu.Lock()
	_, pushed := remote.bucket(cloud.CollectionTasks)[localTask.ID]
	remote.mu.Unlock()
	if !pushed {
		t.Error("local task should be pushed to the cloud on full sync")
	}
}

func TestSubscribe_NotifiedOnMutation(t *testing.T) {
	t.Parallel()

	a, _ := setupTestApp(t)

	seen := 0
	unsubscribe := a.Subscribe(func(ev events.Event) {
		if ev.Type == events.EventTasksChanged {
			seen++
		}
	})
	defer unsubscribe()

	if _, err := a.AddTask(context.Background(), CreateTaskRequest{Text: "notify"}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if seen != 1 {
		t.Errorf("expected 1 tasks-changed event, got %d", seen)
	}
}
