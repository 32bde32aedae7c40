package taskwise

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taskwise/taskwise/auth"
	"github.com/taskwise/taskwise/events"
	"github.com/taskwise/taskwise/models"
	"github.com/taskwise/taskwise/store"
)

// SignIn authenticates with email and password. Authentication is the
// one user action whose failure is surfaced; the caller displays it.
// A successful sign-in runs a full reconciliation before returning; a
// failed reconciliation is logged, never raised, so sign-in itself does
// not fail on network state.
func (a *App) SignIn(ctx context.Context, email, password string) error {
	if _, err := a.auth.SignIn(ctx, email, password); err != nil {
		return err
	}
	return nil
}

// SignUp creates an account and signs it in.
func (a *App) SignUp(ctx context.Context, email, password string) error {
	if _, err := a.auth.SignUp(ctx, email, password); err != nil {
		return err
	}
	return nil
}

// SignOut ends the session and wipes local data: both collections are
// removed from the store and the default projects are reseeded, so the
// device holds no account data afterwards.
func (a *App) SignOut(ctx context.Context) {
	a.auth.SignOut()

	defaults := models.DefaultProjects()
	models.SortProjects(defaults)

	a.mu.Lock()
	a.tasks = nil
	a.projects = defaults
	a.mu.Unlock()

	for _, key := range []string{store.KeyTasks, store.KeyProjects, store.KeySession} {
		if err := a.local.Delete(ctx, key); err != nil {
			slog.Error("failed to clear local data on sign-out", "key", key, "error", err)
		}
	}

	events.PublishSafe(a.emitter, events.EventTasksChanged)
	events.PublishSafe(a.emitter, events.EventProjectsChanged)
}

// onSessionChanged reacts to auth transitions: a new session is persisted
// and kicks off reconciliation; sign-out drops the persisted token.
func (a *App) onSessionChanged(session *auth.Session) {
	events.PublishSafe(a.emitter, events.EventSessionChanged)

	ctx := context.Background()
	if session == nil {
		if err := a.local.Delete(ctx, store.KeySession); err != nil {
			slog.Error("failed to drop persisted session", "error", err)
		}
		return
	}

	a.persistSession(ctx)
	if err := a.SyncNow(ctx); err != nil {
		slog.Warn("sync after sign-in failed", "error", err)
	}
}

// persistSession saves a signed token so the session survives restarts.
// Without a configured token secret the session is simply not persisted.
func (a *App) persistSession(ctx context.Context) {
	token, err := a.auth.SessionToken()
	if errors.Is(err, auth.ErrNoTokenKey) {
		return
	}
	if err != nil {
		slog.Error("failed to mint session token", "error", err)
		return
	}
	if err := a.local.Save(ctx, store.KeySession, []byte(token)); err != nil {
		slog.Error("failed to persist session token", "error", err)
	}
}

// restoreSession resumes a persisted session on startup. Invalid or
// expired tokens are discarded silently.
func (a *App) restoreSession(ctx context.Context) {
	data, ok, err := a.local.Load(ctx, store.KeySession)
	if err != nil {
		slog.Error("failed to load persisted session", "error", err)
		return
	}
	if !ok {
		return
	}
	if _, err := a.auth.Restore(string(data)); err != nil {
		slog.Info("discarding stale session token", "error", err)
		if err := a.local.Delete(ctx, store.KeySession); err != nil {
			slog.Error("failed to drop stale session token", "error", err)
		}
	}
}
