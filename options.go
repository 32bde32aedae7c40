package taskwise

import (
	"github.com/taskwise/taskwise/auth"
	"github.com/taskwise/taskwise/cloud"
	"github.com/taskwise/taskwise/config"
	"github.com/taskwise/taskwise/events"
	"github.com/taskwise/taskwise/store"
)

// Option is a functional option for configuring App initialization
type Option func(*appOptions)

// appOptions holds the configuration for App initialization
type appOptions struct {
	config  *config.Config
	local   *store.Store
	remote  cloud.Store
	users   auth.UserStore
	emitter events.Publisher
}

func applyOptions(opts []Option) *appOptions {
	options := &appOptions{
		emitter: events.NewEmitter(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithConfig sets the configuration instead of loading it from disk.
func WithConfig(cfg *config.Config) Option {
	return func(o *appOptions) {
		o.config = cfg
	}
}

// WithLocalStore sets an already-opened local store.
func WithLocalStore(s *store.Store) Option {
	return func(o *appOptions) {
		o.local = s
	}
}

// WithCloudStore sets the remote document store, bypassing Firestore
// initialization.
func WithCloudStore(s cloud.Store) Option {
	return func(o *appOptions) {
		o.remote = s
	}
}

// WithUserStore sets the account store used by authentication.
func WithUserStore(users auth.UserStore) Option {
	return func(o *appOptions) {
		o.users = users
	}
}

// WithPublisher sets the event publisher notified on state changes.
func WithPublisher(p events.Publisher) Option {
	return func(o *appOptions) {
		o.emitter = p
	}
}
