// Package session holds the signed-in operator's bearer token and cached profile.
// The session is loaded once from durable storage at start-up, read on every outgoing
// request, replaced on login and destroyed on logout or when the token is found expired.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"inventory_admin/internal/models"
	"inventory_admin/internal/pkg/auth"
	"inventory_admin/internal/pkg/logger"
	"inventory_admin/internal/storage"
)

// Storage keys of the two persisted values.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Provider is the capability the gateway needs from the session.
type Provider interface {
	// Token returns the bearer token, or "" when unauthenticated.
	Token() string
	// User returns the cached profile; never nil.
	User() models.User
	// Save persists a freshly issued token and profile.
	Save(ctx context.Context, token string, user models.User) error
	// Clear destroys the session.
	Clear(ctx context.Context) error
}

// Manager is the Provider backed by a storage.Storage.
type Manager struct {
	mu    sync.RWMutex
	store storage.Storage
	log   *logger.Logger
	now   func() time.Time

	token        string
	user         models.User
	capabilities models.Capabilities
}

var _ Provider = (*Manager)(nil)

// NewManager creates a Manager and loads any persisted session from store.
// Unreadable or corrupt values load as an empty session rather than failing.
func NewManager(ctx context.Context, store storage.Storage, l *logger.Logger) *Manager {
	manager := &Manager{store: store, log: l, now: time.Now, user: models.User{}}
	manager.load(ctx)
	return manager
}

func (manager *Manager) load(ctx context.Context) {
	token, _, err := manager.store.Get(ctx, TokenKey)
	if err != nil {
		manager.log.Sugar().Errorf("Failed to read persisted token: %s", err)
		token = ""
	}

	user := models.User{}
	raw, ok, err := manager.store.Get(ctx, UserKey)
	if err != nil {
		manager.log.Sugar().Errorf("Failed to read persisted user: %s", err)
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &user); err != nil || user == nil {
			manager.log.Sugar().Warnf("Ignoring corrupt persisted user: %v", err)
			user = models.User{}
		}
	}

	manager.mu.Lock()
	manager.set(token, user)
	manager.mu.Unlock()
}

// set replaces the in-memory session. Callers hold mu.
func (manager *Manager) set(token string, user models.User) {
	manager.token = token
	manager.user = user
	if token == "" {
		manager.capabilities = models.Capabilities{}
		return
	}
	manager.capabilities = auth.CapabilitiesFor(auth.RoleOf(user, token))
}

// Token returns the bearer token. An expired JWT clears the session and reads as "".
func (manager *Manager) Token() string {
	manager.mu.RLock()
	token := manager.token
	manager.mu.RUnlock()

	if token != "" && auth.Expired(token, manager.now()) {
		manager.log.Sugar().Infof("Bearer token expired, clearing session")
		if err := manager.Clear(context.Background()); err != nil {
			manager.log.Sugar().Errorf("Failed to clear expired session: %s", err)
		}
		return ""
	}
	return token
}

// User returns a copy of the cached profile.
func (manager *Manager) User() models.User {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	user := make(models.User, len(manager.user))
	for k, v := range manager.user {
		user[k] = v
	}
	return user
}

// Authenticated reports whether a usable token is present, whatever the cached user says.
func (manager *Manager) Authenticated() bool {
	return manager.Token() != ""
}

// Capabilities returns the capability set computed when the session was last replaced.
func (manager *Manager) Capabilities() models.Capabilities {
	if !manager.Authenticated() {
		return models.Capabilities{}
	}
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.capabilities
}

// Info summarises the session for page renderers.
func (manager *Manager) Info() models.SessionInfo {
	token := manager.Token()
	if token == "" {
		return models.SessionInfo{User: models.User{}}
	}
	user := manager.User()
	return models.SessionInfo{
		Authenticated: true,
		User:          user,
		Role:          auth.RoleOf(user, token),
		Capabilities:  manager.Capabilities(),
	}
}

// Save persists token and user, then makes them current. If the token is written but the
// user is not, both are removed and the session ends rather than pairing the new token
// with the previous user.
func (manager *Manager) Save(ctx context.Context, token string, user models.User) error {
	if user == nil {
		user = models.User{}
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	manager.mu.Lock()
	defer manager.mu.Unlock()

	if err := manager.store.Set(ctx, TokenKey, token); err != nil {
		return err
	}
	if err := manager.store.Set(ctx, UserKey, string(data)); err != nil {
		if delErr := manager.store.Delete(ctx, TokenKey, UserKey); delErr != nil {
			manager.log.Sugar().Errorf("Failed to remove half-written session: %s", delErr)
		}
		manager.set("", models.User{})
		return err
	}
	manager.set(token, user)
	return nil
}

// Clear forgets the session in memory first, then in storage.
func (manager *Manager) Clear(ctx context.Context) error {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	manager.set("", models.User{})
	return manager.store.Delete(ctx, TokenKey, UserKey)
}
