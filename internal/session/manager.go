package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/walidbr/stockdeck/internal/api"
	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
	"github.com/walidbr/stockdeck/pkg/enums"
	"github.com/walidbr/stockdeck/pkg/logger"
)

// State is the observable position in the session lifecycle.
type State string

const (
	// StateUninitialized means identity resolution has not finished yet;
	// consumers must not redirect to login while here.
	StateUninitialized State = "uninitialized"
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// TokenStore persists the bearer credential. The credential is the sole
// durable artifact of a session; the user record is always re-derived.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Identity is the backend surface the manager resolves against.
type Identity interface {
	Login(ctx context.Context, req api.LoginRequest) (string, error)
	Me(ctx context.Context) (*api.User, error)
}

// ManagerParams configure the session manager.
type ManagerParams struct {
	Store  TokenStore
	Client Identity
	Logger *logger.Logger
}

// Manager is the single source of truth for "who is logged in". It owns the
// only write path to the stored credential and the resolved user; everything
// else reads.
type Manager struct {
	store  TokenStore
	client Identity
	logg   *logger.Logger

	mu      sync.Mutex
	user    *api.User
	caps    enums.Capabilities
	loading bool
}

// NewManager wires session dependencies. The manager starts loading; call
// Resolve before trusting State.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("token store required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("identity client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Manager{
		store:   params.Store,
		client:  params.Client,
		logg:    params.Logger,
		loading: true,
	}, nil
}

// Resolve derives the current identity from the persisted credential. Token
// absent, token rejected, and backend unreachable all collapse into the same
// anonymous state: the consumer reaction is identical in every case.
// Loading is false once Resolve returns, on every path.
func (m *Manager) Resolve(ctx context.Context) {
	defer m.setLoading(false)

	token, err := m.store.Token(ctx)
	if err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "credential read failed; treating as anonymous")
		m.setUser(nil)
		return
	}
	if token == "" {
		m.setUser(nil)
		return
	}

	m.logTokenHealth(ctx, token)

	user, err := m.client.Me(ctx)
	if err != nil {
		m.logg.Debug(m.logg.WithField(ctx, "error", err.Error()), "identity resolution failed; treating as anonymous")
		m.setUser(nil)
		return
	}
	m.setUser(user)
	m.logg.Info(m.logg.WithUserID(ctx, user.ID), "session resolved")
}

// Login exchanges credentials for a token, persists it, and re-resolves the
// identity. On failure the previous user (if any) is left untouched and the
// returned error carries the backend's message.
func (m *Manager) Login(ctx context.Context, email, password string, rememberMe bool) error {
	m.setLoading(true)
	defer m.setLoading(false)

	token, err := m.client.Login(ctx, api.LoginRequest{
		Email:      email,
		Password:   password,
		RememberMe: rememberMe,
	})
	if err != nil {
		return err
	}
	if err := m.store.SetToken(ctx, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist credential")
	}
	m.Resolve(ctx)
	return nil
}

// Logout clears the persisted credential and the resolved user. Local-only:
// the backend is never contacted. Idempotent.
func (m *Manager) Logout(ctx context.Context) error {
	m.setUser(nil)
	if err := m.store.ClearToken(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear credential")
	}
	return nil
}

// UserPatch is a partial user update; nil fields are left alone.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	Bio          *string
	AvatarColor  *string
	ProfileImage *string
}

// UpdateUser shallow-merges server-confirmed profile edits into the resolved
// user without a full re-fetch. No-op while anonymous.
func (m *Manager) UpdateUser(patch UserPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&m.user.FirstName, patch.FirstName)
	apply(&m.user.LastName, patch.LastName)
	apply(&m.user.Email, patch.Email)
	apply(&m.user.Phone, patch.Phone)
	apply(&m.user.Bio, patch.Bio)
	apply(&m.user.AvatarColor, patch.AvatarColor)
	apply(&m.user.ProfileImage, patch.ProfileImage)
}

// CurrentUser returns a copy of the resolved user, or nil while anonymous.
func (m *Manager) CurrentUser() *api.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// Capabilities returns the permission set computed at resolve time.
func (m *Manager) Capabilities() enums.Capabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps
}

// Loading reports whether identity resolution is still in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// State derives the lifecycle position from loading and user.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.loading:
		return StateUninitialized
	case m.user == nil:
		return StateAnonymous
	default:
		return StateAuthenticated
	}
}

func (m *Manager) setUser(user *api.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = user
	if user == nil {
		m.caps = enums.Capabilities{}
		return
	}
	m.caps = enums.CapabilitiesFor(user.Role)
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = loading
}

// logTokenHealth inspects the unverified claims of the stored token and
// warns when it is already expired. The backend remains the authority; this
// only improves operator logs.
func (m *Manager) logTokenHealth(ctx context.Context, token string) {
	claims, err := InspectToken(token)
	if err != nil {
		return
	}
	if claims.Expired() {
		m.logg.Warn(ctx, "stored credential is past its expiry; resolution will likely fail")
	}
}
