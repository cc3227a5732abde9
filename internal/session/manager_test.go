package session

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/walidbr/stockdeck/internal/api"
	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
	"github.com/walidbr/stockdeck/pkg/enums"
	"github.com/walidbr/stockdeck/pkg/logger"
)

type memoryStore struct {
	token    string
	readErr  error
	writeErr error
}

func (s *memoryStore) Token(ctx context.Context) (string, error) {
	return s.token, s.readErr
}

func (s *memoryStore) SetToken(ctx context.Context, token string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.token = token
	return nil
}

func (s *memoryStore) ClearToken(ctx context.Context) error {
	s.token = ""
	return nil
}

type fakeIdentity struct {
	loginFn func(ctx context.Context, req api.LoginRequest) (string, error)
	meFn    func(ctx context.Context) (*api.User, error)
	meCalls int
}

func (f *fakeIdentity) Login(ctx context.Context, req api.LoginRequest) (string, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, req)
	}
	return "", errors.New("login not configured")
}

func (f *fakeIdentity) Me(ctx context.Context) (*api.User, error) {
	f.meCalls++
	if f.meFn != nil {
		return f.meFn(ctx)
	}
	return nil, errors.New("me not configured")
}

func newTestManager(t *testing.T, store TokenStore, client Identity) *Manager {
	t.Helper()
	mgr, err := NewManager(ManagerParams{
		Store:  store,
		Client: client,
		Logger: logger.New(logger.Options{ServiceName: "session-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return mgr
}

func adminUser() *api.User {
	return &api.User{ID: "u1", FirstName: "Sam", Email: "sam@example.test", Role: enums.RoleAdmin}
}

func TestResolveNoToken(t *testing.T) {
	mgr := newTestManager(t, &memoryStore{}, &fakeIdentity{})

	if mgr.State() != StateUninitialized {
		t.Fatalf("expected uninitialized before resolve, got %s", mgr.State())
	}

	mgr.Resolve(context.Background())

	if mgr.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", mgr.State())
	}
	if mgr.Loading() {
		t.Fatal("loading must be false after resolve")
	}
}

func TestResolveValidToken(t *testing.T) {
	client := &fakeIdentity{meFn: func(ctx context.Context) (*api.User, error) {
		return adminUser(), nil
	}}
	mgr := newTestManager(t, &memoryStore{token: "tok"}, client)

	mgr.Resolve(context.Background())

	user := mgr.CurrentUser()
	if user == nil || user.ID != "u1" {
		t.Fatalf("expected resolved user, got %+v", user)
	}
	if mgr.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", mgr.State())
	}
	caps := mgr.Capabilities()
	if !caps.ManageInventory || caps.ManageUsers {
		t.Fatalf("unexpected admin capabilities %+v", caps)
	}
}

func TestResolveIdempotent(t *testing.T) {
	client := &fakeIdentity{meFn: func(ctx context.Context) (*api.User, error) {
		return adminUser(), nil
	}}
	mgr := newTestManager(t, &memoryStore{token: "tok"}, client)

	mgr.Resolve(context.Background())
	first := mgr.CurrentUser()
	mgr.Resolve(context.Background())
	second := mgr.CurrentUser()

	if *first != *second {
		t.Fatalf("repeated resolve changed the user: %+v vs %+v", first, second)
	}
	if client.meCalls != 2 {
		t.Fatalf("expected a fresh identity call per resolve, got %d", client.meCalls)
	}
}

func TestResolveCollapsesFailuresToAnonymous(t *testing.T) {
	cases := map[string]Identity{
		"backend error": &fakeIdentity{meFn: func(ctx context.Context) (*api.User, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "connection refused")
		}},
		"rejected token": &fakeIdentity{meFn: func(ctx context.Context) (*api.User, error) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token expired")
		}},
	}
	for name, client := range cases {
		t.Run(name, func(t *testing.T) {
			mgr := newTestManager(t, &memoryStore{token: "tok"}, client)
			mgr.Resolve(context.Background())
			if mgr.State() != StateAnonymous {
				t.Fatalf("expected anonymous, got %s", mgr.State())
			}
		})
	}
}

func TestLoginLogoutRoundTrip(t *testing.T) {
	store := &memoryStore{}
	client := &fakeIdentity{
		loginFn: func(ctx context.Context, req api.LoginRequest) (string, error) {
			if req.Email != "sam@example.test" || req.Password != "hunter2" {
				return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid credentials")
			}
			return "tok-new", nil
		},
		meFn: func(ctx context.Context) (*api.User, error) {
			return adminUser(), nil
		},
	}
	mgr := newTestManager(t, store, client)

	if err := mgr.Login(context.Background(), "sam@example.test", "hunter2", true); err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	if store.token != "tok-new" {
		t.Fatalf("expected token persisted, got %q", store.token)
	}
	if mgr.CurrentUser() == nil {
		t.Fatal("expected user after login")
	}
	if mgr.Loading() {
		t.Fatal("loading must be false after login")
	}

	if err := mgr.Logout(context.Background()); err != nil {
		t.Fatalf("unexpected logout error: %v", err)
	}
	if store.token != "" {
		t.Fatal("expected token cleared on logout")
	}
	if mgr.CurrentUser() != nil {
		t.Fatal("expected nil user after logout")
	}
	if mgr.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", mgr.State())
	}

	// Logout is idempotent.
	if err := mgr.Logout(context.Background()); err != nil {
		t.Fatalf("second logout must be a no-op: %v", err)
	}
}

func TestLoginFailureLeavesUserUntouched(t *testing.T) {
	client := &fakeIdentity{
		loginFn: func(ctx context.Context, req api.LoginRequest) (string, error) {
			return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid credentials")
		},
		meFn: func(ctx context.Context) (*api.User, error) {
			return adminUser(), nil
		},
	}
	store := &memoryStore{token: "tok-old"}
	mgr := newTestManager(t, store, client)
	mgr.Resolve(context.Background())

	err := mgr.Login(context.Background(), "sam@example.test", "wrong", false)
	if err == nil {
		t.Fatal("expected login error")
	}
	if pkgerrors.As(err).Message() != "Invalid credentials" {
		t.Fatalf("expected server message, got %q", pkgerrors.As(err).Message())
	}
	if mgr.CurrentUser() == nil {
		t.Fatal("failed login must leave the resolved user untouched")
	}
	if store.token != "tok-old" {
		t.Fatal("failed login must not touch the stored token")
	}
	if mgr.Loading() {
		t.Fatal("loading must be false after a failed login")
	}
}

func TestUpdateUserMerge(t *testing.T) {
	client := &fakeIdentity{meFn: func(ctx context.Context) (*api.User, error) {
		return adminUser(), nil
	}}
	mgr := newTestManager(t, &memoryStore{token: "tok"}, client)
	mgr.Resolve(context.Background())

	phone := "+33 6 00 00 00 00"
	first := "Samuel"
	mgr.UpdateUser(UserPatch{FirstName: &first, Phone: &phone})

	user := mgr.CurrentUser()
	if user.FirstName != "Samuel" {
		t.Fatalf("expected merged first name, got %q", user.FirstName)
	}
	if user.Phone != phone {
		t.Fatalf("expected merged phone, got %q", user.Phone)
	}
	if user.Email != "sam@example.test" {
		t.Fatal("untouched fields must survive the merge")
	}
}

func TestUpdateUserNoOpWhileAnonymous(t *testing.T) {
	mgr := newTestManager(t, &memoryStore{}, &fakeIdentity{})
	mgr.Resolve(context.Background())

	name := "Sam"
	mgr.UpdateUser(UserPatch{FirstName: &name})
	if mgr.CurrentUser() != nil {
		t.Fatal("update while anonymous must stay a no-op")
	}
}

func TestCurrentUserReturnsCopy(t *testing.T) {
	client := &fakeIdentity{meFn: func(ctx context.Context) (*api.User, error) {
		return adminUser(), nil
	}}
	mgr := newTestManager(t, &memoryStore{token: "tok"}, client)
	mgr.Resolve(context.Background())

	user := mgr.CurrentUser()
	user.FirstName = "Mallory"
	if mgr.CurrentUser().FirstName == "Mallory" {
		t.Fatal("mutating the returned user must not affect the manager")
	}
}
