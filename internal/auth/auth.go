// Package auth resolves request identity to a profile. The strategy is an
// explicit, injected choice made once at wiring time: the verified-session
// implementation for real traffic, the harness implementation for local
// development and tests. Handlers never inspect the environment.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cofound/internal/logging"
	"cofound/internal/store"
	"cofound/internal/types"
)

// ErrUnauthenticated means the request carried no resolvable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves an HTTP request to the caller's profile.
type Authenticator interface {
	Authenticate(r *http.Request) (*types.Profile, error)
}

// SessionAuthenticator resolves "Authorization: Bearer <token>" against the
// sessions table. This is the only strategy fit for real users.
type SessionAuthenticator struct {
	Store *store.Store
}

// NewSessionAuthenticator returns the verified-session strategy.
func NewSessionAuthenticator(st *store.Store) *SessionAuthenticator {
	return &SessionAuthenticator{Store: st}
}

// Authenticate resolves the bearer token to a profile.
func (a *SessionAuthenticator) Authenticate(r *http.Request) (*types.Profile, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, ErrUnauthenticated
	}

	profileID, err := a.Store.SessionProfileID(token)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return a.Store.GetProfile(profileID)
}

// HarnessAuthenticator trusts a caller-supplied subject header and
// auto-provisions a minimal builder profile on first sight. It exists for
// tests and local development only; the config layer refuses to construct it
// unless auth mode is explicitly "harness".
type HarnessAuthenticator struct {
	Store  *store.Store
	Header string
}

// NewHarnessAuthenticator returns the test-harness strategy reading the
// subject from the given header.
func NewHarnessAuthenticator(st *store.Store, header string) *HarnessAuthenticator {
	if header == "" {
		header = "X-Auth-Subject"
	}
	return &HarnessAuthenticator{Store: st, Header: header}
}

// Authenticate reads the subject header, creating a minimal profile for
// subjects never seen before.
func (a *HarnessAuthenticator) Authenticate(r *http.Request) (*types.Profile, error) {
	subject := r.Header.Get(a.Header)
	if subject == "" {
		return nil, ErrUnauthenticated
	}

	p, err := a.Store.GetProfileBySubject(subject)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	p = &types.Profile{
		Subject: subject,
		Name:    subject,
		Role:    types.RoleBuilder,
	}
	if err := a.Store.CreateProfile(p); err != nil {
		// Lost a race with a concurrent first request for the same subject.
		if errors.Is(err, types.ErrConflict) {
			return a.Store.GetProfileBySubject(subject)
		}
		return nil, err
	}
	logging.Get(logging.CategoryAuth).Info("harness auto-provisioned profile %s for subject %s", p.ID, subject)
	return p, nil
}

// ForMode constructs the authenticator named by the config auth mode.
func ForMode(mode, header string, st *store.Store) (Authenticator, error) {
	switch mode {
	case "session":
		return NewSessionAuthenticator(st), nil
	case "harness":
		return NewHarnessAuthenticator(st, header), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}
