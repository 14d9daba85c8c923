package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"

	"tracksync/internal/utils"
)

const (
	// keyringService is the service name for all tracksync keyring entries
	keyringService = "tracksync"
	// keyringAccount holds the API token; the app is single-account
	keyringAccount = "api-token"
)

// ErrNoCredential is returned when no session credential is stored
var ErrNoCredential = errors.New("no credential stored, run login first")

// Credential is the session credential attached to outbound API calls.
// It is passed explicitly into the gateway construction; nothing reads it
// from ambient global state.
type Credential struct {
	Token string
}

// Manager stores and invalidates the session credential. It is the auth
// collaborator of the sync engine: the coordinator calls InvalidateSession
// when the remote rejects the session.
type Manager struct {
	mu     sync.RWMutex
	cached *Credential
}

// NewManager creates a credential manager backed by the OS keyring
func NewManager() *Manager {
	return &Manager{}
}

// Store saves a credential in the OS keyring and the in-memory cache
func (m *Manager) Store(cred Credential) error {
	if cred.Token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	if err := keyring.Set(keyringService, keyringAccount, cred.Token); err != nil {
		return fmt.Errorf("failed to store credential in keyring: %w", err)
	}

	m.mu.Lock()
	m.cached = &cred
	m.mu.Unlock()
	return nil
}

// Current returns the stored credential, loading it from the keyring on
// first use
func (m *Manager) Current() (Credential, error) {
	m.mu.RLock()
	if m.cached != nil {
		cred := *m.cached
		m.mu.RUnlock()
		return cred, nil
	}
	m.mu.RUnlock()

	token, err := keyring.Get(keyringService, keyringAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Credential{}, utils.ErrNotLoggedIn(ErrNoCredential)
		}
		return Credential{}, fmt.Errorf("failed to read credential from keyring: %w", err)
	}

	cred := Credential{Token: token}
	m.mu.Lock()
	m.cached = &cred
	m.mu.Unlock()
	return cred, nil
}

// InvalidateSession drops the credential from cache and keyring. Called by
// the sync engine on an unauthorized response; the user must log in again.
func (m *Manager) InvalidateSession() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()

	if err := keyring.Delete(keyringService, keyringAccount); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		utils.Warnf("failed to remove credential from keyring: %v", err)
	}
	utils.Infof("session invalidated, login required")
}

// TokenSource adapts the manager to the gateway's credential contract
func (m *Manager) TokenSource() func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		cred, err := m.Current()
		if err != nil {
			return "", err
		}
		return cred.Token, nil
	}
}
