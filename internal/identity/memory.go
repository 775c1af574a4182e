package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Provider = (*Memory)(nil)

type memAccount struct {
	uid      string
	email    string
	password string
	claims   map[string]any
}

// Memory is an in-process Provider for tests and local runs.
type Memory struct {
	mu         sync.Mutex
	accounts   map[string]*memAccount
	byEmail    map[string]string
	tokens     map[string]string
	failCreate error
	failDelete error
	creates    int
}

func NewMemory() *Memory {
	return &Memory{
		accounts: map[string]*memAccount{},
		byEmail:  map[string]string{},
		tokens:   map[string]string{},
	}
}

// FailNextCreate makes the next CreateAccount return err.
func (m *Memory) FailNextCreate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCreate = err
}

// FailNextDelete makes the next DeleteAccount return err.
func (m *Memory) FailNextDelete(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDelete = err
}

// Creates counts CreateAccount calls, successful or not.
func (m *Memory) Creates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

func (m *Memory) HasEmail(email string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byEmail[strings.ToLower(email)]
	return ok
}

func (m *Memory) SetClaims(uid string, claims map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[uid]
	if !ok {
		return fmt.Errorf("%w: no user %s", ErrProvider, uid)
	}
	a.claims = claims
	return nil
}

func (m *Memory) CreateAccount(_ context.Context, email, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if err := m.failCreate; err != nil {
		m.failCreate = nil
		return "", err
	}
	key := strings.ToLower(email)
	if _, ok := m.byEmail[key]; ok {
		return "", fmt.Errorf("%w: %s", ErrEmailExists, email)
	}
	uid := strings.ReplaceAll(uuid.NewString(), "-", "")[:28]
	m.accounts[uid] = &memAccount{uid: uid, email: email, password: password}
	m.byEmail[key] = uid
	return uid, nil
}

func (m *Memory) DeleteAccount(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failDelete; err != nil {
		m.failDelete = nil
		return err
	}
	a, ok := m.accounts[uid]
	if !ok {
		return nil
	}
	delete(m.byEmail, strings.ToLower(a.email))
	delete(m.accounts, uid)
	m.revokeLocked(uid)
	return nil
}

func (m *Memory) SignIn(_ context.Context, email, password string) (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.byEmail[strings.ToLower(email)]
	if !ok || m.accounts[uid].password != password {
		return Credentials{}, ErrInvalidCredentials
	}
	token := uuid.NewString()
	m.tokens[token] = uid
	return Credentials{
		UID:          uid,
		Email:        m.accounts[uid].email,
		IDToken:      token,
		RefreshToken: uuid.NewString(),
		ExpiresIn:    time.Hour,
	}, nil
}

func (m *Memory) SignOut(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeLocked(uid)
	return nil
}

func (m *Memory) VerifyIDToken(_ context.Context, idToken string) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.tokens[idToken]
	if !ok {
		return Token{}, ErrInvalidToken
	}
	a := m.accounts[uid]
	claims := map[string]any{"email": a.email}
	for k, v := range a.claims {
		claims[k] = v
	}
	return Token{UID: uid, Email: a.email, Claims: claims}, nil
}

func (m *Memory) revokeLocked(uid string) {
	for tok, owner := range m.tokens {
		if owner == uid {
			delete(m.tokens, tok)
		}
	}
}
