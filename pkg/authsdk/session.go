package authsdk

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cognify-learn/cognify/pkg/credstore"
)

// Status is the coarse lifecycle state of a SessionManager.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitializing
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitializing:
		return "initializing"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session. Initialized turns true once the
// manager knows whether a session exists, so "not known yet" and "logged
// out" can be told apart.
type State struct {
	Status      Status
	Identity    *Identity
	Initialized bool
}

// Authenticated is shorthand for Status == StatusAuthenticated.
func (s State) Authenticated() bool { return s.Status == StatusAuthenticated }

const defaultRenewalTimeout = 15 * time.Second

// renewal is the single in-flight refresh. done is closed once token holds
// the settled outcome; "" means no session.
type renewal struct {
	done  chan struct{}
	token string
}

// SessionManager owns the bearer credential. It is the only writer of the
// credential, the identity derived from it and the in-flight renewal slot.
// All methods are safe for concurrent use.
type SessionManager struct {
	endpoints    Endpoints
	store        credstore.Store
	logger       *slog.Logger
	now          func() time.Time
	renewTimeout time.Duration

	mu          sync.Mutex
	credential  string
	identity    *Identity
	status      Status
	initialized bool
	inflight    *renewal
	epoch       uint64 // bumped by login, signup and logout
	gen         uint64 // bumped by every credential change
	subs        map[int]func(State)
	nextSub     int

	persistMu sync.Mutex
	persisted uint64
}

// Option configures a SessionManager.
type Option func(*SessionManager)

// WithStore mirrors the credential into store under credstore.CredentialKey.
func WithStore(store credstore.Store) Option {
	return func(m *SessionManager) { m.store = store }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *SessionManager) { m.logger = logger }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) { m.now = now }
}

// WithRenewalTimeout bounds a single call to the refresh endpoint.
func WithRenewalTimeout(d time.Duration) Option {
	return func(m *SessionManager) { m.renewTimeout = d }
}

// New returns a manager in StatusUninitialized. Call Init to load any
// stored credential.
func New(endpoints Endpoints, opts ...Option) *SessionManager {
	m := &SessionManager{
		endpoints:    endpoints,
		store:        credstore.NewMemoryStore(),
		logger:       slog.Default(),
		now:          time.Now,
		renewTimeout: defaultRenewalTimeout,
		subs:         make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init resolves the initial state. A valid stored credential is adopted
// without contacting the server; otherwise exactly one renewal is tried.
// Calling Init more than once, or after a login, does nothing.
func (m *SessionManager) Init(ctx context.Context) {
	m.mu.Lock()
	if m.status != StatusUninitialized {
		m.mu.Unlock()
		return
	}
	m.status = StatusInitializing
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()
	m.publish(snap, subs)

	if stored := m.loadStored(ctx); stored != "" {
		if res := Decode(stored, m.now()); res.Valid {
			m.mu.Lock()
			if m.status == StatusInitializing {
				m.adoptLocked(stored, &res.Identity)
			}
			snap, subs := m.snapshotLocked()
			m.mu.Unlock()
			m.publish(snap, subs)
			return
		}
		m.logger.Debug("stored credential unusable, renewing")
	}

	// The renewal keeps running for other callers if ctx ends first.
	_, _ = m.EnsureCredential(ctx)
}

// loadStored treats every store failure as "nothing stored".
func (m *SessionManager) loadStored(ctx context.Context) string {
	v, err := m.store.Load(ctx, credstore.CredentialKey)
	if err != nil {
		if !errors.Is(err, credstore.ErrNotFound) {
			m.logger.Warn("credential store unreadable, ignoring it", "err", err)
		}
		return ""
	}
	return strings.TrimSpace(v)
}

// Credential returns the held credential if it is still locally valid.
// It never performs I/O and never renews.
func (m *SessionManager) Credential() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil || !m.identity.validAt(m.now()) {
		return ""
	}
	return m.credential
}

// EnsureCredential returns a usable credential, renewing it if needed.
// Concurrent callers share a single renewal. Renewal failures are not
// errors: the result is simply "". The error is non-nil only when ctx ends
// before the shared renewal settles; the renewal itself carries on.
func (m *SessionManager) EnsureCredential(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.identity != nil && m.identity.validAt(m.now()) {
		cred := m.credential
		m.mu.Unlock()
		return cred, nil
	}

	r := m.inflight
	if r == nil {
		r = &renewal{done: make(chan struct{})}
		m.inflight = r
		go m.renew(context.WithoutCancel(ctx), r, m.epoch)
	}
	m.mu.Unlock()

	select {
	case <-r.done:
		return r.token, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *SessionManager) renew(ctx context.Context, r *renewal, epoch uint64) {
	ctx, cancel := context.WithTimeout(ctx, m.renewTimeout)
	defer cancel()

	token, err := m.endpoints.Refresh(ctx)
	var id *Identity
	if err == nil {
		if res := Decode(token, m.now()); res.Valid {
			id = &res.Identity
		} else {
			err = errors.New("authsdk: renewed credential is not usable")
		}
	}

	m.mu.Lock()
	if m.inflight == r {
		m.inflight = nil
	}

	var gen uint64
	switch {
	case epoch != m.epoch:
		// A login or logout happened meanwhile and takes precedence.
		m.logger.Debug("discarding renewal superseded by login or logout")
		r.token = m.credential
	case err != nil:
		m.logger.Info("credential renewal failed", "err", err)
		m.clearLocked()
		gen = m.gen
	default:
		m.adoptLocked(token, id)
		r.token = token
		gen = m.gen
	}
	snap, subs := m.snapshotLocked()
	close(r.done)
	m.mu.Unlock()

	if gen != 0 {
		m.persist(ctx, gen, r.token)
	}
	m.publish(snap, subs)
}

// Login exchanges handle and secret for a credential. On failure it
// returns an *AuthActionError and leaves the session untouched.
func (m *SessionManager) Login(ctx context.Context, handle, secret string) error {
	token, err := m.endpoints.Login(ctx, handle, secret)
	if err != nil {
		return newAuthActionError("login", "Login failed", err)
	}
	return m.establish(ctx, "login", token)
}

// Signup registers a new account and signs it in.
func (m *SessionManager) Signup(ctx context.Context, req SignupRequest) error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Username) == "" ||
		strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return &AuthActionError{Op: "signup", Message: "All fields are required"}
	}

	token, err := m.endpoints.Signup(ctx, req)
	if err != nil {
		return newAuthActionError("signup", "Signup failed", err)
	}
	return m.establish(ctx, "signup", token)
}

func (m *SessionManager) establish(ctx context.Context, op, token string) error {
	res := Decode(token, m.now())
	if !res.Valid {
		return &AuthActionError{Op: op, Message: "Received an invalid credential"}
	}

	// A renewal still in flight keeps its slot: it settles against the new
	// epoch and hands waiters the current credential.
	m.mu.Lock()
	m.epoch++
	m.adoptLocked(token, &res.Identity)
	gen := m.gen
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, gen, token)
	m.publish(snap, subs)
	return nil
}

// Logout notifies the server on a best-effort basis and then clears the
// session no matter what. The result of a renewal still in flight is
// discarded, and callers that attach to it meanwhile get "".
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	cred := m.credential
	m.mu.Unlock()

	if err := m.endpoints.Logout(ctx, cred); err != nil {
		m.logger.Warn("logout notification failed", "err", err)
	}

	m.mu.Lock()
	m.epoch++
	m.clearLocked()
	gen := m.gen
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, gen, "")
	m.publish(snap, subs)
}

// HasRole reports whether the current identity holds role.
func (m *SessionManager) HasRole(role string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity.HasRole(role)
}

// Identity returns a copy of the current identity, or nil.
func (m *SessionManager) Identity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity.clone()
}

// State returns the current snapshot.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, _ := m.snapshotLocked()
	return snap
}

// Subscribe registers fn for every state change. fn runs outside the
// manager's lock on the goroutine that caused the change, so it may call
// back into the manager. The returned func unregisters it.
func (m *SessionManager) Subscribe(fn func(State)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *SessionManager) adoptLocked(token string, id *Identity) {
	m.credential = token
	m.identity = id.clone()
	m.status = StatusAuthenticated
	m.initialized = true
	m.gen++
}

func (m *SessionManager) clearLocked() {
	m.credential = ""
	m.identity = nil
	m.status = StatusUnauthenticated
	m.initialized = true
	m.gen++
}

func (m *SessionManager) snapshotLocked() (State, []func(State)) {
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return State{Status: m.status, Identity: m.identity.clone(), Initialized: m.initialized}, subs
}

func (m *SessionManager) publish(s State, subs []func(State)) {
	for _, fn := range subs {
		fn(s)
	}
}

// persist writes token for generation gen. Writes that lose a race with a
// newer generation are dropped.
func (m *SessionManager) persist(ctx context.Context, gen uint64, token string) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	if gen <= m.persisted {
		return
	}
	m.persisted = gen

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var err error
	if token == "" {
		err = m.store.Delete(ctx, credstore.CredentialKey)
	} else {
		err = m.store.Save(ctx, credstore.CredentialKey, token)
	}
	if err != nil {
		m.logger.Warn("failed to persist credential", "err", err)
	}
}
