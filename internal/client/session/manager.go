// Package session keeps the client access token fresh.
//
// Access token lives in a Store. Manager reads its expiry without verifying the
// signature and refreshes it shortly before it runs out. If refresh fails
// the token is dropped and OnExpired is called, so the user has to log in again.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/comictracker/internal/logger"
)

const defaultLead = time.Second

// Gets new access token. Refresh cookie is the refresher business
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

type RefresherFunc func(ctx context.Context) (string, error)

func (f RefresherFunc) Refresh(ctx context.Context) (string, error) {
	return f(ctx)
}

type Config struct {
	Store     Store
	Refresher Refresher

	// TimerScheduler if not set
	Scheduler Scheduler

	// Clock, time.Now if not set
	Now func() time.Time

	// How long before expiry the token is refreshed, 1s if not set
	Lead time.Duration

	// Called when session is lost: token can't be decoded or refresh failed
	OnExpired func()

	Logger logger.Logger
}

type Manager struct {
	store     Store
	refresher Refresher
	scheduler Scheduler
	now       func() time.Time
	lead      time.Duration
	onExpired func()
	logger    logger.Logger

	mu         sync.Mutex
	ctx        context.Context
	pending    Handle
	refreshing bool
	rerun      bool
	rerunGen   uint64
	// Bumped on every token change, so late refresh results are dropped
	generation uint64
}

func New(cfg Config) (*Manager, error) {
	if cfg.Store == nil || cfg.Refresher == nil {
		return nil, errors.New("store and refresher are required")
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TimerScheduler{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Lead <= 0 {
		cfg.Lead = defaultLead
	}
	if cfg.OnExpired == nil {
		cfg.OnExpired = func() {}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Manager{
		store:     cfg.Store,
		refresher: cfg.Refresher,
		scheduler: cfg.Scheduler,
		now:       cfg.Now,
		lead:      cfg.Lead,
		onExpired: cfg.OnExpired,
		logger:    cfg.Logger,
		ctx:       context.Background(),
	}, nil
}

// Pick up stored token on application start
// ctx is used for every refresh call until Stop
func (m *Manager) Start(ctx context.Context) error {
	token, err := m.store.Get()
	if err != nil {
		return fmt.Errorf("can't read stored token. Err: %w", err)
	}

	m.mu.Lock()
	m.ctx = ctx
	gen := m.generation
	m.mu.Unlock()

	if token == "" {
		return nil
	}

	m.track(token, gen)
	return nil
}

// Store token got from login and keep it fresh
func (m *Manager) SetToken(token string) error {
	m.mu.Lock()
	m.cancelLocked()
	m.generation++
	gen := m.generation
	err := m.store.Set(token)
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("can't store token. Err: %w", err)
	}

	m.track(token, gen)
	return nil
}

// Current access token, empty if there is no session
func (m *Manager) Token() (string, error) {
	return m.store.Get()
}

// Forget the session, e.g. on logout. OnExpired is not called
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
	m.generation++
	return m.store.Clear()
}

// Cancel pending refresh. Stored token is kept
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
	m.generation++
}

// Keep token of the given generation fresh. Does nothing once the generation is gone
func (m *Manager) track(token string, gen uint64) {
	exp, err := Expiry(token)
	if err != nil {
		m.logger.Warn("stored token can't be decoded", "error", err)
		m.expire(gen)
		return
	}

	delay := exp.Sub(m.now()) - m.lead
	if delay <= 0 {
		m.refresh(gen)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}
	m.cancelLocked()
	m.pending = m.scheduler.Schedule(delay, func() { m.refresh(gen) })
	m.logger.Debug("token refresh scheduled", "in", delay)
}

func (m *Manager) refresh(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	if m.refreshing {
		// Token changed while a refresh is in flight: run again once it is done
		m.rerun = true
		m.rerunGen = gen
		m.mu.Unlock()
		return
	}
	m.refreshing = true
	m.pending = nil
	ctx := m.ctx
	m.mu.Unlock()

	token, err := m.refresher.Refresh(ctx)
	if err == nil && token == "" {
		err = errors.New("no token in refresh response")
	}

	m.mu.Lock()
	m.refreshing = false
	rerun := m.rerun && m.rerunGen == m.generation
	m.rerun = false
	current := m.generation

	// Token was replaced, cleared or stopped meanwhile
	if gen != current {
		m.mu.Unlock()
		if rerun {
			m.refresh(current)
		}
		return
	}

	if err != nil {
		m.logger.Info("token refresh failed, session is lost", "error", err)
		m.expireLocked()
		return
	}

	// Stored under the lock, so Clear can't slip in between check and write
	if err := m.store.Set(token); err != nil {
		m.logger.Error("can't store refreshed token", "error", err)
		m.expireLocked()
		return
	}
	m.mu.Unlock()

	m.track(token, gen)
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.expireLocked()
}

// Drop the session and call OnExpired. Expects m.mu held, releases it
func (m *Manager) expireLocked() {
	m.cancelLocked()
	m.generation++
	err := m.store.Clear()
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("can't clear stored token", "error", err)
	}
	m.onExpired()
}

func (m *Manager) cancelLocked() {
	if m.pending != nil {
		m.pending.Cancel()
		m.pending = nil
	}
}

// Expiry of the token. Signature is not verified: client has no secret
func Expiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}
