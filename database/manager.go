package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/driver"
	"github.com/spiral-modules/dbal/logger"
)

// Connector creates the database registered under an alias.
type Connector func(alias string, cfg *config.DatabaseConfig, log logger.Logger) (*Database, error)

// DefaultConnector builds databases with New, naming the driver after its alias.
func DefaultConnector(alias string, cfg *config.DatabaseConfig, log logger.Logger) (*Database, error) {
	return New(cfg, log, driver.WithName(alias))
}

// ManagerOptions configures the Manager.
type ManagerOptions struct {
	// IdleTTL disconnects databases unused for longer than this. Zero disables cleanup.
	IdleTTL time.Duration
	// Connector overrides how databases are created.
	Connector Connector
}

// Manager owns one Database per configured alias. Databases are created lazily on first
// use and concurrent first calls for an alias share one creation.
type Manager struct {
	cfg       *config.Config
	log       logger.Logger
	connector Connector
	idleTTL   time.Duration

	mu  sync.RWMutex
	dbs map[string]*entry

	cleanupMu sync.Mutex
	cleanupCh chan struct{}

	sfg singleflight.Group
}

type entry struct {
	db       *Database
	lastUsed time.Time
}

// NewManager creates a manager over cfg.
func NewManager(cfg *config.Config, log logger.Logger, opts ManagerOptions) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Connector == nil {
		opts.Connector = DefaultConnector
	}
	return &Manager{
		cfg:       cfg,
		log:       log,
		connector: opts.Connector,
		idleTTL:   opts.IdleTTL,
		dbs:       make(map[string]*entry),
	}
}

// Database returns the database registered under alias. An empty alias selects the
// configured default.
func (m *Manager) Database(ctx context.Context, alias string) (*Database, error) {
	if alias == "" {
		alias = m.cfg.Default
	}
	if db := m.existing(alias); db != nil {
		return db, nil
	}

	v, err, _ := m.sfg.Do(alias, func() (any, error) {
		if db := m.existing(alias); db != nil {
			return db, nil
		}
		return m.create(ctx, alias)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Database), nil
}

func (m *Manager) existing(alias string) *Database {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.dbs[alias]
	if !ok {
		return nil
	}
	e.lastUsed = time.Now()
	return e.db
}

func (m *Manager) create(_ context.Context, alias string) (*Database, error) {
	cfg, err := m.cfg.Database(alias)
	if err != nil {
		return nil, fmt.Errorf("unknown database %q: %w", alias, err)
	}

	db, err := m.connector(alias, cfg, m.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create database %q: %w", alias, err)
	}

	m.mu.Lock()
	m.dbs[alias] = &entry{db: db, lastUsed: time.Now()}
	m.mu.Unlock()

	m.log.Info().
		Str("alias", alias).
		Str("driver", string(db.Dialect())).
		Msg("Created database")
	return db, nil
}

// Aliases returns the configured aliases in sorted order.
func (m *Manager) Aliases() []string {
	out := m.cfg.Aliases()
	sort.Strings(out)
	return out
}

// StartCleanup periodically disconnects databases idle longer than IdleTTL. Databases
// with an open transaction are left alone. Disconnected databases reconnect on demand.
func (m *Manager) StartCleanup(interval time.Duration) {
	if m.idleTTL <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	m.cleanupMu.Lock()
	if m.cleanupCh != nil {
		m.cleanupMu.Unlock()
		return
	}
	done := make(chan struct{})
	m.cleanupCh = done
	m.cleanupMu.Unlock()

	go m.cleanupLoop(interval, done)
}

// StopCleanup stops the cleanup loop.
func (m *Manager) StopCleanup() {
	m.cleanupMu.Lock()
	defer m.cleanupMu.Unlock()
	if m.cleanupCh == nil {
		return
	}
	close(m.cleanupCh)
	m.cleanupCh = nil
}

func (m *Manager) cleanupLoop(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.disconnectIdle(time.Now())
		case <-done:
			return
		}
	}
}

func (m *Manager) disconnectIdle(now time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for alias, e := range m.dbs {
		d := e.db.Driver()
		if now.Sub(e.lastUsed) <= m.idleTTL || !d.IsConnected() || d.TransactionLevel() > 0 {
			continue
		}
		if err := e.db.Close(); err != nil {
			m.log.Error().Err(err).Str("alias", alias).Msg("Error disconnecting idle database")
			continue
		}
		m.log.Debug().
			Str("alias", alias).
			Dur("idle_time", now.Sub(e.lastUsed)).
			Msg("Disconnected idle database")
	}
}

// Close disconnects every database and forgets them.
func (m *Manager) Close() error {
	m.StopCleanup()

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for alias, e := range m.dbs {
		if err := e.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing database %q: %w", alias, err))
		}
	}
	m.dbs = make(map[string]*entry)
	return errors.Join(errs...)
}

// Size returns the number of created databases.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dbs)
}

// Stats reports every created database keyed by alias.
func (m *Manager) Stats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	out := make(map[string]any, len(m.dbs))
	for alias, e := range m.dbs {
		d := e.db.Driver()
		out[alias] = map[string]any{
			"driver":            string(e.db.Dialect()),
			"connected":         d.IsConnected(),
			"transaction_level": d.TransactionLevel(),
			"idle_seconds":      int(now.Sub(e.lastUsed).Seconds()),
		}
	}
	return out
}
