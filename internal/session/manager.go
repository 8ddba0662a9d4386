package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/metrics"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/snapshot"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/timer"
)

// Manager owns at most one controller per session id, so exactly one
// instance is ever authoritative for a given session.
type Manager struct {
	mu          sync.Mutex
	cfg         Config
	store       snapshot.Store
	events      Publisher
	archive     Archiver
	now         func() time.Time
	controllers map[string]*Controller
}

func NewManager(cfg Config, store snapshot.Store, events Publisher, archive Archiver) *Manager {
	return &Manager{
		cfg:         cfg.withDefaults(),
		store:       store,
		events:      events,
		archive:     archive,
		now:         time.Now,
		controllers: map[string]*Controller{},
	}
}

// StartGPS creates and starts a GPS session.
func (m *Manager) StartGPS(userID string) (*Controller, error) {
	return m.start(Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   KindGPS,
		State:  StateIdle,
	}, nil)
}

// StartExercise creates and starts an exercise session driven by plan.
func (m *Manager) StartExercise(userID string, plan timer.Plan) (*Controller, error) {
	return m.start(Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   KindExercise,
		State:  StateIdle,
	}, &plan)
}

func (m *Manager) start(sess Session, plan *timer.Plan) (*Controller, error) {
	c := newController(sess, m.cfg, m.store, m.events, m.archive, m.now)
	if plan != nil {
		c.eng = timer.NewEngine(*plan)
	}
	if err := c.Start(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.controllers[sess.ID] = c
	m.mu.Unlock()
	return c, nil
}

// Get returns the authoritative controller for id.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return c, nil
}

// Release drops a terminal session's controller. No-op while the session
// is still live.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.controllers[id]; ok && c.State().Terminal() {
		delete(m.controllers, id)
	}
}

// RecoverableSession describes an interrupted session found at process
// start.
type RecoverableSession struct {
	Session Session   `json:"session"`
	Seq     uint64    `json:"seq"`
	TakenAt time.Time `json:"taken_at"`
}

// Recoverable lists sessions with a usable snapshot and no live
// controller. Corrupt snapshots are skipped, never fabricated into
// sessions.
func (m *Manager) Recoverable(ctx context.Context) ([]RecoverableSession, error) {
	if m.store == nil {
		return nil, nil
	}
	ids, err := m.store.SessionIDs(ctx)
	if err != nil {
		return nil, err
	}

	var out []RecoverableSession
	for _, id := range ids {
		m.mu.Lock()
		_, live := m.controllers[id]
		m.mu.Unlock()
		if live {
			continue
		}

		rec, err := m.store.LoadLatest(ctx, id)
		if err != nil {
			continue
		}
		var state snapshotState
		if err := json.Unmarshal(rec.State, &state); err != nil {
			continue
		}
		if state.Session.State.Terminal() || state.Session.State == StateIdle {
			continue
		}
		out = append(out, RecoverableSession{Session: state.Session, Seq: rec.Seq, TakenAt: rec.TakenAt})
	}
	return out, nil
}

// Recover reconstructs a controller from the latest snapshot of id,
// resuming in the snapshotted state (Active or Paused). Only valid while
// no controller is live for that id.
func (m *Manager) Recover(ctx context.Context, id string) (*Controller, error) {
	m.mu.Lock()
	if _, live := m.controllers[id]; live {
		m.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	m.mu.Unlock()

	if m.store == nil {
		return nil, ErrNotRecoverable
	}
	rec, err := m.store.LoadLatest(ctx, id)
	if errors.Is(err, snapshot.ErrNotFound) || errors.Is(err, snapshot.ErrCorrupt) {
		return nil, ErrNotRecoverable
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var state snapshotState
	if err := json.Unmarshal(rec.State, &state); err != nil {
		return nil, ErrNotRecoverable
	}
	if state.Session.State.Terminal() || state.Session.State == StateIdle {
		return nil, ErrNotRecoverable
	}

	c := newController(state.Session, m.cfg, m.store, m.events, m.archive, m.now)
	if state.Metrics != nil {
		c.agg = metrics.Restore(*state.Metrics, m.cfg.SplitUnitM, m.cfg.CaloriesPerKm)
		// the gap since the snapshot is unobserved; do not bridge it
		// with a distance delta
		c.agg.ResetReference()
	}
	if state.Timer != nil {
		c.eng = timer.RestoreEngine(state.Timer.Plan, state.Timer.State)
	}

	m.mu.Lock()
	if _, live := m.controllers[id]; live {
		m.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	m.controllers[id] = c
	m.mu.Unlock()

	go c.runSnapshotLoop()
	c.emit(Event{Type: EventRecovered, SessionID: id, At: m.now(), State: c.State()})
	return c, nil
}

// Close stops all snapshot loops. Sessions stay recoverable from their
// latest snapshots.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.controllers {
		c.stopSnapshotLoop()
	}
}
