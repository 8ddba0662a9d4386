package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/metrics"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/snapshot"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/telemetry"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/timer"
)

// Config is the engine tuning for one controller.
type Config struct {
	HorizontalAccuracyMaxM float64
	VerticalAccuracyMaxM   float64
	NoiseFloorM            float64
	SplitUnitM             float64
	CaloriesPerKm          float64
	SnapshotInterval       time.Duration
	IncludePartialSplit    bool
}

func (c Config) withDefaults() Config {
	if c.HorizontalAccuracyMaxM <= 0 {
		c.HorizontalAccuracyMaxM = 30
	}
	if c.VerticalAccuracyMaxM <= 0 {
		c.VerticalAccuracyMaxM = 50
	}
	if c.NoiseFloorM <= 0 {
		c.NoiseFloorM = 2
	}
	if c.SplitUnitM <= 0 {
		c.SplitUnitM = 1000
	}
	if c.CaloriesPerKm <= 0 {
		c.CaloriesPerKm = 62
	}
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = 30 * time.Second
	}
	return c
}

// Archiver receives finalized records for durable storage. The engine
// keeps no reference to a record after handoff.
type Archiver interface {
	SaveFinalized(ctx context.Context, rec FinalizedRecord) error
}

// Controller is the single authoritative owner of one session. External
// callers (location callbacks, timer ticks, user commands) may arrive on
// independent goroutines; the mutex merges them into one serialized
// command stream so no two transitions interleave mid-update.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	session Session
	filter  *telemetry.Filter
	agg     *metrics.Aggregator // GPS sessions
	eng     *timer.Engine       // exercise sessions

	store   snapshot.Store
	events  Publisher
	archive Archiver
	now     func() time.Time

	snapshotBusy atomic.Bool
	// set once snapshots are obsolete (cancelled, or finished and
	// archived); any write that settles afterwards is disregarded
	snapshotDiscard atomic.Bool
	loopStop        chan struct{}
	loopOnce        sync.Once
}

func newController(sess Session, cfg Config, store snapshot.Store, events Publisher, archive Archiver, now func() time.Time) *Controller {
	cfg = cfg.withDefaults()
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		cfg:      cfg,
		session:  sess,
		filter:   telemetry.NewFilter(cfg.HorizontalAccuracyMaxM, cfg.VerticalAccuracyMaxM, cfg.NoiseFloorM),
		store:    store,
		events:   events,
		archive:  archive,
		now:      now,
		loopStop: make(chan struct{}),
	}
	switch sess.Kind {
	case KindGPS:
		c.agg = metrics.NewAggregator(cfg.SplitUnitM, cfg.CaloriesPerKm)
	}
	return c
}

func (c *Controller) ID() string { return c.session.ID }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State
}

// Start transitions Idle to Active, zeroes accumulators, requests the
// first snapshot and begins the periodic snapshot loop.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.session.State != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	c.session.State = StateActive
	c.session.StartedAt = c.now()
	c.session.ActiveDuration = 0
	c.requestSnapshotLocked()
	ev := c.transitionEventLocked(EventStarted)
	c.mu.Unlock()

	go c.runSnapshotLoop()
	c.emit(ev)
	return nil
}

// Pause freezes active-duration accrual. Samples arriving while paused
// are discarded, not buffered.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.session.State != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	c.session.State = StatePaused
	c.requestSnapshotLocked()
	ev := c.transitionEventLocked(EventPaused)
	c.mu.Unlock()

	c.emit(ev)
	return nil
}

// Resume returns to Active and resets the last-accepted reference so the
// next fix cannot contribute a spurious distance jump across the gap.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if c.session.State != StatePaused {
		c.mu.Unlock()
		return ErrNotPaused
	}
	c.session.State = StateActive
	if c.agg != nil {
		c.agg.ResetReference()
	}
	c.requestSnapshotLocked()
	ev := c.transitionEventLocked(EventResumed)
	c.mu.Unlock()

	c.emit(ev)
	return nil
}

// Finish produces the immutable finalized record and hands it to the
// archiver. Snapshots are deleted once the record is durably stored.
func (c *Controller) Finish(ctx context.Context) (FinalizedRecord, error) {
	c.mu.Lock()
	if c.session.State != StateActive && c.session.State != StatePaused {
		c.mu.Unlock()
		return FinalizedRecord{}, ErrNoActiveSession
	}
	finishedAt := c.now()
	c.session.State = StateFinished
	c.session.FinishedAt = &finishedAt

	rec := c.finalizeLocked()
	ev := c.transitionEventLocked(EventFinished)
	ev.Record = &rec
	c.mu.Unlock()

	c.stopSnapshotLoop()

	archived := true
	if c.archive != nil {
		if err := c.archive.SaveFinalized(ctx, rec); err != nil {
			// keep the snapshot so the record can be rebuilt
			log.Printf("session %s: archiving finalized record failed: %v", rec.SessionID, err)
			archived = false
		}
	}
	if archived && c.store != nil {
		c.snapshotDiscard.Store(true)
		if err := c.store.Delete(context.Background(), rec.SessionID); err != nil {
			log.Printf("session %s: snapshot cleanup failed: %v", rec.SessionID, err)
		}
	}

	c.emit(ev)
	return rec, nil
}

// Cancel discards all accumulated state. The session is marked Cancelled
// before any in-flight snapshot write settles; that write's result is
// disregarded.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	if c.session.State.Terminal() {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	c.session.State = StateCancelled
	ev := c.transitionEventLocked(EventCancelled)
	c.mu.Unlock()

	c.stopSnapshotLoop()
	c.snapshotDiscard.Store(true)
	if c.store != nil {
		if err := c.store.Delete(context.Background(), c.session.ID); err != nil {
			log.Printf("session %s: snapshot cleanup failed: %v", c.session.ID, err)
		}
	}

	c.emit(ev)
	return nil
}

// Ingest routes one telemetry sample through the filter into the
// aggregator. Valid only while Active; paused sessions discard samples
// silently since hardware capture may keep running. Exercise sessions
// ignore samples entirely.
func (c *Controller) Ingest(sample telemetry.Sample) error {
	c.mu.Lock()
	switch c.session.State {
	case StateActive:
	case StatePaused:
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		return ErrNotActive
	}
	if c.agg == nil {
		c.mu.Unlock()
		return nil
	}

	state := c.agg.State()
	dec := c.filter.Evaluate(sample, state.LastAccepted)
	if !dec.Accepted {
		c.agg.NoteRejected()
		c.mu.Unlock()
		return nil
	}

	splits := c.agg.Apply(dec, sample.Position, c.session.ActiveDuration)
	var evs []Event
	for i := range splits {
		evs = append(evs, Event{
			Type:      EventSplitCompleted,
			SessionID: c.session.ID,
			At:        c.now(),
			Split:     &splits[i],
		})
	}
	if len(splits) > 0 {
		c.requestSnapshotLocked()
	}
	c.mu.Unlock()

	for _, ev := range evs {
		c.emit(ev)
	}
	return nil
}

// Tick advances the session clock. Active duration accrues for both
// kinds; exercise sessions additionally drive their phase sequence.
func (c *Controller) Tick(elapsed time.Duration) error {
	c.mu.Lock()
	if c.session.State != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	c.session.ActiveDuration += elapsed

	var evs []Event
	if c.eng != nil {
		for _, tev := range c.eng.Tick(elapsed) {
			phase := tev
			evs = append(evs, Event{
				Type:      EventPhaseComplete,
				SessionID: c.session.ID,
				At:        c.now(),
				Phase:     &phase,
			})
		}
		if len(evs) > 0 {
			c.requestSnapshotLocked()
		}
	}
	c.mu.Unlock()

	for _, ev := range evs {
		c.emit(ev)
	}
	return nil
}

// SkipPhase ends the current timer phase, when the phase allows it.
func (c *Controller) SkipPhase() error {
	c.mu.Lock()
	if c.session.State != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	if c.eng == nil {
		c.mu.Unlock()
		return ErrNotActive
	}
	tev, err := c.eng.SkipPhase()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.requestSnapshotLocked()
	ev := Event{Type: EventPhaseComplete, SessionID: c.session.ID, At: c.now(), Phase: &tev}
	c.mu.Unlock()

	c.emit(ev)
	return nil
}

// CompleteSetEarly ends the current work phase now with the given payload.
func (c *Controller) CompleteSetEarly(payload timer.SetPayload) error {
	c.mu.Lock()
	if c.session.State != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	if c.eng == nil {
		c.mu.Unlock()
		return ErrNotActive
	}
	tev, err := c.eng.CompleteSetEarly(payload)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.requestSnapshotLocked()
	ev := Event{Type: EventPhaseComplete, SessionID: c.session.ID, At: c.now(), Phase: &tev}
	c.mu.Unlock()

	c.emit(ev)
	return nil
}

// Live returns the last consistent derived state. Safe to call at any
// time; never blocks on ingestion beyond the command mutex.
func (c *Controller) Live() LiveView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := LiveView{
		SessionID:      c.session.ID,
		Kind:           c.session.Kind,
		State:          c.session.State,
		StartedAt:      c.session.StartedAt,
		ActiveDuration: c.session.ActiveDuration,
	}
	if c.agg != nil {
		st := c.agg.State()
		view.DistanceM = st.TotalDistanceM
		view.ElevationGainM = st.ElevationGainM
		view.ElevationLossM = st.ElevationLossM
		view.Splits = append([]metrics.Split(nil), st.Splits...)
		view.AveragePace = c.agg.AveragePace(c.session.ActiveDuration)
		view.CurrentPace = c.agg.CurrentPace()
		view.AverageSpeedMps = c.agg.AverageSpeedMps(c.session.ActiveDuration)
		view.Calories = c.agg.Calories()
	}
	if c.eng != nil {
		st := c.eng.State()
		view.Phase = c.eng.Phase()
		view.PhaseRemaining = c.eng.PhaseRemaining()
		view.CompletedSets = append([]timer.SetRecord(nil), st.CompletedSets...)
		view.ConfiguredSets = c.eng.Plan().ConfiguredSets()
	}
	return view
}

func (c *Controller) transitionEventLocked(t EventType) Event {
	return Event{Type: t, SessionID: c.session.ID, At: c.now(), State: c.session.State}
}

func (c *Controller) emit(ev Event) {
	if c.events != nil {
		c.events.Publish(ev.SessionID, ev)
	}
}

// requestSnapshotLocked captures the current state and writes it in the
// background. A write still in flight means this request is skipped, not
// queued; ingestion is never blocked on snapshotting.
func (c *Controller) requestSnapshotLocked() {
	if c.store == nil {
		return
	}
	state := snapshotState{Session: c.session}
	if c.agg != nil {
		ms := c.agg.State()
		state.Metrics = &ms
	}
	if c.eng != nil {
		state.Timer = &timerSnapshot{Plan: c.eng.Plan(), State: c.eng.State()}
	}
	data, err := json.Marshal(state)
	if err != nil {
		log.Printf("session %s: snapshot marshal failed: %v", c.session.ID, err)
		return
	}

	if !c.snapshotBusy.CompareAndSwap(false, true) {
		return
	}
	sessionID := c.session.ID
	takenAt := c.now()
	go func() {
		defer c.snapshotBusy.Store(false)
		if _, err := c.store.Save(context.Background(), sessionID, data, takenAt); err != nil {
			// best effort; retried on the next interval
			log.Printf("session %s: snapshot write failed: %v", sessionID, err)
			return
		}
		// a write racing a cancel or archived finish must not
		// resurrect the snapshot
		if c.snapshotDiscard.Load() {
			_ = c.store.Delete(context.Background(), sessionID)
		}
	}()
}

func (c *Controller) runSnapshotLoop() {
	ticker := time.NewTicker(c.cfg.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.loopStop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.session.State == StateActive {
				c.requestSnapshotLocked()
			}
			c.mu.Unlock()
		}
	}
}

func (c *Controller) stopSnapshotLoop() {
	c.loopOnce.Do(func() { close(c.loopStop) })
}
