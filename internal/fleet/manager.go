package fleet

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"movehub/internal/hid"
	"movehub/internal/store"
)

// MaxControllers is the fixed slot pool size: the maximum number of
// controllers managed at once. The slot index is the externally visible
// logical controller ID.
const MaxControllers = 5

var errNotOpen = errors.New("controller not open")

// State is the manager lifecycle state. There is no re-entry to Running
// after shutdown.
type State int

const (
	StateUninitialized State = iota
	StateRunning
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateShutDown:
		return "shut_down"
	default:
		return "unknown"
	}
}

type commandKind int

const (
	cmdRumble commandKind = iota
	cmdResetPose
)

type command struct {
	kind   commandKind
	id     int
	amount float32
}

// ControllerStatus is one slot's entry in a fleet snapshot.
type ControllerStatus struct {
	ID        int        `json:"id"`
	Connected bool       `json:"connected"`
	Path      string     `json:"path,omitempty"`
	Sample    hid.Sample `json:"sample"`
}

// Snapshot is an immutable view of the fleet, replaced wholesale after
// every reconciliation pass. Readers on other goroutines get the pointer
// atomically and never touch the live pool.
type Snapshot struct {
	State       string                           `json:"state"`
	Controllers [MaxControllers]ControllerStatus `json:"controllers"`
	SequenceNum uint64                           `json:"sequence_num"`
	Taken       time.Time                        `json:"taken"`
}

// Manager owns the slot pool and drives the two time-gated passes: the
// fast poll pass and the slow reconciliation pass. Everything it owns is
// touched exclusively from the Startup/Update/Shutdown call path on the
// host loop; cross-goroutine access goes through Snapshot and the command
// queue.
type Manager struct {
	transport hid.Transport
	publisher Publisher
	store     store.Store
	events    *EventBus
	logger    *slog.Logger
	clock     func() time.Time

	state       State
	controllers [MaxControllers]*Controller
	settings    *store.FleetSettings

	seq           uint64
	lastPoll      time.Time
	lastReconcile time.Time

	commands chan command
	snapshot atomic.Pointer[Snapshot]
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// New creates a manager with all controller handles pre-allocated.
func New(tr hid.Transport, pub Publisher, st store.Store, events *EventBus, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		transport: tr,
		publisher: pub,
		store:     st,
		events:    events,
		logger:    logger.With("component", "fleet"),
		clock:     time.Now,
		commands:  make(chan command, 32),
	}
	for i := range m.controllers {
		m.controllers[i] = newController(i)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the event bus.
func (m *Manager) Events() *EventBus { return m.events }

// Startup loads the persisted settings and initializes the hardware
// transport. A transport failure is fatal: the manager stays out of
// Running and the caller must not call Update.
func (m *Manager) Startup() error {
	if m.state != StateUninitialized {
		return fmt.Errorf("startup from state %s", m.state)
	}

	settings, err := m.store.GetFleetSettings()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("load fleet settings", "err", err)
		}
		settings = store.DefaultFleetSettings()
	}
	settings.Normalize()
	m.settings = settings

	if err := m.transport.Initialize(); err != nil {
		return fmt.Errorf("transport init: %w", err)
	}

	m.state = StateRunning
	m.publishSnapshot()
	m.logger.Info("fleet manager started",
		"slots", MaxControllers,
		"poll_interval_ms", settings.PollIntervalMS,
		"reconnect_interval_ms", settings.ReconnectIntervalMS)
	m.events.Emit(Event{Type: EventFleetState, Data: "running"})
	return nil
}

// Update runs at most one poll pass and at most one reconciliation pass,
// each gated by its own interval. Timestamps advance to now rather than
// now minus drift: a stalled host loop sheds backlog instead of bursting.
// Callable only while Running; a no-op otherwise.
func (m *Manager) Update() {
	if m.state != StateRunning {
		return
	}

	m.drainCommands()

	now := m.clock()
	if now.Sub(m.lastPoll) >= m.pollInterval() {
		m.pollControllers()
		m.lastPoll = now
	}
	if now.Sub(m.lastReconcile) >= m.reconnectInterval() {
		m.reconcile()
		m.lastReconcile = now
	}
}

// Shutdown persists the settings, closes every open controller and tears
// down the transport. Safe to call in any state, once.
func (m *Manager) Shutdown() {
	if m.state == StateShutDown {
		return
	}
	if m.state == StateRunning {
		if err := m.store.SaveFleetSettings(m.settings); err != nil {
			m.logger.Error("save fleet settings", "err", err)
		}
		for _, c := range m.controllers {
			if c != nil && c.IsOpen() {
				c.Close()
			}
		}
		m.transport.Shutdown()
	}
	m.state = StateShutDown
	m.publishSnapshot()
	m.logger.Info("fleet manager shut down")
	m.events.Emit(Event{Type: EventFleetState, Data: "shut_down"})
}

// SetRumble requests a rumble intensity change on the given controller.
// The command is applied inside the next Update call; the return value
// reports acceptance against the last published snapshot, not delivery.
func (m *Manager) SetRumble(id int, amount float32) bool {
	if !m.accepts(id) {
		return false
	}
	select {
	case m.commands <- command{kind: cmdRumble, id: id, amount: amount}:
		return true
	default:
		return false
	}
}

// ResetPose requests a pose re-base on the given controller.
func (m *Manager) ResetPose(id int) bool {
	if !m.accepts(id) {
		return false
	}
	select {
	case m.commands <- command{kind: cmdResetPose, id: id}:
		return true
	default:
		return false
	}
}

func (m *Manager) accepts(id int) bool {
	snap := m.snapshot.Load()
	if snap == nil || snap.State != StateRunning.String() {
		return false
	}
	if id < 0 || id >= MaxControllers {
		return false
	}
	return snap.Controllers[id].Connected
}

func (m *Manager) drainCommands() {
	for {
		select {
		case cmd := <-m.commands:
			m.applyCommand(cmd)
		default:
			return
		}
	}
}

func (m *Manager) applyCommand(cmd command) {
	c := m.controllers[cmd.id]
	if c == nil || !c.IsOpen() {
		return // controller went away between enqueue and apply
	}
	switch cmd.kind {
	case cmdRumble:
		if err := c.SetRumble(cmd.amount); err != nil {
			m.logger.Warn("set rumble", "id", cmd.id, "err", err)
		}
	case cmdResetPose:
		c.ResetPose()
		m.logger.Info("pose reset", "id", cmd.id)
	}
}

// Snapshot returns the last published fleet view. Nil before Startup.
func (m *Manager) Snapshot() *Snapshot {
	return m.snapshot.Load()
}

func (m *Manager) publishSnapshot() {
	snap := &Snapshot{
		State:       m.state.String(),
		SequenceNum: m.seq,
		Taken:       m.clock(),
	}
	for i, c := range m.controllers {
		snap.Controllers[i] = ControllerStatus{
			ID:        i,
			Connected: c != nil && c.IsOpen(),
		}
		if c != nil {
			snap.Controllers[i].Path = c.Path()
			snap.Controllers[i].Sample = c.Sample()
		}
	}
	m.snapshot.Store(snap)
}

func (m *Manager) pollInterval() time.Duration {
	return time.Duration(m.settings.PollIntervalMS) * time.Millisecond
}

func (m *Manager) reconnectInterval() time.Duration {
	return time.Duration(m.settings.ReconnectIntervalMS) * time.Millisecond
}

// recordSeen upserts the controller registry entry for a freshly opened
// device. Registry failures are logged, never propagated.
func (m *Manager) recordSeen(info hid.DeviceInfo) {
	key := info.Serial
	if key == "" {
		key = info.Path
	}
	now := m.clock()
	known, err := m.store.GetController(key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("controller registry lookup", "key", key, "err", err)
			return
		}
		known = &store.KnownController{Key: key, FirstSeen: now}
	}
	known.Path = info.Path
	known.Serial = info.Serial
	known.Product = info.Product
	known.VendorID = info.VendorID
	known.ProductID = info.ProductID
	known.LastSeen = now
	if err := m.store.SaveController(known); err != nil {
		m.logger.Warn("controller registry save", "key", key, "err", err)
	}
}
