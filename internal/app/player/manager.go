package player

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunedeck/internal/app/queue"
	"github.com/osa030/tunedeck/internal/domain/track"
	"github.com/osa030/tunedeck/internal/watch"
)

// Errors
var (
	ErrNothingToPlay = errors.New("player: group resolved to no tracks")
	ErrNotConnected  = errors.New("player: engine not connected")
)

// GroupResolver resolves an opaque media group into an ordered track list.
type GroupResolver interface {
	TracksFor(ctx context.Context, g track.Group) ([]int64, error)
}

// Status is the unified playback state published to observers. Engine
// connection failures surface here as a value, not an error return, so
// observers can render a retry affordance; retry policy stays with the
// caller.
type Status struct {
	State        State
	QueueIndex   int
	TrackID      int64
	PositionMs   int64
	ConnectError string // Last connection failure, empty when none
}

// Config holds manager configuration.
type Config struct {
	ProgressSaveInterval time.Duration // Throttle for persisting position callbacks
}

// Manager orchestrates the playback engine against the queue repository.
// The engine is exclusively owned by the manager; no other component issues
// engine commands.
type Manager struct {
	mu sync.Mutex

	engine   Engine
	repo     *queue.Repository
	resolver GroupResolver
	config   Config

	state       State
	queueIndex  int
	positionMs  int64
	connectErr  string
	lastPersist time.Time
	loadedIDs   []int64 // Track list last handed to the engine

	connectCancel context.CancelFunc
	sessionCancel context.CancelFunc

	status *watch.Value[Status]
}

// NewManager creates a playback manager. The engine is not connected until
// ConnectToService is called.
func NewManager(engine Engine, repo *queue.Repository, resolver GroupResolver, cfg Config) *Manager {
	if cfg.ProgressSaveInterval <= 0 {
		cfg.ProgressSaveInterval = 5 * time.Second
	}
	m := &Manager{
		engine:     engine,
		repo:       repo,
		resolver:   resolver,
		config:     cfg,
		state:      StateIdle,
		queueIndex: track.NoSession,
		status:     watch.NewValue[Status](),
	}
	m.status.Set(m.buildStatusLocked())
	return m
}

// WatchStatus returns the playback-state stream. The latest status is
// replayed immediately to late subscribers.
func (m *Manager) WatchStatus(ctx context.Context) <-chan Status {
	return m.status.Watch(ctx)
}

// Status returns the current status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buildStatusLocked()
}

// GetState returns the current playback state.
func (m *Manager) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ConnectToService connects the playback engine. Idempotent: calls while
// already connecting or connected do nothing. The connect itself runs
// asynchronously; failures surface on the status stream.
func (m *Manager) ConnectToService() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return
	}
	m.state = StateConnecting
	m.connectErr = ""
	m.publishLocked()

	cctx, cancel := context.WithCancel(context.Background())
	m.connectCancel = cancel

	go func() {
		err := m.engine.Connect(cctx)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.connectCancel = nil

		if m.state != StateConnecting {
			// Superseded by a disconnect while in flight; make sure the
			// engine is not left connected.
			if err == nil {
				_ = m.engine.Disconnect()
			}
			return
		}
		if err != nil {
			m.state = StateIdle
			m.connectErr = err.Error()
			zlog.Warn().Msgf("player: engine connect failed: %v", err)
			m.publishLocked()
			return
		}

		m.state = StateConnected
		sctx, scancel := context.WithCancel(context.Background())
		m.sessionCancel = scancel
		go m.consumeEvents(sctx)
		go m.watchQueue(sctx)
		m.publishLocked()
	}()
}

// DisconnectFromService disconnects the engine. Idempotent. An in-flight
// connect is cancelled; persisted queue and position are left untouched so
// playback resumes from the same spot on reconnect.
func (m *Manager) DisconnectFromService() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connectCancel != nil {
		m.connectCancel()
		m.connectCancel = nil
	}
	if m.sessionCancel != nil {
		m.sessionCancel()
		m.sessionCancel = nil
	}
	if m.state == StateIdle {
		return
	}

	if err := m.engine.Disconnect(); err != nil {
		zlog.Warn().Msgf("player: engine disconnect: %v", err)
	}
	m.loadedIDs = nil
	m.state = StateIdle
	m.publishLocked()
}

// PlayMedia resolves a media group into a concrete track list, replaces the
// queue with it starting at initialIndex, and commands the engine to play.
// Resolution and validation happen before any mutation or engine command.
func (m *Manager) PlayMedia(ctx context.Context, g track.Group, initialIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connectedLocked() {
		return ErrNotConnected
	}

	ids, err := m.resolver.TracksFor(ctx, g)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.Wrapf(ErrNothingToPlay, "group %s/%d", g.Kind, g.ID)
	}
	if initialIndex < 0 || initialIndex >= len(ids) {
		return errors.Wrapf(queue.ErrOutOfRange, "initial index %d of %d tracks", initialIndex, len(ids))
	}

	qctx := track.QueueContext{ID: uuid.NewString(), Name: g.Name}
	now := track.NowPlayingInfo{PositionInQueue: initialIndex, LastRecordedPositionMs: 0}
	if err := m.repo.SaveQueue(ctx, qctx, ids, now); err != nil {
		return err
	}

	if err := m.engine.Load(ctx, ids, initialIndex); err != nil {
		return errors.Wrap(err, "player: load")
	}
	if err := m.engine.Play(ctx); err != nil {
		return errors.Wrap(err, "player: play")
	}

	m.state = StatePlaying
	m.queueIndex = initialIndex
	m.positionMs = 0
	m.loadedIDs = append([]int64(nil), ids...)
	m.drainEventsLocked()
	m.publishLocked()
	return nil
}

// TogglePlay starts playback when paused or stopped and pauses it when
// playing.
func (m *Manager) TogglePlay(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StatePlaying:
		if err := m.engine.Pause(ctx); err != nil {
			return errors.Wrap(err, "player: pause")
		}
		m.state = StatePaused
	case StatePaused, StateConnected:
		if err := m.engine.Play(ctx); err != nil {
			return errors.Wrap(err, "player: play")
		}
		m.state = StatePlaying
	default:
		return ErrNotConnected
	}

	m.publishLocked()
	return nil
}

// Next advances the current position by one, clamped at the end of the
// queue (no wraparound). The position update goes through the repository so
// persisted state and engine state stay consistent.
func (m *Manager) Next(ctx context.Context) error {
	return m.skip(ctx, +1)
}

// Prev retreats the current position by one, clamped at the start of the
// queue.
func (m *Manager) Prev(ctx context.Context) error {
	return m.skip(ctx, -1)
}

func (m *Manager) skip(ctx context.Context, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connectedLocked() {
		return ErrNotConnected
	}

	full, ok := m.repo.Snapshot()
	if !ok || len(full.Tracks) == 0 {
		return nil
	}

	cp := full.NowPlaying.PositionInQueue
	if cp == track.NoSession {
		// No active session yet: start at the top. The queue watcher cues
		// the engine once the position lands.
		return m.repo.PlayQueueItem(ctx, 0)
	}
	target := cp + delta
	if target < 0 || target >= len(full.Tracks) {
		// Clamped at the boundary.
		return nil
	}

	if err := m.repo.PlayQueueItem(ctx, target); err != nil {
		return err
	}

	var err error
	if delta > 0 {
		err = m.engine.SkipNext(ctx)
	} else {
		err = m.engine.SkipPrev(ctx)
	}
	if err != nil {
		return errors.Wrap(err, "player: skip")
	}

	m.queueIndex = target
	m.positionMs = 0
	m.publishLocked()
	return nil
}

// SeekToTrackPosition forwards a seek to the engine. The engine's position
// callbacks feed the new position back into the persisted record.
func (m *Manager) SeekToTrackPosition(ctx context.Context, positionMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connectedLocked() {
		return ErrNotConnected
	}
	if err := m.engine.SeekTo(ctx, positionMs); err != nil {
		return errors.Wrap(err, "player: seek")
	}
	return nil
}

func (m *Manager) connectedLocked() bool {
	switch m.state {
	case StateConnected, StatePlaying, StatePaused:
		return true
	default:
		return false
	}
}

// consumeEvents folds engine callbacks into the published status and the
// persisted now-playing record until the session ends.
func (m *Manager) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-m.engine.Events():
			if !ok {
				return
			}
			m.handleEngineEvent(ev)
		}
	}
}

func (m *Manager) handleEngineEvent(ev EngineEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateIdle || m.state == StateConnecting {
		return
	}

	// A callback for any index other than the current or the immediately
	// following one belongs to a track list the engine no longer holds, and
	// a repository position that moved away from the manager's means a queue
	// edit is still being reconciled. Either way the report is stale and
	// must not overwrite the repository's adjusted position.
	if ev.CurrentIndex != m.queueIndex && ev.CurrentIndex != m.queueIndex+1 {
		return
	}
	if full, ok := m.repo.Snapshot(); !ok || full.NowPlaying.PositionInQueue != m.queueIndex {
		return
	}

	indexChanged := ev.CurrentIndex != m.queueIndex
	m.queueIndex = ev.CurrentIndex
	m.positionMs = ev.PositionMs
	if ev.IsPlaying {
		m.state = StatePlaying
	} else if m.state == StatePlaying {
		m.state = StatePaused
	}

	// Persist progress on track change and otherwise at most once per
	// interval; the record is small but every save hits the disk.
	if indexChanged || time.Since(m.lastPersist) >= m.config.ProgressSaveInterval {
		if err := m.repo.RecordProgress(context.Background(), ev.CurrentIndex, ev.PositionMs); err != nil {
			zlog.Warn().Msgf("player: record progress: %v", err)
		} else {
			m.lastPersist = time.Now()
		}
	}

	m.publishLocked()
}

// watchQueue keeps the engine aligned with queue edits that arrive outside
// the manager, such as moves, removals, and jumps issued over the queue
// service, until the session ends.
func (m *Manager) watchQueue(ctx context.Context) {
	updates := m.repo.GetFullQueue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case full, ok := <-updates:
			if !ok {
				return
			}
			m.reconcileQueue(ctx, full)
		}
	}
}

// reconcileQueue reloads the engine when the queue's track order or current
// position no longer matches what the engine was last given. Snapshots
// produced by the manager's own commands match and fall through.
func (m *Manager) reconcileQueue(ctx context.Context, full track.FullQueue) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connectedLocked() {
		return
	}

	ids := full.TrackIDs()
	pointer := full.NowPlaying.PositionInQueue

	if len(ids) == 0 {
		if len(m.loadedIDs) == 0 {
			return
		}
		// Queue cleared under a loaded engine: stop playback.
		if m.state == StatePlaying {
			if err := m.engine.Pause(ctx); err != nil {
				zlog.Warn().Msgf("player: pause after queue clear: %v", err)
			}
		}
		if m.state == StatePlaying || m.state == StatePaused {
			m.state = StateConnected
		}
		m.loadedIDs = nil
		m.queueIndex = track.NoSession
		m.positionMs = 0
		m.publishLocked()
		return
	}

	if slices.Equal(ids, m.loadedIDs) && pointer == m.queueIndex {
		return
	}

	cue := pointer
	if cue == track.NoSession {
		cue = 0
	}
	if err := m.engine.Load(ctx, ids, cue); err != nil {
		zlog.Warn().Msgf("player: reload after queue edit: %v", err)
		return
	}
	m.loadedIDs = ids
	m.drainEventsLocked()

	m.positionMs = 0
	if pos := full.NowPlaying.LastRecordedPositionMs; pointer != track.NoSession && pos > 0 {
		if err := m.engine.SeekTo(ctx, pos); err != nil {
			zlog.Warn().Msgf("player: seek after queue edit: %v", err)
		} else {
			m.positionMs = pos
		}
	}
	m.queueIndex = pointer

	if m.state == StatePlaying {
		if err := m.engine.Play(ctx); err != nil {
			zlog.Warn().Msgf("player: resume after queue edit: %v", err)
		}
	}
	m.publishLocked()
}

// drainEventsLocked discards callbacks queued against a track list the
// engine no longer holds. Anything emitted after the load carries indices
// into the new list and arrives on a later receive.
func (m *Manager) drainEventsLocked() {
	for {
		select {
		case <-m.engine.Events():
		default:
			return
		}
	}
}

func (m *Manager) buildStatusLocked() Status {
	st := Status{
		State:        m.state,
		QueueIndex:   m.queueIndex,
		PositionMs:   m.positionMs,
		ConnectError: m.connectErr,
	}
	if full, ok := m.repo.Snapshot(); ok {
		if m.queueIndex >= 0 && m.queueIndex < len(full.Tracks) {
			st.TrackID = full.Tracks[m.queueIndex].TrackID
		}
	}
	return st
}

func (m *Manager) publishLocked() {
	m.status.Set(m.buildStatusLocked())
}
