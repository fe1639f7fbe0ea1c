// Package engine provides a clock-driven playback engine.
//
// Clock advances through the loaded track list in wall-clock time and emits
// the same position callbacks a real audio backend would, which makes the
// daemon fully operable without an audio stack attached. Durations come from
// the library metadata store.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunedeck/internal/app/player"
)

// ErrNotConnected is returned for commands issued outside a session.
var ErrNotConnected = errors.New("engine: not connected")

// DurationSource supplies track durations for the loaded list.
type DurationSource interface {
	DurationsFor(ctx context.Context, trackIDs []int64) (map[int64]time.Duration, error)
}

// Clock is a playback engine driven by wall-clock timers.
type Clock struct {
	mu sync.Mutex

	durations DurationSource
	tick      time.Duration

	connected bool
	tracks    []int64
	durs      []time.Duration
	index     int
	playing   bool

	startTime     time.Time // Wall time the current track started
	pausedElapsed time.Duration
	pausedAt      time.Time

	events     chan player.EngineEvent
	tickCancel context.CancelFunc
}

// Compile-time interface check.
var _ player.Engine = (*Clock)(nil)

// NewClock creates a clock engine. tick controls how often position
// callbacks are emitted; zero selects a 500ms default.
func NewClock(durations DurationSource, tick time.Duration) *Clock {
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	return &Clock{durations: durations, tick: tick}
}

// Connect establishes the session and starts the callback ticker.
func (c *Clock) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "engine: connect cancelled")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}
	c.connected = true
	c.events = make(chan player.EngineEvent, 16)

	tctx, cancel := context.WithCancel(context.Background())
	c.tickCancel = cancel
	go c.run(tctx)
	return nil
}

// Disconnect ends the session and closes the event channel. Idempotent.
func (c *Clock) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false
	c.playing = false
	if c.tickCancel != nil {
		c.tickCancel()
		c.tickCancel = nil
	}
	close(c.events)
	c.events = nil
	return nil
}

// Load replaces the track list and cues startIndex without starting
// playback.
func (c *Clock) Load(ctx context.Context, trackIDs []int64, startIndex int) error {
	durs, err := c.durations.DurationsFor(ctx, trackIDs)
	if err != nil {
		return errors.Wrap(err, "engine: load durations")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}
	if startIndex < 0 || startIndex >= len(trackIDs) {
		return errors.Newf("engine: start index %d of %d tracks", startIndex, len(trackIDs))
	}

	c.tracks = append([]int64(nil), trackIDs...)
	c.durs = make([]time.Duration, len(trackIDs))
	for i, id := range trackIDs {
		c.durs[i] = durs[id]
	}
	c.index = startIndex
	c.playing = false
	c.resetTrackClockLocked()
	return nil
}

// Play starts or resumes playback of the cued track.
func (c *Clock) Play(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}
	if len(c.tracks) == 0 || c.playing {
		return nil
	}
	if !c.pausedAt.IsZero() {
		c.pausedElapsed += toWallTime(time.Now()).Sub(c.pausedAt)
		c.pausedAt = time.Time{}
	}
	c.playing = true
	c.emitLocked()
	return nil
}

// Pause pauses playback, keeping the current position.
func (c *Clock) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}
	if !c.playing {
		return nil
	}
	c.playing = false
	c.pausedAt = toWallTime(time.Now())
	c.emitLocked()
	return nil
}

// SeekTo moves the position within the current track.
func (c *Clock) SeekTo(ctx context.Context, positionMs int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}
	if len(c.tracks) == 0 {
		return nil
	}

	pos := time.Duration(positionMs) * time.Millisecond
	if dur := c.durs[c.index]; pos > dur {
		pos = dur
	}
	// Rebase the track clock so elapsed time equals the seek target.
	c.startTime = toWallTime(time.Now()).Add(-pos)
	c.pausedElapsed = 0
	if !c.playing {
		c.pausedAt = toWallTime(time.Now())
	}
	c.emitLocked()
	return nil
}

// SkipNext cues the next track, stopping at the end of the list.
func (c *Clock) SkipNext(ctx context.Context) error {
	return c.cue(+1)
}

// SkipPrev cues the previous track, stopping at the start of the list.
func (c *Clock) SkipPrev(ctx context.Context) error {
	return c.cue(-1)
}

func (c *Clock) cue(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}
	target := c.index + delta
	if target < 0 || target >= len(c.tracks) {
		return nil
	}
	c.index = target
	c.resetTrackClockLocked()
	c.emitLocked()
	return nil
}

// Events returns the callback stream. Valid between Connect and Disconnect.
func (c *Clock) Events() <-chan player.EngineEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// run emits position callbacks and advances tracks on the wall clock.
// Wall time is used instead of the monotonic clock so a suspended host does
// not stretch track durations on resume.
func (c *Clock) run(ctx context.Context) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.advance()
		}
	}
}

func (c *Clock) advance() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || !c.playing || len(c.tracks) == 0 {
		return
	}

	elapsed := c.elapsedLocked()
	if elapsed >= c.durs[c.index] {
		if c.index+1 < len(c.tracks) {
			// Natural track end: move on.
			c.index++
			c.resetTrackClockLocked()
			zlog.Debug().Msgf("engine: advanced to track index %d", c.index)
		} else {
			// End of the list: stop on the last track at full position.
			c.playing = false
			c.startTime = toWallTime(time.Now()).Add(-c.durs[c.index])
			c.pausedElapsed = 0
		}
	}
	c.emitLocked()
}

func (c *Clock) elapsedLocked() time.Duration {
	now := toWallTime(time.Now())
	elapsed := now.Sub(c.startTime) - c.pausedElapsed
	if !c.pausedAt.IsZero() {
		elapsed -= now.Sub(c.pausedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (c *Clock) resetTrackClockLocked() {
	c.startTime = toWallTime(time.Now())
	c.pausedElapsed = 0
	c.pausedAt = time.Time{}
	if !c.playing {
		c.pausedAt = c.startTime
	}
}

// emitLocked sends a position callback without blocking; when the consumer
// lags, the stale callback is dropped in favor of the next tick.
func (c *Clock) emitLocked() {
	if c.events == nil || len(c.durs) == 0 {
		return
	}

	pos := c.elapsedLocked()
	if dur := c.durs[c.index]; pos > dur {
		pos = dur
	}
	ev := player.EngineEvent{
		CurrentIndex: c.index,
		PositionMs:   pos.Milliseconds(),
		IsPlaying:    c.playing,
	}
	select {
	case c.events <- ev:
	default:
	}
}

// toWallTime strips the monotonic clock reading so time differences follow
// the wall clock.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
