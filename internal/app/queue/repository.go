// Package queue provides the single-writer mutation surface over the
// persisted playback queue and now-playing pointer.
//
// All mutating operations are serialized under one mutex: concurrent callers
// queue behind one another and no caller can interleave with another's
// renumbering step. Readers subscribe through multicast-with-replay streams
// and only ever observe fully renumbered snapshots; while a persistence write
// is in flight they keep seeing the prior snapshot, then switch atomically.
package queue

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunedeck/internal/domain/track"
	"github.com/osa030/tunedeck/internal/infra/store"
	"github.com/osa030/tunedeck/internal/watch"
)

// Errors
var (
	ErrOutOfRange  = errors.New("queue: position out of range")
	ErrUnavailable = errors.New("queue: persisted queue unavailable")
)

// Status reports the availability of the persisted queue. A corrupt store
// is an explicit state of its own, distinct from an empty queue.
type Status int

const (
	StatusEmpty       Status = iota // No queue has been saved yet
	StatusReady                     // Queue loaded and mutable
	StatusUnavailable               // Persisted record unreadable; Reset required
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusReady:
		return "ready"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Repository is the mutation/query surface over the queue and now-playing
// stores. It owns the only copies of the queue list and the now-playing
// pointer; neither is ever aliased out.
type Repository struct {
	mu sync.Mutex

	queueStore *store.QueueStore
	npStore    *store.NowPlayingStore

	qctx   track.QueueContext
	tracks []track.QueuedTrack
	now    track.NowPlayingInfo
	exists bool
	status Status

	full   *watch.Value[track.FullQueue]
	nextUp *watch.Value[track.NextUpQueue]
}

// NewRepository creates a repository and loads persisted state. When a
// persisted record is corrupt the repository comes up in StatusUnavailable
// with every mutation rejected, and the read error is returned so the caller
// can decide recovery policy (typically Reset). It is never silently
// defaulted to an empty queue.
func NewRepository(qs *store.QueueStore, ns *store.NowPlayingStore) (*Repository, error) {
	r := &Repository{
		queueStore: qs,
		npStore:    ns,
		now:        track.EmptyNowPlaying(),
		status:     StatusEmpty,
		full:       watch.NewValue[track.FullQueue](),
		nextUp:     watch.NewValue[track.NextUpQueue](),
	}

	pq, ok, err := qs.Load()
	if err != nil {
		r.status = StatusUnavailable
		return r, err
	}
	if !ok {
		return r, nil
	}

	np, npOK, err := ns.Load()
	if err != nil {
		r.status = StatusUnavailable
		return r, err
	}

	r.qctx = pq.Context
	r.tracks = pq.Tracks
	r.exists = true
	r.status = StatusReady
	if npOK {
		r.now = np
	}
	r.publishLocked()
	return r, nil
}

// Status returns the availability of the queue.
func (r *Repository) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// GetQueue returns a continuously updated view of the next-up queue: one
// value per mutation, with the latest snapshot replayed immediately to late
// subscribers. The subscription ends when ctx is done.
func (r *Repository) GetQueue(ctx context.Context) <-chan track.NextUpQueue {
	return r.nextUp.Watch(ctx)
}

// GetFullQueue returns a continuously updated view of the entire queue.
// Nothing is emitted before the first queue exists.
func (r *Repository) GetFullQueue(ctx context.Context) <-chan track.FullQueue {
	return r.full.Watch(ctx)
}

// Snapshot returns the current full queue without subscribing. ok is false
// before any queue exists.
func (r *Repository) Snapshot() (track.FullQueue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.exists {
		return track.FullQueue{}, false
	}
	return r.snapshotLocked(), true
}

// SaveQueue replaces the entire queue and now-playing context atomically,
// assigning positions 0..N-1 in the given order. Saving an empty track list
// is a no-op: an empty queue is valid state, not an error.
func (r *Repository) SaveQueue(ctx context.Context, qctx track.QueueContext, trackIDs []int64, now track.NowPlayingInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return err
	}
	if len(trackIDs) == 0 {
		return nil
	}
	if now.PositionInQueue != track.NoSession &&
		(now.PositionInQueue < 0 || now.PositionInQueue >= len(trackIDs)) {
		return errors.Wrapf(ErrOutOfRange, "save with position %d of %d tracks",
			now.PositionInQueue, len(trackIDs))
	}

	return r.commitLocked(ctx, qctx, trackIDs, now, true)
}

// AddToQueue appends one track at the end of the queue without altering the
// current position. Adding to a not-yet-existing queue creates an ad-hoc one.
func (r *Repository) AddToQueue(ctx context.Context, trackID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return err
	}

	qctx := r.qctx
	if !r.exists {
		qctx = track.QueueContext{ID: uuid.NewString(), Name: "ad hoc"}
	}

	ids := append(r.trackIDsLocked(), trackID)
	return r.commitLocked(ctx, qctx, ids, r.now, true)
}

// MoveQueueItem relocates the track at from to to, shifting intervening
// items by one and renumbering all positions to stay dense. The current
// position keeps referencing the same logical track; if the moved item is
// the current track the pointer follows it.
func (r *Repository) MoveQueueItem(ctx context.Context, from, to int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return err
	}
	n := len(r.tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return errors.Wrapf(ErrOutOfRange, "move %d to %d of %d tracks", from, to, n)
	}
	if from == to {
		r.publishLocked()
		return nil
	}

	ids := r.trackIDsLocked()
	moved := ids[from]
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids, 0)
	copy(ids[to+1:], ids[to:])
	ids[to] = moved

	now := r.now
	switch cp := now.PositionInQueue; {
	case cp == track.NoSession:
	case cp == from:
		now.PositionInQueue = to
	case from < cp && to >= cp:
		now.PositionInQueue = cp - 1
	case from > cp && to <= cp:
		now.PositionInQueue = cp + 1
	}

	return r.commitLocked(ctx, r.qctx, ids, now, true)
}

// PlayQueueItem sets the current position to index. The index is validated
// before any mutation is applied.
func (r *Repository) PlayQueueItem(ctx context.Context, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(r.tracks) {
		return errors.Wrapf(ErrOutOfRange, "play item %d of %d tracks", index, len(r.tracks))
	}

	now := track.NowPlayingInfo{PositionInQueue: index, LastRecordedPositionMs: 0}
	return r.commitLocked(ctx, r.qctx, r.trackIDsLocked(), now, false)
}

// RemoveItemsFromQueue removes all given positions in one atomic step and
// renumbers the remaining items densely. If the current track is removed the
// pointer advances to the next surviving track at the smallest position at
// or after it, clamping to the new last index when none survives after it.
// Removing the empty set is a no-op. Any out-of-range position rejects the
// whole operation before mutation.
func (r *Repository) RemoveItemsFromQueue(ctx context.Context, positions []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return err
	}
	if len(positions) == 0 {
		return nil
	}

	n := len(r.tracks)
	remove := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= n {
			return errors.Wrapf(ErrOutOfRange, "remove position %d of %d tracks", p, n)
		}
		remove[p] = true
	}

	ids := make([]int64, 0, n-len(remove))
	for i, qt := range r.tracks {
		if !remove[i] {
			ids = append(ids, qt.TrackID)
		}
	}

	now := r.adjustAfterRemoveLocked(remove, len(ids))
	return r.commitLocked(ctx, r.qctx, ids, now, true)
}

// RecordProgress folds an engine position callback into the now-playing
// record: which queue slot is active and how far into that track playback
// is. The queue itself is untouched.
func (r *Repository) RecordProgress(ctx context.Context, queueIndex int, positionMs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return err
	}
	if queueIndex < 0 || queueIndex >= len(r.tracks) {
		return errors.Wrapf(ErrOutOfRange, "progress at %d of %d tracks", queueIndex, len(r.tracks))
	}

	now := track.NowPlayingInfo{PositionInQueue: queueIndex, LastRecordedPositionMs: positionMs}
	return r.commitLocked(ctx, r.qctx, r.trackIDsLocked(), now, false)
}

// Clear resets the queue and pointer to the empty/sentinel state. Requires
// an available queue; recovery from a corrupt store goes through Reset.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return err
	}
	return r.resetLocked()
}

// Reset clears all persisted state unconditionally, recovering a repository
// whose stores were unreadable.
func (r *Repository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetLocked()
}

func (r *Repository) resetLocked() error {
	if err := r.queueStore.Reset(); err != nil {
		return err
	}
	if err := r.npStore.Reset(); err != nil {
		return err
	}

	r.qctx = track.QueueContext{}
	r.tracks = nil
	r.now = track.EmptyNowPlaying()
	r.exists = false
	r.status = StatusEmpty
	r.full.Set(track.FullQueue{NowPlaying: r.now})
	r.nextUp.Set(track.NextUpQueue{NowPlaying: r.now})
	zlog.Info().Msg("queue: cleared persisted state")
	return nil
}

// readyLocked rejects mutations while the persisted queue is unavailable.
func (r *Repository) readyLocked() error {
	if r.status == StatusUnavailable {
		return ErrUnavailable
	}
	return nil
}

// adjustAfterRemoveLocked computes the new pointer after removing the given
// positions, relative to the queue state immediately preceding the removal.
func (r *Repository) adjustAfterRemoveLocked(remove map[int]bool, newLen int) track.NowPlayingInfo {
	now := r.now
	cp := now.PositionInQueue
	if cp == track.NoSession {
		return now
	}
	if newLen == 0 {
		return track.EmptyNowPlaying()
	}

	if !remove[cp] {
		// Current track survives: keep pointing at it.
		shift := 0
		for p := range remove {
			if p < cp {
				shift++
			}
		}
		now.PositionInQueue = cp - shift
		return now
	}

	// Current track removed: advance to the next survivor, or clamp.
	for p := cp + 1; p < len(r.tracks); p++ {
		if !remove[p] {
			shift := 0
			for q := range remove {
				if q < p {
					shift++
				}
			}
			return track.NowPlayingInfo{PositionInQueue: p - shift}
		}
	}
	return track.NowPlayingInfo{PositionInQueue: newLen - 1}
}

// commitLocked persists the new state and, only after both writes returned,
// swaps the in-memory snapshot and republishes. Readers keep observing the
// prior snapshot while a write is in flight.
func (r *Repository) commitLocked(ctx context.Context, qctx track.QueueContext, ids []int64, now track.NowPlayingInfo, queueChanged bool) error {
	tracks := make([]track.QueuedTrack, len(ids))
	for i, id := range ids {
		tracks[i] = track.QueuedTrack{Position: i, TrackID: id}
	}

	if queueChanged {
		pq := store.PersistedQueue{Context: qctx, Tracks: tracks}
		if err := r.queueStore.Save(ctx, pq); err != nil {
			return err
		}
	}
	if now != r.now || !r.exists {
		if err := r.npStore.Save(ctx, now); err != nil {
			return err
		}
	}

	r.qctx = qctx
	r.tracks = tracks
	r.now = now
	r.exists = true
	r.status = StatusReady
	r.publishLocked()
	return nil
}

func (r *Repository) trackIDsLocked() []int64 {
	ids := make([]int64, len(r.tracks))
	for i, qt := range r.tracks {
		ids[i] = qt.TrackID
	}
	return ids
}

func (r *Repository) snapshotLocked() track.FullQueue {
	tracks := make([]track.QueuedTrack, len(r.tracks))
	copy(tracks, r.tracks)
	return track.FullQueue{
		Context:    r.qctx,
		Tracks:     tracks,
		NowPlaying: r.now,
	}
}

func (r *Repository) publishLocked() {
	snap := r.snapshotLocked()
	r.full.Set(snap)
	r.nextUp.Set(snap.NextUp())
}
