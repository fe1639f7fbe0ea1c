// Package track provides the queue and now-playing domain entities.
package track

import "time"

// Track represents a library track as seen by the queue and the browser.
type Track struct {
	ID         int64         // Library track ID
	Title      string        // Track title
	Artist     string        // Artist name
	Album      string        // Album name
	Genre      string        // Genre name
	Duration   time.Duration // Track duration
	IsPlayable bool          // Whether the track can be loaded by the engine
}

// QueuedTrack is one entry of the playback queue.
// Positions are dense, zero-based and contiguous whenever a reader
// observes them.
type QueuedTrack struct {
	Position int   `json:"position"`
	TrackID  int64 `json:"track_id"`
}

// NoSession is the sentinel for "no playback session".
const NoSession = -1

// NowPlayingInfo identifies where playback was left off: which queue slot,
// and how far into that track.
type NowPlayingInfo struct {
	PositionInQueue        int   `json:"position_in_queue"`
	LastRecordedPositionMs int64 `json:"last_recorded_position_ms"`
}

// EmptyNowPlaying returns the no-session record.
func EmptyNowPlaying() NowPlayingInfo {
	return NowPlayingInfo{
		PositionInQueue:        NoSession,
		LastRecordedPositionMs: NoSession,
	}
}

// IsActive reports whether the record points at a queue slot.
func (n NowPlayingInfo) IsActive() bool {
	return n.PositionInQueue != NoSession
}

// QueueContext describes the list a queue was built from.
type QueueContext struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FullQueue is a read view: the entire queue with the marked current
// position. Derived from repository state, never stored separately.
type FullQueue struct {
	Context    QueueContext
	Tracks     []QueuedTrack
	NowPlaying NowPlayingInfo
}

// NextUpQueue is a read view: the suffix of the queue starting at the
// current position (inclusive).
type NextUpQueue struct {
	Context    QueueContext
	Tracks     []QueuedTrack
	NowPlaying NowPlayingInfo
}

// NextUp derives the forward-looking suffix of the queue.
func (f FullQueue) NextUp() NextUpQueue {
	start := f.NowPlaying.PositionInQueue
	if start < 0 {
		start = 0
	}
	if start > len(f.Tracks) {
		start = len(f.Tracks)
	}
	tracks := make([]QueuedTrack, len(f.Tracks)-start)
	copy(tracks, f.Tracks[start:])
	return NextUpQueue{
		Context:    f.Context,
		Tracks:     tracks,
		NowPlaying: f.NowPlaying,
	}
}

// TrackIDs returns the queued track IDs in queue order.
func (f FullQueue) TrackIDs() []int64 {
	ids := make([]int64, len(f.Tracks))
	for i, qt := range f.Tracks {
		ids[i] = qt.TrackID
	}
	return ids
}

// GroupKind identifies how a playback group references library content.
type GroupKind string

const (
	GroupAlbum  GroupKind = "album"  // All tracks of one album
	GroupArtist GroupKind = "artist" // All tracks of one artist, album order
	GroupGenre  GroupKind = "genre"  // All tracks of one genre
	GroupTracks GroupKind = "tracks" // Ad-hoc track list
)

// Group is an opaque reference to a playable collection. For GroupTracks the
// track list is carried inline; otherwise ID refers to a library entity.
type Group struct {
	Kind     GroupKind
	ID       int64
	Name     string
	TrackIDs []int64
}
