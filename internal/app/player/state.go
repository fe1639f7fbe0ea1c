// Package player orchestrates the opaque playback engine: it issues
// play/pause/seek/skip commands, keeps the engine's active track in sync
// with the queue repository's current position, and republishes a unified
// playback-state stream.
package player

// State represents the playback state.
type State int

const (
	StateIdle       State = iota // Engine not connected
	StateConnecting              // Connect request in flight
	StateConnected               // Engine ready, nothing loaded or stopped
	StatePlaying                 // Track is playing
	StatePaused                  // Track is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
