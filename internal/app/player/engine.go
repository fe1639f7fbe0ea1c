package player

import "context"

// EngineEvent is one position callback from the playback engine.
type EngineEvent struct {
	CurrentIndex int   // Index into the loaded track list
	PositionMs   int64 // Position within the current track
	IsPlaying    bool
}

// Engine is the narrow surface of the external component that actually
// decodes and renders audio. The manager owns the engine exclusively and
// never assumes a concrete implementation.
type Engine interface {
	// Connect establishes the engine session. It honors ctx cancellation:
	// a cancelled connect must not leave the engine connected.
	Connect(ctx context.Context) error

	// Disconnect tears the session down. Idempotent. The Events channel is
	// closed once the session is gone.
	Disconnect() error

	// Load replaces the engine's track list and cues startIndex.
	Load(ctx context.Context, trackIDs []int64, startIndex int) error

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SeekTo(ctx context.Context, positionMs int64) error
	SkipNext(ctx context.Context) error
	SkipPrev(ctx context.Context) error

	// Events returns the callback stream. Valid between Connect and
	// Disconnect.
	Events() <-chan EngineEvent
}
