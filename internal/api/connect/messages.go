package connect

// Wire messages for the tunedeck.v1 services. Plain structs, JSON encoded.

// QueuedTrack mirrors one queue entry on the wire.
type QueuedTrack struct {
	Position int   `json:"position"`
	TrackID  int64 `json:"track_id"`
}

// NowPlaying mirrors the now-playing record on the wire.
type NowPlaying struct {
	PositionInQueue        int   `json:"position_in_queue"`
	LastRecordedPositionMs int64 `json:"last_recorded_position_ms"`
}

// QueueView is the shared response shape of the queue read endpoints.
type QueueView struct {
	Status      string        `json:"status"` // "empty", "ready" or "unavailable"
	ContextID   string        `json:"context_id,omitempty"`
	ContextName string        `json:"context_name,omitempty"`
	Tracks      []QueuedTrack `json:"tracks"`
	NowPlaying  NowPlaying    `json:"now_playing"`
}

// GetQueueRequest asks for the current queue view.
type GetQueueRequest struct {
	// Full selects the entire queue; otherwise only the next-up suffix is
	// returned.
	Full bool `json:"full"`
}

// WatchQueueRequest subscribes to queue updates.
type WatchQueueRequest struct{}

// SaveQueueRequest replaces the whole queue.
type SaveQueueRequest struct {
	ContextName  string  `json:"context_name"`
	TrackIDs     []int64 `json:"track_ids"`
	InitialIndex int     `json:"initial_index"`
}

// MoveItemRequest relocates one queued track.
type MoveItemRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// AddItemRequest appends one track to the queue.
type AddItemRequest struct {
	TrackID int64 `json:"track_id"`
}

// PlayItemRequest jumps to a queue position.
type PlayItemRequest struct {
	Index int `json:"index"`
}

// RemoveItemsRequest removes a set of queue positions atomically.
type RemoveItemsRequest struct {
	Positions []int `json:"positions"`
}

// Empty is the empty message.
type Empty struct{}

// PlayMediaRequest plays a resolved media group.
type PlayMediaRequest struct {
	GroupKind    string  `json:"group_kind"`
	GroupID      int64   `json:"group_id"`
	GroupName    string  `json:"group_name,omitempty"`
	TrackIDs     []int64 `json:"track_ids,omitempty"`
	InitialIndex int     `json:"initial_index"`
}

// SeekRequest seeks within the current track.
type SeekRequest struct {
	PositionMs int64 `json:"position_ms"`
}

// PlaybackStatus mirrors the unified playback status on the wire.
type PlaybackStatus struct {
	State        string `json:"state"`
	QueueIndex   int    `json:"queue_index"`
	TrackID      int64  `json:"track_id"`
	PositionMs   int64  `json:"position_ms"`
	ConnectError string `json:"connect_error,omitempty"`
}

// ListChildrenRequest lists the children of a media-tree node. An empty
// token addresses the root.
type ListChildrenRequest struct {
	Token string `json:"token"`
}

// BrowseNode is one addressable media-tree node on the wire.
type BrowseNode struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
	IsPlayable  bool   `json:"is_playable"`
	HasChildren bool   `json:"has_children"`
}

// ListChildrenResponse carries the ordered children of a node.
type ListChildrenResponse struct {
	Nodes []BrowseNode `json:"nodes"`
}

// PlayNodeRequest plays the content addressed by a media-tree token.
type PlayNodeRequest struct {
	Token string `json:"token"`
}
