// Package store provides the durable single-record stores for the playback
// queue and the now-playing pointer.
//
// Each store holds exactly one serialized record which is overwritten
// wholesale on every save. Writes go to a temporary file in the same
// directory followed by a rename, so a reader never observes a partially
// written record and a crash mid-write leaves the previous record intact.
package store

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tunedeck/internal/domain/track"
)

// ErrCorruptRecord is returned when a persisted record exists but cannot be
// decoded. It is never swallowed into a default value: losing the listener's
// place silently is worse than surfacing the failure, so the caller decides
// recovery policy.
var ErrCorruptRecord = errors.New("store: corrupt record")

// PersistedQueue is the on-disk shape of the queue store: the ordered track
// list plus the metadata of the list it was built from.
type PersistedQueue struct {
	Context track.QueueContext  `json:"context"`
	Tracks  []track.QueuedTrack `json:"tracks"`
}

// recordFile implements whole-record replacement for a single JSON record.
type recordFile struct {
	path string
}

// load reads the record into v. The second return value is false when no
// record exists, which is a valid initial state, not an error.
func (f *recordFile) load(v any) (bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "store: read %s", filepath.Base(f.path))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(ErrCorruptRecord, "%s: %v", filepath.Base(f.path), err)
	}
	return true, nil
}

// save atomically replaces the record with v.
func (f *recordFile) save(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "store: save cancelled")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "store: encode %s", filepath.Base(f.path))
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.Wrap(err, "store: create directory")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "store: write %s", filepath.Base(tmp))
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrapf(err, "store: replace %s", filepath.Base(f.path))
	}
	return nil
}

// reset removes the record. Resetting a missing record is a no-op.
func (f *recordFile) reset() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "store: remove %s", filepath.Base(f.path))
	}
	return nil
}

// NowPlayingStore persists the single NowPlayingInfo record.
type NowPlayingStore struct {
	f recordFile
}

// NewNowPlayingStore creates a store backed by the given file path.
func NewNowPlayingStore(path string) *NowPlayingStore {
	return &NowPlayingStore{f: recordFile{path: path}}
}

// Load reads the persisted record. ok is false when no record exists.
func (s *NowPlayingStore) Load() (info track.NowPlayingInfo, ok bool, err error) {
	ok, err = s.f.load(&info)
	return info, ok, err
}

// Save replaces the record. Once Save returns nil the record is recoverable
// after a process restart.
func (s *NowPlayingStore) Save(ctx context.Context, info track.NowPlayingInfo) error {
	return s.f.save(ctx, info)
}

// Reset removes the record.
func (s *NowPlayingStore) Reset() error {
	return s.f.reset()
}

// QueueStore persists the single queue record.
type QueueStore struct {
	f recordFile
}

// NewQueueStore creates a store backed by the given file path.
func NewQueueStore(path string) *QueueStore {
	return &QueueStore{f: recordFile{path: path}}
}

// Load reads the persisted record. ok is false when no record exists.
func (s *QueueStore) Load() (pq PersistedQueue, ok bool, err error) {
	ok, err = s.f.load(&pq)
	return pq, ok, err
}

// Save replaces the record.
func (s *QueueStore) Save(ctx context.Context, pq PersistedQueue) error {
	return s.f.save(ctx, pq)
}

// Reset removes the record.
func (s *QueueStore) Reset() error {
	return s.f.reset()
}
