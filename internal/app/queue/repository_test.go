package queue

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunedeck/internal/domain/track"
	"github.com/osa030/tunedeck/internal/infra/store"
)

var testCtx = track.QueueContext{ID: "ctx-1", Name: "Test List"}

func newTestRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := NewRepository(
		store.NewQueueStore(filepath.Join(dir, "queue.json")),
		store.NewNowPlayingStore(filepath.Join(dir, "now_playing.json")),
	)
	require.NoError(t, err)
	return repo, dir
}

func reopen(t *testing.T, dir string) (*Repository, error) {
	t.Helper()
	return NewRepository(
		store.NewQueueStore(filepath.Join(dir, "queue.json")),
		store.NewNowPlayingStore(filepath.Join(dir, "now_playing.json")),
	)
}

func saveTracks(t *testing.T, repo *Repository, ids []int64, position int) {
	t.Helper()
	now := track.NowPlayingInfo{PositionInQueue: position}
	if position == track.NoSession {
		now = track.EmptyNowPlaying()
	}
	require.NoError(t, repo.SaveQueue(context.Background(), testCtx, ids, now))
}

func snapshot(t *testing.T, repo *Repository) track.FullQueue {
	t.Helper()
	snap, ok := repo.Snapshot()
	require.True(t, ok)
	return snap
}

func assertDense(t *testing.T, tracks []track.QueuedTrack) {
	t.Helper()
	for i, qt := range tracks {
		assert.Equal(t, i, qt.Position)
	}
}

func TestRepository_InitialState(t *testing.T) {
	repo, _ := newTestRepo(t)

	assert.Equal(t, StatusEmpty, repo.Status())
	_, ok := repo.Snapshot()
	assert.False(t, ok)
}

func TestRepository_SaveQueue(t *testing.T) {
	repo, _ := newTestRepo(t)

	saveTracks(t, repo, []int64{10, 11, 12}, 1)

	snap := snapshot(t, repo)
	assert.Equal(t, testCtx, snap.Context)
	assert.Equal(t, []int64{10, 11, 12}, snap.TrackIDs())
	assertDense(t, snap.Tracks)
	assert.Equal(t, 1, snap.NowPlaying.PositionInQueue)
	assert.Equal(t, StatusReady, repo.Status())
}

func TestRepository_SaveQueueEmptyListIsNoOp(t *testing.T) {
	repo, _ := newTestRepo(t)

	require.NoError(t, repo.SaveQueue(context.Background(), testCtx, nil, track.EmptyNowPlaying()))
	_, ok := repo.Snapshot()
	assert.False(t, ok)
	assert.Equal(t, StatusEmpty, repo.Status())
}

func TestRepository_SaveQueueValidatesPosition(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.SaveQueue(context.Background(), testCtx, []int64{10, 11},
		track.NowPlayingInfo{PositionInQueue: 2})
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, ok := repo.Snapshot()
	assert.False(t, ok)

	// The no-session sentinel is always acceptable.
	require.NoError(t, repo.SaveQueue(context.Background(), testCtx, []int64{10, 11},
		track.EmptyNowPlaying()))
	assert.Equal(t, track.NoSession, snapshot(t, repo).NowPlaying.PositionInQueue)
}

func TestRepository_AddToQueue(t *testing.T) {
	repo, _ := newTestRepo(t)
	saveTracks(t, repo, []int64{10, 11}, 1)

	require.NoError(t, repo.AddToQueue(context.Background(), 12))

	snap := snapshot(t, repo)
	assert.Equal(t, []int64{10, 11, 12}, snap.TrackIDs())
	assertDense(t, snap.Tracks)
	// Appending never moves the pointer.
	assert.Equal(t, 1, snap.NowPlaying.PositionInQueue)
}

func TestRepository_AddToQueueCreatesAdHocContext(t *testing.T) {
	repo, _ := newTestRepo(t)

	require.NoError(t, repo.AddToQueue(context.Background(), 42))

	snap := snapshot(t, repo)
	assert.Equal(t, []int64{42}, snap.TrackIDs())
	assert.NotEmpty(t, snap.Context.ID)
	assert.Equal(t, track.NoSession, snap.NowPlaying.PositionInQueue)
	assert.Equal(t, StatusReady, repo.Status())
}

func TestRepository_MoveQueueItem(t *testing.T) {
	tests := []struct {
		name        string
		ids         []int64
		position    int
		from, to    int
		expectedIDs []int64
		expectedPos int
	}{
		{
			name:        "pointer follows the moved current track",
			ids:         []int64{1, 2, 3},
			position:    0,
			from:        0,
			to:          2,
			expectedIDs: []int64{2, 3, 1},
			expectedPos: 2,
		},
		{
			name:        "moving a track from before to after shifts pointer down",
			ids:         []int64{1, 2, 3, 4},
			position:    2,
			from:        0,
			to:          3,
			expectedIDs: []int64{2, 3, 4, 1},
			expectedPos: 1,
		},
		{
			name:        "moving a track from after to before shifts pointer up",
			ids:         []int64{1, 2, 3, 4},
			position:    1,
			from:        3,
			to:          0,
			expectedIDs: []int64{4, 1, 2, 3},
			expectedPos: 2,
		},
		{
			name:        "move entirely after the pointer leaves it alone",
			ids:         []int64{1, 2, 3, 4},
			position:    0,
			from:        2,
			to:          3,
			expectedIDs: []int64{1, 2, 4, 3},
			expectedPos: 0,
		},
		{
			name:        "move entirely before the pointer leaves it alone",
			ids:         []int64{1, 2, 3, 4},
			position:    3,
			from:        0,
			to:          1,
			expectedIDs: []int64{2, 1, 3, 4},
			expectedPos: 3,
		},
		{
			name:        "same source and target is a republish",
			ids:         []int64{1, 2, 3},
			position:    1,
			from:        1,
			to:          1,
			expectedIDs: []int64{1, 2, 3},
			expectedPos: 1,
		},
		{
			name:        "no session pointer stays no session",
			ids:         []int64{1, 2, 3},
			position:    track.NoSession,
			from:        0,
			to:          2,
			expectedIDs: []int64{2, 3, 1},
			expectedPos: track.NoSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newTestRepo(t)
			saveTracks(t, repo, tt.ids, tt.position)

			require.NoError(t, repo.MoveQueueItem(context.Background(), tt.from, tt.to))

			snap := snapshot(t, repo)
			assert.Equal(t, tt.expectedIDs, snap.TrackIDs())
			assertDense(t, snap.Tracks)
			assert.Equal(t, tt.expectedPos, snap.NowPlaying.PositionInQueue)
			// The pointer still addresses the same logical track.
			if tt.expectedPos != track.NoSession && tt.position != track.NoSession {
				assert.Equal(t, tt.ids[tt.position], snap.Tracks[tt.expectedPos].TrackID)
			}
		})
	}
}

func TestRepository_MoveQueueItemOutOfRange(t *testing.T) {
	repo, _ := newTestRepo(t)
	saveTracks(t, repo, []int64{1, 2, 3}, 0)

	for _, pair := range [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 3}} {
		err := repo.MoveQueueItem(context.Background(), pair[0], pair[1])
		assert.True(t, errors.Is(err, ErrOutOfRange))
	}

	// A rejected move leaves the queue untouched.
	snap := snapshot(t, repo)
	assert.Equal(t, []int64{1, 2, 3}, snap.TrackIDs())
	assert.Equal(t, 0, snap.NowPlaying.PositionInQueue)
}

func TestRepository_PlayQueueItem(t *testing.T) {
	repo, _ := newTestRepo(t)
	saveTracks(t, repo, []int64{1, 2, 3}, 0)
	require.NoError(t, repo.RecordProgress(context.Background(), 0, 45000))

	require.NoError(t, repo.PlayQueueItem(context.Background(), 2))

	snap := snapshot(t, repo)
	assert.Equal(t, 2, snap.NowPlaying.PositionInQueue)
	// Jumping resets recorded progress for the new track.
	assert.Equal(t, int64(0), snap.NowPlaying.LastRecordedPositionMs)

	err := repo.PlayQueueItem(context.Background(), 3)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	err = repo.PlayQueueItem(context.Background(), -1)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestRepository_RemoveItemsFromQueue(t *testing.T) {
	tests := []struct {
		name        string
		ids         []int64
		position    int
		remove      []int
		expectedIDs []int64
		expectedPos int
	}{
		{
			name:        "removing before the pointer shifts it down",
			ids:         []int64{1, 2, 3, 4},
			position:    2,
			remove:      []int{0},
			expectedIDs: []int64{2, 3, 4},
			expectedPos: 1,
		},
		{
			name:        "removing after the pointer leaves it alone",
			ids:         []int64{1, 2, 3, 4},
			position:    1,
			remove:      []int{3},
			expectedIDs: []int64{1, 2, 3},
			expectedPos: 1,
		},
		{
			name:        "removing the current track advances to the next survivor",
			ids:         []int64{1, 2, 3, 4},
			position:    1,
			remove:      []int{1, 2},
			expectedIDs: []int64{1, 4},
			expectedPos: 1,
		},
		{
			name:        "removing the current and all following clamps to the last",
			ids:         []int64{1, 2, 3, 4},
			position:    2,
			remove:      []int{2, 3},
			expectedIDs: []int64{1, 2},
			expectedPos: 1,
		},
		{
			name:        "removing everything resets the pointer",
			ids:         []int64{1, 2, 3},
			position:    1,
			remove:      []int{0, 1, 2},
			expectedIDs: []int64{},
			expectedPos: track.NoSession,
		},
		{
			name:        "duplicate positions are tolerated",
			ids:         []int64{1, 2, 3},
			position:    2,
			remove:      []int{0, 0},
			expectedIDs: []int64{2, 3},
			expectedPos: 1,
		},
		{
			name:        "no session pointer stays no session",
			ids:         []int64{1, 2, 3},
			position:    track.NoSession,
			remove:      []int{1},
			expectedIDs: []int64{1, 3},
			expectedPos: track.NoSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newTestRepo(t)
			saveTracks(t, repo, tt.ids, tt.position)

			require.NoError(t, repo.RemoveItemsFromQueue(context.Background(), tt.remove))

			snap := snapshot(t, repo)
			assert.Equal(t, tt.expectedIDs, snap.TrackIDs())
			assertDense(t, snap.Tracks)
			assert.Equal(t, tt.expectedPos, snap.NowPlaying.PositionInQueue)
		})
	}
}

func TestRepository_RemoveItemsRejectsOutOfRangeAtomically(t *testing.T) {
	repo, _ := newTestRepo(t)
	saveTracks(t, repo, []int64{1, 2, 3}, 0)

	// One bad position rejects the whole batch, valid entries included.
	err := repo.RemoveItemsFromQueue(context.Background(), []int{1, 5})
	assert.True(t, errors.Is(err, ErrOutOfRange))

	snap := snapshot(t, repo)
	assert.Equal(t, []int64{1, 2, 3}, snap.TrackIDs())
}

func TestRepository_RemoveItemsEmptySetIsNoOp(t *testing.T) {
	repo, _ := newTestRepo(t)
	saveTracks(t, repo, []int64{1, 2}, 0)

	require.NoError(t, repo.RemoveItemsFromQueue(context.Background(), nil))
	assert.Equal(t, []int64{1, 2}, snapshot(t, repo).TrackIDs())
}

func TestRepository_RecordProgress(t *testing.T) {
	repo, _ := newTestRepo(t)
	saveTracks(t, repo, []int64{1, 2}, 0)

	require.NoError(t, repo.RecordProgress(context.Background(), 1, 30500))
	snap := snapshot(t, repo)
	assert.Equal(t, track.NowPlayingInfo{PositionInQueue: 1, LastRecordedPositionMs: 30500}, snap.NowPlaying)

	err := repo.RecordProgress(context.Background(), 2, 0)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestRepository_PersistsAcrossRestart(t *testing.T) {
	repo, dir := newTestRepo(t)
	saveTracks(t, repo, []int64{10, 11, 12}, 0)
	require.NoError(t, repo.RecordProgress(context.Background(), 1, 61500))

	reopened, err := reopen(t, dir)
	require.NoError(t, err)

	snap := snapshot(t, reopened)
	assert.Equal(t, testCtx, snap.Context)
	assert.Equal(t, []int64{10, 11, 12}, snap.TrackIDs())
	assert.Equal(t, track.NowPlayingInfo{PositionInQueue: 1, LastRecordedPositionMs: 61500}, snap.NowPlaying)
	assert.Equal(t, StatusReady, reopened.Status())
}

func TestRepository_CorruptStoreIsUnavailableNotEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queue.json"), []byte("{broken"), 0o644))

	repo, err := reopen(t, dir)
	require.True(t, errors.Is(err, store.ErrCorruptRecord))
	require.NotNil(t, repo)
	assert.Equal(t, StatusUnavailable, repo.Status())

	// Every mutation is rejected until an explicit reset.
	assert.True(t, errors.Is(repo.AddToQueue(context.Background(), 1), ErrUnavailable))
	assert.True(t, errors.Is(repo.MoveQueueItem(context.Background(), 0, 1), ErrUnavailable))
	assert.True(t, errors.Is(repo.Clear(context.Background()), ErrUnavailable))

	// Reset is the recovery path and works unconditionally.
	require.NoError(t, repo.Reset(context.Background()))
	assert.Equal(t, StatusEmpty, repo.Status())
	require.NoError(t, repo.AddToQueue(context.Background(), 1))
	assert.Equal(t, []int64{1}, snapshot(t, repo).TrackIDs())
}

func TestRepository_ClearAndReset(t *testing.T) {
	repo, dir := newTestRepo(t)
	saveTracks(t, repo, []int64{1, 2}, 1)

	require.NoError(t, repo.Clear(context.Background()))
	assert.Equal(t, StatusEmpty, repo.Status())
	_, ok := repo.Snapshot()
	assert.False(t, ok)

	// The store files are gone, so a restart comes up empty too.
	reopened, err := reopen(t, dir)
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, reopened.Status())
}

func TestRepository_GetQueueStreamsNextUp(t *testing.T) {
	repo, _ := newTestRepo(t)
	saveTracks(t, repo, []int64{10, 11, 12}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A late subscriber replays the latest snapshot immediately.
	next := <-repo.GetQueue(ctx)
	assert.Equal(t, []track.QueuedTrack{
		{Position: 1, TrackID: 11},
		{Position: 2, TrackID: 12},
	}, next.Tracks)

	full := <-repo.GetFullQueue(ctx)
	assert.Equal(t, []int64{10, 11, 12}, full.TrackIDs())
}

func TestRepository_PublishesAfterEveryMutation(t *testing.T) {
	repo, _ := newTestRepo(t)
	saveTracks(t, repo, []int64{10, 11}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := repo.GetFullQueue(ctx)
	<-ch

	require.NoError(t, repo.AddToQueue(context.Background(), 12))
	full := <-ch
	assert.Equal(t, []int64{10, 11, 12}, full.TrackIDs())

	require.NoError(t, repo.RemoveItemsFromQueue(context.Background(), []int{0}))
	full = <-ch
	assert.Equal(t, []int64{11, 12}, full.TrackIDs())
	assert.Equal(t, 0, full.NowPlaying.PositionInQueue)
}

func TestRepository_SnapshotIsACopy(t *testing.T) {
	repo, _ := newTestRepo(t)
	saveTracks(t, repo, []int64{10, 11}, 0)

	snap := snapshot(t, repo)
	snap.Tracks[0].TrackID = 99

	assert.Equal(t, []int64{10, 11}, snapshot(t, repo).TrackIDs())
}

func TestRepository_ConcurrentMutationsKeepSnapshotsConsistent(t *testing.T) {
	repo, _ := newTestRepo(t)
	saveTracks(t, repo, []int64{1, 2, 3, 4, 5, 6, 7, 8}, 2)

	// Every published snapshot must be fully renumbered with the pointer
	// inside the queue, no matter how the mutations interleave.
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	updates := repo.GetFullQueue(watchCtx)
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		for full := range updates {
			for i, qt := range full.Tracks {
				if qt.Position != i {
					t.Errorf("snapshot holds position %d at slot %d", qt.Position, i)
				}
			}
			cp := full.NowPlaying.PositionInQueue
			if cp != track.NoSession && (cp < 0 || cp >= len(full.Tracks)) {
				t.Errorf("snapshot pointer %d outside %d tracks", cp, len(full.Tracks))
			}
		}
	}()

	const workers = 4
	const rounds = 24
	var added, removed atomic.Int32
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			ctx := context.Background()
			for i := 0; i < rounds; i++ {
				switch i % 3 {
				case 0:
					if err := repo.AddToQueue(ctx, int64(100+seed*rounds+i)); err == nil {
						added.Add(1)
					} else {
						t.Errorf("add: %v", err)
					}
				case 1:
					err := repo.MoveQueueItem(ctx, (seed+i)%6, (seed+2*i+1)%6)
					if err != nil && !errors.Is(err, ErrOutOfRange) {
						t.Errorf("move: %v", err)
					}
				case 2:
					err := repo.RemoveItemsFromQueue(ctx, []int{(seed*7 + i) % 7})
					if err == nil {
						removed.Add(1)
					} else if !errors.Is(err, ErrOutOfRange) {
						t.Errorf("remove: %v", err)
					}
				}
			}
		}(w)
	}
	wg.Wait()
	cancelWatch()
	<-watcherDone

	snap := snapshot(t, repo)
	assertDense(t, snap.Tracks)
	assert.Len(t, snap.Tracks, 8+int(added.Load())-int(removed.Load()))
	cp := snap.NowPlaying.PositionInQueue
	if cp != track.NoSession {
		assert.GreaterOrEqual(t, cp, 0)
		assert.Less(t, cp, len(snap.Tracks))
	}
}
