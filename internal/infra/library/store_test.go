package library

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunedeck/internal/domain/mediakey"
	"github.com/osa030/tunedeck/internal/domain/track"
)

// seed holds the IDs of a small fixture library:
//
//	Rock
//	  The Examples
//	    First Album (2001): Opener, Deep Cut, Hidden (unplayable)
//	    Second Album (2004): Comeback
//	  Zeta Band
//	    Live (2010): Encore
//	Jazz
//	  Solo Act
//	    Standards: Take One
type seed struct {
	rock, jazz          int64
	examples, zeta      int64
	solo                int64
	first, second       int64
	live, standards     int64
	opener, deepCut     int64
	hidden, comeback    int64
	encore, takeOne     int64
}

func newTestStore(t *testing.T) (*Store, seed) {
	t.Helper()
	ctx := context.Background()

	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var sd seed
	sd.rock, err = s.AddGenre(ctx, "Rock")
	require.NoError(t, err)
	sd.jazz, err = s.AddGenre(ctx, "Jazz")
	require.NoError(t, err)

	sd.examples, err = s.AddArtist(ctx, "The Examples", sd.rock)
	require.NoError(t, err)
	sd.zeta, err = s.AddArtist(ctx, "Zeta Band", sd.rock)
	require.NoError(t, err)
	sd.solo, err = s.AddArtist(ctx, "Solo Act", sd.jazz)
	require.NoError(t, err)

	sd.first, err = s.AddAlbum(ctx, "First Album", sd.examples, 2001)
	require.NoError(t, err)
	sd.second, err = s.AddAlbum(ctx, "Second Album", sd.examples, 2004)
	require.NoError(t, err)
	sd.live, err = s.AddAlbum(ctx, "Live", sd.zeta, 2010)
	require.NoError(t, err)
	sd.standards, err = s.AddAlbum(ctx, "Standards", sd.solo, 0)
	require.NoError(t, err)

	sd.opener, err = s.AddTrack(ctx, "Opener", sd.first, 1, 3*time.Minute)
	require.NoError(t, err)
	sd.deepCut, err = s.AddTrack(ctx, "Deep Cut", sd.first, 2, 4*time.Minute)
	require.NoError(t, err)
	sd.hidden, err = s.AddTrack(ctx, "Hidden", sd.first, 3, 90*time.Second)
	require.NoError(t, err)
	require.NoError(t, s.SetPlayable(ctx, sd.hidden, false))
	sd.comeback, err = s.AddTrack(ctx, "Comeback", sd.second, 1, 5*time.Minute)
	require.NoError(t, err)
	sd.encore, err = s.AddTrack(ctx, "Encore", sd.live, 1, 6*time.Minute)
	require.NoError(t, err)
	sd.takeOne, err = s.AddTrack(ctx, "Take One", sd.standards, 1, 7*time.Minute)
	require.NoError(t, err)

	return s, sd
}

func names(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.DisplayName
	}
	return out
}

func TestStore_ChildrenOf(t *testing.T) {
	s, sd := newTestStore(t)
	ctx := context.Background()

	genres, err := s.ChildrenOf(ctx, mediakey.TypeGenre, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jazz", "Rock"}, names(genres))

	artists, err := s.ChildrenOf(ctx, mediakey.TypeArtist, sd.rock)
	require.NoError(t, err)
	assert.Equal(t, []string{"The Examples", "Zeta Band"}, names(artists))

	albums, err := s.ChildrenOf(ctx, mediakey.TypeAlbum, sd.examples)
	require.NoError(t, err)
	assert.Equal(t, []string{"First Album", "Second Album"}, names(albums))

	tracks, err := s.ChildrenOf(ctx, mediakey.TypeTrack, sd.first)
	require.NoError(t, err)
	require.Equal(t, []string{"Opener", "Deep Cut", "Hidden"}, names(tracks))
	assert.True(t, tracks[0].IsPlayable)
	assert.True(t, tracks[1].IsPlayable)
	assert.False(t, tracks[2].IsPlayable)

	_, err = s.ChildrenOf(ctx, mediakey.TypeRoot, 0)
	assert.Error(t, err)
}

func TestStore_ChildrenOfEmptyParent(t *testing.T) {
	s, _ := newTestStore(t)

	items, err := s.ChildrenOf(context.Background(), mediakey.TypeArtist, 99999)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_NameOf(t *testing.T) {
	s, sd := newTestStore(t)
	ctx := context.Background()

	name, err := s.NameOf(ctx, mediakey.TypeAlbum, sd.first)
	require.NoError(t, err)
	assert.Equal(t, "First Album", name)

	name, err = s.NameOf(ctx, mediakey.TypeTrack, sd.encore)
	require.NoError(t, err)
	assert.Equal(t, "Encore", name)

	_, err = s.NameOf(ctx, mediakey.TypeAlbum, 99999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_TracksFor(t *testing.T) {
	s, sd := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		group    track.Group
		expected []int64
	}{
		{
			name:  "album skips unplayable tracks",
			group: track.Group{Kind: track.GroupAlbum, ID: sd.first},
			// Hidden is unplayable and must not appear.
			expected: []int64{sd.opener, sd.deepCut},
		},
		{
			name:     "artist expands albums in name order",
			group:    track.Group{Kind: track.GroupArtist, ID: sd.examples},
			expected: []int64{sd.opener, sd.deepCut, sd.comeback},
		},
		{
			name:     "genre expands artists in name order",
			group:    track.Group{Kind: track.GroupGenre, ID: sd.rock},
			expected: []int64{sd.opener, sd.deepCut, sd.comeback, sd.encore},
		},
		{
			name:     "ad hoc list passes through verbatim",
			group:    track.Group{Kind: track.GroupTracks, TrackIDs: []int64{sd.encore, sd.opener}},
			expected: []int64{sd.encore, sd.opener},
		},
		{
			name:     "empty album",
			group:    track.Group{Kind: track.GroupAlbum, ID: 99999},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := s.TracksFor(ctx, tt.group)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids)
		})
	}

	_, err := s.TracksFor(ctx, track.Group{Kind: "playlist"})
	assert.Error(t, err)
}

func TestStore_DurationsFor(t *testing.T) {
	s, sd := newTestStore(t)
	ctx := context.Background()

	durs, err := s.DurationsFor(ctx, []int64{sd.opener, sd.encore, 99999})
	require.NoError(t, err)
	assert.Equal(t, map[int64]time.Duration{
		sd.opener: 3 * time.Minute,
		sd.encore: 6 * time.Minute,
	}, durs)

	durs, err = s.DurationsFor(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, durs)
}

func TestStore_GetTrack(t *testing.T) {
	s, sd := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetTrack(ctx, sd.deepCut)
	require.NoError(t, err)
	assert.Equal(t, track.Track{
		ID:         sd.deepCut,
		Title:      "Deep Cut",
		Artist:     "The Examples",
		Album:      "First Album",
		Genre:      "Rock",
		Duration:   4 * time.Minute,
		IsPlayable: true,
	}, got)

	_, err = s.GetTrack(ctx, 99999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_AddGenreReusesExisting(t *testing.T) {
	s, sd := newTestStore(t)

	id, err := s.AddGenre(context.Background(), "Rock")
	require.NoError(t, err)
	assert.Equal(t, sd.rock, id)
}

func TestStore_SetPlayableUnknownTrack(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.SetPlayable(context.Background(), 99999, false)
	assert.True(t, errors.Is(err, ErrNotFound))
}
