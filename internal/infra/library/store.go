// Package library provides the SQLite-backed library metadata store.
//
// The store answers the ordered child queries of the media tree
// (genre -> artist -> album -> track), resolves playback groups into ordered
// track lists, and supplies track durations to the playback engine.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/osa030/tunedeck/internal/domain/mediakey"
	"github.com/osa030/tunedeck/internal/domain/track"
)

// ErrNotFound is returned when a referenced library entity does not exist.
var ErrNotFound = errors.New("library: not found")

// Item is one browsable child of a media-tree node.
type Item struct {
	ID          int64
	DisplayName string
	IsPlayable  bool
}

// Store wraps the library database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the library database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral library.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "library: open database")
	}
	// modernc sqlite serializes writes per connection; a single connection
	// keeps transactions from seeing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "library: ensure schema")
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ChildrenOf returns the ordered children of the given type under parentID.
// For TypeGenre the parent is the tree root and parentID is ignored.
func (s *Store) ChildrenOf(ctx context.Context, t mediakey.Type, parentID int64) ([]Item, error) {
	var rows *sql.Rows
	var err error

	switch t {
	case mediakey.TypeGenre:
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, name, 0 FROM genres ORDER BY name, id`)
	case mediakey.TypeArtist:
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, name, 0 FROM artists WHERE genre_id = ? ORDER BY name, id`, parentID)
	case mediakey.TypeAlbum:
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, name, 0 FROM albums WHERE artist_id = ? ORDER BY name, id`, parentID)
	case mediakey.TypeTrack:
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, title, playable FROM tracks WHERE album_id = ? ORDER BY track_no, id`, parentID)
	default:
		return nil, errors.Newf("library: node type %s has no children", t)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "library: children of %s/%d", t, parentID)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var playable int
		if err := rows.Scan(&it.ID, &it.DisplayName, &playable); err != nil {
			return nil, errors.Wrap(err, "library: scan child row")
		}
		it.IsPlayable = t == mediakey.TypeTrack && playable != 0
		items = append(items, it)
	}
	return items, rows.Err()
}

// NameOf returns the display name of a library entity.
func (s *Store) NameOf(ctx context.Context, t mediakey.Type, id int64) (string, error) {
	var query string
	switch t {
	case mediakey.TypeGenre:
		query = `SELECT name FROM genres WHERE id = ?`
	case mediakey.TypeArtist:
		query = `SELECT name FROM artists WHERE id = ?`
	case mediakey.TypeAlbum:
		query = `SELECT name FROM albums WHERE id = ?`
	case mediakey.TypeTrack:
		query = `SELECT title FROM tracks WHERE id = ?`
	default:
		return "", errors.Newf("library: node type %s has no name", t)
	}

	var name string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(ErrNotFound, "%s/%d", t, id)
	}
	if err != nil {
		return "", errors.Wrapf(err, "library: name of %s/%d", t, id)
	}
	return name, nil
}

// TracksFor resolves a playback group into an ordered track ID list.
// Ad-hoc groups pass their inline list through unchanged; library groups
// expand in album/track order.
func (s *Store) TracksFor(ctx context.Context, g track.Group) ([]int64, error) {
	var rows *sql.Rows
	var err error

	switch g.Kind {
	case track.GroupTracks:
		return g.TrackIDs, nil
	case track.GroupAlbum:
		rows, err = s.db.QueryContext(ctx, `
			SELECT id FROM tracks
			WHERE album_id = ? AND playable = 1
			ORDER BY track_no, id`, g.ID)
	case track.GroupArtist:
		rows, err = s.db.QueryContext(ctx, `
			SELECT t.id FROM tracks t
			JOIN albums a ON a.id = t.album_id
			WHERE a.artist_id = ? AND t.playable = 1
			ORDER BY a.name, a.id, t.track_no, t.id`, g.ID)
	case track.GroupGenre:
		rows, err = s.db.QueryContext(ctx, `
			SELECT t.id FROM tracks t
			JOIN albums a ON a.id = t.album_id
			JOIN artists ar ON ar.id = a.artist_id
			WHERE ar.genre_id = ? AND t.playable = 1
			ORDER BY ar.name, ar.id, a.name, a.id, t.track_no, t.id`, g.ID)
	default:
		return nil, errors.Newf("library: unknown group kind %q", g.Kind)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "library: resolve group %s/%d", g.Kind, g.ID)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "library: scan track id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DurationsFor returns the duration of each requested track, keyed by ID.
// Unknown IDs are simply absent from the result.
func (s *Store) DurationsFor(ctx context.Context, trackIDs []int64) (map[int64]time.Duration, error) {
	result := make(map[int64]time.Duration, len(trackIDs))
	if len(trackIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(trackIDs))
	args := make([]any, len(trackIDs))
	for i, id := range trackIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT id, duration_ms FROM tracks WHERE id IN (%s)`,
		strings.Join(placeholders, ","),
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "library: query durations")
	}
	defer rows.Close()

	for rows.Next() {
		var id, ms int64
		if err := rows.Scan(&id, &ms); err != nil {
			return nil, errors.Wrap(err, "library: scan duration row")
		}
		result[id] = time.Duration(ms) * time.Millisecond
	}
	return result, rows.Err()
}

// GetTrack returns the full metadata view of one track.
func (s *Store) GetTrack(ctx context.Context, id int64) (track.Track, error) {
	var t track.Track
	var durationMs int64
	var playable int
	err := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.title, t.duration_ms, t.playable, a.name, ar.name, g.name
		FROM tracks t
		JOIN albums a ON a.id = t.album_id
		JOIN artists ar ON ar.id = a.artist_id
		JOIN genres g ON g.id = ar.genre_id
		WHERE t.id = ?`, id).
		Scan(&t.ID, &t.Title, &durationMs, &playable, &t.Album, &t.Artist, &t.Genre)
	if errors.Is(err, sql.ErrNoRows) {
		return track.Track{}, errors.Wrapf(ErrNotFound, "track/%d", id)
	}
	if err != nil {
		return track.Track{}, errors.Wrapf(err, "library: get track %d", id)
	}
	t.Duration = time.Duration(durationMs) * time.Millisecond
	t.IsPlayable = playable != 0
	return t, nil
}

// SetPlayable flips the playable flag of a track. Unplayable tracks stay
// browsable but are excluded from group resolution.
func (s *Store) SetPlayable(ctx context.Context, trackID int64, playable bool) error {
	flag := 0
	if playable {
		flag = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tracks SET playable = ? WHERE id = ?`, flag, trackID)
	if err != nil {
		return errors.Wrapf(err, "library: set playable on track %d", trackID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "library: rows affected")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "track/%d", trackID)
	}
	return nil
}

// AddGenre inserts a genre and returns its ID. Existing names are reused.
func (s *Store) AddGenre(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM genres WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, errors.Wrapf(err, "library: lookup genre %q", name)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO genres (name) VALUES (?)`, name)
	if err != nil {
		return 0, errors.Wrapf(err, "library: add genre %q", name)
	}
	return res.LastInsertId()
}

// AddArtist inserts an artist under a genre and returns its ID.
func (s *Store) AddArtist(ctx context.Context, name string, genreID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO artists (name, genre_id) VALUES (?, ?)`, name, genreID)
	if err != nil {
		return 0, errors.Wrapf(err, "library: add artist %q", name)
	}
	return res.LastInsertId()
}

// AddAlbum inserts an album under an artist and returns its ID.
func (s *Store) AddAlbum(ctx context.Context, name string, artistID int64, year int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO albums (name, artist_id, year)
		VALUES (?, ?, NULLIF(?, 0))`, name, artistID, year)
	if err != nil {
		return 0, errors.Wrapf(err, "library: add album %q", name)
	}
	return res.LastInsertId()
}

// AddTrack inserts a track under an album and returns its ID.
func (s *Store) AddTrack(ctx context.Context, title string, albumID int64, trackNo int, duration time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (title, album_id, track_no, duration_ms)
		VALUES (?, ?, ?, ?)`, title, albumID, trackNo, duration.Milliseconds())
	if err != nil {
		return 0, errors.Wrapf(err, "library: add track %q", title)
	}
	return res.LastInsertId()
}
