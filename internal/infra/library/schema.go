package library

const schemaGenres = `
CREATE TABLE IF NOT EXISTS genres (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);`

const schemaArtists = `
CREATE TABLE IF NOT EXISTS artists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	genre_id INTEGER NOT NULL,
	FOREIGN KEY (genre_id) REFERENCES genres(id) ON DELETE CASCADE
);`

const schemaAlbums = `
CREATE TABLE IF NOT EXISTS albums (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	artist_id INTEGER NOT NULL,
	year INTEGER CHECK (year IS NULL OR (year >= 1000 AND year <= 3000)),
	FOREIGN KEY (artist_id) REFERENCES artists(id) ON DELETE CASCADE
);`

const schemaTracks = `
CREATE TABLE IF NOT EXISTS tracks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	album_id INTEGER NOT NULL,
	track_no INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0 CHECK (duration_ms >= 0),
	playable INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE CASCADE
);`

const schemaIndexes = `
CREATE INDEX IF NOT EXISTS idx_artists_genre ON artists(genre_id, name);
CREATE INDEX IF NOT EXISTS idx_albums_artist ON albums(artist_id, name);
CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album_id, track_no);
`

// EnsureSchema creates the library tables and indexes if missing.
func (s *Store) EnsureSchema() error {
	for _, stmt := range []string{
		schemaGenres,
		schemaArtists,
		schemaAlbums,
		schemaTracks,
		schemaIndexes,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
