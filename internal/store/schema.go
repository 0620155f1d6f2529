package store

const Schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id TEXT PRIMARY KEY,
	recording_id TEXT NOT NULL,
	track_filename TEXT NOT NULL,
	status TEXT NOT NULL,
	progress REAL DEFAULT 0,
	bytes_downloaded INTEGER DEFAULT 0,
	total_bytes INTEGER DEFAULT 0,
	priority INTEGER DEFAULT 0,
	error TEXT,
	marked_for_deletion BOOLEAN DEFAULT 0,
	file_path TEXT DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME,

	UNIQUE (recording_id, track_filename)
);

CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);
CREATE INDEX IF NOT EXISTS idx_downloads_recording_id ON downloads(recording_id);

CREATE TABLE IF NOT EXISTS shows (
	id TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	venue TEXT,
	city TEXT,
	state TEXT,
	best_recording_id TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS recordings (
	id TEXT PRIMARY KEY,
	show_id TEXT NOT NULL,
	source_type TEXT NOT NULL,
	rating REAL,
	rating_count INTEGER DEFAULT 0,
	tracks TEXT,  -- JSON array

	FOREIGN KEY (show_id) REFERENCES shows(id)
);

CREATE INDEX IF NOT EXISTS idx_recordings_show_id ON recordings(show_id);

CREATE TABLE IF NOT EXISTS library (
	show_id TEXT PRIMARY KEY,
	added_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
