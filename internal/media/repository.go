package media

import (
	"context"
	"database/sql"
	"time"
)

// timeLayout is fixed-width so stored timestamps sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Repository interface {
	UpsertMedia(ctx context.Context, m *Media) error
	GetMedia(ctx context.Context, id string) (*Media, error)
	GetMediaByFingerprint(ctx context.Context, fingerprint string) (*Media, error)
	ListRecentMedia(ctx context.Context, limit int) ([]*Media, error)

	PutThumbnail(ctx context.Context, t *Thumbnail) error
	GetThumbnail(ctx context.Context, fingerprint string, timestampMs int64, width int) (*Thumbnail, error)
	TouchThumbnail(ctx context.Context, fingerprint string, timestampMs int64, width int) error
	DeleteThumbnail(ctx context.Context, fingerprint string, timestampMs int64, width int) error
	ListThumbnailsByAge(ctx context.Context) ([]*Thumbnail, error)
	ThumbnailBytes(ctx context.Context) (int64, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const mediaColumns = `id, path, filename, size, mtime, fingerprint, duration, frame_rate, width, height, codec, opened_at, created_at`

// UpsertMedia inserts m or, when the fingerprint is already known, refreshes
// the stored path and probe results while keeping the original id.
func (r *SQLiteRepository) UpsertMedia(ctx context.Context, m *Media) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media (`+mediaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			path = excluded.path,
			filename = excluded.filename,
			size = excluded.size,
			mtime = excluded.mtime,
			duration = excluded.duration,
			frame_rate = excluded.frame_rate,
			width = excluded.width,
			height = excluded.height,
			codec = excluded.codec,
			opened_at = excluded.opened_at
	`, m.ID, m.Path, m.Filename, m.Size, m.Mtime.Format(time.RFC3339), m.Fingerprint,
		m.Duration, m.FrameRate, m.Width, m.Height, m.Codec,
		m.OpenedAt.Format(time.RFC3339), m.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetMedia(ctx context.Context, id string) (*Media, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	return scanMedia(row)
}

func (r *SQLiteRepository) GetMediaByFingerprint(ctx context.Context, fingerprint string) (*Media, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE fingerprint = ?`, fingerprint)
	return scanMedia(row)
}

func (r *SQLiteRepository) ListRecentMedia(ctx context.Context, limit int) ([]*Media, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media ORDER BY opened_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedia(row scanner) (*Media, error) {
	var m Media
	var mtime, openedAt, createdAt string
	err := row.Scan(&m.ID, &m.Path, &m.Filename, &m.Size, &mtime, &m.Fingerprint,
		&m.Duration, &m.FrameRate, &m.Width, &m.Height, &m.Codec, &openedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Mtime, _ = time.Parse(time.RFC3339, mtime)
	m.OpenedAt, _ = time.Parse(time.RFC3339, openedAt)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

func (r *SQLiteRepository) PutThumbnail(ctx context.Context, t *Thumbnail) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO thumbnails (fingerprint, timestamp_ms, width, path, bytes, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.Fingerprint, t.TimestampMs, t.Width, t.Path, t.Bytes,
		t.CreatedAt.UTC().Format(timeLayout), t.LastUsedAt.UTC().Format(timeLayout))
	return err
}

func (r *SQLiteRepository) GetThumbnail(ctx context.Context, fingerprint string, timestampMs int64, width int) (*Thumbnail, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT fingerprint, timestamp_ms, width, path, bytes, created_at, last_used_at
		FROM thumbnails WHERE fingerprint = ? AND timestamp_ms = ? AND width = ?
	`, fingerprint, timestampMs, width)
	return scanThumbnail(row)
}

func (r *SQLiteRepository) TouchThumbnail(ctx context.Context, fingerprint string, timestampMs int64, width int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE thumbnails SET last_used_at = ? WHERE fingerprint = ? AND timestamp_ms = ? AND width = ?",
		time.Now().UTC().Format(timeLayout), fingerprint, timestampMs, width)
	return err
}

func (r *SQLiteRepository) DeleteThumbnail(ctx context.Context, fingerprint string, timestampMs int64, width int) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM thumbnails WHERE fingerprint = ? AND timestamp_ms = ? AND width = ?",
		fingerprint, timestampMs, width)
	return err
}

// ListThumbnailsByAge returns every index row, least recently used first.
func (r *SQLiteRepository) ListThumbnailsByAge(ctx context.Context) ([]*Thumbnail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fingerprint, timestamp_ms, width, path, bytes, created_at, last_used_at
		FROM thumbnails ORDER BY last_used_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Thumbnail
	for rows.Next() {
		t, err := scanThumbnail(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *SQLiteRepository) ThumbnailBytes(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(bytes), 0) FROM thumbnails").Scan(&total)
	return total, err
}

func scanThumbnail(row scanner) (*Thumbnail, error) {
	var t Thumbnail
	var createdAt, lastUsedAt string
	err := row.Scan(&t.Fingerprint, &t.TimestampMs, &t.Width, &t.Path, &t.Bytes, &createdAt, &lastUsedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	t.LastUsedAt, _ = time.Parse(timeLayout, lastUsedAt)
	return &t, nil
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
