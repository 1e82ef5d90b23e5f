package library

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateMedia(ctx context.Context, m *MediaFile) error
	GetMedia(ctx context.Context, id string) (*MediaFile, error)
	GetMediaByPath(ctx context.Context, path string) (*MediaFile, error)
	ListMedia(ctx context.Context) ([]*MediaFile, error)
	DeleteMedia(ctx context.Context, id string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateMedia(ctx context.Context, m *MediaFile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media (id, filename, path, mime, kind, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Filename, m.Path, m.MIME, m.Kind, m.SizeBytes, m.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetMedia(ctx context.Context, id string) (*MediaFile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, filename, path, mime, kind, size_bytes, created_at
		FROM media WHERE id = ?
	`, id)
	return r.scanMedia(row)
}

func (r *SQLiteRepository) GetMediaByPath(ctx context.Context, path string) (*MediaFile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, filename, path, mime, kind, size_bytes, created_at
		FROM media WHERE path = ?
	`, path)
	return r.scanMedia(row)
}

func (r *SQLiteRepository) scanMedia(row *sql.Row) (*MediaFile, error) {
	var m MediaFile
	var createdAt string

	err := row.Scan(&m.ID, &m.Filename, &m.Path, &m.MIME, &m.Kind, &m.SizeBytes, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

func (r *SQLiteRepository) ListMedia(ctx context.Context) ([]*MediaFile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, path, mime, kind, size_bytes, created_at
		FROM media ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var media []*MediaFile
	for rows.Next() {
		var m MediaFile
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Filename, &m.Path, &m.MIME, &m.Kind, &m.SizeBytes, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		media = append(media, &m)
	}
	return media, rows.Err()
}

func (r *SQLiteRepository) DeleteMedia(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	return err
}
