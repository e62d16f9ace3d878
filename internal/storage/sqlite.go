package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/zukan/internal/fileid"
	"github.com/hyperjump/zukan/internal/models"
)

const (
	metaIndexID  = "index_id"
	metaDocument = "document"
	metaPages    = "pages"
)

// SQLiteStorage implements ImageRepository using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		page INTEGER NOT NULL,
		position INTEGER NOT NULL,
		data TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_images_page ON images(page, position);

	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceImages deletes all stored images and inserts images in one transaction.
func (s *SQLiteStorage) ReplaceImages(ctx context.Context, manifest Manifest, images models.ImageStore) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM images`); err != nil {
		return fmt.Errorf("clear images: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO images (id, page, position, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range images.IDs() {
		page, pos, ok := fileid.ParseImageID(id)
		if !ok {
			page, pos = -1, -1
		}
		if _, err := stmt.ExecContext(ctx, id, page, pos, images[id]); err != nil {
			return fmt.Errorf("insert image %s: %w", id, err)
		}
	}
	for key, value := range map[string]string{
		metaIndexID:  manifest.IndexID,
		metaDocument: manifest.Document,
		metaPages:    strconv.Itoa(manifest.Pages),
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO store_meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return fmt.Errorf("record %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// LoadImages returns every stored image.
func (s *SQLiteStorage) LoadImages(ctx context.Context) (models.ImageStore, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM images ORDER BY page, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := models.ImageStore{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		images[id] = data
	}
	return images, rows.Err()
}

// Manifest returns the manifest recorded with the stored images.
func (s *SQLiteStorage) Manifest(ctx context.Context) (Manifest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM store_meta`)
	if err != nil {
		return Manifest{}, err
	}
	defer rows.Close()

	var m Manifest
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Manifest{}, err
		}
		switch key {
		case metaIndexID:
			m.IndexID = value
		case metaDocument:
			m.Document = value
		case metaPages:
			m.Pages, _ = strconv.Atoi(value)
		}
	}
	return m, rows.Err()
}

// CountImages returns the number of stored images.
func (s *SQLiteStorage) CountImages(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// OpenImages opens the images database inside dir. With create false, a missing database
// is reported as ErrNotFound instead of being created.
func OpenImages(dir string, create bool) (ImageRepository, error) {
	path := filepath.Join(dir, ImagesFile)
	if !create {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
	}
	store, err := NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}
