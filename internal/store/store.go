// Package store persists named saved views (filter presets) in a local
// sqlite database. Task data itself is never stored locally; it is owned by
// the backend.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"taskflow/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

type Store struct {
	DB *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SaveView inserts a new view when ID is zero, otherwise updates in place.
func (s *Store) SaveView(ctx context.Context, view model.SavedView) (model.SavedView, error) {
	payload, err := json.Marshal(view.Filter)
	if err != nil {
		return model.SavedView{}, err
	}

	if view.ID == 0 {
		// saving under an existing name replaces that view's filters
		if _, err := s.DB.ExecContext(ctx,
			`INSERT INTO views (name, filter_json) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET filter_json = excluded.filter_json, updated_at = CURRENT_TIMESTAMP`,
			view.Name, string(payload)); err != nil {
			return model.SavedView{}, err
		}
		return s.GetViewByName(ctx, view.Name)
	}

	if _, err := s.DB.ExecContext(ctx,
		"UPDATE views SET name = ?, filter_json = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		view.Name, string(payload), view.ID); err != nil {
		return model.SavedView{}, err
	}
	return s.getView(ctx, view.ID)
}

func (s *Store) ListViews(ctx context.Context) ([]model.SavedView, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, name, filter_json, created_at, updated_at FROM views ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]model.SavedView, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

func (s *Store) GetViewByName(ctx context.Context, name string) (model.SavedView, error) {
	row := s.DB.QueryRowContext(ctx,
		"SELECT id, name, filter_json, created_at, updated_at FROM views WHERE name = ?", name)
	return scanView(row)
}

func (s *Store) DeleteView(ctx context.Context, viewID int64) error {
	_, err := s.DB.ExecContext(ctx, "DELETE FROM views WHERE id = ?", viewID)
	return err
}

func (s *Store) getView(ctx context.Context, viewID int64) (model.SavedView, error) {
	row := s.DB.QueryRowContext(ctx,
		"SELECT id, name, filter_json, created_at, updated_at FROM views WHERE id = ?", viewID)
	return scanView(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanView(row rowScanner) (model.SavedView, error) {
	var view model.SavedView
	var filterJSON string
	if err := row.Scan(&view.ID, &view.Name, &filterJSON, &view.CreatedAt, &view.UpdatedAt); err != nil {
		return model.SavedView{}, err
	}
	if err := json.Unmarshal([]byte(filterJSON), &view.Filter); err != nil {
		return model.SavedView{}, err
	}
	return view, nil
}
