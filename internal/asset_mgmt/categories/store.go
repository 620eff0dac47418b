package categories

import (
	"context"
	"database/sql"
	"errors"

	"PINJAM-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// GET /categories?all=1
func (s *Store) List(ctx context.Context, includeDisabled bool) ([]Category, error) {
	q := `
		SELECT category_id, category_name, category_code, is_disabled
		FROM asset_categories
	`
	if !includeDisabled {
		q += ` WHERE is_disabled = 0`
	}
	q += ` ORDER BY category_id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]Category, 0, 16)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.CategoryID, &c.CategoryName, &c.CategoryCode, &c.IsDisabled); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) GetByID(ctx context.Context, q db.DBTX, id uint) (*Category, error) {
	const query = `
		SELECT category_id, category_name, category_code, is_disabled
		FROM asset_categories
		WHERE category_id = ?
	`
	var c Category
	err := q.QueryRowContext(ctx, query, id).Scan(&c.CategoryID, &c.CategoryName, &c.CategoryCode, &c.IsDisabled)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Create(ctx context.Context, name, code string) (*Category, error) {
	const q = `
		INSERT INTO asset_categories (category_name, category_code, is_disabled)
		VALUES (?, ?, 0)
	`
	r, err := s.db.ExecContext(ctx, q, name, code)
	if err != nil {
		return nil, err
	}
	lastID, err := r.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Category{CategoryID: uint(lastID), CategoryName: name, CategoryCode: code}, nil
}

func (s *Store) Update(ctx context.Context, id uint, name, code string, disabled bool) error {
	const q = `
		UPDATE asset_categories
		SET category_name = ?, category_code = ?, is_disabled = ?
		WHERE category_id = ?
	`
	if _, err := s.db.ExecContext(ctx, q, name, code, disabled, id); err != nil {
		return err
	}
	// MySQL は値が同じだと affected=0 になるので存在確認は別で行う
	if _, err := s.GetByID(ctx, s.db, id); err != nil {
		return err
	}
	return nil
}

// DELETE: is_disabled=1 にする
func (s *Store) Disable(ctx context.Context, id uint) error {
	const q = `UPDATE asset_categories SET is_disabled = 1 WHERE category_id = ?`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return err
	}
	_, err := s.GetByID(ctx, s.db, id)
	return err
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
