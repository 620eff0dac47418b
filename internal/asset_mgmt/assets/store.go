package assets

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"PINJAM-backend/internal/platform/db"
)

type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn, dialect: db.DialectOf(conn)} }

func (s *Store) Insert(ctx context.Context, q db.DBTX, a *Asset) (uint64, error) {
	const stmt = `
	INSERT INTO assets
	(name, category_id, condition_label, availability, note, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt,
		a.Name, a.CategoryID, a.Condition, string(a.Availability), a.Note, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// UpdateMeta changes descriptive columns only. Availability goes through Registry.
func (s *Store) UpdateMeta(ctx context.Context, q db.DBTX, id uint64, in UpdateAssetRequest, now time.Time) error {
	// 動的アップデート
	sets := []string{}
	args := []any{}
	if in.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*in.Name))
	}
	if in.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *in.CategoryID)
	}
	if in.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, *in.Note)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)
	stmt := fmt.Sprintf(`UPDATE assets SET %s WHERE asset_id = ?`, strings.Join(sets, ", "))
	_, err := q.ExecContext(ctx, stmt, args...)
	return err
}

var assetColumns = []any{
	goqu.I("a.asset_id"), goqu.I("a.name"), goqu.I("a.category_id"),
	goqu.COALESCE(goqu.I("c.category_name"), ""), goqu.I("a.condition_label"),
	goqu.I("a.availability"), goqu.I("a.note"), goqu.I("a.created_at"), goqu.I("a.updated_at"), goqu.I("a.removed_at"),
}

func (s *Store) List(ctx context.Context, f AssetSearchQuery, p db.Page) ([]*Asset, int64, error) {
	where := []exp.Expression{}
	if f.Name != nil && strings.TrimSpace(*f.Name) != "" {
		where = append(where, db.Contains("a.name", strings.TrimSpace(*f.Name)))
	}
	if f.CategoryID != nil {
		where = append(where, goqu.I("a.category_id").Eq(*f.CategoryID))
	}
	if f.Availability != nil {
		where = append(where, goqu.I("a.availability").Eq(string(*f.Availability)))
	}
	if !f.IncludeRemoved {
		where = append(where, goqu.I("a.removed_at").IsNull())
	}

	ds := s.dialect.Builder().
		From(goqu.T("assets").As("a")).
		LeftJoin(goqu.T("asset_categories").As("c"), goqu.On(goqu.I("c.category_id").Eq(goqu.I("a.category_id")))).
		Where(where...)

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := goqu.I("a.asset_id").Desc()
	if p.Order == "asc" {
		order = goqu.I("a.asset_id").Asc()
	}
	listSQL, listArgs, err := ds.Select(assetColumns...).
		Order(order).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
