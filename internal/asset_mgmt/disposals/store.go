package disposals

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"PINJAM-backend/internal/platform/db"
)

type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn, dialect: db.DialectOf(conn)} }

func (s *Store) Insert(ctx context.Context, q db.DBTX, m *Disposal) error {
	const stmt = `
	INSERT INTO disposals (disposal_ulid, asset_id, reason, processed_by, disposed_at)
	VALUES (?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt, m.DisposalULID, m.AssetID, m.Reason, m.ProcessedBy, m.DisposedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.DisposalID = uint64(id)
	return nil
}

var disposalColumns = []any{
	goqu.I("d.disposal_id"), goqu.I("d.disposal_ulid"), goqu.I("d.asset_id"),
	goqu.COALESCE(goqu.I("a.name"), ""), goqu.I("d.reason"), goqu.I("d.processed_by"), goqu.I("d.disposed_at"),
}

func (s *Store) base() *goqu.SelectDataset {
	return s.dialect.Builder().
		From(goqu.T("disposals").As("d")).
		LeftJoin(goqu.T("assets").As("a"), goqu.On(goqu.I("a.asset_id").Eq(goqu.I("d.asset_id"))))
}

type rowScanner interface{ Scan(dest ...any) error }

func scanDisposal(row rowScanner) (*Disposal, error) {
	var m Disposal
	if err := row.Scan(&m.DisposalID, &m.DisposalULID, &m.AssetID, &m.AssetName, &m.Reason, &m.ProcessedBy, &m.DisposedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Disposal, error) {
	query, args, err := s.base().Select(disposalColumns...).
		Where(goqu.I("d.disposal_ulid").Eq(ulid)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	return scanDisposal(s.db.QueryRowContext(ctx, query, args...))
}

func (s *Store) List(ctx context.Context, f DisposalFilter, p db.Page) ([]*Disposal, int64, error) {
	where := []exp.Expression{}
	if f.AssetID != nil {
		where = append(where, goqu.I("d.asset_id").Eq(*f.AssetID))
	}
	if f.From != nil {
		where = append(where, goqu.I("d.disposed_at").Gte(*f.From))
	}
	if f.To != nil {
		where = append(where, goqu.I("d.disposed_at").Lt(*f.To))
	}
	ds := s.base().Where(where...)

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := goqu.I("d.disposal_id").Desc()
	if p.Order == "asc" {
		order = goqu.I("d.disposal_id").Asc()
	}
	listSQL, listArgs, err := ds.Select(disposalColumns...).
		Order(order).Limit(uint(p.Limit)).Offset(uint(p.Offset)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*Disposal{}
	for rows.Next() {
		m, err := scanDisposal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
