package reports

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"

	"PINJAM-backend/internal/asset_mgmt/condition"
	"PINJAM-backend/internal/platform/db"
)

type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn, dialect: db.DialectOf(conn)} }

// Returns lists every return recorded in [from, to), oldest first.
func (s *Store) Returns(ctx context.Context, w Window) ([]*ReturnRow, error) {
	query, args, err := s.dialect.Builder().
		From(goqu.T("returns").As("r")).
		Join(goqu.T("borrowings").As("b"), goqu.On(goqu.I("b.borrowing_id").Eq(goqu.I("r.borrowing_id")))).
		LeftJoin(goqu.T("assets").As("a"), goqu.On(goqu.I("a.asset_id").Eq(goqu.I("b.asset_id")))).
		LeftJoin(goqu.T("auth_accounts").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("b.borrower_id")))).
		Select(
			goqu.I("r.return_ulid"), goqu.I("b.borrowing_ulid"), goqu.I("b.asset_id"),
			goqu.COALESCE(goqu.I("a.name"), ""), goqu.I("b.borrower_id"),
			goqu.COALESCE(goqu.I("u.display_name"), ""), goqu.I("b.borrow_date"),
			goqu.I("r.returned_at"), goqu.I("r.observed_condition"), goqu.I("r.processed_by"),
		).
		Where(
			goqu.I("r.returned_at").Gte(w.From),
			goqu.I("r.returned_at").Lt(w.To),
		).
		Order(goqu.I("r.returned_at").Asc(), goqu.I("r.return_id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*ReturnRow{}
	for rows.Next() {
		var m ReturnRow
		if err := rows.Scan(
			&m.ReturnULID, &m.BorrowingULID, &m.AssetID, &m.AssetName, &m.BorrowerID,
			&m.BorrowerName, &m.BorrowDate, &m.ReturnedAt, &m.Condition, &m.ProcessedBy,
		); err != nil {
			return nil, err
		}
		// 区分は保存済みの状態ラベルから都度判定する
		m.Outcome = condition.OutcomeOf(m.Condition)
		out = append(out, &m)
	}
	return out, rows.Err()
}
