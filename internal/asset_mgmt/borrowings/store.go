package borrowings

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"PINJAM-backend/internal/asset_mgmt/lifecycle"
	"PINJAM-backend/internal/platform/db"
)

type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn, dialect: db.DialectOf(conn)} }

const selectBorrowing = `
	SELECT b.borrowing_id, b.borrowing_ulid, b.borrower_id, COALESCE(u.display_name, ''),
		b.asset_id, COALESCE(a.name, ''), b.state, b.borrow_date, b.requested_return_date,
		b.actual_return_date, b.condition_at_return, b.approver_id, b.decided_at, b.note,
		b.created_at, b.updated_at
	FROM borrowings b
	LEFT JOIN auth_accounts u ON u.id = b.borrower_id
	LEFT JOIN assets a ON a.asset_id = b.asset_id`

type rowScanner interface{ Scan(dest ...any) error }

func scanBorrowing(row rowScanner) (*Borrowing, error) {
	var m Borrowing
	var state string
	if err := row.Scan(
		&m.BorrowingID, &m.BorrowingULID, &m.BorrowerID, &m.BorrowerName,
		&m.AssetID, &m.AssetName, &state, &m.BorrowDate, &m.RequestedReturnDate,
		&m.ActualReturnDate, &m.ConditionAtReturn, &m.ApproverID, &m.DecidedAt, &m.Note,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.State = lifecycle.State(state)
	return &m, nil
}

// GetByKey resolves a numeric borrowing_id or a borrowing_ulid.
// With lock set the row is held FOR UPDATE on MySQL.
func (s *Store) GetByKey(ctx context.Context, q db.DBTX, key string, lock bool) (*Borrowing, error) {
	where := ` WHERE b.borrowing_ulid = ?`
	var arg any = key
	if id, err := strconv.ParseUint(key, 10, 64); err == nil && id > 0 {
		where, arg = ` WHERE b.borrowing_id = ?`, id
	}
	suffix := ""
	if lock {
		suffix = s.dialect.ForUpdate()
	}
	return scanBorrowing(q.QueryRowContext(ctx, selectBorrowing+where+suffix, arg))
}

// CurrentState is the cheap re-read used to explain a lost compare-and-swap.
func (s *Store) CurrentState(ctx context.Context, q db.DBTX, id uint64) (lifecycle.State, error) {
	var st string
	if err := q.QueryRowContext(ctx, `SELECT state FROM borrowings WHERE borrowing_id = ?`, id).Scan(&st); err != nil {
		return "", err
	}
	return lifecycle.State(st), nil
}

// Insert writes a Pending borrowing. active_asset_id is UNIQUE, so a second
// open borrowing on the same asset fails here even if availability was stale.
func (s *Store) Insert(ctx context.Context, q db.DBTX, m *Borrowing) error {
	const stmt = `
	INSERT INTO borrowings
	(borrowing_ulid, borrower_id, asset_id, state, borrow_date, requested_return_date, note,
	 active_asset_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt,
		m.BorrowingULID, m.BorrowerID, m.AssetID, string(m.State), m.BorrowDate, m.RequestedReturnDate, m.Note,
		m.AssetID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.BorrowingID = uint64(id)
	return nil
}

// Decide moves a Pending borrowing to Approved or Rejected. A rejection also
// frees the asset slot. Reports false when the row was no longer Pending.
func (s *Store) Decide(ctx context.Context, q db.DBTX, id uint64, to lifecycle.State, approverID string, at time.Time) (bool, error) {
	const stmt = `
	UPDATE borrowings
	SET state = ?, approver_id = ?, decided_at = ?, updated_at = ?,
		active_asset_id = CASE WHEN ? THEN NULL ELSE active_asset_id END
	WHERE borrowing_id = ? AND state = ?`
	res, err := q.ExecContext(ctx, stmt,
		string(to), approverID, at, at, to.Terminal(), id, string(lifecycle.Pending))
	if err != nil {
		return false, err
	}
	return db.AffectedOne(res)
}

// Close moves an Approved borrowing to Returned.
func (s *Store) Close(ctx context.Context, q db.DBTX, id uint64, cond string, at time.Time) (bool, error) {
	const stmt = `
	UPDATE borrowings
	SET state = ?, actual_return_date = ?, condition_at_return = ?, active_asset_id = NULL, updated_at = ?
	WHERE borrowing_id = ? AND state = ?`
	res, err := q.ExecContext(ctx, stmt,
		string(lifecycle.Returned), at, cond, at, id, string(lifecycle.Approved))
	if err != nil {
		return false, err
	}
	return db.AffectedOne(res)
}

func (s *Store) InsertEvent(ctx context.Context, q db.DBTX, e *EventRow) error {
	const stmt = `
	INSERT INTO borrowing_events (borrowing_id, from_state, to_state, actor_id, occurred_at)
	VALUES (?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt, e.BorrowingID, string(e.From), string(e.To), e.ActorID, e.OccurredAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.EventID = uint64(id)
	return nil
}

func (s *Store) ListEvents(ctx context.Context, borrowingID uint64) ([]EventRow, error) {
	const q = `
	SELECT event_id, borrowing_id, from_state, to_state, actor_id, occurred_at
	FROM borrowing_events
	WHERE borrowing_id = ?
	ORDER BY event_id ASC`
	rows, err := s.db.QueryContext(ctx, q, borrowingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []EventRow{}
	for rows.Next() {
		var e EventRow
		var from, to string
		if err := rows.Scan(&e.EventID, &e.BorrowingID, &from, &to, &e.ActorID, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.From, e.To = lifecycle.State(from), lifecycle.State(to)
		out = append(out, e)
	}
	return out, rows.Err()
}

var borrowingColumns = []any{
	goqu.I("b.borrowing_id"), goqu.I("b.borrowing_ulid"), goqu.I("b.borrower_id"),
	goqu.COALESCE(goqu.I("u.display_name"), ""),
	goqu.I("b.asset_id"), goqu.COALESCE(goqu.I("a.name"), ""), goqu.I("b.state"),
	goqu.I("b.borrow_date"), goqu.I("b.requested_return_date"), goqu.I("b.actual_return_date"),
	goqu.I("b.condition_at_return"), goqu.I("b.approver_id"), goqu.I("b.decided_at"), goqu.I("b.note"),
	goqu.I("b.created_at"), goqu.I("b.updated_at"),
}

func (s *Store) List(ctx context.Context, f Filter, p db.Page) ([]*Borrowing, int64, error) {
	where := []exp.Expression{}
	if f.Q != nil && strings.TrimSpace(*f.Q) != "" {
		q := strings.TrimSpace(*f.Q)
		where = append(where, goqu.Or(
			db.Contains("u.display_name", q),
			db.Contains("a.name", q),
		))
	}
	if f.State != nil {
		where = append(where, goqu.I("b.state").Eq(string(*f.State)))
	}
	if f.BorrowerID != nil {
		where = append(where, goqu.I("b.borrower_id").Eq(*f.BorrowerID))
	}
	if f.AssetID != nil {
		where = append(where, goqu.I("b.asset_id").Eq(*f.AssetID))
	}
	if f.From != nil {
		where = append(where, goqu.I("b.borrow_date").Gte(*f.From))
	}
	if f.To != nil {
		where = append(where, goqu.I("b.borrow_date").Lt(*f.To))
	}

	ds := s.dialect.Builder().
		From(goqu.T("borrowings").As("b")).
		LeftJoin(goqu.T("auth_accounts").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("b.borrower_id")))).
		LeftJoin(goqu.T("assets").As("a"), goqu.On(goqu.I("a.asset_id").Eq(goqu.I("b.asset_id")))).
		Where(where...)

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := goqu.I("b.borrowing_id").Desc()
	if p.Order == "asc" {
		order = goqu.I("b.borrowing_id").Asc()
	}
	listSQL, listArgs, err := ds.Select(borrowingColumns...).
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

	out := []*Borrowing{}
	for rows.Next() {
		m, err := scanBorrowing(rows)
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
