package returns

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"PINJAM-backend/internal/platform/db"
)

type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn, dialect: db.DialectOf(conn)} }

const selectReturn = `
	SELECT r.return_id, r.return_ulid, r.borrowing_id, b.borrowing_ulid, b.asset_id,
		r.observed_condition, r.note, r.processed_by, r.returned_at, r.corrected_at, r.corrected_by
	FROM returns r
	JOIN borrowings b ON b.borrowing_id = r.borrowing_id`

type rowScanner interface{ Scan(dest ...any) error }

func scanReturn(row rowScanner) (*Return, error) {
	var m Return
	if err := row.Scan(
		&m.ReturnID, &m.ReturnULID, &m.BorrowingID, &m.BorrowingULID, &m.AssetID,
		&m.Condition, &m.Note, &m.ProcessedBy, &m.ReturnedAt, &m.CorrectedAt, &m.CorrectedBy,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetByULID(ctx context.Context, q db.DBTX, ulid string) (*Return, error) {
	return scanReturn(q.QueryRowContext(ctx, selectReturn+` WHERE r.return_ulid = ?`, ulid))
}

// GetByULIDForUpdate locks the return row on MySQL.
func (s *Store) GetByULIDForUpdate(ctx context.Context, q db.DBTX, ulid string) (*Return, error) {
	return scanReturn(q.QueryRowContext(ctx, selectReturn+` WHERE r.return_ulid = ?`+s.dialect.ForUpdate(), ulid))
}

func (s *Store) GetByID(ctx context.Context, q db.DBTX, id uint64) (*Return, error) {
	return scanReturn(q.QueryRowContext(ctx, selectReturn+` WHERE r.return_id = ?`, id))
}

// GetByBorrowingKey looks the return up by borrowing id or borrowing ULID.
func (s *Store) GetByBorrowingKey(ctx context.Context, q db.DBTX, key string) (*Return, error) {
	if id, err := strconv.ParseUint(key, 10, 64); err == nil && id > 0 {
		return scanReturn(q.QueryRowContext(ctx, selectReturn+` WHERE b.borrowing_id = ?`, id))
	}
	return scanReturn(q.QueryRowContext(ctx, selectReturn+` WHERE b.borrowing_ulid = ?`, key))
}

func (s *Store) ExistsForBorrowing(ctx context.Context, q db.DBTX, borrowingID uint64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM returns WHERE borrowing_id = ?`, borrowingID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Insert(ctx context.Context, q db.DBTX, m *Return) error {
	const stmt = `
	INSERT INTO returns
	(return_ulid, borrowing_id, observed_condition, note, processed_by, returned_at)
	VALUES (?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt, m.ReturnULID, m.BorrowingID, m.Condition, m.Note, m.ProcessedBy, m.ReturnedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ReturnID = uint64(id)
	return nil
}

// Correct applies the single allowed correction. It reports false when the
// return was already corrected.
func (s *Store) Correct(ctx context.Context, q db.DBTX, returnID uint64, cond string, note sql.NullString, at time.Time, by string) (bool, error) {
	const stmt = `
	UPDATE returns
	SET observed_condition = ?, note = COALESCE(?, note), corrected_at = ?, corrected_by = ?
	WHERE return_id = ? AND corrected_at IS NULL`
	res, err := q.ExecContext(ctx, stmt, cond, note, at, by, returnID)
	if err != nil {
		return false, err
	}
	return db.AffectedOne(res)
}

// SyncBorrowingCondition keeps borrowings.condition_at_return equal to the return record.
func (s *Store) SyncBorrowingCondition(ctx context.Context, q db.DBTX, borrowingID uint64, cond string, at time.Time) error {
	const stmt = `UPDATE borrowings SET condition_at_return = ?, updated_at = ? WHERE borrowing_id = ?`
	_, err := q.ExecContext(ctx, stmt, cond, at, borrowingID)
	return err
}
