package returns

import (
	"database/sql"
	"time"

	"PINJAM-backend/internal/asset_mgmt/lifecycle"
)

type Return struct {
	ReturnID      uint64
	ReturnULID    string
	BorrowingID   uint64
	BorrowingULID string
	AssetID       uint64
	Condition     string
	Note          sql.NullString
	ProcessedBy   sql.NullString
	ReturnedAt    time.Time
	CorrectedAt   sql.NullTime
	CorrectedBy   sql.NullString
}

// Subject is the borrowing being closed, as read inside the caller's transaction.
type Subject struct {
	BorrowingID   uint64
	BorrowingULID string
	AssetID       uint64
	State         lifecycle.State
}

type RecordInput struct {
	Condition   string
	Note        *string
	ProcessedBy string
}
