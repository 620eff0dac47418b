package borrowings

import (
	"database/sql"
	"time"

	"PINJAM-backend/internal/asset_mgmt/lifecycle"
)

type Borrowing struct {
	BorrowingID         uint64
	BorrowingULID       string
	BorrowerID          string
	BorrowerName        string
	AssetID             uint64
	AssetName           string
	State               lifecycle.State
	BorrowDate          time.Time
	RequestedReturnDate sql.NullTime
	ActualReturnDate    sql.NullTime
	ConditionAtReturn   sql.NullString
	ApproverID          sql.NullString
	DecidedAt           sql.NullTime
	Note                sql.NullString
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type EventRow struct {
	EventID     uint64
	BorrowingID uint64
	From        lifecycle.State
	To          lifecycle.State
	ActorID     string
	OccurredAt  time.Time
}

type Filter struct {
	Q          *string // 借用者名・資産名の部分一致
	State      *lifecycle.State
	BorrowerID *string
	AssetID    *uint64
	From       *time.Time // borrow_date >= From
	To         *time.Time // borrow_date < To
}
