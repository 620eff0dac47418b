package reports

import (
	"database/sql"
	"time"

	"PINJAM-backend/internal/asset_mgmt/condition"
)

// ReturnRow is one returned borrowing inside the report window.
type ReturnRow struct {
	ReturnULID    string
	BorrowingULID string
	AssetID       uint64
	AssetName     string
	BorrowerID    string
	BorrowerName  string
	BorrowDate    time.Time
	ReturnedAt    time.Time
	Condition     string
	Outcome       condition.Outcome
	ProcessedBy   sql.NullString
}

// Window is [From, To). Outcome narrows the rows when set.
type Window struct {
	From    time.Time
	To      time.Time
	Outcome *condition.Outcome
}
