package disposals

import (
	"database/sql"
	"time"
)

type Disposal struct {
	DisposalID   uint64
	DisposalULID string
	AssetID      uint64
	AssetName    string
	Reason       sql.NullString
	ProcessedBy  sql.NullString
	DisposedAt   time.Time
}

type DisposalFilter struct {
	AssetID *uint64
	From    *time.Time
	To      *time.Time
}
