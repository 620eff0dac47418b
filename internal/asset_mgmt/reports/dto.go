package reports

import (
	"time"

	"PINJAM-backend/internal/asset_mgmt/condition"
)

type ReturnRowResponse struct {
	ReturnULID    string            `json:"return_ulid"`
	BorrowingULID string            `json:"borrowing_ulid"`
	AssetID       uint64            `json:"asset_id"`
	AssetName     string            `json:"asset_name"`
	BorrowerID    string            `json:"borrower_id"`
	BorrowerName  string            `json:"borrower_name"`
	BorrowDate    string            `json:"borrow_date"`
	ReturnedAt    time.Time         `json:"returned_at"`
	Condition     string            `json:"condition"`
	Outcome       condition.Outcome `json:"outcome"`
	ProcessedBy   *string           `json:"processed_by,omitempty"`
}

type SummaryResponse struct {
	From    time.Time                 `json:"from"`
	To      time.Time                 `json:"to"`
	Outcome *condition.Outcome        `json:"outcome,omitempty"`
	Total   int                       `json:"total"`
	Counts  map[condition.Outcome]int `json:"counts"`
	Items   []ReturnRowResponse       `json:"items"`
}
