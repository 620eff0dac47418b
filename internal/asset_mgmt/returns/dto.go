package returns

import "time"

type CorrectReturnRequest struct {
	Condition *string `json:"condition,omitempty"`
	Note      *string `json:"note,omitempty"`
}

type ReturnResponse struct {
	ReturnULID    string     `json:"return_ulid"`
	BorrowingULID string     `json:"borrowing_ulid"`
	AssetID       uint64     `json:"asset_id"`
	Condition     string     `json:"condition"`
	Outcome       string     `json:"outcome"`
	Note          *string    `json:"note,omitempty"`
	ProcessedBy   *string    `json:"processed_by,omitempty"`
	ReturnedAt    time.Time  `json:"returned_at"`
	CorrectedAt   *time.Time `json:"corrected_at,omitempty"`
	CorrectedBy   *string    `json:"corrected_by,omitempty"`
}
