package disposals

import "time"

type CreateDisposalRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type DisposalResponse struct {
	DisposalULID string    `json:"disposal_ulid"`
	AssetID      uint64    `json:"asset_id"`
	AssetName    string    `json:"asset_name"`
	Reason       *string   `json:"reason,omitempty"`
	ProcessedBy  *string   `json:"processed_by,omitempty"`
	DisposedAt   time.Time `json:"disposed_at"`
}

type ListResult struct {
	Items      []DisposalResponse `json:"items"`
	Total      int64              `json:"total"`
	NextOffset int                `json:"next_offset"`
}
