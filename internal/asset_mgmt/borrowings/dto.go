package borrowings

import (
	"time"

	"PINJAM-backend/internal/asset_mgmt/lifecycle"
	"PINJAM-backend/internal/asset_mgmt/returns"
)

// ===== Requests =====

type CreateBorrowingRequest struct {
	AssetID             uint64  `json:"asset_id" binding:"required"`
	BorrowDate          string  `json:"borrow_date" binding:"required"` // YYYY-MM-DD
	RequestedReturnDate *string `json:"requested_return_date,omitempty"`
	Note                *string `json:"note,omitempty"`
}

type ConfirmReturnRequest struct {
	Condition string  `json:"condition" binding:"required"`
	Note      *string `json:"note,omitempty"`
}

// ===== Responses =====

type BorrowingResponse struct {
	BorrowingID         uint64          `json:"borrowing_id"`
	BorrowingULID       string          `json:"borrowing_ulid"`
	BorrowerID          string          `json:"borrower_id"`
	BorrowerName        string          `json:"borrower_name"`
	AssetID             uint64          `json:"asset_id"`
	AssetName           string          `json:"asset_name"`
	State               lifecycle.State `json:"state"`
	BorrowDate          string          `json:"borrow_date"`
	RequestedReturnDate *string         `json:"requested_return_date,omitempty"`
	ActualReturnDate    *time.Time      `json:"actual_return_date,omitempty"`
	ConditionAtReturn   *string         `json:"condition_at_return,omitempty"`
	ApproverID          *string         `json:"approver_id,omitempty"`
	DecidedAt           *time.Time      `json:"decided_at,omitempty"`
	Note                *string         `json:"note,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type ConfirmReturnResponse struct {
	Borrowing BorrowingResponse      `json:"borrowing"`
	Return    returns.ReturnResponse `json:"return"`
}

type EventResponse struct {
	From       lifecycle.State `json:"from"`
	To         lifecycle.State `json:"to"`
	ActorID    string          `json:"actor_id"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type ListResult struct {
	Items      []BorrowingResponse `json:"items"`
	Total      int64               `json:"total"`
	NextOffset int                 `json:"next_offset"`
}
