package assets

import (
	"time"

	"PINJAM-backend/internal/asset_mgmt/condition"
)

// ===== Requests =====

type CreateAssetRequest struct {
	Name       string  `json:"name" binding:"required"`
	CategoryID uint    `json:"category_id" binding:"required"`
	Condition  *string `json:"condition,omitempty"` // 未指定なら Baik
	Note       *string `json:"note,omitempty"`
}

type UpdateAssetRequest struct {
	Name       *string `json:"name,omitempty"`
	CategoryID *uint   `json:"category_id,omitempty"`
	Condition  *string `json:"condition,omitempty"` // 修理完了などの再評価
	Note       *string `json:"note,omitempty"`
}

// ===== Responses =====

type AssetResponse struct {
	AssetID      uint64                 `json:"asset_id"`
	Name         string                 `json:"name"`
	CategoryID   uint                   `json:"category_id"`
	CategoryName string                 `json:"category_name"`
	Condition    string                 `json:"condition"`
	Availability condition.Availability `json:"availability"`
	Note         *string                `json:"note,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	RemovedAt    *time.Time             `json:"removed_at,omitempty"`
}

type ListResult struct {
	Items      []AssetResponse `json:"items"`
	Total      int64           `json:"total"`
	NextOffset int             `json:"next_offset"`
}

// ===== Listing helpers =====

type AssetSearchQuery struct {
	Name           *string
	CategoryID     *uint
	Availability   *condition.Availability
	IncludeRemoved bool
}

func toResponse(a *Asset) AssetResponse {
	r := AssetResponse{
		AssetID:      a.AssetID,
		Name:         a.Name,
		CategoryID:   a.CategoryID,
		CategoryName: a.CategoryName,
		Condition:    a.Condition,
		Availability: a.Availability,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.Note.Valid {
		v := a.Note.String
		r.Note = &v
	}
	if a.RemovedAt.Valid {
		v := a.RemovedAt.Time
		r.RemovedAt = &v
	}
	return r
}
