package assets

import (
	"database/sql"
	"time"

	"PINJAM-backend/internal/asset_mgmt/condition"
)

type Asset struct {
	AssetID      uint64
	Name         string
	CategoryID   uint
	CategoryName string
	Condition    string
	Availability condition.Availability
	Note         sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
	RemovedAt    sql.NullTime
}

func (a *Asset) Removed() bool { return a.RemovedAt.Valid }

// Lendable means a new borrowing may be created against the asset.
func (a *Asset) Lendable() bool { return !a.Removed() && a.Availability == condition.Available }
