package assets

import (
	"context"
	"database/sql"
	"strings"

	"PINJAM-backend/internal/asset_mgmt/categories"
	"PINJAM-backend/internal/asset_mgmt/condition"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db"
	"PINJAM-backend/internal/platform/idgen"
)

type Service struct {
	db         *sql.DB
	store      *Store
	registry   *Registry
	categories *categories.Service
	clock      idgen.Clock
}

func NewService(conn *sql.DB, registry *Registry, cats *categories.Service) *Service {
	return &Service{
		db:         conn,
		store:      NewStore(conn),
		registry:   registry,
		categories: cats,
		clock:      idgen.SystemClock{},
	}
}

func parseCondition(in *string) (condition.Label, error) {
	if in == nil || strings.TrimSpace(*in) == "" {
		return condition.Baik, nil
	}
	l, ok := condition.Parse(*in)
	if !ok {
		return "", apierr.ErrInvalid("unrecognized condition: " + *in)
	}
	return l, nil
}

// POST /assets
func (s *Service) CreateAsset(ctx context.Context, in CreateAssetRequest) (AssetResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return AssetResponse{}, apierr.ErrInvalid("name is required")
	}
	label, err := parseCondition(in.Condition)
	if err != nil {
		return AssetResponse{}, err
	}

	now := s.clock.Now()
	a := &Asset{
		Name:         name,
		CategoryID:   in.CategoryID,
		Condition:    string(label),
		Availability: label.Availability(),
		Note:         toNullString(in.Note),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var out *Asset
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := s.categories.RequireEnabled(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		id, err := s.store.Insert(ctx, tx, a)
		if err != nil {
			return apierr.ErrInternal("insert asset", err)
		}
		out, err = s.registry.Get(ctx, tx, id)
		return err
	})
	if err != nil {
		return AssetResponse{}, err
	}
	return toResponse(out), nil
}

func (s *Service) GetAsset(ctx context.Context, id uint64) (AssetResponse, error) {
	a, err := s.registry.Get(ctx, s.db, id)
	if err != nil {
		return AssetResponse{}, err
	}
	return toResponse(a), nil
}

func (s *Service) ListAssets(ctx context.Context, q AssetSearchQuery, p db.Page) (ListResult, error) {
	p = p.Normalize()
	rows, total, err := s.store.List(ctx, q, p)
	if err != nil {
		return ListResult{}, apierr.ErrInternal("list assets", err)
	}
	items := make([]AssetResponse, 0, len(rows))
	for _, a := range rows {
		items = append(items, toResponse(a))
	}
	return ListResult{Items: items, Total: total, NextOffset: p.NextOffset(total)}, nil
}

// PATCH /assets/:asset_id
// A condition change runs through Registry.Reassess, so it is refused while the asset is on loan.
func (s *Service) UpdateAsset(ctx context.Context, id uint64, in UpdateAssetRequest) (AssetResponse, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return AssetResponse{}, apierr.ErrInvalid("name must not be empty")
	}
	var label *condition.Label
	if in.Condition != nil {
		l, ok := condition.Parse(*in.Condition)
		if !ok {
			return AssetResponse{}, apierr.ErrInvalid("unrecognized condition: " + *in.Condition)
		}
		label = &l
	}

	var out *Asset
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		cur, err := s.registry.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.Removed() {
			return apierr.ErrConflict("asset has been removed").On("asset", idString(id))
		}
		if in.CategoryID != nil {
			if err := s.categories.RequireEnabled(ctx, tx, *in.CategoryID); err != nil {
				return err
			}
		}
		if err := s.store.UpdateMeta(ctx, tx, id, in, s.clock.Now()); err != nil {
			return apierr.ErrInternal("update asset", err)
		}
		if label != nil {
			if err := s.registry.Reassess(ctx, tx, id, *label); err != nil {
				return err
			}
		}
		out, err = s.registry.Get(ctx, tx, id)
		return err
	})
	if err != nil {
		return AssetResponse{}, err
	}
	return toResponse(out), nil
}

// helpers

func toNullString(s *string) (ns sql.NullString) {
	if s != nil && strings.TrimSpace(*s) != "" {
		ns.Valid, ns.String = true, *s
	}
	return
}
