package disposals

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	"PINJAM-backend/internal/asset_mgmt/assets"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db"
	"PINJAM-backend/internal/platform/idgen"
)

type Service struct {
	db       *sql.DB
	store    *Store
	registry *assets.Registry
	clock    idgen.Clock
	id       idgen.IDGen
}

func NewService(conn *sql.DB, registry *assets.Registry) *Service {
	return &Service{
		db:       conn,
		store:    NewStore(conn),
		registry: registry,
		clock:    idgen.SystemClock{},
		id:       idgen.ULIDGen{},
	}
}

// POST /assets/:asset_id/disposals
// 廃棄は資産の論理削除と同じTxで記録する。貸出中の資産は廃棄できない。
func (s *Service) CreateDisposal(ctx context.Context, actorID string, assetID uint64, in CreateDisposalRequest) (DisposalResponse, error) {
	now := s.clock.Now()
	m := &Disposal{
		DisposalULID: s.id.NewULID(now),
		AssetID:      assetID,
		Reason:       toNullString(in.Reason),
		ProcessedBy:  toNullString(&actorID),
		DisposedAt:   now,
	}

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		a, err := s.registry.Get(ctx, tx, assetID)
		if err != nil {
			return err
		}
		m.AssetName = a.Name
		if err := s.registry.Retire(ctx, tx, assetID); err != nil {
			return err
		}
		if err := s.store.Insert(ctx, tx, m); err != nil {
			if db.IsUniqueViolation(err) {
				return apierr.ErrDuplicate("asset", a.Name, "asset already disposed")
			}
			return apierr.ErrInternal("insert disposal", err)
		}
		return nil
	})
	if err != nil {
		return DisposalResponse{}, err
	}
	log.Printf("[INFO] asset %d disposed by %s (%s)", assetID, actorID, m.DisposalULID)
	return toResponse(m), nil
}

func (s *Service) GetDisposalByULID(ctx context.Context, ul string) (DisposalResponse, error) {
	m, err := s.store.GetByULID(ctx, ul)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DisposalResponse{}, apierr.ErrNotFound("disposal", ul)
		}
		return DisposalResponse{}, apierr.ErrInternal("get disposal", err)
	}
	return toResponse(m), nil
}

func (s *Service) ListDisposals(ctx context.Context, f DisposalFilter, p db.Page) (ListResult, error) {
	p = p.Normalize()
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return ListResult{}, apierr.ErrInternal("list disposals", err)
	}
	items := make([]DisposalResponse, 0, len(rows))
	for _, m := range rows {
		items = append(items, toResponse(m))
	}
	return ListResult{Items: items, Total: total, NextOffset: p.NextOffset(total)}, nil
}

// ---- helpers ----

func toResponse(m *Disposal) DisposalResponse {
	return DisposalResponse{
		DisposalULID: m.DisposalULID,
		AssetID:      m.AssetID,
		AssetName:    m.AssetName,
		Reason:       nullToPtr(m.Reason),
		ProcessedBy:  nullToPtr(m.ProcessedBy),
		DisposedAt:   m.DisposedAt,
	}
}

func toNullString(s *string) (ns sql.NullString) {
	if s != nil && strings.TrimSpace(*s) != "" {
		ns.Valid, ns.String = true, *s
	}
	return
}

func nullToPtr(ns sql.NullString) *string {
	if ns.Valid {
		v := ns.String
		return &v
	}
	return nil
}
